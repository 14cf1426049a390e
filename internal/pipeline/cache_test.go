package pipeline

import (
	"errors"
	"testing"

	"github.com/farcloser/turnmark/internal/audioio"
	"github.com/farcloser/turnmark/internal/cachestore"
	"github.com/farcloser/turnmark/internal/evidence"
	"github.com/farcloser/turnmark/internal/timebase"
)

func sampleTrack(t *testing.T) evidence.Track {
	t.Helper()

	tb := timebase.Canonical(3)

	track, err := evidence.NewTrack("vad", tb, []float64{0.1, 0.2, 0.3}, 1, evidence.Probability, nil, nil)
	if err != nil {
		t.Fatalf("building sample track: %v", err)
	}

	return track
}

func TestToDTOFromDTORoundTrips(t *testing.T) {
	track := sampleTrack(t)

	dto := toDTO(track)

	rebuilt, err := fromDTO(dto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rebuilt.Name != track.Name || rebuilt.T() != track.T() || !rebuilt.TB.SameHop(track.TB) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", rebuilt, track)
	}

	for i, v := range track.Values {
		if rebuilt.Values[i] != v {
			t.Fatalf("value %d mismatch: got %v, want %v", i, rebuilt.Values[i], v)
		}
	}
}

func TestCachedTrackMissComputesThenHits(t *testing.T) {
	store := cachestore.NewStore(t.TempDir())
	src := audioio.Source{Path: "a.wav", AbsPath: "/abs/a.wav", Size: 10, ModTimeUnixNano: 1}

	calls := 0

	compute := func() (evidence.Track, error) {
		calls++
		return sampleTrack(t), nil
	}

	first, err := cachedTrack(store, src, "vad", map[string]any{"threshold_db": -45.0}, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := cachedTrack(store, src, "vad", map[string]any{"threshold_db": -45.0}, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected compute to run once, ran %d times", calls)
	}

	if first.T() != second.T() {
		t.Fatalf("expected matching frame counts, got %d vs %d", first.T(), second.T())
	}
}

func TestCachedTrackPropagatesComputeError(t *testing.T) {
	store := cachestore.NewStore(t.TempDir())
	src := audioio.Source{Path: "a.wav", AbsPath: "/abs/a.wav", Size: 10, ModTimeUnixNano: 1}

	boom := errors.New("boom")

	_, err := cachedTrack(store, src, "vad", nil, func() (evidence.Track, error) {
		return evidence.Track{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom to propagate, got %v", err)
	}
}
