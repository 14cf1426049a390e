package pipeline

import (
	"fmt"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/audioio"
	"github.com/farcloser/turnmark/internal/cachestore"
	"github.com/farcloser/turnmark/internal/evidence"
	"github.com/farcloser/turnmark/internal/timebase"
)

// trackDTO is evidence.Track's on-disk cache shape. Track's Timebase has
// no exported fields (by design: callers build it through constructors,
// never by literal), so it can't round-trip through encoding/json on its
// own — this DTO carries the two values NewWithFrames needs to rebuild it.
type trackDTO struct {
	Name       string
	HopSeconds float64
	NFrames    int
	Values     []float64
	Width      int
	Semantics  string
	Confidence []float64
	Metadata   map[string]string
}

func toDTO(t evidence.Track) trackDTO {
	return trackDTO{
		Name:       t.Name,
		HopSeconds: t.TB.HopSeconds(),
		NFrames:    t.TB.NFrames(),
		Values:     t.Values,
		Width:      t.Width,
		Semantics:  string(t.Semantics),
		Confidence: t.Confidence,
		Metadata:   t.Metadata,
	}
}

func fromDTO(d trackDTO) (evidence.Track, error) {
	tb, err := timebase.NewWithFrames(d.HopSeconds, d.NFrames)
	if err != nil {
		return evidence.Track{}, fmt.Errorf("%w: rebuilding cached timebase: %w", apperr.ErrInternal, err)
	}

	return evidence.NewTrack(d.Name, tb, d.Values, d.Width, evidence.Semantics(d.Semantics), d.Confidence, d.Metadata)
}

// cachedTrack runs compute and caches its evidence.Track result under a
// key derived from src plus producerName/params, or returns the cached
// value on a hit. A disabled store (cacheDir == "") makes this a plain
// passthrough.
func cachedTrack(
	store *cachestore.Store,
	src audioio.Source,
	producerName string,
	params map[string]any,
	compute func() (evidence.Track, error),
) (evidence.Track, error) {
	key, err := cachestore.Key(src.Path, src.AbsPath, src.Size, src.ModTimeUnixNano, producerName, params)
	if err != nil {
		return evidence.Track{}, err
	}

	var dto trackDTO

	hit, err := store.Get(key, ".json", &dto)
	if err != nil {
		return evidence.Track{}, err
	}

	if hit {
		return fromDTO(dto)
	}

	track, err := compute()
	if err != nil {
		return evidence.Track{}, err
	}

	if err := store.Put(key, ".json", toDTO(track)); err != nil {
		return evidence.Track{}, err
	}

	return track, nil
}
