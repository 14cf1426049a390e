package pipeline

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/farcloser/turnmark/internal/audioio"
)

// toneSamples builds stereo samples where the left channel carries a tone
// for its full duration and the right channel is silence, giving a clear
// "speaker A only" signal with no stereo leakage.
func toneSamples(sampleRate, numFrames int, freqHz float64) audioio.Samples {
	left := make([]float64, numFrames)
	right := make([]float64, numFrames)

	for i := range left {
		left[i] = 0.6 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate))
	}

	return audioio.Samples{
		Format:   audioio.Format{SampleRate: sampleRate, Channels: 2},
		Channels: [][]float64{left, right},
	}
}

func testSource(t *testing.T) audioio.Source {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "audio.wav")

	if err := os.WriteFile(path, []byte("not real audio, only stat'd"), 0o644); err != nil {
		t.Fatalf("writing stub source file: %v", err)
	}

	src, err := audioio.OpenSource(path)
	if err != nil {
		t.Fatalf("opening stub source: %v", err)
	}

	return src
}

func TestRunFromSamplesProducesStatesAndIPUs(t *testing.T) {
	samples := toneSamples(16000, 16000, 220.0)

	result, err := runFromSamples(testSource(t), samples, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.NFrames == 0 {
		t.Fatal("expected a non-zero decoded frame count")
	}

	if len(result.States) != result.NFrames {
		t.Fatalf("expected len(states)=%d to equal NFrames=%d", len(result.States), result.NFrames)
	}

	if result.HopSeconds <= 0 {
		t.Fatalf("expected a positive hop, got %v", result.HopSeconds)
	}

	if _, ok := result.IPUs[LabelA]; !ok {
		t.Fatal("expected an A label entry even if empty")
	}
}

func TestRunFromSamplesWritesArtifacts(t *testing.T) {
	samples := toneSamples(16000, 16000, 220.0)

	opts := DefaultOptions()
	opts.OutDir = t.TempDir()

	_, err := runFromSamples(testSource(t), samples, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"states.json", "ipus.json", "turns.TextGrid"} {
		if _, err := os.Stat(filepath.Join(opts.OutDir, name)); err != nil {
			t.Fatalf("expected artifact %s to exist: %v", name, err)
		}
	}
}

func TestRunFromSamplesIsCacheConsistent(t *testing.T) {
	samples := toneSamples(16000, 16000, 220.0)

	opts := DefaultOptions()
	opts.CacheDir = t.TempDir()

	src := testSource(t)

	first, err := runFromSamples(src, samples, opts)
	if err != nil {
		t.Fatalf("unexpected error on first run: %v", err)
	}

	second, err := runFromSamples(src, samples, opts)
	if err != nil {
		t.Fatalf("unexpected error on cached run: %v", err)
	}

	if len(first.States) != len(second.States) {
		t.Fatalf("expected cache hit to reproduce the same decode, got %d vs %d", len(first.States), len(second.States))
	}

	for i := range first.States {
		if first.States[i] != second.States[i] {
			t.Fatalf("state %d diverged between cached and uncached runs", i)
		}
	}
}

func TestRunFromSamplesRejectsMonoForDiarization(t *testing.T) {
	mono := audioio.Samples{
		Format:   audioio.Format{SampleRate: 16000, Channels: 1},
		Channels: [][]float64{make([]float64, 16000)},
	}

	_, err := runFromSamples(testSource(t), mono, DefaultOptions())
	if err == nil {
		t.Fatal("expected an error for mono input, which has no second channel to diarize against")
	}
}
