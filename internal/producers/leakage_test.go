package producers_test

import (
	"math"
	"testing"

	"github.com/farcloser/turnmark/internal/producers"
)

func sineWave(freqHz float64, amplitude float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate))
	}

	return out
}

func TestLeakageMonoInputIsAllZero(t *testing.T) {
	leak := producers.NewLeakage(producers.DefaultLeakageOptions())

	track, err := leak.ComputeFromChannels(sineWave(440, 0.5, 8000, 8000), nil, 8000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < track.T(); i++ {
		if track.At(i, 0) != 0 {
			t.Fatalf("expected all-zero leakage for mono input, got %v at frame %d", track.At(i, 0), i)
		}
	}
}

func TestLeakageIdenticalLoudChannelsIndicateBleed(t *testing.T) {
	left := sineWave(440, 0.9, 8000, 8000)
	right := sineWave(440, 0.3, 8000, 8000) // same spectrum, quieter -> plausible bleed

	leak := producers.NewLeakage(producers.DefaultLeakageOptions())

	track, err := leak.ComputeFromChannels(left, right, 8000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var anyPositive bool

	for i := 0; i < track.T(); i++ {
		if track.At(i, 0) > 0 {
			anyPositive = true
		}
	}

	if !anyPositive {
		t.Fatal("expected at least some leakage evidence for spectrally identical, dominance-separated channels")
	}
}

func TestLeakageDissimilarTonesIsLowSimilarity(t *testing.T) {
	left := sineWave(200, 0.8, 8000, 8000)
	right := sineWave(3700, 0.8, 8000, 8000)

	leak := producers.NewLeakage(producers.DefaultLeakageOptions())

	track, err := leak.ComputeFromChannels(left, right, 8000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < track.T(); i++ {
		if track.At(i, 0) > 0.2 {
			t.Fatalf("expected low leakage for spectrally dissimilar channels, got %v at frame %d", track.At(i, 0), i)
		}
	}
}
