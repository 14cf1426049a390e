package producers_test

import (
	"testing"

	"github.com/farcloser/turnmark/internal/producers"
)

func TestVADLoudSignalIsHighProbability(t *testing.T) {
	vad := producers.NewVAD(producers.DefaultVADOptions())

	track, err := vad.ComputeFromEnergy([]float64{-10, -10, -10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < track.T(); i++ {
		if track.At(i, 0) < 0.9 {
			t.Fatalf("expected high speech probability for loud signal, got %v", track.At(i, 0))
		}
	}
}

func TestVADQuietSignalIsLowProbability(t *testing.T) {
	vad := producers.NewVAD(producers.DefaultVADOptions())

	track, err := vad.ComputeFromEnergy([]float64{-90, -90, -90})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < track.T(); i++ {
		if track.At(i, 0) > 0.1 {
			t.Fatalf("expected low speech probability for quiet signal, got %v", track.At(i, 0))
		}
	}
}

func TestVADRejectsEmptyEnergy(t *testing.T) {
	vad := producers.NewVAD(producers.DefaultVADOptions())

	if _, err := vad.ComputeFromEnergy(nil); err == nil {
		t.Fatal("expected error for empty energy input")
	}
}
