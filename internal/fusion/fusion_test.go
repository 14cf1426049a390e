package fusion_test

import (
	"math"
	"testing"

	"github.com/farcloser/turnmark/internal/decode"
	"github.com/farcloser/turnmark/internal/evidence"
	"github.com/farcloser/turnmark/internal/fusion"
	"github.com/farcloser/turnmark/internal/timebase"
)

func newBundle(t *testing.T) *evidence.Bundle {
	t.Helper()

	tb := timebase.Canonical(0)
	bundle, err := evidence.NewBundle(tb, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return bundle
}

func TestFuseEmptyBundleFails(t *testing.T) {
	bundle := newBundle(t)
	if _, err := fusion.FuseBundleToScores(bundle); err == nil {
		t.Fatal("expected error for empty bundle")
	}
}

func TestFuseWithOnlyVadProducesValidScores(t *testing.T) {
	bundle := newBundle(t)
	tb := timebase.Canonical(0)

	track, err := evidence.NewTrack("vad", tb, []float64{0.9, 0.1, 0.5}, 1, evidence.Probability, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := bundle.Add(track); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scores, err := fusion.FuseBundleToScores(bundle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, cols := scores.Dims()
	if rows != 3 || cols != decode.NumStates {
		t.Fatalf("got shape (%d,%d), want (3,%d)", rows, cols, decode.NumStates)
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.IsNaN(scores.At(i, j)) {
				t.Fatalf("score at (%d,%d) is NaN", i, j)
			}
		}
	}
}

func TestFuseRejectsPriorBadShape(t *testing.T) {
	bundle := newBundle(t)
	tb := timebase.Canonical(0)

	vad, _ := evidence.NewTrack("vad", tb, []float64{0.9, 0.1}, 1, evidence.Probability, nil, nil)
	_ = bundle.Add(vad)

	prior, _ := evidence.NewTrack("prior_ab", tb, []float64{0, 0, 1, 1, 2, 2}, 3, evidence.Score, nil, nil)
	_ = bundle.Add(prior)

	if _, err := fusion.FuseBundleToScores(bundle); err == nil {
		t.Fatal("expected error for malformed prior_ab shape")
	}
}

func TestFuseSilenceFavorsSIL(t *testing.T) {
	bundle := newBundle(t)
	tb := timebase.Canonical(0)

	vad, _ := evidence.NewTrack("vad", tb, []float64{0.02}, 1, evidence.Probability, nil, nil)
	_ = bundle.Add(vad)

	scores, err := fusion.FuseBundleToScores(bundle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sil := scores.At(0, int(decode.SIL))
	a := scores.At(0, int(decode.A))

	if sil <= a {
		t.Fatalf("expected SIL score (%v) to dominate A score (%v) for near-silent vad", sil, a)
	}
}
