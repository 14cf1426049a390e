package producers

import (
	"github.com/farcloser/turnmark/internal/evidence"
	"github.com/farcloser/turnmark/internal/timebase"
)

// Prior builds the prior_ab additive log-offset track: a constant (2,)
// bias by default, or a caller-supplied per-frame (T,2) bias for callers
// that want to break symmetric A/B ties from an external signal (e.g.
// channel loudness imbalance).
type Prior struct{}

// NewPrior returns a Prior producer.
func NewPrior() *Prior { return &Prior{} }

func (p *Prior) Name() string { return "prior" }

// Constant returns a (2,) prior_ab track with a fixed (priorA, priorB)
// offset applied to every frame implicitly (bundle-level broadcast; T=1).
func (p *Prior) Constant(priorA, priorB float64) (evidence.Track, error) {
	tb, _ := timebase.New(timebase.CanonicalHopSeconds)

	return evidence.NewTrack("prior_ab", tb, []float64{priorA, priorB}, 2, evidence.Score, nil, nil)
}

// TimeVarying returns a (T,2) prior_ab track from per-frame (priorA,
// priorB) pairs, interleaved as [a0,b0,a1,b1,...].
func (p *Prior) TimeVarying(interleaved []float64) (evidence.Track, error) {
	tb := timebase.Canonical(len(interleaved) / 2)

	return evidence.NewTrack("prior_ab", tb, interleaved, 2, evidence.Score, nil, nil)
}
