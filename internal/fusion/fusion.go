// Package fusion combines a heterogeneous EvidenceBundle into a per-frame,
// per-state log-score matrix the decoder consumes.
package fusion

import (
	"fmt"
	"math"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/decode"
	"github.com/farcloser/turnmark/internal/evidence"
	"gonum.org/v1/gonum/mat"
)

// Default fusion weights, matching the evidence-to-score formula.
const (
	LogEps = 1e-6

	WSpeech            = 1.0
	WDiar              = 1.0
	WOvl               = 1.5
	WLeak              = 1.0
	WLeakSilBias       = 0.5
	LeakBaselinePenalty = -3.0
	WPrior             = 0.4
	OvlBonus           = 0.4
)

const neutralProbability = 0.5

// clipProb clips a probability to [LogEps, 1-LogEps] to keep log() finite.
func clipProb(p float64) float64 {
	if p < LogEps {
		return LogEps
	}

	if p > 1-LogEps {
		return 1 - LogEps
	}

	return p
}

// toProbability converts a track value to a probability given its
// semantics: probability passes through (clipped), logit passes through a
// logistic.
func toProbability(value float64, semantics evidence.Semantics) float64 {
	switch semantics {
	case evidence.Logit:
		return clipProb(1.0 / (1.0 + math.Exp(-value)))
	default:
		return clipProb(value)
	}
}

// checkTimebases validates that the bundle is non-empty, that every track
// shares the bundle hop, and that every track except prior_ab (whose (2,)
// or (T,2) shape priorOffsets checks) has the same length, returning T.
func checkTimebases(bundle *evidence.Bundle) (int, error) {
	names := bundle.Names()
	if len(names) == 0 {
		return 0, fmt.Errorf("%w: fusion requires a non-empty evidence bundle", apperr.ErrValidation)
	}

	if bundle.RequireCanonical && !bundle.TB.IsCanonical() {
		return 0, fmt.Errorf("%w: fusion requires a canonical bundle timebase", apperr.ErrValidation)
	}

	t := -1
	for _, name := range names {
		track, _ := bundle.Get(name)
		if !track.TB.SameHop(bundle.TB) {
			return 0, fmt.Errorf("%w: track %q hop mismatches bundle hop", apperr.ErrValidation, name)
		}

		if name == "prior_ab" {
			continue
		}

		if t == -1 {
			t = track.T()
		} else if track.T() != t {
			return 0, fmt.Errorf("%w: track %q has T=%d, expected %d", apperr.ErrValidation, name, track.T(), t)
		}
	}

	if t == -1 {
		return 0, fmt.Errorf("%w: fusion requires at least one per-frame track besides prior_ab", apperr.ErrValidation)
	}

	return t, nil
}

func scalar1D(bundle *evidence.Bundle, name string) (values []float64, semantics evidence.Semantics, present bool) {
	track, ok := bundle.Get(name)
	if !ok {
		return nil, "", false
	}

	return track.Values, track.Semantics, true
}

// priorOffsets resolves prior_ab into per-frame (prior_a, prior_b) pairs.
// Accepts shape (2,) for a constant offset, or (T,2) for time-varying.
func priorOffsets(bundle *evidence.Bundle, t int) (priorA, priorB []float64, err error) {
	track, ok := bundle.Get("prior_ab")
	if !ok {
		return make([]float64, t), make([]float64, t), nil
	}

	if track.Semantics != evidence.Score {
		return nil, nil, fmt.Errorf("%w: prior_ab must have semantics=score", apperr.ErrValidation)
	}

	priorA = make([]float64, t)
	priorB = make([]float64, t)

	switch {
	case track.K() == 2 && track.T() == 1:
		for i := 0; i < t; i++ {
			priorA[i] = track.At(0, 0)
			priorB[i] = track.At(0, 1)
		}
	case track.K() == 2 && track.T() == t:
		for i := 0; i < t; i++ {
			priorA[i] = track.At(i, 0)
			priorB[i] = track.At(i, 1)
		}
	default:
		return nil, nil, fmt.Errorf(
			"%w: prior_ab must have shape (2,) or (T,2), got T=%d K=%d", apperr.ErrValidation, track.T(), track.K(),
		)
	}

	return priorA, priorB, nil
}

// FuseBundleToScores builds the (T,5) per-state log-score matrix from an
// EvidenceBundle, per the documented weighted-log-probability formula.
// Missing tracks fall back to documented neutral defaults.
func FuseBundleToScores(bundle *evidence.Bundle) (*mat.Dense, error) {
	t, err := checkTimebases(bundle)
	if err != nil {
		return nil, err
	}

	speechVals, speechSem, hasSpeech := scalar1D(bundle, "vad")
	aVals, aSem, hasA := scalar1D(bundle, "diar_a")
	bVals, bSem, hasB := scalar1D(bundle, "diar_b")
	leakVals, leakSem, hasLeak := scalar1D(bundle, "leakage_likelihood")

	priorA, priorB, err := priorOffsets(bundle, t)
	if err != nil {
		return nil, err
	}

	scores := mat.NewDense(t, decode.NumStates, nil)

	for i := 0; i < t; i++ {
		pSpeech := neutralProbability
		if hasSpeech {
			pSpeech = toProbability(speechVals[i], speechSem)
		}

		pA := neutralProbability
		if hasA {
			pA = toProbability(aVals[i], aSem)
		}

		pB := neutralProbability
		if hasB {
			pB = toProbability(bVals[i], bSem)
		}

		logLeak := 0.0
		if hasLeak {
			logLeak = math.Log(clipProb(toProbability(leakVals[i], leakSem)))
		}

		logSpeech := math.Log(pSpeech)
		logNotSpeech := math.Log(1 - pSpeech)
		logA := math.Log(pA)
		logB := math.Log(pB)

		scores.Set(i, int(decode.SIL), WSpeech*logNotSpeech)
		scores.Set(i, int(decode.A), WSpeech*logSpeech+WDiar*logA+WPrior*priorA[i])
		scores.Set(i, int(decode.B), WSpeech*logSpeech+WDiar*logB+WPrior*priorB[i])
		scores.Set(i, int(decode.OVL), WSpeech*logSpeech+WOvl*(logA+logB)+OvlBonus)
		scores.Set(i, int(decode.LEAK), WLeak*logLeak+WLeakSilBias*logNotSpeech+LeakBaselinePenalty)
	}

	return scores, nil
}
