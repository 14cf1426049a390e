// Package evidence models time-aligned soft evidence on a shared timebase:
// the per-track carrier and the per-name bundle fusion consumes.
package evidence

import (
	"fmt"
	"math"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/timebase"
)

// Semantics tags how a track's values should be interpreted.
type Semantics string

const (
	// Probability values lie in [0,1] (with small tolerance).
	Probability Semantics = "probability"
	// Logit values are unconstrained real-valued log-odds.
	Logit Semantics = "logit"
	// Score values are unconstrained additive log-domain scores.
	Score Semantics = "score"
)

const probabilityTolerance = 1e-3

// Track is an immutable, validated carrier of soft evidence: a (T,) or
// (T,K) array of finite values on a shared Timebase, tagged with
// Semantics, with optional per-value confidence and free-form metadata.
//
// Values and Confidence are stored row-major: index (t,k) is at
// t*Width+k. Width is 1 for a (T,) track.
type Track struct {
	Name       string
	TB         timebase.Timebase
	Values     []float64
	Width      int
	Semantics  Semantics
	Confidence []float64 // nil if absent; same shape as Values
	Metadata   map[string]string
}

// NewTrack validates and constructs a Track. width must be >= 1; pass 1
// for a (T,) track. confidence may be nil.
func NewTrack(
	name string,
	tb timebase.Timebase,
	values []float64,
	width int,
	semantics Semantics,
	confidence []float64,
	metadata map[string]string,
) (Track, error) {
	if width <= 0 {
		return Track{}, fmt.Errorf("%w: track %q width must be >= 1, got %d", apperr.ErrValidation, name, width)
	}

	if len(values) == 0 || len(values)%width != 0 {
		return Track{}, fmt.Errorf("%w: track %q values length %d is not a multiple of width %d",
			apperr.ErrValidation, name, len(values), width)
	}

	t := len(values) / width
	if t <= 0 {
		return Track{}, fmt.Errorf("%w: track %q must have T>0", apperr.ErrValidation, name)
	}

	if err := requireFinite(values); err != nil {
		return Track{}, fmt.Errorf("%w: track %q values contain NaN/Inf: %w", apperr.ErrValidation, name, err)
	}

	if confidence != nil {
		if len(confidence) != len(values) {
			return Track{}, fmt.Errorf("%w: track %q confidence length %d mismatches values length %d",
				apperr.ErrValidation, name, len(confidence), len(values))
		}

		if err := requireFinite(confidence); err != nil {
			return Track{}, fmt.Errorf("%w: track %q confidence contains NaN/Inf: %w", apperr.ErrValidation, name, err)
		}

		for _, c := range confidence {
			if c < -probabilityTolerance || c > 1.0+probabilityTolerance {
				return Track{}, fmt.Errorf(
					"%w: track %q confidence values fall outside ~[0,1]",
					apperr.ErrValidation, name,
				)
			}
		}
	}

	if semantics == Probability {
		for _, v := range values {
			if v < -probabilityTolerance || v > 1.0+probabilityTolerance {
				return Track{}, fmt.Errorf(
					"%w: track %q semantics=probability but values fall outside ~[0,1]",
					apperr.ErrValidation, name,
				)
			}
		}
	}

	if tb.NFrames() != 0 && tb.NFrames() != t {
		return Track{}, fmt.Errorf("%w: track %q timebase n_frames=%d but values imply T=%d",
			apperr.ErrValidation, name, tb.NFrames(), t)
	}

	metaCopy := make(map[string]string, len(metadata))
	for k, v := range metadata {
		metaCopy[k] = v
	}

	valuesCopy := make([]float64, len(values))
	copy(valuesCopy, values)

	var confCopy []float64
	if confidence != nil {
		confCopy = make([]float64, len(confidence))
		copy(confCopy, confidence)
	}

	return Track{
		Name:       name,
		TB:         tb,
		Values:     valuesCopy,
		Width:      width,
		Semantics:  semantics,
		Confidence: confCopy,
		Metadata:   metaCopy,
	}, nil
}

// T returns the number of frames.
func (t Track) T() int {
	return len(t.Values) / t.Width
}

// K returns the evidence dimensionality (1 for a (T,) track).
func (t Track) K() int {
	return t.Width
}

// At returns the value at frame i, column k.
func (t Track) At(i, k int) float64 {
	return t.Values[i*t.Width+k]
}

func requireFinite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("index %d is non-finite (%v)", i, v)
		}
	}

	return nil
}
