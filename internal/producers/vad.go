package producers

import (
	"context"
	"fmt"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/audioio"
	"github.com/farcloser/turnmark/internal/cachestore"
	"github.com/farcloser/turnmark/internal/evidence"
	"github.com/farcloser/turnmark/internal/timebase"
)

// VADOptions configures the threshold softening.
type VADOptions struct {
	ThresholdDb float64 // midpoint of the logistic, default -45
	SlopeDbInv  float64 // steepness; larger values sharpen the transition, default 0.25
}

// DefaultVADOptions returns the producer's default softening curve.
func DefaultVADOptions() VADOptions {
	return VADOptions{ThresholdDb: -45.0, SlopeDbInv: 0.25}
}

// VAD softens a hard energy threshold into a speech probability track.
// Stands in for an upstream model-backed VAD (e.g. WebRTC's): the contract
// is a probability track, not a specific detection algorithm, so any
// VoiceActivityDetector can be substituted.
type VAD struct {
	Opts VADOptions
}

// NewVAD returns a VAD producer with the given options.
func NewVAD(opts VADOptions) *VAD {
	return &VAD{Opts: opts}
}

func (v *VAD) Name() string { return "vad" }

// Soften implements VoiceActivityDetector: a logistic of (energyDb -
// threshold).
func (v *VAD) Soften(energyDb []float64) []float64 {
	out := make([]float64, len(energyDb))
	for i, db := range energyDb {
		out[i] = logistic((db - v.Opts.ThresholdDb) * v.Opts.SlopeDbInv)
	}

	return out
}

// ComputeFromEnergy builds the vad track from an already-computed smoothed
// energy (dB) track, avoiding a second RMS pass when Energy already ran.
func (v *VAD) ComputeFromEnergy(smoothDb []float64) (evidence.Track, error) {
	if len(smoothDb) == 0 {
		return evidence.Track{}, fmt.Errorf("%w: vad requires a non-empty energy track", apperr.ErrValidation)
	}

	probs := v.Soften(smoothDb)
	tb := timebase.Canonical(len(probs))

	return evidence.NewTrack("vad", tb, probs, 1, evidence.Probability, nil, nil)
}

func (v *VAD) Compute(_ context.Context, _ audioio.Source, samples audioio.Samples, _ *cachestore.Store) (evidence.Track, error) {
	energy := NewEnergy(DefaultEnergyOptions())

	_, smooth, _, err := energy.ComputeAll(samples)
	if err != nil {
		return evidence.Track{}, err
	}

	return v.ComputeFromEnergy(smooth.Values)
}
