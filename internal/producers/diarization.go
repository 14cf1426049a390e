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

// DiarizationOptions configures per-channel activity scoring.
type DiarizationOptions struct {
	DominanceDb float64 // dB scale of the left/right level difference fed to the logistic (one DominanceDb of lead gives ~0.73), default 12
}

// DefaultDiarizationOptions returns the producer's default dominance
// saturation point.
func DefaultDiarizationOptions() DiarizationOptions {
	return DiarizationOptions{DominanceDb: 12.0}
}

// Diarization computes per-channel speaker-activity probability tracks
// (diar_a, diar_b) from per-frame left/right RMS dominance, gated by a
// leakage estimate so a loud bleed-through on the quiet channel isn't
// counted as that speaker's own activity. Grounded on the per-channel
// RMS/dB accumulation used for stereo correlation analysis, adapted from a
// single whole-file statistic into a per-frame track.
type Diarization struct {
	Opts DiarizationOptions
}

// NewDiarization returns a Diarization producer with the given options.
func NewDiarization(opts DiarizationOptions) *Diarization {
	return &Diarization{Opts: opts}
}

func (d *Diarization) Name() string { return "diarization" }

// ComputeFromChannels builds diar_a/diar_b from the two input channels and
// a leakage track already on the canonical grid (nil leakage disables
// gating).
func (d *Diarization) ComputeFromChannels(
	left, right []float64,
	sampleRate int,
	leakage []float64,
) (diarA, diarB evidence.Track, err error) {
	leftRMS := audioio.FrameRMS(left, sampleRate, timebase.CanonicalHopSeconds)
	rightRMS := audioio.FrameRMS(right, sampleRate, timebase.CanonicalHopSeconds)

	n := min(len(leftRMS), len(rightRMS))
	if n == 0 {
		return evidence.Track{}, evidence.Track{}, fmt.Errorf("%w: diarization requires non-empty audio", apperr.ErrValidation)
	}

	probA := make([]float64, n)
	probB := make([]float64, n)

	for i := 0; i < n; i++ {
		leftDb := toDb(leftRMS[i])
		rightDb := toDb(rightRMS[i])

		diff := leftDb - rightDb

		gate := 1.0
		if leakage != nil && i < len(leakage) {
			gate = 1.0 - clip01(leakage[i])
		}

		probA[i] = clip01(0.5 + gate*(logistic(diff/d.Opts.DominanceDb)-0.5))
		probB[i] = clip01(0.5 + gate*(logistic(-diff/d.Opts.DominanceDb)-0.5))
	}

	tb := timebase.Canonical(n)

	diarA, err = evidence.NewTrack("diar_a", tb, probA, 1, evidence.Probability, nil, nil)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, err
	}

	diarB, err = evidence.NewTrack("diar_b", tb, probB, 1, evidence.Probability, nil, nil)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, err
	}

	return diarA, diarB, nil
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

func (d *Diarization) Compute(_ context.Context, _ audioio.Source, samples audioio.Samples, _ *cachestore.Store) (evidence.Track, error) {
	if len(samples.Channels) < 2 {
		return evidence.Track{}, fmt.Errorf("%w: diarization requires stereo input", apperr.ErrValidation)
	}

	diarA, _, err := d.ComputeFromChannels(samples.Channels[0], samples.Channels[1], samples.Format.SampleRate, nil)

	return diarA, err
}
