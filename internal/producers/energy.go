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

// EnergyOptions configures the Energy producer's windowing.
type EnergyOptions struct {
	SmoothRadiusFrames int // box-filter radius applied to dB-scale RMS, default 4 (a 9-frame, 90ms window at 10ms hop)
}

// DefaultEnergyOptions returns the producer's default windowing.
func DefaultEnergyOptions() EnergyOptions {
	return EnergyOptions{SmoothRadiusFrames: 4}
}

// Energy computes per-frame RMS energy on the canonical grid, a smoothed
// variant, and its frame-to-frame slope. Grounded on the windowed-RMS
// accumulation used to detect silence runs, generalized here into a
// continuous score signal instead of a hard silence/non-silence call.
type Energy struct {
	Opts EnergyOptions
}

// NewEnergy returns an Energy producer with the given options.
func NewEnergy(opts EnergyOptions) *Energy {
	return &Energy{Opts: opts}
}

func (e *Energy) Name() string { return "energy" }

// ComputeAll returns the three energy tracks (energy_rms, energy_smooth,
// energy_slope) built from a single RMS pass over mono-mixed samples.
func (e *Energy) ComputeAll(samples audioio.Samples) (rms, smooth, slope evidence.Track, err error) {
	if samples.Format.SampleRate <= 0 {
		return evidence.Track{}, evidence.Track{}, evidence.Track{},
			fmt.Errorf("%w: sample rate must be positive", apperr.ErrValidation)
	}

	mono := samples.Mono()
	rawRMS := audioio.FrameRMS(mono, samples.Format.SampleRate, timebase.CanonicalHopSeconds)

	rmsDb := make([]float64, len(rawRMS))
	for i, v := range rawRMS {
		rmsDb[i] = toDb(v)
	}

	smoothDb := boxSmooth(rmsDb, e.Opts.SmoothRadiusFrames)
	slopeDb := firstDifference(smoothDb)

	tb := timebase.Canonical(len(rmsDb))

	rms, err = evidence.NewTrack("energy_rms", tb, rmsDb, 1, evidence.Score, nil, nil)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, evidence.Track{}, err
	}

	smooth, err = evidence.NewTrack("energy_smooth", tb, smoothDb, 1, evidence.Score, nil, nil)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, evidence.Track{}, err
	}

	slope, err = evidence.NewTrack("energy_slope", tb, slopeDb, 1, evidence.Score, nil, nil)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, evidence.Track{}, err
	}

	return rms, smooth, slope, nil
}

func (e *Energy) Compute(_ context.Context, _ audioio.Source, samples audioio.Samples, _ *cachestore.Store) (evidence.Track, error) {
	rms, _, _, err := e.ComputeAll(samples)

	return rms, err
}
