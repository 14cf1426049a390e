// Package pipeline wires evidence producers, fusion, the decoder, and IPU
// extraction into the single end-to-end operation a run or evaluation
// item performs on one audio file: produce evidence, fuse it to scores,
// decode a state path, extract IPUs, and write artifacts.
package pipeline

import (
	"context"

	"github.com/farcloser/turnmark/internal/audioio"
	"github.com/farcloser/turnmark/internal/cachestore"
	"github.com/farcloser/turnmark/internal/decode"
	"github.com/farcloser/turnmark/internal/evidence"
	"github.com/farcloser/turnmark/internal/fusion"
	"github.com/farcloser/turnmark/internal/producers"
)

// Options configures one pipeline run; DefaultOptions returns the default
// settings. Only MinIPUSeconds <= 0 is replaced by its default (0.2s);
// producer option fields are used exactly as given, zero values included.
type Options struct {
	OutDir   string
	CacheDir string

	Energy      producers.EnergyOptions
	VAD         producers.VADOptions
	Diarization producers.DiarizationOptions
	Leakage     producers.LeakageOptions

	// PriorA/PriorB is a constant per-run log-domain bias applied to
	// speaker A/B's score. Both zero contributes nothing, matching
	// fusion's behavior when no prior_ab track is present at all.
	PriorA, PriorB float64

	// Tuning overrides the decoder's duration/transition penalties. nil
	// uses decode.DefaultTuningParams.
	Tuning *decode.TuningParams

	MinIPUSeconds float64
}

// DefaultOptions returns the documented default producer and extraction
// settings.
func DefaultOptions() Options {
	return Options{
		Energy:        producers.DefaultEnergyOptions(),
		VAD:           producers.DefaultVADOptions(),
		Diarization:   producers.DefaultDiarizationOptions(),
		Leakage:       producers.DefaultLeakageOptions(),
		MinIPUSeconds: 0.2,
	}
}

// Result is the outcome of one completed run.
type Result struct {
	AudioPath   string
	HopSeconds  float64
	NFrames     int
	States      []decode.State
	IPUs        map[string][]decode.Segment
	OutDir      string
}

// IPU label keys used in Result.IPUs and the written artifacts, in
// textgrid tier order.
const (
	LabelA    = "A"
	LabelB    = "B"
	LabelOVL  = "OVL"
	LabelLeak = "LEAK"
)

// Run loads audio from path, computes evidence, fuses and decodes it, and
// writes artifacts under opts.OutDir when it is non-empty.
func Run(ctx context.Context, path string, opts Options) (Result, error) {
	src, err := audioio.OpenSource(path)
	if err != nil {
		return Result{}, err
	}

	samples, err := src.Load(ctx)
	if err != nil {
		return Result{}, err
	}

	return runFromSamples(src, samples, opts)
}

// RunFromSamples is Run's pure core, exported for callers that already
// hold decoded samples in memory (synthetic evaluation fixtures) and so
// have no audio file to shell out to ffmpeg/ffprobe for.
func RunFromSamples(src audioio.Source, samples audioio.Samples, opts Options) (Result, error) {
	return runFromSamples(src, samples, opts)
}

// runFromSamples is Run's pure core: everything after audio decoding,
// split out so it can be exercised with synthetic in-memory samples.
func runFromSamples(src audioio.Source, samples audioio.Samples, opts Options) (Result, error) {
	if opts.MinIPUSeconds <= 0 {
		opts.MinIPUSeconds = 0.2
	}

	store := cachestore.NewStore(opts.CacheDir)

	bundle, err := buildBundle(store, src, samples, opts)
	if err != nil {
		return Result{}, err
	}

	scores, err := fusion.FuseBundleToScores(bundle)
	if err != nil {
		return Result{}, err
	}

	states, err := decode.DecodeWithConstraints(scores, nil, nil, opts.Tuning)
	if err != nil {
		return Result{}, err
	}

	hop := bundle.TB.HopSeconds()

	ipus := map[string][]decode.Segment{
		LabelA:    decode.ExtractIPUs(states, hop, decode.A, opts.MinIPUSeconds),
		LabelB:    decode.ExtractIPUs(states, hop, decode.B, opts.MinIPUSeconds),
		LabelOVL:  decode.ExtractIPUs(states, hop, decode.OVL, opts.MinIPUSeconds),
		LabelLeak: decode.ExtractIPUs(states, hop, decode.LEAK, opts.MinIPUSeconds),
	}

	result := Result{
		AudioPath:  src.Path,
		HopSeconds: hop,
		NFrames:    len(states),
		States:     states,
		IPUs:       ipus,
		OutDir:     opts.OutDir,
	}

	if opts.OutDir != "" {
		if err := writeArtifacts(opts.OutDir, result); err != nil {
			return Result{}, err
		}
	}

	return result, nil
}

// buildBundle computes every evidence track and assembles them into one
// canonical-grid Bundle. Diarization and Leakage need both channels at
// once, and VAD reuses Energy's smoothed track, so these are wired by
// calling each producer's dedicated method directly rather than through
// the generic Producer interface (which exists for substitutability, not
// for this orchestration's own internal wiring).
func buildBundle(store *cachestore.Store, src audioio.Source, samples audioio.Samples, opts Options) (*evidence.Bundle, error) {
	energy := producers.NewEnergy(opts.Energy)

	rms, smooth, slope, err := cachedEnergy(store, src, samples, energy)
	if err != nil {
		return nil, err
	}

	vad := producers.NewVAD(opts.VAD)

	vadTrack, err := cachedTrack(store, src, "vad", map[string]any{
		"threshold_db": opts.VAD.ThresholdDb,
		"slope_db_inv": opts.VAD.SlopeDbInv,
	}, func() (evidence.Track, error) {
		return vad.ComputeFromEnergy(smooth.Values)
	})
	if err != nil {
		return nil, err
	}

	left, right := channelPair(samples)

	leakage := producers.NewLeakage(opts.Leakage)

	leakageTrack, err := cachedTrack(store, src, "leakage", map[string]any{
		"fft_size":          opts.Leakage.FFTSize,
		"energy_percentile": opts.Leakage.EnergyPercentile,
		"similarity_floor":  opts.Leakage.SimilarityFloor,
	}, func() (evidence.Track, error) {
		return leakage.ComputeFromChannels(left, right, samples.Format.SampleRate)
	})
	if err != nil {
		return nil, err
	}

	diarization := producers.NewDiarization(opts.Diarization)

	diarA, diarB, err := cachedDiarization(
		store, src, diarization, left, right, samples.Format.SampleRate, leakageTrack.Values,
	)
	if err != nil {
		return nil, err
	}

	prior := producers.NewPrior()

	priorTrack, err := prior.Constant(opts.PriorA, opts.PriorB)
	if err != nil {
		return nil, err
	}

	bundle, err := evidence.NewBundle(rms.TB, true)
	if err != nil {
		return nil, err
	}

	for _, track := range []evidence.Track{rms, smooth, slope, vadTrack, leakageTrack, diarA, diarB, priorTrack} {
		if err := bundle.Add(track); err != nil {
			return nil, err
		}
	}

	return bundle, nil
}

// channelPair returns (left, right) for stereo input, or (mono, nil) when
// the source has fewer than two channels. A nil right channel tells
// Leakage and Diarization there is nothing to compare against.
func channelPair(samples audioio.Samples) (left, right []float64) {
	if len(samples.Channels) >= 2 {
		return samples.Channels[0], samples.Channels[1]
	}

	return samples.Mono(), nil
}
