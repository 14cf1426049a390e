package producers

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/audioio"
	"github.com/farcloser/turnmark/internal/cachestore"
	"github.com/farcloser/turnmark/internal/evidence"
	"github.com/farcloser/turnmark/internal/timebase"
)

// LeakageOptions configures the FFT window used for spectral similarity.
type LeakageOptions struct {
	FFTSize            int     // samples per analysis window, default 2048
	EnergyPercentile   float64 // reference percentile gating low-energy frames out, default 90
	SimilarityFloor    float64 // cosine similarity below this contributes no leakage evidence, default 0.6
}

// DefaultLeakageOptions returns the producer's default window and gating.
func DefaultLeakageOptions() LeakageOptions {
	return LeakageOptions{FFTSize: 2048, EnergyPercentile: 90, SimilarityFloor: 0.6}
}

// Leakage estimates stereo bleed-through likelihood per frame from
// cross-channel spectral similarity, gated by an energy-dominance ratio.
// Mono input yields an all-zero track. Grounded on the Hann-windowed FFT
// plumbing used for hum/noise-floor spectral analysis (gonum's
// dsp/fourier), retargeted from magnitude-spectrum-vs-reference-band
// comparisons to cross-channel cosine similarity, matching the intent of
// treating a loud, spectrally-similar bleed on the quiet channel as
// leakage rather than independent speech.
type Leakage struct {
	Opts LeakageOptions
}

// NewLeakage returns a Leakage producer with the given options.
func NewLeakage(opts LeakageOptions) *Leakage {
	return &Leakage{Opts: opts}
}

func (l *Leakage) Name() string { return "leakage" }

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}

	return w
}

// ComputeFromChannels computes leakage_likelihood from two channels. A nil
// or empty right channel (mono input) yields an all-zero track of the
// length implied by left.
func (l *Leakage) ComputeFromChannels(left, right []float64, sampleRate int) (evidence.Track, error) {
	hopSamples := int(float64(sampleRate)*timebase.CanonicalHopSeconds + 0.5)
	if hopSamples <= 0 {
		return evidence.Track{}, fmt.Errorf("%w: leakage requires a positive sample rate", apperr.ErrValidation)
	}

	n := len(left) / hopSamples
	if n == 0 {
		return evidence.Track{}, fmt.Errorf("%w: leakage requires at least one full frame of audio", apperr.ErrValidation)
	}

	if len(right) == 0 {
		values := make([]float64, n)

		tb := timebase.Canonical(n)

		return evidence.NewTrack("leakage_likelihood", tb, values, 1, evidence.Probability, nil, nil)
	}

	fftSize := l.Opts.FFTSize
	if fftSize > hopSamples {
		fftSize = hopSamples
	}

	fftSize -= fftSize % 2

	if fftSize < 8 {
		values := make([]float64, n)

		tb := timebase.Canonical(n)

		return evidence.NewTrack("leakage_likelihood", tb, values, 1, evidence.Probability, nil, nil)
	}

	window := hannWindow(fftSize)
	fft := fourier.NewFFT(fftSize)

	rawRMS := audioio.FrameRMS(left, sampleRate, timebase.CanonicalHopSeconds)

	similarity := make([]float64, n)
	dominance := make([]float64, n)

	leftIn := make([]float64, fftSize)
	rightIn := make([]float64, fftSize)

	for i := 0; i < n; i++ {
		start := i * hopSamples
		end := start + fftSize

		if end > len(left) || end > len(right) {
			break
		}

		for j := 0; j < fftSize; j++ {
			leftIn[j] = left[start+j] * window[j]
			rightIn[j] = right[start+j] * window[j]
		}

		leftCoeffs := fft.Coefficients(nil, leftIn)
		rightCoeffs := fft.Coefficients(nil, rightIn)

		var dot, leftNorm, rightNorm float64

		for k := range leftCoeffs {
			lm := math.Hypot(real(leftCoeffs[k]), imag(leftCoeffs[k]))
			rm := math.Hypot(real(rightCoeffs[k]), imag(rightCoeffs[k]))

			dot += lm * rm
			leftNorm += lm * lm
			rightNorm += rm * rm
		}

		if leftNorm > 0 && rightNorm > 0 {
			similarity[i] = dot / (math.Sqrt(leftNorm) * math.Sqrt(rightNorm))
		}

		rightRMSFrame := 0.0
		for j := start; j < end && j < len(right); j++ {
			rightRMSFrame += right[j] * right[j]
		}

		rightRMSFrame = math.Sqrt(rightRMSFrame / float64(fftSize))

		leftDb := toDb(rawRMS[min(i, len(rawRMS)-1)])
		rightDb := toDb(rightRMSFrame)

		dominance[i] = math.Abs(leftDb - rightDb)
	}

	energyRef := percentile(rawRMS, l.Opts.EnergyPercentile)

	values := make([]float64, n)

	for i := 0; i < n; i++ {
		if similarity[i] < l.Opts.SimilarityFloor {
			continue
		}

		energyGate := 0.0
		if energyRef > 0 {
			energyGate = clip01(rawRMS[i] / energyRef)
		}

		simScore := (similarity[i] - l.Opts.SimilarityFloor) / (1 - l.Opts.SimilarityFloor)
		domScore := clip01(dominance[i] / 12.0)

		values[i] = clip01(simScore * domScore * energyGate)
	}

	tb := timebase.Canonical(n)

	return evidence.NewTrack("leakage_likelihood", tb, values, 1, evidence.Probability, nil, nil)
}

func (l *Leakage) Compute(_ context.Context, _ audioio.Source, samples audioio.Samples, _ *cachestore.Store) (evidence.Track, error) {
	if len(samples.Channels) < 2 {
		return l.ComputeFromChannels(samples.Mono(), nil, samples.Format.SampleRate)
	}

	return l.ComputeFromChannels(samples.Channels[0], samples.Channels[1], samples.Format.SampleRate)
}
