package evalharness

import (
	"fmt"
	"math"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/audioio"
	"github.com/farcloser/turnmark/internal/decode"
	"github.com/farcloser/turnmark/internal/pipeline"
	"github.com/farcloser/turnmark/internal/timebase"
)

// LeakageStressScenario is the one built-in synthetic scenario: a
// seven-segment stereo recording (silence, speaker A, silence, a
// cross-channel leak of A's tone, silence, speaker B, silence) that
// stresses the leakage/diarization producers without any real audio.
const LeakageStressScenario = "leakage_stress"

const (
	syntheticSampleRate    = 16000
	syntheticSegmentFrames = syntheticSampleRate / 2 // 0.5s per segment
)

// tone returns a sine wave at freqHz, frames long, at the given peak
// amplitude.
func tone(freqHz float64, frames int, amplitude float64) []float64 {
	out := make([]float64, frames)
	for i := range out {
		out[i] = amplitude * math.Sin(2.0*math.Pi*freqHz*float64(i)/float64(syntheticSampleRate))
	}

	return out
}

func scale(values []float64, factor float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * factor
	}

	return out
}

// buildLeakageStressAudio returns the stereo samples and reference state
// sequence for LeakageStressScenario.
func buildLeakageStressAudio() (audioio.Samples, []decode.State) {
	n := syntheticSegmentFrames

	silence := make([]float64, n)
	toneA := tone(220.0, n, 0.06)
	toneB := tone(330.0, n, 0.06)
	leak := tone(220.0, n, 0.05)

	left := concat(silence, toneA, silence, leak, silence, toneB, silence)
	right := concat(silence, scale(toneA, 0.03), silence, scale(leak, 0.01), silence, toneB, silence)

	labels := []decode.State{decode.SIL, decode.A, decode.SIL, decode.LEAK, decode.SIL, decode.B, decode.SIL}

	// One reference state per canonical-grid frame, matching the decoded
	// sequence it is scored against.
	hopSamples := int(math.Round(float64(syntheticSampleRate) * timebase.CanonicalHopSeconds))
	framesPerSegment := n / hopSamples

	states := make([]decode.State, 0, framesPerSegment*len(labels))
	for _, label := range labels {
		for i := 0; i < framesPerSegment; i++ {
			states = append(states, label)
		}
	}

	samples := audioio.Samples{
		Format:   audioio.Format{SampleRate: syntheticSampleRate, Channels: 2},
		Channels: [][]float64{left, right},
	}

	return samples, states
}

func concat(parts ...[]float64) []float64 {
	total := 0
	for _, p := range parts {
		total += len(p)
	}

	out := make([]float64, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}

// evaluateSynthetic materializes a synthetic manifest item's audio and
// reference states in memory and runs the pipeline against them directly
// (no audio file is written; nothing to decode via ffmpeg).
func evaluateSynthetic(item ManifestItem, opts pipeline.Options) (Result, error) {
	if item.Scenario != LeakageStressScenario {
		return Result{}, fmt.Errorf("%w: unsupported synthetic scenario %q", apperr.ErrValidation, item.Scenario)
	}

	samples, refStates := buildLeakageStressAudio()

	src := audioio.Source{Path: item.ID, AbsPath: "synthetic://" + item.ID}

	hyp, err := pipeline.RunFromSamples(src, samples, opts)
	if err != nil {
		return Result{}, err
	}

	return Result{Pipeline: hyp, RefStates: refStates}, nil
}
