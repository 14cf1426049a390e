// Package producers turns decoded audio into the evidence tracks fusion
// consumes. Each producer computes one or more internal/evidence.Track
// values on the canonical timebase, optionally reading from and writing to
// an internal/cachestore.Store keyed on the audio source plus its own
// parameters.
package producers

import (
	"context"

	"github.com/farcloser/turnmark/internal/audioio"
	"github.com/farcloser/turnmark/internal/cachestore"
	"github.com/farcloser/turnmark/internal/evidence"
)

// Producer computes one evidence track from a decoded audio source.
type Producer interface {
	Name() string
	Compute(ctx context.Context, src audioio.Source, samples audioio.Samples, cache *cachestore.Store) (evidence.Track, error)
}

// VoiceActivityDetector softens a per-frame energy signal into a speech
// probability track. producers.VAD is the built-in implementation; callers
// wanting a model-backed VAD (e.g. WebRTC's) implement this interface and
// substitute it without touching fusion.
type VoiceActivityDetector interface {
	Soften(energyDb []float64) []float64
}
