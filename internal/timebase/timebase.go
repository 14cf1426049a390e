// Package timebase models the frame/time grid all evidence and decoded
// labels align on.
package timebase

import (
	"fmt"
	"math"
)

// CanonicalHopSeconds is the globally agreed frame hop: 10 ms.
const CanonicalHopSeconds = 0.01

// tolerance used for hop-equality comparisons throughout the pipeline.
const tolerance = 1e-12

// Timebase is an immutable frame<->time mapping. NFrames is optional; a
// zero value means "unconstrained length".
type Timebase struct {
	hopSeconds float64
	nFrames    int
}

// New builds a Timebase with the given hop and no fixed frame count.
func New(hopSeconds float64) (Timebase, error) {
	return NewWithFrames(hopSeconds, 0)
}

// NewWithFrames builds a Timebase with the given hop and a fixed frame
// count. nFrames <= 0 means unconstrained.
func NewWithFrames(hopSeconds float64, nFrames int) (Timebase, error) {
	if !(hopSeconds > 0) {
		return Timebase{}, fmt.Errorf("timebase: hop_s must be positive, got %v", hopSeconds)
	}

	if nFrames < 0 {
		return Timebase{}, fmt.Errorf("timebase: n_frames must be non-negative, got %d", nFrames)
	}

	return Timebase{hopSeconds: hopSeconds, nFrames: nFrames}, nil
}

// Canonical returns the 10 ms canonical timebase, optionally pinned to a
// frame count (pass 0 for unconstrained).
func Canonical(nFrames int) Timebase {
	tb, _ := NewWithFrames(CanonicalHopSeconds, nFrames)
	return tb
}

// HopSeconds returns the frame hop in seconds.
func (t Timebase) HopSeconds() float64 {
	return t.hopSeconds
}

// HopMilliseconds returns the frame hop in milliseconds.
func (t Timebase) HopMilliseconds() float64 {
	return t.hopSeconds * 1000.0
}

// NFrames returns the fixed frame count, or 0 if unconstrained.
func (t Timebase) NFrames() int {
	return t.nFrames
}

// IsCanonical reports whether the hop equals the canonical 10 ms hop
// within tolerance.
func (t Timebase) IsCanonical() bool {
	return math.Abs(t.hopSeconds-CanonicalHopSeconds) <= tolerance
}

// SameHop reports whether two timebases share a hop within tolerance.
func (t Timebase) SameHop(other Timebase) bool {
	return math.Abs(t.hopSeconds-other.hopSeconds) <= tolerance
}

// FrameToTime converts a frame index to its start time.
func (t Timebase) FrameToTime(frameIndex int) float64 {
	return float64(frameIndex) * t.hopSeconds
}

// TimeToFrame converts a time in seconds to the containing frame index,
// via floor.
func (t Timebase) TimeToFrame(timeSeconds float64) int {
	return int(math.Floor(timeSeconds / t.hopSeconds))
}

// NumFrames returns the number of frames needed to cover a duration, via
// ceil.
func (t Timebase) NumFrames(durationSeconds float64) int {
	return int(math.Ceil(durationSeconds / t.hopSeconds))
}

// FrameTimes returns the start time of each of n frames.
func (t Timebase) FrameTimes(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = t.FrameToTime(i)
	}

	return out
}
