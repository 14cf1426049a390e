// Package metrics implements boundary, framewise, and structural
// comparisons between decoded and reference label sequences.
package metrics

import (
	"sort"

	"github.com/farcloser/turnmark/internal/decode"
)

// BoundaryF1 holds precision/recall/F1 plus raw counts for a boundary
// comparison at a fixed tolerance.
type BoundaryF1 struct {
	Precision float64
	Recall    float64
	F1        float64
	TP        int
	FP        int
	FN        int
}

// ComputeBoundaryF1 greedily matches each hypothesis boundary, in order,
// to the closest unmatched reference boundary within tolSeconds (ties by
// lowest reference index). Unmatched hypotheses are false positives;
// unmatched references are false negatives.
func ComputeBoundaryF1(refBoundariesS, hypBoundariesS []float64, tolSeconds float64) BoundaryF1 {
	ref := append([]float64(nil), refBoundariesS...)
	hyp := append([]float64(nil), hypBoundariesS...)
	sort.Float64s(ref)
	sort.Float64s(hyp)

	matchedRef := make([]bool, len(ref))

	tp, fp := 0, 0

	for _, h := range hyp {
		bestIdx := -1
		bestDist := tolSeconds

		for i, r := range ref {
			if matchedRef[i] {
				continue
			}

			dist := h - r
			if dist < 0 {
				dist = -dist
			}

			if dist <= tolSeconds && dist <= bestDist {
				if bestIdx == -1 || dist < bestDist {
					bestDist = dist
					bestIdx = i
				}
			}
		}

		if bestIdx >= 0 {
			matchedRef[bestIdx] = true
			tp++
		} else {
			fp++
		}
	}

	fn := 0

	for _, m := range matchedRef {
		if !m {
			fn++
		}
	}

	precision := 0.0
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}

	recall := 0.0
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}

	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	if len(ref) == 0 && len(hyp) == 0 {
		precision, recall, f1 = 1.0, 1.0, 1.0
	}

	return BoundaryF1{Precision: precision, Recall: recall, F1: f1, TP: tp, FP: fp, FN: fn}
}

// StateBoundaries returns the boundary time (start of the new run) for
// every state change in states.
func StateBoundaries(states []decode.State, hopSeconds float64) []float64 {
	var out []float64

	for i := 1; i < len(states); i++ {
		if states[i] != states[i-1] {
			out = append(out, float64(i)*hopSeconds)
		}
	}

	return out
}

// FramewiseIoU computes intersection-over-union between two boolean
// masks of equal length. Both-empty => 1.0; exactly one empty => 0.0.
func FramewiseIoU(ref, hyp []bool) float64 {
	intersection, union := 0, 0

	for i := range ref {
		r := ref[i]

		var h bool
		if i < len(hyp) {
			h = hyp[i]
		}

		if r || h {
			union++
		}

		if r && h {
			intersection++
		}
	}

	if union == 0 {
		return 1.0
	}

	return float64(intersection) / float64(union)
}

// LabelMask builds a boolean mask marking frames whose state is in the
// given label set.
func LabelMask(states []decode.State, labels ...decode.State) []bool {
	set := make(map[decode.State]bool, len(labels))
	for _, l := range labels {
		set[l] = true
	}

	mask := make([]bool, len(states))
	for i, s := range states {
		mask[i] = set[s]
	}

	return mask
}

// MicroIPUsPerMin counts IPUs shorter than maxDurationSeconds (default
// use-site value 0.2s), normalized to a per-minute rate.
func MicroIPUsPerMin(ipus []decode.Segment, totalDurationSeconds, maxDurationSeconds float64) float64 {
	if totalDurationSeconds <= 0 {
		return 0
	}

	count := 0

	for _, ipu := range ipus {
		if ipu.End-ipu.Start < maxDurationSeconds {
			count++
		}
	}

	return float64(count) / (totalDurationSeconds / 60.0)
}

// SpeakerSwitchesPerMin counts A<->B transitions (other labels are
// non-events that neither reset nor count) per minute of hopSeconds*len(states).
func SpeakerSwitchesPerMin(states []decode.State, hopSeconds float64) float64 {
	totalSeconds := float64(len(states)) * hopSeconds
	if totalSeconds <= 0 {
		return 0
	}

	switches := 0

	last := decode.State(-1)

	for _, s := range states {
		if s != decode.A && s != decode.B {
			continue
		}

		if last != decode.State(-1) && s != last {
			switches++
		}

		last = s
	}

	return float64(switches) / (totalSeconds / 60.0)
}

// RapidAlternations counts positions t where states[t:t+3] are all in
// {A,B} and form an A-B-A or B-A-B pattern. The window parameter named
// in the source material is not used by this check; it is intentionally
// omitted here (see DESIGN.md).
func RapidAlternations(states []decode.State) int {
	count := 0

	for t := 0; t+2 < len(states); t++ {
		s0, s1, s2 := states[t], states[t+1], states[t+2]
		if !isSpeaker(s0) || !isSpeaker(s1) || !isSpeaker(s2) {
			continue
		}

		if s0 != s1 && s1 != s2 && s0 == s2 {
			count++
		}
	}

	return count
}

func isSpeaker(s decode.State) bool {
	return s == decode.A || s == decode.B
}
