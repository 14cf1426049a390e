package producers

import (
	"math"
	"sort"
)

const floorDb = -120.0

// toDb converts a linear RMS value to dBFS, clamping -Inf (silence) to a
// fixed floor so downstream math never sees -Inf.
func toDb(rms float64) float64 {
	if rms <= 0 {
		return floorDb
	}

	db := 20 * math.Log10(rms)
	if math.IsInf(db, -1) {
		return floorDb
	}

	return db
}

// boxSmooth applies a centered moving-average filter of the given radius
// (in frames), averaging up to 2*radius+1 frames, fewer at the edges.
// radius 0 returns a copy of in.
func boxSmooth(in []float64, radius int) []float64 {
	out := make([]float64, len(in))

	if radius <= 0 {
		copy(out, in)

		return out
	}

	for i := range in {
		lo := max(0, i-radius)
		hi := min(len(in)-1, i+radius)

		var sum float64

		for j := lo; j <= hi; j++ {
			sum += in[j]
		}

		out[i] = sum / float64(hi-lo+1)
	}

	return out
}

// firstDifference returns the frame-to-frame delta of in, with the first
// element set to 0.
func firstDifference(in []float64) []float64 {
	out := make([]float64, len(in))
	for i := 1; i < len(in); i++ {
		out[i] = in[i] - in[i-1]
	}

	return out
}

// logistic maps an arbitrary real value through the standard logistic
// function, used to soften a hard threshold into a probability.
func logistic(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// percentile returns the p-th percentile (0..100) of values using
// linear interpolation between the two nearest ranks of a sorted copy;
// values is not mutated.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))

	if lo == hi {
		return sorted[lo]
	}

	frac := rank - float64(lo)

	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
