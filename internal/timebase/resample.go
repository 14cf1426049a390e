package timebase

import (
	"fmt"
	"math"
)

// AggKind selects how downsample aggregates frames within a block.
type AggKind int

const (
	// AggMean averages values in a block; appropriate for probabilities
	// and scores.
	AggMean AggKind = iota
	// AggMax takes the max of a block; appropriate for logits/saliency.
	AggMax
)

func validateFactor(srcHopS, targetHopS float64) (int, error) {
	if !(srcHopS > 0) || !(targetHopS > 0) {
		return 0, fmt.Errorf("timebase: hops must be positive, got src=%v target=%v", srcHopS, targetHopS)
	}

	ratio := targetHopS / srcHopS
	if ratio >= 1 {
		factor := math.Round(ratio)
		if math.Abs(ratio-factor) > 1e-9 {
			return 0, fmt.Errorf("timebase: target hop %v is not an integer multiple of source hop %v", targetHopS, srcHopS)
		}

		return int(factor), nil
	}

	inv := srcHopS / targetHopS
	factor := math.Round(inv)
	if math.Abs(inv-factor) > 1e-9 {
		return 0, fmt.Errorf("timebase: source hop %v is not an integer multiple of target hop %v", srcHopS, targetHopS)
	}

	return -int(factor), nil
}

// UpsampleHoldLast repeats each source row `factor` times (zero-order
// hold). values is (T,) or (T,K) row-major with stride k (k==1 for 1-D).
func UpsampleHoldLast(values []float64, k, factor int) []float64 {
	t := len(values) / max1(k)
	out := make([]float64, t*factor*k)

	for i := 0; i < t; i++ {
		src := values[i*k : i*k+k]
		for r := 0; r < factor; r++ {
			copy(out[(i*factor+r)*k:(i*factor+r)*k+k], src)
		}
	}

	return out
}

// Downsample aggregates consecutive blocks of `factor` rows via mean or
// max. len(values)/k must be exactly divisible by factor.
func Downsample(values []float64, k, factor int, agg AggKind) ([]float64, error) {
	t := len(values) / max1(k)
	if t%factor != 0 {
		return nil, fmt.Errorf("timebase: downsample requires length %d divisible by factor %d", t, factor)
	}

	outT := t / factor
	out := make([]float64, outT*k)

	for o := 0; o < outT; o++ {
		for c := 0; c < k; c++ {
			switch agg {
			case AggMax:
				best := math.Inf(-1)
				for r := 0; r < factor; r++ {
					v := values[(o*factor+r)*k+c]
					if v > best {
						best = v
					}
				}
				out[o*k+c] = best
			default:
				sum := 0.0
				for r := 0; r < factor; r++ {
					sum += values[(o*factor+r)*k+c]
				}
				out[o*k+c] = sum / float64(factor)
			}
		}
	}

	return out, nil
}

// Resample dispatches to UpsampleHoldLast or Downsample based on the
// hop ratio between srcHopS and targetHopS.
func Resample(values []float64, k int, srcHopS, targetHopS float64, agg AggKind) ([]float64, error) {
	factor, err := validateFactor(srcHopS, targetHopS)
	if err != nil {
		return nil, err
	}

	if factor == 1 {
		out := make([]float64, len(values))
		copy(out, values)

		return out, nil
	}

	if factor > 1 {
		return Downsample(values, k, factor, agg)
	}

	return UpsampleHoldLast(values, k, -factor), nil
}

// ToCanonicalGrid resamples values (currently on srcHopS) onto the
// canonical 10 ms grid, choosing upsample/downsample automatically.
func ToCanonicalGrid(values []float64, k int, srcHopS float64, agg AggKind) ([]float64, error) {
	return Resample(values, k, srcHopS, CanonicalHopSeconds, agg)
}

func max1(k int) int {
	if k <= 0 {
		return 1
	}

	return k
}
