package decode

import (
	"fmt"
	"math"

	"github.com/farcloser/turnmark/internal/apperr"
	"gonum.org/v1/gonum/mat"
)

var errDecodeShape = fmt.Errorf("%w: shape mismatch", apperr.ErrDecode)

// ViterbiDecode runs the standard log-space Viterbi DP over an arbitrary
// state space. scores is (T,S), transition is (S,S), initial is (S,).
// Tie-breaking in argmax is deterministic: lowest index wins.
func ViterbiDecode(scores *mat.Dense, transition *mat.Dense, initial []float64) ([]int, float64, error) {
	t, s := scores.Dims()

	tr, tc := transition.Dims()
	if tr != s || tc != s {
		return nil, 0, fmt.Errorf("%w: transition must be (%d,%d), got (%d,%d)", errDecodeShape, s, s, tr, tc)
	}

	if len(initial) != s {
		return nil, 0, fmt.Errorf("%w: initial must have length %d, got %d", errDecodeShape, s, len(initial))
	}

	dp := make([][]float64, t)
	bp := make([][]int, t)

	for i := range dp {
		dp[i] = make([]float64, s)
		bp[i] = make([]int, s)
	}

	for j := 0; j < s; j++ {
		dp[0][j] = initial[j] + scores.At(0, j)
	}

	for time := 1; time < t; time++ {
		for j := 0; j < s; j++ {
			bestScore := math.Inf(-1)
			bestPrev := 0

			for i := 0; i < s; i++ {
				cand := dp[time-1][i] + transition.At(i, j)
				if cand > bestScore {
					bestScore = cand
					bestPrev = i
				}
			}

			bp[time][j] = bestPrev
			dp[time][j] = bestScore + scores.At(time, j)
		}
	}

	finalBest := math.Inf(-1)
	finalArg := 0

	for j := 0; j < s; j++ {
		if dp[t-1][j] > finalBest {
			finalBest = dp[t-1][j]
			finalArg = j
		}
	}

	path := make([]int, t)
	path[t-1] = finalArg

	for time := t - 1; time > 0; time-- {
		path[time-1] = bp[time][path[time]]
	}

	return path, finalBest, nil
}

// ExpandScores copies a base (T,5) score matrix to a (T, S_exp) matrix,
// one column per expanded sub-state, by base label.
func ExpandScores(baseScores *mat.Dense, states []ExpandedState) *mat.Dense {
	t, _ := baseScores.Dims()
	out := mat.NewDense(t, len(states), nil)

	for time := 0; time < t; time++ {
		for col, es := range states {
			out.Set(time, col, baseScores.At(time, int(es.Base)))
		}
	}

	return out
}

// DecodeWithConstraints runs the full constrained-decode pipeline: builds
// the expanded state space and transition matrix, expands the base
// (T,5) log-score matrix, runs Viterbi, and collapses the result back to
// base state names. A nil minDurations or transition uses the package
// defaults.
func DecodeWithConstraints(
	logScores *mat.Dense,
	minDurations map[State]int,
	baseTransition *mat.Dense,
	params *TuningParams,
) ([]State, error) {
	if err := ValidateScoreShape(logScores); err != nil {
		return nil, err
	}

	if minDurations == nil {
		minDurations = DefaultMinDurations()
	}

	if baseTransition == nil {
		baseTransition = BaseTransitionMatrix(params)
	}

	states, transition, collapse := ExpandStateSpace(minDurations, baseTransition)

	expandedScores := ExpandScores(logScores, states)

	initial := make([]float64, len(states))
	for i, es := range states {
		if es.Sub != 0 {
			initial[i] = math.Inf(-1)
			continue
		}

		if es.Base == LEAK {
			initial[i] = math.Inf(-1)
		} else {
			initial[i] = 0
		}
	}

	path, _, err := ViterbiDecode(expandedScores, transition, initial)
	if err != nil {
		return nil, err
	}

	out := make([]State, len(path))
	for i, idx := range path {
		out[i] = collapse[idx]
	}

	return out, nil
}

// IPUStartAfterLeakCount counts contiguous-run starts whose immediately
// preceding run's label is LEAK, for labels {A, B, OVL}.
func IPUStartAfterLeakCount(states []State) int {
	count := 0

	prevLabel := State(-1)
	runStart := true

	for i, s := range states {
		if i == 0 {
			runStart = true
		} else {
			runStart = s != states[i-1]
		}

		if runStart {
			if i > 0 && prevLabel == LEAK && (s == A || s == B || s == OVL) {
				count++
			}

			prevLabel = s
		}
	}

	return count
}
