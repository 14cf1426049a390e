package decode

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Fixed penalty constants from the base transition matrix definition.
const (
	StayReward          = 0.0
	GenericSwitchPenalty = -3.0
	SilExitPenalty       = -1.0
	SilEnterPenalty      = -0.5
	LeakForbid           = math.Inf(-1)
	LeakExitToSilPenalty = -0.5
	LeakToABForbid       = math.Inf(-1)
	LeakToOvlPenalty     = -5.0
)

// MinDurationFrames are the default minimum run lengths, in frames, for
// each base state.
var MinDurationFrames = map[State]int{
	SIL:  2,
	A:    3,
	B:    3,
	OVL:  3,
	LEAK: 3,
}

// DefaultMinDurations returns a fresh copy of the default minimum
// duration map.
func DefaultMinDurations() map[State]int {
	out := make(map[State]int, len(MinDurationFrames))
	for k, v := range MinDurationFrames {
		out[k] = v
	}

	return out
}

// BaseTransitionMatrix builds the 5x5 log-domain additive transition
// matrix from tuning parameters. A nil params pointer uses
// DefaultTuningParams().
func BaseTransitionMatrix(params *TuningParams) *mat.Dense {
	resolved := DefaultTuningParams()
	if params != nil {
		resolved = *params
	}

	m := mat.NewDense(NumStates, NumStates, nil)

	for from := 0; from < NumStates; from++ {
		for to := 0; to < NumStates; to++ {
			if from == to {
				m.Set(from, to, StayReward)
			} else {
				m.Set(from, to, GenericSwitchPenalty)
			}
		}
	}

	aToOvl, bToOvl, ovlToA, ovlToB := resolved.resolvedOvlCosts()

	// A <-> B: speaker switch penalty.
	m.Set(int(A), int(B), resolved.SpeakerSwitchPenalty)
	m.Set(int(B), int(A), resolved.SpeakerSwitchPenalty)

	// A/B <-> OVL.
	m.Set(int(A), int(OVL), aToOvl)
	m.Set(int(B), int(OVL), bToOvl)
	m.Set(int(OVL), int(A), ovlToA)
	m.Set(int(OVL), int(B), ovlToB)

	// SIL -> LEAK forbidden; LEAK -> {A,B} forbidden.
	m.Set(int(SIL), int(LEAK), LeakForbid)
	m.Set(int(LEAK), int(A), LeakToABForbid)
	m.Set(int(LEAK), int(B), LeakToABForbid)

	// {A,B,OVL} -> LEAK: leak entry bias.
	m.Set(int(A), int(LEAK), resolved.LeakEntryBias)
	m.Set(int(B), int(LEAK), resolved.LeakEntryBias)
	m.Set(int(OVL), int(LEAK), resolved.LeakEntryBias)

	// LEAK -> SIL/OVL.
	m.Set(int(LEAK), int(SIL), LeakExitToSilPenalty)
	m.Set(int(LEAK), int(OVL), LeakToOvlPenalty)

	// SIL row/column: enter/exit penalties on top of the generic switch
	// penalty already filled in above.
	for to := 0; to < NumStates; to++ {
		if State(to) == SIL {
			continue
		}

		m.Set(int(SIL), to, m.At(int(SIL), to)+SilEnterPenalty)
	}

	for from := 0; from < NumStates; from++ {
		// LEAK->SIL already carries its own dedicated LeakExitToSilPenalty
		// above; it must not also pick up the generic SilExitPenalty.
		if State(from) == SIL || State(from) == LEAK {
			continue
		}

		m.Set(from, int(SIL), m.At(from, int(SIL))+SilExitPenalty)
	}

	return m
}

// ExpandedState names a (base, sub-index) pair in the duration-expanded
// state space.
type ExpandedState struct {
	Base State
	Sub  int
}

// ExpandStateSpace builds the minimum-duration-chain expansion of the
// base state space: each base state s expands into minDurations[s]
// sub-states. Within a chain only sub_k -> sub_{k+1} is allowed (cost 0);
// from the last sub-state of x, transitions enter only the first
// sub-state of y at base cost; self-loop at the last sub-state costs 0.
func ExpandStateSpace(
	minDurations map[State]int,
	baseTransition *mat.Dense,
) (states []ExpandedState, transition *mat.Dense, collapse []State) {
	// Deterministic ordering over base states.
	order := []State{SIL, A, B, OVL, LEAK}

	firstIndex := make(map[State]int, NumStates)
	lastIndex := make(map[State]int, NumStates)

	total := 0
	for _, s := range order {
		d := minDurations[s]
		if d < 1 {
			d = 1
		}

		firstIndex[s] = total
		for sub := 0; sub < d; sub++ {
			states = append(states, ExpandedState{Base: s, Sub: sub})
			collapse = append(collapse, s)
		}

		total += d
		lastIndex[s] = total - 1
	}

	transition = mat.NewDense(total, total, nil)
	for i := 0; i < total; i++ {
		for j := 0; j < total; j++ {
			transition.Set(i, j, math.Inf(-1))
		}
	}

	for _, s := range order {
		d := minDurations[s]
		if d < 1 {
			d = 1
		}

		base := firstIndex[s]
		for sub := 0; sub < d-1; sub++ {
			transition.Set(base+sub, base+sub+1, 0)
		}

		last := lastIndex[s]
		// self-loop at the last sub-state.
		transition.Set(last, last, 0)

		for _, y := range order {
			if y == s {
				continue
			}

			cost := baseTransition.At(int(s), int(y))
			transition.Set(last, firstIndex[y], cost)
		}
	}

	return states, transition, collapse
}

// ValidateScoreShape checks that an emission-score matrix has exactly 5
// columns (one per base state).
func ValidateScoreShape(scores *mat.Dense) error {
	_, cols := scores.Dims()
	if cols != NumStates {
		return fmt.Errorf("%w: scores must have %d columns, got %d", errDecodeShape, NumStates, cols)
	}

	return nil
}

// sortStatesForDisplay returns a copy of states ordered by (base,
// sub-index), a deterministic textual ordering for diagnostics. Nothing in
// this module calls it.
func sortStatesForDisplay(states []ExpandedState) []ExpandedState {
	out := make([]ExpandedState, len(states))
	copy(out, states)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Base != out[j].Base {
			return out[i].Base < out[j].Base
		}

		return out[i].Sub < out[j].Sub
	})

	return out
}
