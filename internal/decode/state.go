// Package decode implements the constrained, duration-aware Viterbi
// decoder: base state space, transition constraints, minimum-duration
// expansion, and the Viterbi recurrence itself.
package decode

// State is one of the five closed base states a frame can be labeled
// with.
type State int

// The base state set, in fixed index order. Order matters: it is the
// column order of fusion's (T,5) score matrix and of the base transition
// matrix.
const (
	SIL State = iota
	A
	B
	OVL
	LEAK

	NumStates = 5
)

var stateNames = [NumStates]string{"SIL", "A", "B", "OVL", "LEAK"}

// String returns the canonical name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= NumStates {
		return "INVALID"
	}

	return stateNames[s]
}

// StateIndex returns the index of a state name, or -1 if unknown.
func StateIndex(name string) int {
	for i, n := range stateNames {
		if n == name {
			return i
		}
	}

	return -1
}

// StateName returns the name of the state at index i, or "" if i is out
// of range.
func StateName(i int) string {
	if i < 0 || i >= NumStates {
		return ""
	}

	return stateNames[i]
}
