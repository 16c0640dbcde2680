package state

// Transitions contains the permitted non-emergency moves between conversation states.
// Flows register their edges when they are defined.
type Transitions map[State][]State

// NewTransitions returns an empty transition table.
func NewTransitions() Transitions {
	return make(Transitions)
}

// Allow registers edges from one state to each of the given targets.
func (t Transitions) Allow(from State, to ...State) {
	for _, target := range to {
		if t.IsAllowed(from, target) {
			continue
		}
		t[from] = append(t[from], target)
	}
}

// IsAllowed reports whether moving from one state to another is valid.
// Staying in the same state and dropping back to idle are always allowed.
func (t Transitions) IsAllowed(from, to State) bool {
	if to == StateIdle || from == to {
		return true
	}

	for _, state := range t[from] {
		if state == to {
			return true
		}
	}

	return false
}
