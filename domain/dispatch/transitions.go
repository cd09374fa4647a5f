package dispatch

// Transitions defines the allowed state transitions of a dispatch cycle.
//
// Transitions is not safe for concurrent modification. Configure it fully
// before use; the read methods are safe for concurrent use afterwards.
type Transitions struct {
	allowed map[State][]State
}

// TransitionRules maps states to the states they can transition to.
type TransitionRules map[State][]State

// NewTransitions creates an empty transition table.
func NewTransitions() *Transitions {
	return &Transitions{
		allowed: make(map[State][]State),
	}
}

// NewTransitionsWith creates a transition table from a rules map.
func NewTransitionsWith(rules TransitionRules) *Transitions {
	t := NewTransitions()
	for from, toStates := range rules {
		for _, to := range toStates {
			t.Allow(from, to)
		}
	}
	return t
}

// Allow permits a transition from one state to another.
func (t *Transitions) Allow(from, to State) *Transitions {
	t.allowed[from] = append(t.allowed[from], to)
	return t
}

// CanTransition checks if a transition is allowed.
func (t *Transitions) CanTransition(from, to State) bool {
	for _, s := range t.allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns all states reachable from the given state.
func (t *Transitions) AllowedTransitions(from State) []State {
	return t.allowed[from]
}

// DefaultTransitions returns the dispatch protocol:
//
//	start → validating → classifying → invoking → done
//	  ↓          ↓                        ↓   ↑
//	  └──→ falling_back ←─────────────────┘   │
//	             └────────────────────────────┘
//
// invoking → falling_back is the one-time safety net after a failed
// invocation of a classified action. Every non-terminal state can fail.
func DefaultTransitions() *Transitions {
	return NewTransitionsWith(TransitionRules{
		StateStart:       {StateValidating, StateFallingBack, StateFailed},
		StateValidating:  {StateClassifying, StateFallingBack, StateFailed},
		StateClassifying: {StateInvoking, StateFailed},
		StateFallingBack: {StateInvoking, StateFailed},
		StateInvoking:    {StateDone, StateFallingBack, StateFailed},
	})
}
