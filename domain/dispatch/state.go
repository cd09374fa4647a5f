// Package dispatch provides the domain model of a dispatch cycle: the
// states it moves through, the outcome it produces and the collaborator
// ports it drives.
package dispatch

// State is a step of a dispatch cycle.
type State string

const (
	StateStart       State = "start"        // Request received
	StateValidating  State = "validating"   // Triage of generated code
	StateClassifying State = "classifying"  // Rule table lookup
	StateFallingBack State = "falling_back" // Synthesis from the command
	StateInvoking    State = "invoking"     // Executor call
	StateDone        State = "done"         // Terminal success
	StateFailed      State = "failed"       // Terminal failure
)

// IsTerminal returns true if this is a terminal state (done or failed).
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// AllowsSideEffects returns true if the state may touch the target.
func (s State) AllowsSideEffects() bool {
	return s == StateInvoking
}

// IsValid returns true if the state is a recognized state.
func (s State) IsValid() bool {
	switch s {
	case StateStart, StateValidating, StateClassifying, StateFallingBack,
		StateInvoking, StateDone, StateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// AllStates returns all states in protocol order.
func AllStates() []State {
	return []State{
		StateStart,
		StateValidating,
		StateClassifying,
		StateFallingBack,
		StateInvoking,
		StateDone,
		StateFailed,
	}
}
