package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

// TransitionPayload carries additional data with a transition event.
type TransitionPayload struct {
	ToState dispatch.State
	Reason  string
}

// Interpreter drives one dispatch cycle. It is not safe for concurrent use;
// each cycle gets its own interpreter over a shared machine config.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates an interpreter for the dispatch machine with its
// own context. A nil context or transition table gets the defaults.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	if ctx == nil {
		ctx = NewContext()
	}
	if ctx.Transitions == nil {
		ctx.Transitions = dispatch.DefaultTransitions()
	}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start enters the initial state.
func (i *Interpreter) Start() {
	i.interp.Start()
	i.ctx.Current = dispatch.State(i.interp.State().Value)
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current state.
func (i *Interpreter) State() dispatch.State {
	return dispatch.State(i.interp.State().Value)
}

// Transition moves the machine to the target state. It fails with
// dispatch.ErrInvalidTransition when the protocol or a guard forbids it.
func (i *Interpreter) Transition(to dispatch.State, reason string) error {
	from := i.State()
	if !i.CanTransition(to) {
		return fmt.Errorf("%w: %s to %s", dispatch.ErrInvalidTransition, from, to)
	}

	i.interp.Send(statekit.Event{
		Type: EventForTransition(to),
		Payload: TransitionPayload{
			ToState: to,
			Reason:  reason,
		},
	})

	if got := i.State(); got != to {
		return fmt.Errorf("%w: %s to %s rejected by guard", dispatch.ErrInvalidTransition, from, to)
	}
	return nil
}

// CanTransition checks if a transition to the target state is possible.
func (i *Interpreter) CanTransition(to dispatch.State) bool {
	if to == dispatch.StateFallingBack && i.ctx.FellBack {
		return false
	}
	return i.ctx.Transitions.CanTransition(i.State(), to)
}

// IsTerminal returns true if the interpreter is in a terminal state.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Trail returns a copy of the recorded transitions.
func (i *Interpreter) Trail() []dispatch.Transition {
	out := make([]dispatch.Transition, len(i.ctx.Trail))
	copy(out, i.ctx.Trail)
	return out
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}
