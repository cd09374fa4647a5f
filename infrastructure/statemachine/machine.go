// Package statemachine provides the statekit integration for dispatch cycles.
package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

// Context carries the cycle's position and trail through the state machine.
type Context struct {
	Current     dispatch.State
	Trail       []dispatch.Transition
	Transitions *dispatch.Transitions

	// FellBack is set once the cycle has entered falling_back.
	FellBack bool

	// Now stamps transitions. Defaults to time.Now.
	Now func() time.Time

	// OnTransition, when set, observes every recorded transition.
	OnTransition func(dispatch.Transition)
}

// NewContext creates a machine context positioned at the start state.
func NewContext() *Context {
	return &Context{
		Current:     dispatch.StateStart,
		Transitions: dispatch.DefaultTransitions(),
		Now:         time.Now,
	}
}

// State IDs as StateID type for statekit.
const (
	stateStart       statekit.StateID = statekit.StateID(dispatch.StateStart)
	stateValidating  statekit.StateID = statekit.StateID(dispatch.StateValidating)
	stateClassifying statekit.StateID = statekit.StateID(dispatch.StateClassifying)
	stateFallingBack statekit.StateID = statekit.StateID(dispatch.StateFallingBack)
	stateInvoking    statekit.StateID = statekit.StateID(dispatch.StateInvoking)
	stateDone        statekit.StateID = statekit.StateID(dispatch.StateDone)
	stateFailed      statekit.StateID = statekit.StateID(dispatch.StateFailed)
)

// Event types.
const (
	eventValidate statekit.EventType = "VALIDATE"
	eventClassify statekit.EventType = "CLASSIFY"
	eventFallBack statekit.EventType = "FALLBACK"
	eventInvoke   statekit.EventType = "INVOKE"
	eventDone     statekit.EventType = "DONE"
	eventFail     statekit.EventType = "FAIL"
)

// MachineID identifies the dispatch statechart.
const MachineID = "dispatch"

// NewDispatchMachine creates the dispatch-cycle statechart. The returned
// config is immutable and may be shared by any number of interpreters.
func NewDispatchMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context](MachineID).
		WithInitial(stateStart).
		WithContext(NewContext()).
		WithAction("recordTransition", recordTransition).
		WithGuard("canTransition", guardCanTransition).
		WithGuard("canFallBack", guardCanFallBack).
		State(stateStart).
			On(eventValidate).Target(stateValidating).Guard("canTransition").Do("recordTransition").
			On(eventFallBack).Target(stateFallingBack).Guard("canFallBack").Do("recordTransition").
			On(eventFail).Target(stateFailed).Do("recordTransition").
			Done().
		State(stateValidating).
			On(eventClassify).Target(stateClassifying).Guard("canTransition").Do("recordTransition").
			On(eventFallBack).Target(stateFallingBack).Guard("canFallBack").Do("recordTransition").
			On(eventFail).Target(stateFailed).Do("recordTransition").
			Done().
		State(stateClassifying).
			On(eventInvoke).Target(stateInvoking).Guard("canTransition").Do("recordTransition").
			On(eventFail).Target(stateFailed).Do("recordTransition").
			Done().
		State(stateFallingBack).
			On(eventInvoke).Target(stateInvoking).Guard("canTransition").Do("recordTransition").
			On(eventFail).Target(stateFailed).Do("recordTransition").
			Done().
		State(stateInvoking).
			On(eventDone).Target(stateDone).Guard("canTransition").Do("recordTransition").
			On(eventFallBack).Target(stateFallingBack).Guard("canFallBack").Do("recordTransition").
			On(eventFail).Target(stateFailed).Do("recordTransition").
			Done().
		State(stateDone).
			Final().
			Done().
		State(stateFailed).
			Final().
			Done().
		Build()
}

// EventForTransition returns the event type that moves the machine into to.
func EventForTransition(to dispatch.State) statekit.EventType {
	switch to {
	case dispatch.StateValidating:
		return eventValidate
	case dispatch.StateClassifying:
		return eventClassify
	case dispatch.StateFallingBack:
		return eventFallBack
	case dispatch.StateInvoking:
		return eventInvoke
	case dispatch.StateDone:
		return eventDone
	case dispatch.StateFailed:
		return eventFail
	default:
		return statekit.EventType(to)
	}
}

// stateFromEventType derives the target state from an event type.
func stateFromEventType(eventType statekit.EventType) dispatch.State {
	switch eventType {
	case eventValidate:
		return dispatch.StateValidating
	case eventClassify:
		return dispatch.StateClassifying
	case eventFallBack:
		return dispatch.StateFallingBack
	case eventInvoke:
		return dispatch.StateInvoking
	case eventDone:
		return dispatch.StateDone
	case eventFail:
		return dispatch.StateFailed
	default:
		return dispatch.State(eventType)
	}
}
