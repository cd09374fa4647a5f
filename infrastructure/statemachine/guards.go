package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

// guardCanTransition checks the transition against the protocol table.
// Guards receive the context by value; since the context is *Context the
// guard receives *Context directly.
func guardCanTransition(ctx *Context, event statekit.Event) bool {
	if ctx == nil || ctx.Transitions == nil {
		return false
	}
	return ctx.Transitions.CanTransition(ctx.Current, targetOf(event))
}

// guardCanFallBack allows entering falling_back at most once per cycle.
func guardCanFallBack(ctx *Context, event statekit.Event) bool {
	return guardCanTransition(ctx, event) && !ctx.FellBack
}

func targetOf(event statekit.Event) dispatch.State {
	if payload, ok := event.Payload.(TransitionPayload); ok && payload.ToState != "" {
		return payload.ToState
	}
	return stateFromEventType(event.Type)
}
