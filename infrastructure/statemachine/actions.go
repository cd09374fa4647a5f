package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

// recordTransition appends the transition to the trail and moves the
// context to the new state. Actions receive a pointer to the context,
// so with a *Context they receive **Context.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	c := *ctx

	var reason string
	if payload, ok := event.Payload.(TransitionPayload); ok {
		reason = payload.Reason
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	tr := dispatch.Transition{
		From:   c.Current,
		To:     targetOf(event),
		Reason: reason,
		At:     now(),
	}
	c.Trail = append(c.Trail, tr)
	c.Current = tr.To
	if tr.To == dispatch.StateFallingBack {
		c.FellBack = true
	}

	if c.OnTransition != nil {
		c.OnTransition(tr)
	}
}
