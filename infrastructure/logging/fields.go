package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/domguard/domain/action"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// CycleID adds a dispatch cycle ID field.
func CycleID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("cycle_id", id)
	}
}

// ActionID adds an action ID field.
func ActionID(id action.ID) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("action", string(id))
	}
}

// Source adds the outcome source field.
func Source(s dispatch.Source) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("source", string(s))
	}
}

// Origin adds the claimed provenance of generated code.
func Origin(label string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("origin", label)
	}
}

// State adds a state field.
func State(s dispatch.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("state", string(s))
	}
}

// FromState adds a from_state field for transitions.
func FromState(s dispatch.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_state", string(s))
	}
}

// ToState adds a to_state field for transitions.
func ToState(s dispatch.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_state", string(s))
	}
}

// Rule adds the validator rule that rejected code.
func Rule(rule string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("rule", rule)
	}
}

// Intent adds the fallback intent that fired.
func Intent(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("intent", name)
	}
}

// Succeeded adds the outcome success flag.
func Succeeded(ok bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("succeeded", ok)
	}
}

// Target adds the execution target handle.
func Target(handle string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("target", handle)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
