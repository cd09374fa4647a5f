package action

import "errors"

// Domain errors for the action registry.
var (
	// ErrUnknownAction indicates an action id that is not in the registry.
	// With a total classifier this is a programming error.
	ErrUnknownAction = errors.New("unknown action")

	// ErrEmptyRegistry indicates a registry was built without specs.
	ErrEmptyRegistry = errors.New("registry has no actions")

	// ErrDuplicateAction indicates two specs share an id.
	ErrDuplicateAction = errors.New("duplicate action id")

	// ErrNoCatchAll indicates the last spec is not a catch-all.
	ErrNoCatchAll = errors.New("last action must be a catch-all")

	// ErrInvalidSpec indicates a spec is missing its id or mutation.
	ErrInvalidSpec = errors.New("invalid action spec")

	// ErrNilTarget indicates Apply was called without a target.
	ErrNilTarget = errors.New("target is nil")
)
