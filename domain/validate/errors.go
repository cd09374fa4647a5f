package validate

import "errors"

// ErrValidationRejected indicates generated code failed validation.
// It is not fatal: the dispatcher falls back to the command.
var ErrValidationRejected = errors.New("generated code rejected")
