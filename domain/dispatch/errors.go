package dispatch

import "errors"

// Domain errors for dispatch cycles.
var (
	// ErrExecutionFailed indicates the executor could not apply an action.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrTargetUnavailable indicates the execution target could not be reached.
	ErrTargetUnavailable = errors.New("target unavailable")

	// ErrReportingFailed indicates an outcome could not be recorded.
	ErrReportingFailed = errors.New("reporting failed")

	// ErrInvalidTransition indicates a state transition outside the protocol.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrRecordNotFound is returned when a history record does not exist.
	ErrRecordNotFound = errors.New("history record not found")
)
