package reporting

import "errors"

// Domain errors for reporting.
var (
	// ErrEndpointUnavailable indicates the collector could not be reached.
	ErrEndpointUnavailable = errors.New("report endpoint unavailable")

	// ErrEndpointRejected indicates the collector refused the report.
	ErrEndpointRejected = errors.New("report rejected")

	// ErrInvalidEndpoint indicates a missing or malformed collector URL.
	ErrInvalidEndpoint = errors.New("invalid report endpoint")
)
