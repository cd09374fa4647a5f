package dispatch

import "strings"

// Source records which path produced the action that was invoked.
type Source string

const (
	// SourceGenerated means the generated code was validated and classified.
	SourceGenerated Source = "generated"

	// SourceClientFallback means the action was synthesized from the command.
	SourceClientFallback Source = "client-fallback"

	// SourceError means no action could be applied to the target.
	SourceError Source = "error"
)

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}

// IsValid returns true if the source is one of the recognized values.
func (s Source) IsValid() bool {
	switch s {
	case SourceGenerated, SourceClientFallback, SourceError:
		return true
	default:
		return false
	}
}

// primaryOrigins are claimed provenance labels that route generated code
// through validation. The label only selects the path; it never skips it.
var primaryOrigins = map[string]bool{
	"":          true,
	"ai":        true,
	"generated": true,
	"model":     true,
}

// IsPrimaryOrigin reports whether a claimed source label names the primary
// generator. Any other label means the caller already took a non-primary
// path and the cycle goes straight to fallback.
func IsPrimaryOrigin(label string) bool {
	return primaryOrigins[strings.ToLower(strings.TrimSpace(label))]
}
