package action

import (
	"regexp"
	"strings"
)

// Signature is a textual predicate over generated code.
type Signature struct {
	// Name describes the predicate for logs and listings.
	Name string

	match func(code string) bool
}

// Match reports whether the code satisfies the signature.
func (s Signature) Match(code string) bool {
	if s.match == nil {
		return false
	}
	return s.match(code)
}

// Contains returns a signature matching code that contains sub verbatim.
func Contains(sub string) Signature {
	return Signature{
		Name:  "contains " + sub,
		match: func(code string) bool { return strings.Contains(code, sub) },
	}
}

// Pattern returns a signature matching code against re.
func Pattern(name string, re *regexp.Regexp) Signature {
	return Signature{
		Name:  name,
		match: re.MatchString,
	}
}

// Slot names the single parameter slot an action reads.
type Slot int

const (
	SlotNone  Slot = iota // No parameters
	SlotColor             // Params.Color
	SlotSize              // Params.Size
	SlotLabel             // Params.Label
)

// String returns the string representation of the slot.
func (s Slot) String() string {
	switch s {
	case SlotNone:
		return "none"
	case SlotColor:
		return "color"
	case SlotSize:
		return "size"
	case SlotLabel:
		return "label"
	default:
		return "unknown"
	}
}

// Extractor captures parameters from generated code.
// It returns false when nothing usable was found.
type Extractor func(code string) (Params, bool)

// Mutation applies an action to a target.
type Mutation func(t Target, p Params) error

// Renderer produces the canonical client-side snippet for an action.
type Renderer func(p Params) string

// Spec is one whitelisted, parameterized page mutation.
type Spec struct {
	// ID is the unique action identifier.
	ID ID

	// Description is a human-readable summary.
	Description string

	// Signatures must all match for the classifier to select this spec.
	// A spec without signatures is a catch-all.
	Signatures []Signature

	// Slot is the parameter slot the action reads.
	Slot Slot

	// Extract captures parameters from code. Nil means no parameters.
	Extract Extractor

	// Default is used when extraction fails or yields an invalid token.
	Default Params

	// Mutate performs the mutation.
	Mutate Mutation

	// Render emits the canonical snippet for audit records and exports.
	Render Renderer
}

// IsCatchAll returns true if the spec matches any input.
func (s Spec) IsCatchAll() bool {
	return len(s.Signatures) == 0
}

// Matches reports whether every signature matches the code.
func (s Spec) Matches(code string) bool {
	if s.IsCatchAll() {
		return true
	}
	for _, sig := range s.Signatures {
		if !sig.Match(code) {
			return false
		}
	}
	return true
}

// ExtractParams runs the extractor and falls back to the default.
// The second value is false when the default was used.
func (s Spec) ExtractParams(code string) (Params, bool) {
	if s.Extract == nil {
		return s.Default, false
	}
	p, ok := s.Extract(code)
	if !ok {
		return s.Default, false
	}
	return s.Normalize(p), true
}

// Normalize keeps only the slot the spec reads and re-validates it,
// substituting the default for anything that is not a valid token.
func (s Spec) Normalize(p Params) Params {
	switch s.Slot {
	case SlotColor:
		if c, ok := ParseColor(string(p.Color)); ok {
			return Params{Color: c}
		}
		return Params{Color: s.Default.Color}
	case SlotSize:
		if sz, ok := ParseSize(string(p.Size)); ok {
			return Params{Size: sz}
		}
		return Params{Size: s.Default.Size}
	case SlotLabel:
		return Params{Label: SanitizeLabel(p.Label)}
	default:
		return Params{}
	}
}

// CaptureColor returns an extractor reading the first submatch of re as a color.
func CaptureColor(re *regexp.Regexp) Extractor {
	return func(code string) (Params, bool) {
		m := re.FindStringSubmatch(code)
		if len(m) < 2 {
			return Params{}, false
		}
		c, ok := ParseColor(m[1])
		if !ok {
			return Params{}, false
		}
		return Params{Color: c}, true
	}
}

// CaptureSize returns an extractor reading the first submatch of re as a size.
func CaptureSize(re *regexp.Regexp) Extractor {
	return func(code string) (Params, bool) {
		m := re.FindStringSubmatch(code)
		if len(m) < 2 {
			return Params{}, false
		}
		sz, ok := ParseSize(m[1])
		if !ok {
			return Params{}, false
		}
		return Params{Size: sz}, true
	}
}
