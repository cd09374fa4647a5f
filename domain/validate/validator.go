// Package validate provides the plausibility check applied to generated code
// before it may be classified.
//
// Validation is a textual triage, not a parser: it never executes or
// evaluates the code, and its verdict depends on the code text alone.
package validate

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Rule names the policy rule that rejected a piece of code.
type Rule string

// Policy rules, in evaluation order.
const (
	RuleNotText        Rule = "not_text"
	RuleForeignMarker  Rule = "foreign_marker"
	RuleMissingSurface Rule = "missing_surface"
	RuleMissingShape   Rule = "missing_shape"
)

// Rejection describes why code was rejected.
type Rejection struct {
	Rule   Rule
	Detail string
}

// Error implements error.
func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Rule)
	}
	return fmt.Sprintf("%s: %s", r.Rule, r.Detail)
}

// Unwrap lets errors.Is match ErrValidationRejected.
func (r *Rejection) Unwrap() error {
	return ErrValidationRejected
}

// Policy holds the token lists the validator checks against.
type Policy struct {
	// ForeignMarkers are substrings, matched case-insensitively, that betray
	// code in a language other than client-side script.
	ForeignMarkers []string

	// Surfaces are the page-object accesses at least one of which must appear.
	Surfaces []string

	// ShapeTokens indicate real mutation intent; at least one must appear.
	ShapeTokens []string
}

// DefaultPolicy returns the standard validation policy.
func DefaultPolicy() Policy {
	return Policy{
		ForeignMarkers: []string{
			"def ",
			"import ",
			"print(",
			"class ",
			"elif ",
			"lambda ",
			"self.",
			"__name__",
			"#!/",
			"</",
			"<?php",
			"<!doctype",
			"<html",
		},
		Surfaces: []string{
			"document.",
		},
		ShapeTokens: []string{
			"querySelector",
			"getElementById",
			"getElementsBy",
			"forEach",
			"style.",
			"addEventListener",
			"classList",
		},
	}
}

// Validator decides whether generated code is plausible client-side
// mutation code.
type Validator struct {
	policy Policy
}

// New creates a validator with the default policy.
func New() *Validator {
	return NewWithPolicy(DefaultPolicy())
}

// NewWithPolicy creates a validator with a custom policy.
func NewWithPolicy(p Policy) *Validator {
	markers := make([]string, len(p.ForeignMarkers))
	for i, m := range p.ForeignMarkers {
		markers[i] = strings.ToLower(m)
	}
	p.ForeignMarkers = markers
	return &Validator{policy: p}
}

// Validate returns nil for valid code and a *Rejection otherwise.
func (v *Validator) Validate(code string) error {
	if err := checkText(code); err != nil {
		return err
	}

	lower := strings.ToLower(code)
	for _, marker := range v.policy.ForeignMarkers {
		if strings.Contains(lower, marker) {
			return &Rejection{Rule: RuleForeignMarker, Detail: fmt.Sprintf("contains %q", marker)}
		}
	}

	if !containsAny(code, v.policy.Surfaces) {
		return &Rejection{Rule: RuleMissingSurface, Detail: "no page object access"}
	}

	if !containsAny(code, v.policy.ShapeTokens) {
		return &Rejection{Rule: RuleMissingShape, Detail: "no element lookup, iteration, style or event token"}
	}

	return nil
}

// IsValid reports whether the code passes validation.
func (v *Validator) IsValid(code string) bool {
	return v.Validate(code) == nil
}

func checkText(code string) error {
	if strings.TrimSpace(code) == "" {
		return &Rejection{Rule: RuleNotText, Detail: "empty"}
	}
	if !utf8.ValidString(code) {
		return &Rejection{Rule: RuleNotText, Detail: "invalid utf-8"}
	}
	for _, r := range code {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return &Rejection{Rule: RuleNotText, Detail: fmt.Sprintf("control character %U", r)}
		}
	}
	return nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
