// Package classify maps generated-code text onto a whitelisted action.
package classify

import "github.com/felixgeelhaar/domguard/domain/action"

// Result is the outcome of classifying a piece of code.
type Result struct {
	// ActionID is the selected action.
	ActionID action.ID `json:"action_id"`

	// Params are the extracted (or default) parameters.
	Params action.Params `json:"params"`

	// Matched is false when only the catch-all applied.
	Matched bool `json:"matched"`

	// Extracted is false when the spec's default params were used.
	Extracted bool `json:"extracted"`
}

// Classifier walks a registry in order and selects the first spec whose
// signatures all match. Overlaps resolve by registry order, never by
// specificity. A Classifier holds no mutable state.
type Classifier struct {
	registry *action.Registry
}

// New creates a classifier over the registry.
func New(registry *action.Registry) *Classifier {
	return &Classifier{registry: registry}
}

// Classify returns the action for the code. It is total: when no specific
// spec matches, the registry's catch-all is returned.
func (c *Classifier) Classify(code string) Result {
	for _, spec := range c.registry.List() {
		if spec.IsCatchAll() || !spec.Matches(code) {
			continue
		}
		params, extracted := spec.ExtractParams(code)
		return Result{
			ActionID:  spec.ID,
			Params:    params,
			Matched:   true,
			Extracted: extracted,
		}
	}

	catchAll := c.registry.CatchAll()
	return Result{
		ActionID: catchAll.ID,
		Params:   catchAll.Default,
	}
}
