package action

import "fmt"

// Registry is the ordered, immutable whitelist of actions.
// Order is significant: classification is first-match-wins, so specific
// signatures precede the catch-all, which is always last.
// A Registry is safe for concurrent use because it is never mutated after
// construction.
type Registry struct {
	specs []Spec
	index map[ID]int
}

// NewRegistry builds a registry from specs in the given order.
func NewRegistry(specs ...Spec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyRegistry
	}

	r := &Registry{
		specs: make([]Spec, len(specs)),
		index: make(map[ID]int, len(specs)),
	}
	copy(r.specs, specs)

	for i, s := range r.specs {
		if s.ID == "" || s.Mutate == nil {
			return nil, fmt.Errorf("%w: position %d", ErrInvalidSpec, i)
		}
		if _, exists := r.index[s.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAction, s.ID)
		}
		r.index[s.ID] = i
	}

	if !r.specs[len(r.specs)-1].IsCatchAll() {
		return nil, ErrNoCatchAll
	}

	return r, nil
}

// List returns the specs in registry order.
func (r *Registry) List() []Spec {
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// IDs returns the action ids in registry order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, len(r.specs))
	for i, s := range r.specs {
		ids[i] = s.ID
	}
	return ids
}

// Len returns the number of specs.
func (r *Registry) Len() int {
	return len(r.specs)
}

// Get retrieves a spec by id.
func (r *Registry) Get(id ID) (Spec, bool) {
	i, ok := r.index[id]
	if !ok {
		return Spec{}, false
	}
	return r.specs[i], true
}

// Has checks if an id is registered.
func (r *Registry) Has(id ID) bool {
	_, ok := r.index[id]
	return ok
}

// CatchAll returns the final, always-matching spec.
func (r *Registry) CatchAll() Spec {
	return r.specs[len(r.specs)-1]
}

// Apply performs the action on the target. Params are normalized against
// the spec first, so a caller cannot push an unvalidated value through.
func (r *Registry) Apply(id ID, params Params, target Target) error {
	spec, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}
	if target == nil {
		return ErrNilTarget
	}
	return spec.Mutate(target, spec.Normalize(params))
}

// Render returns the canonical snippet for the action.
func (r *Registry) Render(id ID, params Params) (string, error) {
	spec, ok := r.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}
	if spec.Render == nil {
		return "", nil
	}
	return spec.Render(spec.Normalize(params)), nil
}
