package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/domguard/domain/action"
	"github.com/felixgeelhaar/domguard/domain/classify"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
	"github.com/felixgeelhaar/domguard/domain/fallback"
	"github.com/felixgeelhaar/domguard/domain/validate"
	"github.com/felixgeelhaar/domguard/infrastructure/userscript"
)

// ErrNoHistory is returned when the service has no history store.
var ErrNoHistory = errors.New("no history store configured")

// HistoryService lists recorded outcomes and exports them as userscripts.
type HistoryService struct {
	store       dispatch.HistoryStore
	registry    *action.Registry
	validator   *validate.Validator
	classifier  *classify.Classifier
	synthesizer *fallback.Synthesizer
}

// NewHistoryService creates a history service. A nil registry uses the
// default whitelist.
func NewHistoryService(store dispatch.HistoryStore, registry *action.Registry) *HistoryService {
	if registry == nil {
		registry = action.DefaultRegistry()
	}
	return &HistoryService{
		store:       store,
		registry:    registry,
		validator:   validate.New(),
		classifier:  classify.New(registry),
		synthesizer: fallback.New(registry),
	}
}

// List returns recorded outcomes, newest first.
func (s *HistoryService) List(ctx context.Context, filter dispatch.ListFilter) ([]dispatch.Record, error) {
	if s.store == nil {
		return nil, ErrNoHistory
	}
	return s.store.List(ctx, filter)
}

// Derived is the whitelisted action a history record maps to.
type Derived struct {
	ActionID action.ID
	Params   action.Params
	Source   dispatch.Source
}

// Derive re-resolves a record to a whitelisted action. Stored code is
// trusted no more than at dispatch time: it is validated and classified
// again when the record came from the generated path, and the command is
// synthesized otherwise.
func (s *HistoryService) Derive(rec dispatch.Record) Derived {
	if rec.Source == dispatch.SourceGenerated && s.validator.IsValid(rec.Code) {
		r := s.classifier.Classify(rec.Code)
		return Derived{ActionID: r.ActionID, Params: r.Params, Source: dispatch.SourceGenerated}
	}
	r := s.synthesizer.Synthesize(rec.Command)
	return Derived{ActionID: r.ActionID, Params: r.Params, Source: dispatch.SourceClientFallback}
}

// Export renders the record as a userscript. The script body is the
// registry's canonical rendering of the derived action, never the stored
// code.
func (s *HistoryService) Export(ctx context.Context, id int64) (userscript.Script, error) {
	if s.store == nil {
		return userscript.Script{}, ErrNoHistory
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return userscript.Script{}, err
	}

	d := s.Derive(rec)
	code, err := s.registry.Render(d.ActionID, d.Params)
	if err != nil {
		return userscript.Script{}, fmt.Errorf("render %s: %w", d.ActionID, err)
	}

	return userscript.Render(userscript.Meta{
		ID:       rec.ID,
		Command:  rec.Command,
		ActionID: d.ActionID,
		Source:   d.Source.String(),
	}, code), nil
}
