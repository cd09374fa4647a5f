package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"github.com/felixgeelhaar/domguard/domain/action"
)

// Target adapts a rod page to action.Target.
type Target struct {
	ctx      context.Context
	page     *rod.Page
	feedback time.Duration
}

var _ action.Target = (*Target)(nil)

// NewTarget wraps page. Evaluations are bound to ctx.
func NewTarget(ctx context.Context, page *rod.Page, feedback time.Duration) *Target {
	return &Target{ctx: ctx, page: page, feedback: feedback}
}

// SetStyle evaluates SetStyleJS with the selector, property and value as
// arguments.
func (t *Target) SetStyle(sel action.Selector, prop action.Property, value string) error {
	if !sel.IsValid() || !prop.IsValid() {
		return fmt.Errorf("selector %q or property %q not allowed", sel, prop)
	}
	return t.eval(SetStyleJS, string(sel), string(prop), value)
}

// Feedback evaluates FeedbackJS with the label as an argument.
func (t *Target) Feedback(label string) error {
	return t.eval(FeedbackJS, label, action.FeedbackBorder, t.feedback.Milliseconds())
}

func (t *Target) eval(js string, args ...interface{}) error {
	if t.page == nil {
		return errors.New("no page")
	}
	if _, err := t.page.Context(t.ctx).Evaluate(rod.Eval(js, args...)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}
