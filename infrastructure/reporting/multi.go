// Package reporting provides outcome reporters: a remote HTTP collector,
// the structured log and fan-out composition.
package reporting

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

// Multi forwards each report to every reporter, in order.
type Multi []dispatch.Reporter

var _ dispatch.Reporter = Multi(nil)

// NewMulti drops nil reporters.
func NewMulti(reporters ...dispatch.Reporter) Multi {
	m := make(Multi, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

// Report calls every reporter even when one fails and joins the errors.
func (m Multi) Report(ctx context.Context, report dispatch.Report) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
