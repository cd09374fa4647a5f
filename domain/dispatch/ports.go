package dispatch

import (
	"context"
	"time"

	"github.com/felixgeelhaar/domguard/domain/action"
)

// Executor applies a whitelisted action to a target. Implementations must
// be idempotent and confine their side effects to the named target.
type Executor interface {
	Invoke(ctx context.Context, id action.ID, params action.Params, target string) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, id action.ID, params action.Params, target string) error

// Invoke calls f.
func (f ExecutorFunc) Invoke(ctx context.Context, id action.ID, params action.Params, target string) error {
	return f(ctx, id, params, target)
}

// Reporter records outcomes for audit. Reporting is best-effort.
type Reporter interface {
	Report(ctx context.Context, r Report) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, r Report) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, r Report) error {
	return f(ctx, r)
}

// Generator fetches generated code for a command.
type Generator interface {
	Generate(ctx context.Context, command string) (Generated, error)
}

// Record is a stored report.
type Record struct {
	ID int64 `json:"id"`
	Report
}

// ListFilter specifies criteria for listing history records.
type ListFilter struct {
	// Source filters by outcome source (empty means all).
	Source Source

	// SuccessOnly drops failed outcomes.
	SuccessOnly bool

	// FailedOnly drops successful outcomes.
	FailedOnly bool

	// Since filters records newer than this time.
	Since time.Time

	// Limit is the maximum number of records to return (0 = no limit).
	Limit int
}

// Matches reports whether a record satisfies the filter, ignoring Limit.
func (f ListFilter) Matches(r Record) bool {
	if f.Source != "" && r.Source != f.Source {
		return false
	}
	if f.SuccessOnly && !r.Success {
		return false
	}
	if f.FailedOnly && r.Success {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// HistoryStore is a Reporter that keeps records for later listing and
// export. Records are returned newest first.
type HistoryStore interface {
	Reporter
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	Get(ctx context.Context, id int64) (Record, error)
}
