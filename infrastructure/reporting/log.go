package reporting

import (
	"context"

	"github.com/felixgeelhaar/domguard/domain/dispatch"
	"github.com/felixgeelhaar/domguard/infrastructure/logging"
)

// LogReporter writes reports to the structured log.
type LogReporter struct{}

var _ dispatch.Reporter = LogReporter{}

// Report logs the report at info level. It never fails.
func (LogReporter) Report(_ context.Context, report dispatch.Report) error {
	logging.Info().
		Add(logging.CycleID(report.CycleID)).
		Add(logging.ActionID(report.ActionID)).
		Add(logging.Source(report.Source)).
		Add(logging.Succeeded(report.Success)).
		Add(logging.Target(report.TargetURL)).
		Add(logging.Str("command", report.Command)).
		Msg("dispatch report")
	return nil
}
