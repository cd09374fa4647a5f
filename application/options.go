package application

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/domguard/domain/action"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
	"github.com/felixgeelhaar/domguard/domain/validate"
	"github.com/felixgeelhaar/domguard/infrastructure/observability"
)

// Option configures the dispatcher.
type Option func(*DispatcherConfig)

// WithRegistry sets the action whitelist.
func WithRegistry(r *action.Registry) Option {
	return func(c *DispatcherConfig) {
		c.Registry = r
	}
}

// WithValidator sets the code validator.
func WithValidator(v *validate.Validator) Option {
	return func(c *DispatcherConfig) {
		c.Validator = v
	}
}

// WithExecutor sets the action executor.
func WithExecutor(e dispatch.Executor) Option {
	return func(c *DispatcherConfig) {
		c.Executor = e
	}
}

// WithReporter sets the outcome reporter.
func WithReporter(r dispatch.Reporter) Option {
	return func(c *DispatcherConfig) {
		c.Reporter = r
	}
}

// WithGenerator sets the code generator used by Run.
func WithGenerator(g dispatch.Generator) Option {
	return func(c *DispatcherConfig) {
		c.Generator = g
	}
}

// WithReportTimeout bounds each report call.
func WithReportTimeout(d time.Duration) Option {
	return func(c *DispatcherConfig) {
		c.ReportTimeout = d
	}
}

// WithStrict makes an unknown action id panic.
func WithStrict() Option {
	return func(c *DispatcherConfig) {
		c.Strict = true
	}
}

// WithTracer sets the tracer for dispatch spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *DispatcherConfig) {
		c.Tracer = t
	}
}

// WithMetrics records every outcome on m.
func WithMetrics(m *observability.DispatchMetrics) Option {
	return func(c *DispatcherConfig) {
		c.Metrics = m
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *DispatcherConfig) {
		c.Now = now
	}
}

// WithIDGenerator sets the cycle id source.
func WithIDGenerator(newID func() string) Option {
	return func(c *DispatcherConfig) {
		c.NewID = newID
	}
}

// NewDispatcherWithOptions creates a dispatcher with functional options.
func NewDispatcherWithOptions(opts ...Option) (*Dispatcher, error) {
	config := DispatcherConfig{}
	for _, opt := range opts {
		opt(&config)
	}
	return NewDispatcher(config)
}
