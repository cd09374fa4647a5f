package config

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/felixgeelhaar/domguard/application"
	"github.com/felixgeelhaar/domguard/domain/action"
	domainconfig "github.com/felixgeelhaar/domguard/domain/config"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
	"github.com/felixgeelhaar/domguard/infrastructure/executor/browser"
	"github.com/felixgeelhaar/domguard/infrastructure/executor/document"
	"github.com/felixgeelhaar/domguard/infrastructure/generation"
	"github.com/felixgeelhaar/domguard/infrastructure/observability"
	"github.com/felixgeelhaar/domguard/infrastructure/reporting"
	"github.com/felixgeelhaar/domguard/infrastructure/resilience"
	"github.com/felixgeelhaar/domguard/infrastructure/storage/memory"
	"github.com/felixgeelhaar/domguard/infrastructure/storage/sqlite"
)

// Builder builds runtime components from configuration.
type Builder struct {
	config   *domainconfig.Config
	registry *action.Registry
	executor dispatch.Executor
	version  string
	traceOut io.Writer
}

// BuilderOption configures the builder.
type BuilderOption func(*Builder)

// WithRegistry replaces the default action registry.
func WithRegistry(r *action.Registry) BuilderOption {
	return func(b *Builder) {
		b.registry = r
	}
}

// WithBaseExecutor replaces the executor selected by executor.kind. It is
// still wrapped with the configured resilience patterns.
func WithBaseExecutor(e dispatch.Executor) BuilderOption {
	return func(b *Builder) {
		b.executor = e
	}
}

// WithVersion sets the service version reported to telemetry.
func WithVersion(v string) BuilderOption {
	return func(b *Builder) {
		b.version = v
	}
}

// WithTraceWriter directs stdout-exported spans to w.
func WithTraceWriter(w io.Writer) BuilderOption {
	return func(b *Builder) {
		b.traceOut = w
	}
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.Config, opts ...BuilderOption) *Builder {
	b := &Builder{config: config, version: "dev"}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = action.DefaultRegistry()
	}
	return b
}

// Runtime holds the components built from configuration.
type Runtime struct {
	// Config is the configuration the runtime was built from.
	Config *domainconfig.Config
	// Registry is the action whitelist.
	Registry *action.Registry
	// Invoker is the resilient executor.
	Invoker *resilience.Invoker
	// Document is the unwrapped document executor, when selected.
	Document *document.Executor
	// Reporter fans out to every configured reporter. Nil when none.
	Reporter dispatch.Reporter
	// History is the queryable store, if one is configured.
	History dispatch.HistoryStore
	// Generator is set when generation is enabled.
	Generator dispatch.Generator
	// Observability provides tracing and metrics.
	Observability *observability.Provider
	// Metrics is set when metrics are enabled.
	Metrics *observability.DispatchMetrics
	// Dispatcher runs dispatch cycles.
	Dispatcher *application.Dispatcher
	// HistoryService lists and exports history. Nil without a store.
	HistoryService *application.HistoryService

	closers []func(context.Context) error
}

// Close releases every resource in reverse build order.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runtime) onClose(fn func(context.Context) error) {
	r.closers = append(r.closers, fn)
}

// Build builds the runtime. On error every resource opened so far is
// released.
func (b *Builder) Build(ctx context.Context) (*Runtime, error) {
	rt := &Runtime{Config: b.config, Registry: b.registry}
	fail := func(err error) (*Runtime, error) {
		_ = rt.Close(context.WithoutCancel(ctx))
		return nil, err
	}

	if err := b.buildObservability(ctx, rt); err != nil {
		return fail(err)
	}
	if err := b.buildExecutor(rt); err != nil {
		return fail(err)
	}
	if err := b.buildReporter(rt); err != nil {
		return fail(err)
	}
	if err := b.buildGenerator(rt); err != nil {
		return fail(err)
	}

	dispatcher, err := application.NewDispatcher(application.DispatcherConfig{
		Registry:      rt.Registry,
		Executor:      rt.Invoker,
		Reporter:      rt.Reporter,
		Generator:     rt.Generator,
		ReportTimeout: b.config.Reporter.Timeout.Duration(),
		Strict:        b.config.Dispatch.Strict,
		Tracer:        rt.Observability.Tracer(),
		Metrics:       rt.Metrics,
	})
	if err != nil {
		return fail(fmt.Errorf("%w: %w", domainconfig.ErrBuildFailed, err))
	}
	rt.Dispatcher = dispatcher

	if rt.History != nil {
		rt.HistoryService = application.NewHistoryService(rt.History, rt.Registry)
	}
	return rt, nil
}

func (b *Builder) buildObservability(ctx context.Context, rt *Runtime) error {
	opts := []observability.Option{
		observability.WithServiceName(b.config.Name),
		observability.WithServiceVersion(b.version),
		observability.WithSettings(b.config.Tracing, b.traceOut),
	}

	p, err := observability.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("%w: observability: %w", domainconfig.ErrBuildFailed, err)
	}
	rt.Observability = p
	rt.onClose(p.Shutdown)

	if b.config.Tracing.Metrics {
		m, err := observability.NewDispatchMetrics(p.Meter())
		if err != nil {
			return fmt.Errorf("%w: metrics: %w", domainconfig.ErrBuildFailed, err)
		}
		rt.Metrics = m
	}
	return nil
}

func (b *Builder) buildExecutor(rt *Runtime) error {
	base := b.executor
	if base == nil {
		cfg := b.config.Executor
		switch cfg.Kind {
		case domainconfig.ExecutorDocument:
			var opts []document.Option
			if cfg.Root != "" {
				opts = append(opts, document.WithRoot(cfg.Root))
			}
			rt.Document = document.NewExecutor(rt.Registry, opts...)
			base = rt.Document
		case domainconfig.ExecutorBrowser:
			bcfg := browser.DefaultConfig()
			bcfg.ControlURL = cfg.Browser.ControlURL
			bcfg.Bin = cfg.Browser.Bin
			bcfg.Headless = cfg.Browser.IsHeadless()
			if d := cfg.Browser.LoadTimeout.Duration(); d > 0 {
				bcfg.LoadTimeout = d
			}
			be := browser.NewExecutor(rt.Registry, bcfg)
			rt.onClose(func(context.Context) error { return be.Close() })
			base = be
		default:
			return fmt.Errorf("%w: unknown executor %q", domainconfig.ErrBuildFailed, cfg.Kind)
		}
	}

	r := b.config.Resilience
	rt.Invoker = resilience.NewInvoker(base, resilience.Config{
		MaxConcurrent:           r.Bulkhead.MaxConcurrent,
		CircuitBreakerThreshold: r.CircuitBreaker.Threshold,
		CircuitBreakerTimeout:   r.CircuitBreaker.Timeout.Duration(),
		RetryMaxAttempts:        r.Retry.MaxAttempts,
		RetryInitialDelay:       r.Retry.InitialDelay.Duration(),
		RetryBackoffMultiplier:  r.Retry.Multiplier,
		Timeout:                 r.Timeout.Duration(),
	})
	return nil
}

func (b *Builder) buildReporter(rt *Runtime) error {
	cfg := b.config.Reporter
	var reporters []dispatch.Reporter

	for _, kind := range cfg.Kinds {
		switch kind {
		case domainconfig.ReporterSQLite:
			store, err := sqlite.NewHistoryStore(sqlite.DefaultConfig(), sqlite.WithDSN(cfg.DSN))
			if err != nil {
				return fmt.Errorf("%w: sqlite: %w", domainconfig.ErrBuildFailed, err)
			}
			rt.onClose(func(context.Context) error { return store.Close() })
			reporters = append(reporters, store)
			if rt.History == nil {
				rt.History = store
			}
		case domainconfig.ReporterMemory:
			store := memory.NewHistoryStore()
			reporters = append(reporters, store)
			if rt.History == nil {
				rt.History = store
			}
		case domainconfig.ReporterHTTP:
			hcfg := reporting.DefaultHTTPConfig()
			hcfg.BaseURL = cfg.URL
			hcfg.Secret = cfg.Secret
			hcfg.UserAgent = "domguard/" + b.version
			rep, err := reporting.NewHTTPReporter(hcfg)
			if err != nil {
				return fmt.Errorf("%w: http reporter: %w", domainconfig.ErrBuildFailed, err)
			}
			reporters = append(reporters, rep)
		case domainconfig.ReporterLog:
			reporters = append(reporters, reporting.LogReporter{})
		case domainconfig.ReporterNone:
		default:
			return fmt.Errorf("%w: unknown reporter %q", domainconfig.ErrBuildFailed, kind)
		}
	}

	if len(reporters) > 0 {
		rt.Reporter = reporting.NewMulti(reporters...)
	}
	return nil
}

func (b *Builder) buildGenerator(rt *Runtime) error {
	cfg := b.config.Generator
	if !cfg.Enabled {
		return nil
	}
	gcfg := generation.DefaultConfig()
	gcfg.BaseURL = cfg.URL
	if d := cfg.Timeout.Duration(); d > 0 {
		gcfg.Timeout = d
	}
	client, err := generation.NewClient(gcfg)
	if err != nil {
		return fmt.Errorf("%w: generator: %w", domainconfig.ErrBuildFailed, err)
	}
	rt.Generator = client
	return nil
}
