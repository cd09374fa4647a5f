// Package observability provides OpenTelemetry tracing and metrics for
// dispatch cycles.
package observability

import (
	"io"
	"time"

	"github.com/felixgeelhaar/domguard/domain/config"
)

// ExporterType names a span exporter.
type ExporterType string

// Span exporters.
const (
	// ExporterOTLP exports to an OTLP gRPC collector.
	ExporterOTLP ExporterType = "otlp"
	// ExporterStdout writes spans as JSON.
	ExporterStdout ExporterType = "stdout"
	// ExporterNoop disables tracing.
	ExporterNoop ExporterType = "noop"
)

const batchTimeout = 5 * time.Second

// Config configures a Provider. Tracing is off while Exporter is noop.
type Config struct {
	ServiceName    string
	ServiceVersion string

	Exporter   ExporterType
	Endpoint   string
	Insecure   bool
	SampleRate float64
	// TraceWriter receives stdout exporter output. Nil means stderr.
	TraceWriter io.Writer

	// Metrics enables a manual reader served through Provider.Collect.
	Metrics bool
}

func (c Config) tracing() bool {
	return c.Exporter != "" && c.Exporter != ExporterNoop
}

// DefaultConfig disables tracing and metrics.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "domguard",
		ServiceVersion: "dev",
		Exporter:       ExporterNoop,
		SampleRate:     1.0,
	}
}

// Option configures a Provider.
type Option func(*Config)

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(c *Config) { c.ServiceName = name }
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(c *Config) { c.ServiceVersion = version }
}

// WithTracing enables tracing through exporter.
func WithTracing(exporter ExporterType, endpoint string) Option {
	return func(c *Config) {
		c.Exporter = exporter
		c.Endpoint = endpoint
	}
}

// WithTracingInsecure dials the OTLP collector without TLS.
func WithTracingInsecure() Option {
	return func(c *Config) { c.Insecure = true }
}

// WithSampleRate sets the head sampling ratio.
func WithSampleRate(rate float64) Option {
	return func(c *Config) { c.SampleRate = rate }
}

// WithStdoutTracing writes spans as JSON to w.
func WithStdoutTracing(w io.Writer) Option {
	return func(c *Config) {
		c.Exporter = ExporterStdout
		c.TraceWriter = w
	}
}

// WithMetrics enables in-process metric collection.
func WithMetrics() Option {
	return func(c *Config) { c.Metrics = true }
}

// WithSettings applies the tracing section of a domguard config. Stdout
// spans go to w when it is non-nil.
func WithSettings(s config.TracingConfig, w io.Writer) Option {
	return func(c *Config) {
		c.Metrics = s.Metrics
		if !s.Enabled {
			return
		}
		c.Exporter = ExporterType(s.Exporter)
		c.Endpoint = s.Endpoint
		c.Insecure = s.Insecure
		c.SampleRate = s.SampleRate
		if c.Exporter == ExporterStdout && w != nil {
			c.TraceWriter = w
		}
	}
}
