// Package config provides the domguard configuration model.
package config

import (
	"encoding/json"
	"time"
)

// Executor kinds.
const (
	ExecutorDocument = "document"
	ExecutorBrowser  = "browser"
)

// Reporter kinds.
const (
	ReporterSQLite = "sqlite"
	ReporterMemory = "memory"
	ReporterHTTP   = "http"
	ReporterLog    = "log"
	ReporterNone   = "none"
)

// Log formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Config represents the complete domguard configuration.
type Config struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Version is the configuration schema version.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	Generator  GeneratorConfig  `json:"generator,omitempty" yaml:"generator,omitempty"`
	Executor   ExecutorConfig   `json:"executor,omitempty" yaml:"executor,omitempty"`
	Reporter   ReporterConfig   `json:"reporter,omitempty" yaml:"reporter,omitempty"`
	Dispatch   DispatchConfig   `json:"dispatch,omitempty" yaml:"dispatch,omitempty"`
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	Logging    LoggingConfig    `json:"logging,omitempty" yaml:"logging,omitempty"`
	Tracing    TracingConfig    `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	Server     ServerConfig     `json:"server,omitempty" yaml:"server,omitempty"`
}

// GeneratorConfig configures the remote code generator.
type GeneratorConfig struct {
	// Enabled turns on code generation for `run`.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// URL is the generator base URL.
	URL string `json:"url,omitempty" yaml:"url,omitempty" env:"GENERATOR_URL"`
	// Timeout bounds each request.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ExecutorConfig selects where actions are applied.
type ExecutorConfig struct {
	// Kind is document or browser.
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty" env:"EXECUTOR"`
	// Root confines document targets to a directory.
	Root string `json:"root,omitempty" yaml:"root,omitempty" env:"ROOT"`
	// Browser configures the browser executor.
	Browser BrowserConfig `json:"browser,omitempty" yaml:"browser,omitempty"`
}

// BrowserConfig configures Chrome.
type BrowserConfig struct {
	// ControlURL connects to a running browser instead of launching one.
	ControlURL string `json:"control_url,omitempty" yaml:"control_url,omitempty" env:"BROWSER_URL"`
	// Bin is the Chrome binary.
	Bin string `json:"bin,omitempty" yaml:"bin,omitempty"`
	// Headless runs Chrome without a window. Defaults to true.
	Headless *bool `json:"headless,omitempty" yaml:"headless,omitempty"`
	// LoadTimeout bounds page loads.
	LoadTimeout Duration `json:"load_timeout,omitempty" yaml:"load_timeout,omitempty"`
}

// IsHeadless returns the effective headless setting.
func (b BrowserConfig) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

// ReporterConfig selects where outcomes are recorded.
type ReporterConfig struct {
	// Kinds lists the reporters to fan out to.
	Kinds []string `json:"kinds,omitempty" yaml:"kinds,omitempty" env:"REPORTERS"`
	// DSN is the SQLite data source.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty" env:"DSN"`
	// URL is the remote collector base URL.
	URL string `json:"url,omitempty" yaml:"url,omitempty" env:"REPORTER_URL"`
	// Secret signs remote reports.
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty" env:"REPORTER_SECRET"`
	// Timeout bounds one report.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Has reports whether kind is among the configured reporters.
func (r ReporterConfig) Has(kind string) bool {
	for _, k := range r.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// DispatchConfig tunes dispatch cycles.
type DispatchConfig struct {
	// Strict panics on unknown action ids.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// ResilienceConfig contains resilience settings for action invocation.
type ResilienceConfig struct {
	// Timeout bounds one invocation.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Retry configures retry behavior.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	// Bulkhead configures bulkhead behavior.
	Bulkhead BulkheadConfig `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts  int      `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	Multiplier   float64  `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Threshold is consecutive failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// BulkheadConfig configures bulkhead behavior.
type BulkheadConfig struct {
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is trace, debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty" env:"LOG_LEVEL"`
	// Format is console or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty" env:"LOG_FORMAT"`
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Exporter is otlp, stdout or noop.
	Exporter   string  `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	Endpoint   string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure   bool    `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	// Metrics enables the in-process outcome counters.
	Metrics bool `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// ServerConfig configures the local HTTP API.
type ServerConfig struct {
	Addr         string   `json:"addr,omitempty" yaml:"addr,omitempty" env:"ADDR"`
	ReadTimeout  Duration `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
	WriteTimeout Duration `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Name:    "domguard",
		Version: "1",
		Generator: GeneratorConfig{
			URL:     "http://localhost:8000",
			Timeout: Duration(30 * time.Second),
		},
		Executor: ExecutorConfig{
			Kind: ExecutorDocument,
		},
		Reporter: ReporterConfig{
			Kinds:   []string{ReporterLog},
			DSN:     "file:domguard.db?cache=shared&mode=rwc",
			Timeout: Duration(5 * time.Second),
		},
		Resilience: ResilienceConfig{
			Timeout: Duration(30 * time.Second),
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: Duration(100 * time.Millisecond),
				Multiplier:   2.0,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Threshold: 5,
				Timeout:   Duration(30 * time.Second),
			},
			Bulkhead: BulkheadConfig{MaxConcurrent: 10},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: LogFormatConsole,
		},
		Tracing: TracingConfig{
			Exporter:   "stdout",
			SampleRate: 1.0,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(60 * time.Second),
		},
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*d = Duration(n)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
