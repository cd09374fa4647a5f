package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the dotted path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates domguard configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns every error found.
func (v *Validator) Validate(config *Config) ValidationErrors {
	v.errors = nil

	v.validateGenerator(config)
	v.validateExecutor(config)
	v.validateReporter(config)
	v.validateResilience(config)
	v.validateLogging(config)
	v.validateTracing(config)
	v.validateServer(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) checkURL(path, raw string) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.addError(path, fmt.Sprintf("invalid http url: %q", raw))
	}
}

func (v *Validator) validateGenerator(config *Config) {
	if !config.Generator.Enabled {
		return
	}
	if config.Generator.URL == "" {
		v.addError("generator.url", "url is required when enabled")
	} else {
		v.checkURL("generator.url", config.Generator.URL)
	}
	if config.Generator.Timeout < 0 {
		v.addError("generator.timeout", "timeout must be non-negative")
	}
}

func (v *Validator) validateExecutor(config *Config) {
	switch config.Executor.Kind {
	case ExecutorDocument:
	case ExecutorBrowser:
		if cu := config.Executor.Browser.ControlURL; cu != "" {
			u, err := url.Parse(cu)
			if err != nil || (u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "http") {
				v.addError("executor.browser.control_url", fmt.Sprintf("invalid control url: %q", cu))
			}
		}
	case "":
		v.addError("executor.kind", "kind is required")
	default:
		v.addError("executor.kind", fmt.Sprintf("unknown executor: %s", config.Executor.Kind))
	}
}

func (v *Validator) validateReporter(config *Config) {
	seen := make(map[string]bool)
	for i, kind := range config.Reporter.Kinds {
		path := fmt.Sprintf("reporter.kinds[%d]", i)
		switch kind {
		case ReporterSQLite:
			if config.Reporter.DSN == "" {
				v.addError("reporter.dsn", "dsn is required for sqlite reporter")
			}
		case ReporterHTTP:
			if config.Reporter.URL == "" {
				v.addError("reporter.url", "url is required for http reporter")
			} else {
				v.checkURL("reporter.url", config.Reporter.URL)
			}
		case ReporterMemory, ReporterLog:
		case ReporterNone:
			if len(config.Reporter.Kinds) > 1 {
				v.addError(path, "none cannot be combined with other reporters")
			}
		default:
			v.addError(path, fmt.Sprintf("unknown reporter: %s", kind))
		}
		if seen[kind] {
			v.addError(path, fmt.Sprintf("duplicate reporter: %s", kind))
		}
		seen[kind] = true
	}
	if config.Reporter.Timeout < 0 {
		v.addError("reporter.timeout", "timeout must be non-negative")
	}
}

func (v *Validator) validateResilience(config *Config) {
	r := config.Resilience
	if r.Timeout < 0 {
		v.addError("resilience.timeout", "timeout must be non-negative")
	}
	if r.Retry.MaxAttempts < 0 {
		v.addError("resilience.retry.max_attempts", "max_attempts must be non-negative")
	}
	if r.Retry.Multiplier != 0 && r.Retry.Multiplier < 1 {
		v.addError("resilience.retry.multiplier", "multiplier must be >= 1")
	}
	if r.CircuitBreaker.Threshold < 0 {
		v.addError("resilience.circuit_breaker.threshold", "threshold must be non-negative")
	}
	if r.Bulkhead.MaxConcurrent < 0 {
		v.addError("resilience.bulkhead.max_concurrent", "max_concurrent must be non-negative")
	}
}

func (v *Validator) validateLogging(config *Config) {
	validLevels := map[string]bool{
		"": true, "trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(config.Logging.Level)] {
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "", LogFormatConsole, LogFormatJSON:
	default:
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
	}
}

func (v *Validator) validateTracing(config *Config) {
	t := config.Tracing
	if !t.Enabled {
		return
	}
	switch t.Exporter {
	case "stdout", "noop":
	case "otlp":
		if t.Endpoint == "" {
			v.addError("tracing.endpoint", "endpoint is required for otlp exporter")
		}
	default:
		v.addError("tracing.exporter", fmt.Sprintf("unknown exporter: %s", t.Exporter))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		v.addError("tracing.sample_rate", "sample_rate must be between 0 and 1")
	}
}

func (v *Validator) validateServer(config *Config) {
	if config.Server.Addr == "" {
		return
	}
	if _, _, err := net.SplitHostPort(config.Server.Addr); err != nil {
		v.addError("server.addr", fmt.Sprintf("invalid address: %s", config.Server.Addr))
	}
}
