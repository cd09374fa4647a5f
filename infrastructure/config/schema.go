package config

import (
	"encoding/json"

	domainconfig "github.com/felixgeelhaar/domguard/domain/config"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	Format               string                 `json:"format,omitempty"`
}

// GenerateSchema generates a JSON Schema for the domguard configuration.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:               "https://json-schema.org/draft/2020-12/schema",
		ID:                   "https://github.com/felixgeelhaar/domguard/domguard-config.schema.json",
		Title:                "domguard configuration",
		Description:          "Configuration schema for the domguard dispatcher",
		Type:                 "object",
		AdditionalProperties: boolPtr(false),
		Properties: map[string]*JSONSchema{
			"name":       {Type: "string", Description: "A human-readable name for this configuration", Default: "domguard"},
			"version":    {Type: "string", Description: "The configuration schema version", Default: "1"},
			"generator":  generatorSchema(),
			"executor":   executorSchema(),
			"reporter":   reporterSchema(),
			"dispatch":   dispatchSchema(),
			"resilience": resilienceSchema(),
			"logging":    loggingSchema(),
			"tracing":    tracingSchema(),
			"server":     serverSchema(),
		},
	}
}

func object(description string, props map[string]*JSONSchema) *JSONSchema {
	return &JSONSchema{
		Type:                 "object",
		Description:          description,
		AdditionalProperties: boolPtr(false),
		Properties:           props,
	}
}

func duration(description, def string) *JSONSchema {
	s := &JSONSchema{Type: "string", Description: description, Format: "duration"}
	if def != "" {
		s.Default = def
	}
	return s
}

func generatorSchema() *JSONSchema {
	return object("Remote code generator used by run", map[string]*JSONSchema{
		"enabled": {Type: "boolean", Default: false},
		"url":     {Type: "string", Format: "uri", Description: "Generator base URL"},
		"timeout": duration("Request timeout", "30s"),
	})
}

func executorSchema() *JSONSchema {
	return object("Where actions are applied", map[string]*JSONSchema{
		"kind": {
			Type:    "string",
			Enum:    []string{domainconfig.ExecutorDocument, domainconfig.ExecutorBrowser},
			Default: domainconfig.ExecutorDocument,
		},
		"root": {Type: "string", Description: "Directory document targets are confined to"},
		"browser": object("Chrome settings", map[string]*JSONSchema{
			"control_url":  {Type: "string", Description: "DevTools URL of a running browser"},
			"bin":          {Type: "string", Description: "Chrome binary to launch"},
			"headless":     {Type: "boolean", Default: true},
			"load_timeout": duration("Page load timeout", "15s"),
		}),
	})
}

func reporterSchema() *JSONSchema {
	return object("Where dispatch outcomes are recorded", map[string]*JSONSchema{
		"kinds": {
			Type: "array",
			Items: &JSONSchema{
				Type: "string",
				Enum: []string{
					domainconfig.ReporterSQLite,
					domainconfig.ReporterMemory,
					domainconfig.ReporterHTTP,
					domainconfig.ReporterLog,
					domainconfig.ReporterNone,
				},
			},
			Default: []string{domainconfig.ReporterLog},
		},
		"dsn":     {Type: "string", Description: "SQLite data source name"},
		"url":     {Type: "string", Format: "uri", Description: "Collector base URL"},
		"secret":  {Type: "string", Description: "HMAC secret for signing reports"},
		"timeout": duration("Bound on one report", "5s"),
	})
}

func dispatchSchema() *JSONSchema {
	return object("Dispatch cycle behavior", map[string]*JSONSchema{
		"strict": {Type: "boolean", Description: "Panic on unknown action ids", Default: false},
	})
}

func resilienceSchema() *JSONSchema {
	return object("Resilience settings for action invocation", map[string]*JSONSchema{
		"timeout": duration("Invocation timeout", "30s"),
		"retry": object("Retry behavior", map[string]*JSONSchema{
			"max_attempts":  {Type: "integer", Minimum: floatPtr(0), Default: 3},
			"initial_delay": duration("", "100ms"),
			"multiplier":    {Type: "number", Minimum: floatPtr(1), Default: 2.0},
		}),
		"circuit_breaker": object("Per-target circuit breaker", map[string]*JSONSchema{
			"threshold": {Type: "integer", Description: "Failures before opening", Minimum: floatPtr(0), Default: 5},
			"timeout":   duration("How long the circuit stays open", "30s"),
		}),
		"bulkhead": object("Concurrency limit", map[string]*JSONSchema{
			"max_concurrent": {Type: "integer", Minimum: floatPtr(0), Default: 10},
		}),
	})
}

func loggingSchema() *JSONSchema {
	return object("Structured logging", map[string]*JSONSchema{
		"level":  {Type: "string", Enum: []string{"trace", "debug", "info", "warn", "error"}, Default: "info"},
		"format": {Type: "string", Enum: []string{"console", "json"}, Default: "console"},
	})
}

func tracingSchema() *JSONSchema {
	return object("OpenTelemetry tracing and metrics", map[string]*JSONSchema{
		"enabled":     {Type: "boolean", Default: false},
		"exporter":    {Type: "string", Enum: []string{"otlp", "stdout", "noop"}, Default: "stdout"},
		"endpoint":    {Type: "string", Description: "OTLP gRPC endpoint"},
		"insecure":    {Type: "boolean", Default: false},
		"sample_rate": {Type: "number", Minimum: floatPtr(0), Maximum: floatPtr(1), Default: 1.0},
		"metrics":     {Type: "boolean", Description: "Collect outcome counters", Default: false},
	})
}

func serverSchema() *JSONSchema {
	return object("Local HTTP API", map[string]*JSONSchema{
		"addr":          {Type: "string", Default: "127.0.0.1:8080"},
		"read_timeout":  duration("", "10s"),
		"write_timeout": duration("", "60s"),
	})
}

func floatPtr(f float64) *float64 {
	return &f
}

func boolPtr(b bool) *bool {
	return &b
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	data, err := json.MarshalIndent(GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
