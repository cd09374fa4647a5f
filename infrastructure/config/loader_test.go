package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	domainconfig "github.com/felixgeelhaar/domguard/domain/config"
)

func noEnv(string) (string, bool) { return "", false }

func TestLoader_LoadFile_YAML(t *testing.T) {
	t.Parallel()

	content := `
name: test-guard
executor:
  kind: browser
  browser:
    headless: false
    load_timeout: 3s
reporter:
  kinds: [memory, http]
  url: http://collector.local:8000
resilience:
  retry:
    max_attempts: 5
`
	path := filepath.Join(t.TempDir(), "domguard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := NewLoaderWithOptions(WithLookup(noEnv)).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Name != "test-guard" {
		t.Errorf("Name = %s, want test-guard", cfg.Name)
	}
	if cfg.Executor.Kind != domainconfig.ExecutorBrowser {
		t.Errorf("Executor.Kind = %s, want browser", cfg.Executor.Kind)
	}
	if cfg.Executor.Browser.IsHeadless() {
		t.Error("Headless = true, want false")
	}
	if cfg.Executor.Browser.LoadTimeout.Duration() != 3*time.Second {
		t.Errorf("LoadTimeout = %v, want 3s", cfg.Executor.Browser.LoadTimeout.Duration())
	}
	if len(cfg.Reporter.Kinds) != 2 || !cfg.Reporter.Has(domainconfig.ReporterHTTP) {
		t.Errorf("Reporter.Kinds = %v, want [memory http]", cfg.Reporter.Kinds)
	}
	if cfg.Resilience.Retry.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Resilience.Retry.MaxAttempts)
	}
	// Untouched sections keep their defaults.
	if cfg.Resilience.CircuitBreaker.Threshold != 5 {
		t.Errorf("Threshold = %d, want default 5", cfg.Resilience.CircuitBreaker.Threshold)
	}
	if cfg.Server.Addr != domainconfig.Default().Server.Addr {
		t.Errorf("Server.Addr = %s, want default", cfg.Server.Addr)
	}
}

func TestLoader_LoadString_JSON(t *testing.T) {
	t.Parallel()

	content := `{"dispatch": {"strict": true}, "reporter": {"kinds": ["none"], "timeout": "2s"}}`

	cfg, err := NewLoaderWithOptions(WithLookup(noEnv)).LoadString(content, FormatJSON)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if !cfg.Dispatch.Strict {
		t.Error("Dispatch.Strict = false, want true")
	}
	if cfg.Reporter.Timeout.Duration() != 2*time.Second {
		t.Errorf("Reporter.Timeout = %v, want 2s", cfg.Reporter.Timeout.Duration())
	}
	if len(cfg.Reporter.Kinds) != 1 || cfg.Reporter.Kinds[0] != domainconfig.ReporterNone {
		t.Errorf("Reporter.Kinds = %v, want [none]", cfg.Reporter.Kinds)
	}
}

func TestLoader_ExpandsEnv(t *testing.T) {
	t.Parallel()

	env := fakeEnv(map[string]string{"COLLECTOR": "http://audit.local"})
	content := "reporter:\n  kinds: [http]\n  url: ${COLLECTOR}\n  secret: ${SECRET:-dev}\n"

	cfg, err := NewLoaderWithOptions(WithLookup(env)).LoadString(content, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Reporter.URL != "http://audit.local" {
		t.Errorf("Reporter.URL = %s", cfg.Reporter.URL)
	}
	if cfg.Reporter.Secret != "dev" {
		t.Errorf("Reporter.Secret = %s, want dev", cfg.Reporter.Secret)
	}
}

func TestLoader_Overrides(t *testing.T) {
	t.Parallel()

	env := fakeEnv(map[string]string{
		"DOMGUARD_EXECUTOR":  "browser",
		"DOMGUARD_REPORTERS": "memory, log",
		"DOMGUARD_LOG_LEVEL": "debug",
		"DOMGUARD_ADDR":      "",
		"DOMGUARD_DSN":       "file:override.db",
		"DOMGUARD_UNKNOWN":   "ignored",
	})

	cfg, err := NewLoaderWithOptions(WithLookup(env)).LoadString("executor:\n  kind: document\n", FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Executor.Kind != domainconfig.ExecutorBrowser {
		t.Errorf("Executor.Kind = %s, want browser", cfg.Executor.Kind)
	}
	if len(cfg.Reporter.Kinds) != 2 || cfg.Reporter.Kinds[1] != domainconfig.ReporterLog {
		t.Errorf("Reporter.Kinds = %v, want [memory log]", cfg.Reporter.Kinds)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Server.Addr != domainconfig.Default().Server.Addr {
		t.Errorf("empty override replaced Server.Addr with %q", cfg.Server.Addr)
	}
	if cfg.Reporter.DSN != "file:override.db" {
		t.Errorf("Reporter.DSN = %s, want file:override.db", cfg.Reporter.DSN)
	}
}

func TestLoader_OverridesFromProcessEnv(t *testing.T) {
	t.Setenv("DOMGUARD_LOG_FORMAT", "json")
	t.Setenv("DOMGUARD_GENERATOR_URL", "http://gen.internal:9000")

	cfg, err := NewLoader().LoadString("logging:\n  format: console\n", FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Logging.Format != domainconfig.LogFormatJSON {
		t.Errorf("Logging.Format = %s, want json", cfg.Logging.Format)
	}
	if cfg.Generator.URL != "http://gen.internal:9000" {
		t.Errorf("Generator.URL = %s", cfg.Generator.URL)
	}
}

func TestLoader_LoadDefault(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoaderWithOptions(WithLookup(noEnv)).LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	if cfg.Executor.Kind != domainconfig.ExecutorDocument {
		t.Errorf("Executor.Kind = %s, want document", cfg.Executor.Kind)
	}
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	txt := filepath.Join(dir, "config.txt")
	if err := os.WriteFile(txt, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		load func(*Loader) error
		want error
	}{
		{
			name: "missing file",
			load: func(l *Loader) error { _, err := l.LoadFile(filepath.Join(dir, "nope.yaml")); return err },
			want: domainconfig.ErrConfigNotFound,
		},
		{
			name: "directory",
			load: func(l *Loader) error { _, err := l.LoadFile(dir); return err },
			want: domainconfig.ErrInvalidFormat,
		},
		{
			name: "unsupported extension",
			load: func(l *Loader) error { _, err := l.LoadFile(txt); return err },
			want: domainconfig.ErrUnsupportedFormat,
		},
		{
			name: "malformed yaml",
			load: func(l *Loader) error { _, err := l.LoadString("executor: [", FormatYAML); return err },
			want: domainconfig.ErrInvalidFormat,
		},
		{
			name: "malformed json",
			load: func(l *Loader) error { _, err := l.LoadString("{", FormatJSON); return err },
			want: domainconfig.ErrInvalidFormat,
		},
		{
			name: "unknown format",
			load: func(l *Loader) error { _, err := l.LoadString("", Format("toml")); return err },
			want: domainconfig.ErrUnsupportedFormat,
		},
		{
			name: "invalid values",
			load: func(l *Loader) error { _, err := l.LoadString("executor:\n  kind: shell\n", FormatYAML); return err },
			want: domainconfig.ErrValidationFailed,
		},
		{
			name: "required env",
			load: func(l *Loader) error { _, err := l.LoadString("name: ${NAME:?set a name}\n", FormatYAML); return err },
			want: domainconfig.ErrMissingEnvVar,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.load(NewLoaderWithOptions(WithLookup(noEnv)))
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoader_WithoutValidation(t *testing.T) {
	t.Parallel()

	l := NewLoaderWithOptions(WithLookup(noEnv), WithValidation(false), WithEnvExpansion(false))
	cfg, err := l.LoadString("executor:\n  kind: shell\nname: $KEEP\n", FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Name != "$KEEP" {
		t.Errorf("Name = %s, want unexpanded $KEEP", cfg.Name)
	}
}
