package config

import (
	"errors"
	"testing"

	domainconfig "github.com/felixgeelhaar/domguard/domain/config"
)

func fakeEnv(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestEnvExpander_Expand(t *testing.T) {
	t.Parallel()

	env := fakeEnv(map[string]string{
		"TEST_VAR": "hello",
		"EMPTY":    "",
	})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bracket syntax", "${TEST_VAR}", "hello"},
		{"dollar syntax", "$TEST_VAR", "hello"},
		{"embedded in text", "prefix-${TEST_VAR}-suffix", "prefix-hello-suffix"},
		{"multiple variables", "${TEST_VAR} $TEST_VAR", "hello hello"},
		{"default when unset", "${MISSING:-fallback}", "fallback"},
		{"default when empty", "${EMPTY:-fallback}", "fallback"},
		{"default ignored when set", "${TEST_VAR:-fallback}", "hello"},
		{"unset becomes empty", "[${MISSING}]", "[]"},
		{"no variables", "plain: text", "plain: text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := &envExpander{lookup: env}
			got, err := e.Expand(tt.input)
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnvExpander_Missing(t *testing.T) {
	t.Parallel()

	env := fakeEnv(map[string]string{"SET": "x"})

	tests := []struct {
		name   string
		strict bool
		input  string
	}{
		{"required unset", false, "${NEEDED:?must be set}"},
		{"strict bracket", true, "${MISSING}"},
		{"strict dollar", true, "$MISSING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := &envExpander{strict: tt.strict, lookup: env}
			_, err := e.Expand(tt.input)
			if !errors.Is(err, domainconfig.ErrMissingEnvVar) {
				t.Errorf("Expand(%q) error = %v, want ErrMissingEnvVar", tt.input, err)
			}
		})
	}
}
