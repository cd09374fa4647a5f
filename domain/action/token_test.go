package action_test

import (
	"strings"
	"testing"

	"github.com/felixgeelhaar/domguard/domain/action"
)

func TestParseColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		want   action.Color
		wantOK bool
	}{
		{"red", "red", true},
		{"Teal", "teal", true},
		{" lightblue ", "lightblue", true},
		{"#fff", "#fff", true},
		{"#A0B1C2", "#a0b1c2", true},
		{"#a0b1c2ff", "#a0b1c2ff", true},
		{"rgb(255, 0, 0)", "rgb(255, 0, 0)", true},
		{"hsla(120, 50%, 50%, 0.3)", "hsla(120, 50%, 50%, 0.3)", true},
		{"", "", false},
		{"#ggg", "", false},
		{"#12345", "", false},
		{"red;", "", false},
		{"red; background:url(x)", "", false},
		{"url(javascript:alert(1))", "", false},
		{"rgb(expression(alert(1)))", "", false},
		{"light blue", "", false},
		{strings.Repeat("a", 33), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, ok := action.ParseColor(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseColor(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		want   action.Size
		wantOK bool
	}{
		{"16px", "16px", true},
		{"1.5em", "1.5em", true},
		{"120%", "120%", true},
		{"2REM", "2rem", true},
		{"x-large", "x-large", true},
		{"16", "", false},
		{"px", "", false},
		{"99999px", "", false},
		{"16px; color:red", "", false},
		{"calc(100% - 1px)", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, ok := action.ParseSize(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseSize(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSanitizeLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims", "  hello  ", "hello"},
		{"newlines become spaces", "a\nb\tc", "a b c"},
		{"drops control chars", "a\x00b\x1bc", "abc"},
		{"invalid utf8", "ok\xff", "ok"},
		{"line separators become spaces", "a\u2028b\u2029c", "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := action.SanitizeLabel(tt.input); got != tt.want {
				t.Errorf("SanitizeLabel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeLabel_Truncates(t *testing.T) {
	t.Parallel()

	got := action.SanitizeLabel(strings.Repeat("é", action.MaxLabelRunes+50))
	if n := len([]rune(got)); n != action.MaxLabelRunes {
		t.Errorf("len = %d runes, want %d", n, action.MaxLabelRunes)
	}
}
