package action

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLabelRunes bounds the length of a feedback label.
const MaxLabelRunes = 200

// Color is a CSS color token that passed ParseColor.
type Color string

// String returns the string representation of the color.
func (c Color) String() string {
	return string(c)
}

// Size is a CSS length or size keyword that passed ParseSize.
type Size string

// String returns the string representation of the size.
func (s Size) String() string {
	return string(s)
}

var (
	hexColorPattern   = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	namedColorPattern = regexp.MustCompile(`^[a-zA-Z]{1,32}$`)
	funcColorPattern  = regexp.MustCompile(`^(?:rgb|rgba|hsl|hsla)\([0-9.,%\s]{1,40}\)$`)
	lengthPattern     = regexp.MustCompile(`^\d{1,4}(?:\.\d{1,2})?(?:px|em|rem|%|pt|vw|vh)$`)
)

var sizeKeywords = map[string]bool{
	"xx-small":  true,
	"x-small":   true,
	"small":     true,
	"medium":    true,
	"large":     true,
	"x-large":   true,
	"xx-large":  true,
	"xxx-large": true,
	"smaller":   true,
	"larger":    true,
}

// ParseColor validates raw as a bounded CSS color token.
// Accepted forms are hex colors, bare identifiers such as "teal", and the
// rgb/rgba/hsl/hsla functions with numeric arguments. Anything else is
// rejected so that no free text reaches a style property.
func ParseColor(raw string) (Color, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || len(s) > 48 {
		return "", false
	}
	switch {
	case hexColorPattern.MatchString(s):
		return Color(strings.ToLower(s)), true
	case namedColorPattern.MatchString(s):
		return Color(strings.ToLower(s)), true
	case funcColorPattern.MatchString(strings.ToLower(s)):
		return Color(strings.ToLower(s)), true
	default:
		return "", false
	}
}

// ParseSize validates raw as a CSS length (e.g. "16px", "1.5em") or an
// absolute/relative size keyword.
func ParseSize(raw string) (Size, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	if lengthPattern.MatchString(s) || sizeKeywords[s] {
		return Size(s), true
	}
	return "", false
}

// SanitizeLabel trims the label, folds line breaks to spaces, drops other
// control characters and truncates it to MaxLabelRunes runes.
func SanitizeLabel(raw string) string {
	if !utf8.ValidString(raw) {
		raw = strings.ToValidUTF8(raw, "")
	}
	var b strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(raw) {
		if unicode.IsControl(r) || unicode.In(r, unicode.Zl, unicode.Zp) {
			if r == '\n' || r == '\t' || r == '\r' || !unicode.IsControl(r) {
				r = ' '
			} else {
				continue
			}
		}
		if n == MaxLabelRunes {
			break
		}
		b.WriteRune(r)
		n++
	}
	return strings.TrimSpace(b.String())
}
