// Package fallback derives a whitelisted action directly from the
// natural-language command, bypassing generated code entirely.
//
// It is the last line of defense of a dispatch cycle: Synthesize never fails
// and never inspects generated code.
package fallback

import (
	"strings"
	"unicode"

	"github.com/felixgeelhaar/domguard/domain/action"
)

// DefaultColor is used when the command names no known color.
const DefaultColor action.Color = "blue"

// Colors is the ordered list of recognized color words. Compound names come
// first so that "lightblue" is preferred over "blue".
var Colors = []action.Color{
	"lightgreen", "lightblue", "lightpink",
	"magenta", "maroon", "purple", "orange", "yellow", "silver",
	"brown", "black", "white", "green", "olive",
	"cyan", "lime", "navy", "teal", "gold", "gray", "grey", "pink", "blue", "red",
}

// Sizes chosen by the resize intents.
const (
	SmallImageWidth action.Size = "50px"
	LargeImageWidth action.Size = "200px"
	LargeFontSize   action.Size = "20px"
	SmallFontSize   action.Size = "12px"
)

// Result is a synthesized action.
type Result struct {
	ActionID action.ID     `json:"action_id"`
	Params   action.Params `json:"params"`

	// Intent names the keyword rule that fired, or "none" for the catch-all.
	Intent string `json:"intent"`
}

// command is the normalized view of a command the intents inspect.
type command struct {
	lower    string
	color    action.Color
	hasColor bool
}

func (c command) has(keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(c.lower, k) {
			return true
		}
	}
	return false
}

// colorish is true when the command names a color or says "color".
func (c command) colorish() bool {
	return c.hasColor || c.has("color", "colour")
}

type intent struct {
	name   string
	id     action.ID
	match  func(c command) bool
	params func(c command) action.Params
}

func colorParams(c command) action.Params { return action.WithColor(c.color) }
func noParams(command) action.Params      { return action.Params{} }
func sizeParams(s action.Size) func(command) action.Params {
	return func(command) action.Params { return action.WithSize(s) }
}

// intents are evaluated top to bottom; the first match wins.
var intents = []intent{
	{
		name:   "button_color",
		id:     action.RecolorButtons,
		match:  func(c command) bool { return c.has("button") && c.colorish() },
		params: colorParams,
	},
	{
		name:   "background_color",
		id:     action.RecolorBackground,
		match:  func(c command) bool { return c.has("background") && c.colorish() },
		params: colorParams,
	},
	{
		name:   "text_color",
		id:     action.RecolorText,
		match:  func(c command) bool { return c.has("text", "font") && c.colorish() },
		params: colorParams,
	},
	{
		name:   "hide_buttons",
		id:     action.HideButtons,
		match:  func(c command) bool { return c.has("hide") && c.has("button") },
		params: noParams,
	},
	{
		name:   "show_buttons",
		id:     action.ShowButtons,
		match:  func(c command) bool { return c.has("show") && c.has("button") },
		params: noParams,
	},
	{
		name:   "hide_images",
		id:     action.HideImages,
		match:  func(c command) bool { return c.has("hide") && c.has("image", "img", "picture") },
		params: noParams,
	},
	{
		name:   "show_images",
		id:     action.ShowImages,
		match:  func(c command) bool { return c.has("show") && c.has("image", "img", "picture") },
		params: noParams,
	},
	{
		name:   "shrink_images",
		id:     action.ResizeImages,
		match:  func(c command) bool { return c.has("small", "shrink") && c.has("image", "img") },
		params: sizeParams(SmallImageWidth),
	},
	{
		name:   "enlarge_images",
		id:     action.ResizeImages,
		match:  func(c command) bool { return c.has("big", "large", "enlarge") && c.has("image", "img") },
		params: sizeParams(LargeImageWidth),
	},
	{
		name:   "larger_text",
		id:     action.ChangeFontSize,
		match:  func(c command) bool { return c.has("text", "font") && c.has("big", "large", "increase") },
		params: sizeParams(LargeFontSize),
	},
	{
		name:   "smaller_text",
		id:     action.ChangeFontSize,
		match:  func(c command) bool { return c.has("text", "font") && c.has("small", "decrease") },
		params: sizeParams(SmallFontSize),
	},
	{
		name:   "bold",
		id:     action.MakeBold,
		match:  func(c command) bool { return c.has("bold") },
		params: noParams,
	},
	{
		name:   "italic",
		id:     action.Italicize,
		match:  func(c command) bool { return c.has("italic") },
		params: noParams,
	},
}

// Synthesizer selects an action from the command text using keyword
// heuristics. It holds no mutable state.
type Synthesizer struct {
	registry *action.Registry
}

// New creates a synthesizer. Intents whose action is missing from the
// registry are skipped, so the result is always applicable to registry.
func New(registry *action.Registry) *Synthesizer {
	return &Synthesizer{registry: registry}
}

// Synthesize returns the action for the command. It never fails: when no
// intent matches, the registry's catch-all is returned with the sanitized
// command as its feedback label.
func (s *Synthesizer) Synthesize(raw string) Result {
	c := parse(raw)

	for _, in := range intents {
		if !in.match(c) || !s.registry.Has(in.id) {
			continue
		}
		return Result{
			ActionID: in.id,
			Params:   in.params(c),
			Intent:   in.name,
		}
	}

	return Result{
		ActionID: s.registry.CatchAll().ID,
		Params:   action.WithLabel(raw),
		Intent:   "none",
	}
}

// ExtractColor returns the first recognized color word in the text, or
// DefaultColor when there is none.
func ExtractColor(text string) action.Color {
	return parse(text).color
}

func parse(raw string) command {
	lower := strings.ToLower(raw)
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) }) {
		words[w] = true
	}

	c := command{lower: lower, color: DefaultColor}
	for _, color := range Colors {
		if words[string(color)] {
			c.color = color
			c.hasColor = true
			break
		}
	}
	return c
}
