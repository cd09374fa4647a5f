package action

import (
	"encoding/json"
	"regexp"
)

// Signature patterns shared by the default specs. Selector and assignment
// patterns accept either quote style and optional whitespace around "=".
var (
	buttonSelector = regexp.MustCompile(`querySelector(?:All)?\(\s*['"]button['"]\s*\)`)
	imageSelector  = regexp.MustCompile(`querySelector(?:All)?\(\s*['"]img['"]\s*\)`)
	displayNone    = regexp.MustCompile(`display\s*=\s*['"]none['"]`)
	displayBlock   = regexp.MustCompile(`display\s*=\s*['"]block['"]`)
	styleWidth     = regexp.MustCompile(`style\.width\s*=`)
	bodyBold       = regexp.MustCompile(`document\.body\.style\.fontWeight\s*=\s*['"]bold['"]`)
	bodyItalic     = regexp.MustCompile(`document\.body\.style\.fontStyle\s*=\s*['"]italic['"]`)

	backgroundCapture = regexp.MustCompile(`backgroundColor\s*=\s*['"]([^'"]+)['"]`)
	fontSizeCapture   = regexp.MustCompile(`fontSize\s*=\s*['"]([^'"]+)['"]`)
	widthCapture      = regexp.MustCompile(`width\s*=\s*['"]([^'"]+)['"]`)
	textColorCapture  = regexp.MustCompile(`style\.color\s*=\s*['"]([^'"]+)['"]`)
)

// Default parameter values.
const (
	DefaultButtonColor     Color = "blue"
	DefaultBackgroundColor Color = "white"
	DefaultTextColor       Color = "black"
	DefaultFontSize        Size  = "16px"
	DefaultImageWidth      Size  = "100px"

	// FeedbackBorder is the transient highlight used by the catch-all.
	FeedbackBorder = "3px solid #4CAF50"
)

// DefaultSpecs returns the standard whitelist in classification order.
func DefaultSpecs() []Spec {
	return []Spec{
		{
			ID:          RecolorButtons,
			Description: "Set the background color of every button",
			Signatures: []Signature{
				Pattern("button selector", buttonSelector),
				Contains("backgroundColor"),
			},
			Slot:    SlotColor,
			Extract: CaptureColor(backgroundCapture),
			Default: WithColor(DefaultButtonColor),
			Mutate: func(t Target, p Params) error {
				return t.SetStyle(SelectorButtons, PropBackgroundColor, p.Color.String())
			},
			Render: func(p Params) string {
				return `document.querySelectorAll("button").forEach(btn => btn.style.backgroundColor = ` + jsString(p.Color.String()) + `);`
			},
		},
		{
			ID:          RecolorBackground,
			Description: "Set the page background color",
			Signatures: []Signature{
				Contains("document.body.style.backgroundColor"),
			},
			Slot:    SlotColor,
			Extract: CaptureColor(backgroundCapture),
			Default: WithColor(DefaultBackgroundColor),
			Mutate: func(t Target, p Params) error {
				return t.SetStyle(SelectorBody, PropBackgroundColor, p.Color.String())
			},
			Render: func(p Params) string {
				return `document.body.style.backgroundColor = ` + jsString(p.Color.String()) + `;`
			},
		},
		{
			ID:          HideImages,
			Description: "Hide every image",
			Signatures: []Signature{
				Pattern("img selector", imageSelector),
				Pattern("display none", displayNone),
			},
			Mutate: func(t Target, _ Params) error {
				return t.SetStyle(SelectorImages, PropDisplay, "none")
			},
			Render: func(Params) string {
				return `document.querySelectorAll("img").forEach(img => img.style.display = "none");`
			},
		},
		{
			ID:          ShowImages,
			Description: "Show every image",
			Signatures: []Signature{
				Pattern("img selector", imageSelector),
				Pattern("display block", displayBlock),
			},
			Mutate: func(t Target, _ Params) error {
				return t.SetStyle(SelectorImages, PropDisplay, "block")
			},
			Render: func(Params) string {
				return `document.querySelectorAll("img").forEach(img => img.style.display = "block");`
			},
		},
		{
			ID:          ResizeImages,
			Description: "Set the width of every image",
			Signatures: []Signature{
				Pattern("img selector", imageSelector),
				Pattern("width assignment", styleWidth),
			},
			Slot:    SlotSize,
			Extract: CaptureSize(widthCapture),
			Default: WithSize(DefaultImageWidth),
			Mutate: func(t Target, p Params) error {
				return t.SetStyle(SelectorImages, PropWidth, p.Size.String())
			},
			Render: func(p Params) string {
				return `document.querySelectorAll("img").forEach(img => img.style.width = ` + jsString(p.Size.String()) + `);`
			},
		},
		{
			ID:          ChangeFontSize,
			Description: "Set the page font size",
			Signatures: []Signature{
				Contains("document.body.style.fontSize"),
			},
			Slot:    SlotSize,
			Extract: CaptureSize(fontSizeCapture),
			Default: WithSize(DefaultFontSize),
			Mutate: func(t Target, p Params) error {
				return t.SetStyle(SelectorBody, PropFontSize, p.Size.String())
			},
			Render: func(p Params) string {
				return `document.body.style.fontSize = ` + jsString(p.Size.String()) + `;`
			},
		},
		{
			ID:          MakeBold,
			Description: "Make the page text bold",
			Signatures: []Signature{
				Pattern("body font-weight bold", bodyBold),
			},
			Mutate: func(t Target, _ Params) error {
				return t.SetStyle(SelectorBody, PropFontWeight, "bold")
			},
			Render: func(Params) string {
				return `document.body.style.fontWeight = "bold";`
			},
		},
		{
			ID:          Italicize,
			Description: "Make the page text italic",
			Signatures: []Signature{
				Pattern("body font-style italic", bodyItalic),
			},
			Mutate: func(t Target, _ Params) error {
				return t.SetStyle(SelectorBody, PropFontStyle, "italic")
			},
			Render: func(Params) string {
				return `document.body.style.fontStyle = "italic";`
			},
		},
		{
			ID:          RecolorText,
			Description: "Set the page text color",
			Signatures: []Signature{
				Contains("document.body.style.color"),
			},
			Slot:    SlotColor,
			Extract: CaptureColor(textColorCapture),
			Default: WithColor(DefaultTextColor),
			Mutate: func(t Target, p Params) error {
				return t.SetStyle(SelectorBody, PropColor, p.Color.String())
			},
			Render: func(p Params) string {
				return `document.body.style.color = ` + jsString(p.Color.String()) + `;`
			},
		},
		{
			ID:          HideButtons,
			Description: "Hide every button",
			Signatures: []Signature{
				Pattern("button selector", buttonSelector),
				Pattern("display none", displayNone),
			},
			Mutate: func(t Target, _ Params) error {
				return t.SetStyle(SelectorButtons, PropDisplay, "none")
			},
			Render: func(Params) string {
				return `document.querySelectorAll("button").forEach(btn => btn.style.display = "none");`
			},
		},
		{
			ID:          ShowButtons,
			Description: "Show every button",
			Signatures: []Signature{
				Pattern("button selector", buttonSelector),
				Pattern("display block", displayBlock),
			},
			Mutate: func(t Target, _ Params) error {
				return t.SetStyle(SelectorButtons, PropDisplay, "block")
			},
			Render: func(Params) string {
				return `document.querySelectorAll("button").forEach(btn => btn.style.display = "block");`
			},
		},
		{
			ID:          GenericFeedback,
			Description: "Acknowledge the command with a transient highlight",
			Slot:        SlotLabel,
			Mutate: func(t Target, p Params) error {
				return t.Feedback(p.Label)
			},
			Render: func(p Params) string {
				return `console.log("domguard: " + ` + jsString(p.Label) + `); ` +
					`document.body.style.border = ` + jsString(FeedbackBorder) + `; ` +
					`setTimeout(() => document.body.style.border = "", 2000);`
			},
		},
	}
}

// DefaultRegistry builds the standard whitelist registry.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultSpecs()...)
	if err != nil {
		panic(err)
	}
	return r
}

// jsString encodes s as a JavaScript string literal. JSON encoding escapes
// quotes, backslashes, "<", ">", "&" and the U+2028/U+2029 separators.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
