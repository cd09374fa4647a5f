// Package action provides the whitelist of page-mutation actions.
//
// Every mutation domguard can perform is one of the Specs held by a Registry.
// Specs are pre-written and parameterized by bounded tokens only; generated
// code is never executed, it only selects a Spec and supplies its parameters.
package action

// ID is the stable identifier of a whitelisted action.
type ID string

// Canonical action identifiers.
const (
	RecolorButtons    ID = "recolor_buttons"
	RecolorBackground ID = "recolor_background"
	HideImages        ID = "hide_images"
	ShowImages        ID = "show_images"
	ResizeImages      ID = "resize_images"
	ChangeFontSize    ID = "change_font_size"
	MakeBold          ID = "make_bold"
	Italicize         ID = "italicize"
	RecolorText       ID = "recolor_text"
	HideButtons       ID = "hide_buttons"
	ShowButtons       ID = "show_buttons"
	GenericFeedback   ID = "generic_feedback"
)

// String returns the string representation of the id.
func (id ID) String() string {
	return string(id)
}

// Params holds the enumerated parameter slots of an action.
// Only the slots an action declares are read by its mutation.
type Params struct {
	// Color is used by the recolor actions.
	Color Color `json:"color,omitempty" yaml:"color,omitempty"`

	// Size is used by the font-size and image-resize actions.
	Size Size `json:"size,omitempty" yaml:"size,omitempty"`

	// Label is a feedback label for the catch-all action. It is passed to
	// targets as data and never spliced into script source.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// IsZero reports whether no slot is set.
func (p Params) IsZero() bool {
	return p.Color == "" && p.Size == "" && p.Label == ""
}

// WithColor returns Params carrying only the given color.
func WithColor(c Color) Params {
	return Params{Color: c}
}

// WithSize returns Params carrying only the given size.
func WithSize(s Size) Params {
	return Params{Size: s}
}

// WithLabel returns Params carrying only the sanitized label.
func WithLabel(label string) Params {
	return Params{Label: SanitizeLabel(label)}
}
