package action

// Selector identifies the set of elements a mutation applies to.
type Selector string

// Whitelisted selectors.
const (
	SelectorButtons Selector = "button"
	SelectorImages  Selector = "img"
	SelectorBody    Selector = "body"
)

// IsValid returns true if the selector is whitelisted.
func (s Selector) IsValid() bool {
	switch s {
	case SelectorButtons, SelectorImages, SelectorBody:
		return true
	default:
		return false
	}
}

// Property is a CSS property name a mutation may set.
type Property string

// Whitelisted style properties.
const (
	PropBackgroundColor Property = "background-color"
	PropColor           Property = "color"
	PropDisplay         Property = "display"
	PropFontSize        Property = "font-size"
	PropFontWeight      Property = "font-weight"
	PropFontStyle       Property = "font-style"
	PropWidth           Property = "width"
	PropBorder          Property = "border"
)

// IsValid returns true if the property is whitelisted.
func (p Property) IsValid() bool {
	switch p {
	case PropBackgroundColor, PropColor, PropDisplay, PropFontSize,
		PropFontWeight, PropFontStyle, PropWidth, PropBorder:
		return true
	default:
		return false
	}
}

// Target is the document-like surface a mutation is applied to.
// Implementations live in infrastructure (an in-memory HTML document, a live
// browser page) and must confine their effects to the elements the selector
// names.
type Target interface {
	// SetStyle sets an inline style property on every element matching sel.
	SetStyle(sel Selector, prop Property, value string) error

	// Feedback surfaces a transient, user-visible acknowledgement carrying
	// label. It must leave no lasting change on the page.
	Feedback(label string) error
}
