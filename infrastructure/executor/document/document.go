// Package document applies actions to HTML files on disk.
package document

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/felixgeelhaar/domguard/domain/action"
)

// ErrInvalidStyleTarget is returned for a selector or property outside the
// whitelist.
var ErrInvalidStyleTarget = errors.New("selector or property not allowed")

// Document is a parsed HTML page implementing action.Target.
type Document struct {
	root     *html.Node
	feedback []string
}

var _ action.Target = (*Document)(nil)

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root}, nil
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, returning "" on error.
func (d *Document) String() string {
	var sb strings.Builder
	if err := d.Render(&sb); err != nil {
		return ""
	}
	return sb.String()
}

// SetStyle sets an inline style property on every element named by sel.
// Setting the same value twice leaves the document unchanged.
func (d *Document) SetStyle(sel action.Selector, prop action.Property, value string) error {
	if !sel.IsValid() || !prop.IsValid() {
		return fmt.Errorf("%w: %s { %s }", ErrInvalidStyleTarget, sel, prop)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == string(sel) {
			setStyle(n, string(prop), value)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return nil
}

// Feedback records the acknowledgement without touching the markup; a
// static file has no transient surface.
func (d *Document) Feedback(label string) error {
	d.feedback = append(d.feedback, label)
	return nil
}

// FeedbackLabels returns the labels acknowledged so far.
func (d *Document) FeedbackLabels() []string {
	return append([]string(nil), d.feedback...)
}

// Elements returns every element with the given tag name in document order.
func (d *Document) Elements(tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// StyleOf returns the inline value of prop on n.
func StyleOf(n *html.Node, prop action.Property) (string, bool) {
	for _, decl := range parseStyle(attr(n, "style")) {
		if decl.name == string(prop) {
			return decl.value, true
		}
	}
	return "", false
}

// declaration is one inline style entry. Entries that do not parse as
// name: value keep their text in raw and are written back unchanged.
type declaration struct {
	name  string
	value string
	raw   string
}

func setStyle(n *html.Node, prop, value string) {
	decls := parseStyle(attr(n, "style"))
	found := false
	for i := range decls {
		if decls[i].name == prop {
			decls[i].value = value
			found = true
		}
	}
	if !found {
		decls = append(decls, declaration{name: prop, value: value})
	}
	setAttr(n, "style", formatStyle(decls))
}

func parseStyle(s string) []declaration {
	var decls []declaration
	for _, part := range splitDeclarations(s) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, ":")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" || strings.ContainsAny(name, "(\"'") {
			decls = append(decls, declaration{raw: part})
			continue
		}
		decls = append(decls, declaration{name: name, value: strings.TrimSpace(value)})
	}
	return decls
}

// splitDeclarations splits on semicolons outside parentheses and quotes,
// so url(data:...;base64,...) and quoted strings stay whole.
func splitDeclarations(s string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; {
		case r == '\\':
			i++
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == ';' && depth == 0:
			parts = append(parts, string(runes[start:i]))
			start = i + 1
		}
	}
	return append(parts, string(runes[start:]))
}

func formatStyle(decls []declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		if d.name == "" {
			parts = append(parts, d.raw)
			continue
		}
		parts = append(parts, d.name+": "+d.value)
	}
	return strings.Join(parts, "; ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
