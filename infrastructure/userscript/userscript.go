// Package userscript renders whitelisted actions as Tampermonkey userscripts.
package userscript

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/domguard/domain/action"
)

// Defaults for the userscript header.
const (
	DefaultNamespace = "https://github.com/felixgeelhaar/domguard"
	DefaultMatch     = "*://*/*"
	Version          = "1.0"
	maxSlugLen       = 60
)

// Meta describes the exported script.
type Meta struct {
	ID       int64
	Command  string
	ActionID action.ID
	Source   string
	Match    string
}

// Script is a rendered userscript.
type Script struct {
	Filename string `json:"filename"`
	Content  string `json:"tampermonkey_script"`
}

// Render wraps code in a userscript header and an isolated function scope.
// Command and source are sanitized to single lines before they reach the
// header or comments.
func Render(meta Meta, code string) Script {
	command := action.SanitizeLabel(meta.Command)
	source := action.SanitizeLabel(meta.Source)
	match := action.SanitizeLabel(meta.Match)
	if match == "" {
		match = DefaultMatch
	}

	var b strings.Builder
	b.WriteString("// ==UserScript==\n")
	header := func(key, value string) {
		fmt.Fprintf(&b, "// @%-12s %s\n", key, value)
	}
	header("name", "domguard: "+command)
	header("namespace", DefaultNamespace)
	header("version", Version)
	header("description", "Applies the "+string(meta.ActionID)+" action")
	header("match", match)
	header("grant", "none")
	b.WriteString("// ==/UserScript==\n\n")
	b.WriteString("(function() {\n")
	b.WriteString("    'use strict';\n\n")
	fmt.Fprintf(&b, "    // Action: %s\n", meta.ActionID)
	fmt.Fprintf(&b, "    // Source: %s\n", source)
	for _, line := range strings.Split(code, "\n") {
		b.WriteString("    " + line + "\n")
	}
	b.WriteString("})();\n")

	return Script{
		Filename: Filename(meta.ID, meta.Command),
		Content:  b.String(),
	}
}

// Filename returns "script_<id>_<slug>.user.js", keeping only ASCII letters,
// digits, '-' and '_' from the command and turning spaces into '_'.
func Filename(id int64, command string) string {
	var slug strings.Builder
	for _, r := range strings.TrimSpace(command) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			slug.WriteRune(r)
		case r == ' ':
			slug.WriteRune('_')
		}
		if slug.Len() >= maxSlugLen {
			break
		}
	}

	s := strings.Trim(slug.String(), "_")
	if s == "" {
		return fmt.Sprintf("script_%d.user.js", id)
	}
	return fmt.Sprintf("script_%d_%s.user.js", id, s)
}
