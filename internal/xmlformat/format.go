// Package xmlformat converts serialized XML between the canonical
// transmission form and a line-per-tag pretty form.
//
// Both functions work on text only. Tag content and attributes are never
// altered, and each function is idempotent.
package xmlformat

import (
	"regexp"
	"strings"
)

var interTagSpace = regexp.MustCompile(`>\s+<`)

// Mode selects the output form.
type Mode string

const (
	Canonical Mode = "canonical"
	Pretty    Mode = "pretty"
)

// Canonicalize removes all whitespace between tags.
func Canonicalize(xml string) string {
	return strings.TrimSpace(interTagSpace.ReplaceAllString(xml, "><"))
}

// PrettyPrint puts every tag boundary on its own line without indentation.
// Line breaks inside text content or a start tag are kept as they are.
func PrettyPrint(xml string) string {
	return strings.ReplaceAll(Canonicalize(xml), "><", ">\n<")
}

// Apply formats xml in the given mode. Unknown modes yield canonical output.
func Apply(xml string, mode Mode) string {
	if mode == Pretty {
		return PrettyPrint(xml)
	}
	return Canonicalize(xml)
}
