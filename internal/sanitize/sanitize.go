// Package sanitize cleans user-supplied display text (result labels and
// comparison names) before it is stored, logged or echoed back by the HTTP
// and MCP surfaces.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLabelLength is the maximum allowed length of a label, in runes.
const MaxLabelLength = 80

var (
	// reTag matches XML/HTML tags including those with attributes and self-closing tags.
	reTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	// reSpaces matches runs of whitespace.
	reSpaces = regexp.MustCompile(`\s+`)
)

// Label returns input as a single line of plain text:
//  1. Control characters become spaces
//  2. XML/HTML tags are stripped
//  3. Whitespace runs collapse to one space and the ends are trimmed
//  4. The result is truncated to MaxLabelLength runes
func Label(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reTag.ReplaceAllString(s, "")
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))

	if utf8.RuneCountInString(s) > MaxLabelLength {
		s = string([]rune(s)[:MaxLabelLength])
	}
	return s
}

// stripControlChars replaces ASCII control characters (0x00-0x1F, 0x7F) with
// spaces. Null bytes are dropped.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == 0:
			continue
		case r < 0x20 || r == 0x7f:
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
