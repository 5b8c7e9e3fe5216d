// Package filename provides utilities for sanitizing strings into safe filenames.
package filename

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLen is used when Sanitize is called with maxLen <= 0.
const DefaultMaxLen = 200

// invalidCharsRe matches characters not safe for filenames across all major OSes.
var invalidCharsRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Sanitize turns a human title into a filename stem. Whitespace runs become
// one space before characters invalid on any major OS are dropped; leading
// and trailing dots or spaces are trimmed. The result is at most maxLen bytes
// and never ends in a partial UTF-8 sequence.
func Sanitize(name string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}

	s := whitespaceRe.ReplaceAllString(name, " ")
	s = invalidCharsRe.ReplaceAllString(s, "")
	s = strings.Trim(s, " .")

	if len(s) > maxLen {
		s = s[:maxLen]
		for !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
		s = strings.TrimRight(s, " .")
	}
	return s
}
