package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// NormalizeDescription trims surrounding whitespace and composes the text to
// NFC so that length limits count user-visible characters consistently.
func NormalizeDescription(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

// RuneLength returns the number of code points in value.
func RuneLength(value string) int {
	return utf8.RuneCountInString(value)
}
