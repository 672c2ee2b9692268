package utils

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// StringHelper provides string utility functions.
type StringHelper struct{}

// NewStringHelper creates a new string helper.
func NewStringHelper() *StringHelper {
	return &StringHelper{}
}

// NormalizeWhitespace replaces runs of whitespace, newlines included, with a
// single space.
func (s *StringHelper) NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// TruncateString cuts str to at most maxWidth terminal cells, ending with
// Ellipsis when anything was removed. Wide runes (Arabic ligatures, CJK)
// count by their display width.
func (s *StringHelper) TruncateString(str string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}

	if runewidth.StringWidth(str) <= maxWidth {
		return str
	}

	return runewidth.Truncate(str, maxWidth, Ellipsis)
}

// DisplayWidth returns the number of terminal cells str occupies.
func (s *StringHelper) DisplayWidth(str string) int {
	return runewidth.StringWidth(str)
}
