// Package stringutil provides common string manipulation utilities.
package stringutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Indonesian)

// TitleCase capitalizes the first letter of each word using Indonesian
// casing rules.
//
// Example:
//
//	TitleCase("budi santoso") returns "Budi Santoso"
func TitleCase(s string) string {
	return titleCaser.String(s)
}

// LowerFirst lowercases only the first rune of s.
// Used when splicing a sentence fragment into the middle of a response.
func LowerFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	lower := unicode.ToLower(r)
	if lower == r {
		return s
	}
	return string(lower) + s[size:]
}

// Truncate shortens s to at most maxRunes runes, appending "..." when
// anything was cut. maxRunes counts the payload only, not the ellipsis.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// IsNumeric checks if a string contains only digits.
// Returns false for empty strings.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CollapseWhitespace replaces runs of whitespace with a single space and
// trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
