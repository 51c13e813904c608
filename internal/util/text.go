package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upper          = cases.Upper(language.Und)
	fold           = cases.Fold()
	reSheetInvalid = regexp.MustCompile(`[\[\]:*?/\\]`)
	reSpaces       = regexp.MustCompile(`\s+`)
)

const maxSheetNameLen = 31

// NormalizeHeader keeps letters and digits only, upper-cased. "PPD $12,500"
// and "ppd 12500" both become "PPD12500".
func NormalizeHeader(input string) string {
	out := strings.Builder{}
	for _, r := range upper.String(input) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// NormalizeToken removes whitespace and upper-cases, so "6 pk" matches "6PK".
func NormalizeToken(input string) string {
	out := strings.Builder{}
	for _, r := range input {
		if !unicode.IsSpace(r) {
			out.WriteRune(r)
		}
	}
	return upper.String(out.String())
}

// EqualFold compares two names case-insensitively with full Unicode folding.
func EqualFold(a, b string) bool {
	return fold.String(a) == fold.String(b)
}

// SanitizeSheetName strips characters xlsx forbids in sheet names and
// truncates to 31 runes. An empty result is returned as-is.
func SanitizeSheetName(name string) string {
	s := reSheetInvalid.ReplaceAllString(name, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	s = strings.Trim(strings.TrimSpace(s), "'")
	if r := []rune(s); len(r) > maxSheetNameLen {
		s = strings.TrimSpace(string(r[:maxSheetNameLen]))
	}
	return s
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
