package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText is the comparison key for synonyms and mappings:
// NFC-composed, lowercased, trimmed, with inner whitespace runs collapsed to one space.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	// A Caser keeps state, so one is built per call.
	s = cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(s), " ")
}
