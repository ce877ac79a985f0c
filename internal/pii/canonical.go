package pii

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical strips format noise from an original value so that equal
// originals share one replacement key. Phones and cards reduce to their
// digits, emails are folded and trimmed, names are NFC-normalised, folded and
// whitespace-collapsed.
func Canonical(c Category, text string) string {
	switch {
	case c.IsNumeric():
		return DigitsOf(text)
	case c == Email:
		return cases.Fold().String(strings.TrimSpace(text))
	case c.IsName():
		return strings.Join(strings.Fields(cases.Fold().String(norm.NFC.String(text))), " ")
	}
	return strings.TrimSpace(text)
}

// DigitsOf keeps the ASCII digits of s.
func DigitsOf(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// FoldAccents removes combining marks and lower-cases s, so "Zoë" and "zoe"
// compare equal when matching name-derived email local parts.
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}
