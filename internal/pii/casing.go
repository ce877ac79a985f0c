package pii

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CasePattern classifies the alphabetic case of a value.
type CasePattern uint8

const (
	// CaseNone means the value has no cased letters.
	CaseNone CasePattern = iota
	CaseLower
	CaseUpper
	// CaseCapitalized means every word starts upper and continues lower.
	CaseCapitalized
	// CaseMixed is anything else ("McDonald", "jANE"); renders unchanged.
	CaseMixed
)

func (p CasePattern) String() string {
	switch p {
	case CaseLower:
		return "lower"
	case CaseUpper:
		return "upper"
	case CaseCapitalized:
		return "capitalized"
	case CaseMixed:
		return "mixed"
	}
	return "none"
}

// CaseOf classifies s. A single upper-case letter is Capitalized, not Upper.
func CaseOf(s string) CasePattern {
	var upper, lower, cased int
	capitalized := true
	wordStart := true
	for _, r := range s {
		if !unicode.IsLetter(r) {
			wordStart = true
			continue
		}
		switch {
		case unicode.IsUpper(r):
			upper++
			cased++
			if !wordStart {
				capitalized = false
			}
		case unicode.IsLower(r):
			lower++
			cased++
			if wordStart {
				capitalized = false
			}
		}
		wordStart = false
	}
	switch {
	case cased == 0:
		return CaseNone
	case upper == 0:
		return CaseLower
	case lower == 0 && upper > 1:
		return CaseUpper
	case capitalized:
		return CaseCapitalized
	}
	return CaseMixed
}

// Apply renders s in the pattern. Casers are not safe for concurrent use, so
// each call builds its own.
func (p CasePattern) Apply(s string) string {
	switch p {
	case CaseLower:
		return cases.Lower(language.Und).String(s)
	case CaseUpper:
		return cases.Upper(language.Und).String(s)
	case CaseCapitalized:
		return capitalizeWords(s)
	}
	return s
}

// capitalizeWords upper-cases the first letter after every non-letter and
// lower-cases the rest. cases.Title treats "jane.doe" as one word, which is
// wrong for email local parts.
func capitalizeWords(s string) string {
	lower := cases.Lower(language.Und).String(s)
	var b strings.Builder
	b.Grow(len(lower))
	wordStart := true
	for _, r := range lower {
		if !unicode.IsLetter(r) {
			wordStart = true
			b.WriteRune(r)
			continue
		}
		if wordStart {
			r = unicode.ToTitle(r)
		}
		wordStart = false
		b.WriteRune(r)
	}
	return b.String()
}
