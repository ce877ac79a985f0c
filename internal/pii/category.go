// Package pii holds the vocabulary shared by detectors, the replacement
// generator and the sanitizer: categories, detection matches, field paths,
// format skeletons and the two capability interfaces (Detector, Generator).
package pii

import "strings"

// Category is the semantic class of a detected PII value.
type Category string

// Supported categories.
const (
	Email      Category = "email"
	Phone      Category = "phone"
	CreditCard Category = "credit_card"
	FullName   Category = "full_name"
	GivenName  Category = "given_name"
	FamilyName Category = "family_name"
)

// Categories lists every supported category in tie-break priority order.
var Categories = []Category{CreditCard, Email, Phone, FullName, GivenName, FamilyName}

// ParseCategory accepts the internal lower_snake names plus the legacy
// first_name/last_name spellings.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email", "email_address":
		return Email, true
	case "phone", "phone_number":
		return Phone, true
	case "credit_card", "card":
		return CreditCard, true
	case "full_name", "name", "person":
		return FullName, true
	case "given_name", "first_name":
		return GivenName, true
	case "family_name", "last_name", "surname":
		return FamilyName, true
	}
	return "", false
}

// IsName reports whether c is one of the person-name categories.
func (c Category) IsName() bool {
	return c == FullName || c == GivenName || c == FamilyName
}

// IsNumeric reports whether the category's payload is its digit sequence.
func (c Category) IsNumeric() bool {
	return c == Phone || c == CreditCard
}

// Linkable reports whether matches of this category take part in
// cross-field identity linking.
func (c Category) Linkable() bool {
	return c == GivenName || c == FamilyName
}

// Complement returns the other half of a linkable pair.
func (c Category) Complement() Category {
	switch c {
	case GivenName:
		return FamilyName
	case FamilyName:
		return GivenName
	}
	return ""
}

// Priority ranks categories for overlap tie-breaks; lower wins.
func (c Category) Priority() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return len(Categories)
}
