package pii

import (
	"fmt"
	"strings"
	"unicode"
)

// SlotClass is the character class of one skeleton position.
type SlotClass uint8

const (
	Literal SlotClass = iota
	Digit
	Upper
	Lower
)

// Slot is one position of a Skeleton. Rune is only meaningful for literals.
type Slot struct {
	Class SlotClass
	Rune  rune
}

// Skeleton is the digit/letter/punctuation template of an original value.
// "+1-555-123-4567" has the skeleton "+#-###-###-####".
type Skeleton struct {
	slots []Slot
}

// SkeletonOf classifies every rune of s. Letters without case count as lower.
func SkeletonOf(s string) Skeleton {
	slots := make([]Slot, 0, len(s))
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			slots = append(slots, Slot{Class: Digit})
		case unicode.IsUpper(r):
			slots = append(slots, Slot{Class: Upper})
		case unicode.IsLetter(r):
			slots = append(slots, Slot{Class: Lower})
		default:
			slots = append(slots, Slot{Class: Literal, Rune: r})
		}
	}
	return Skeleton{slots: slots}
}

// IsZero reports whether the skeleton carries no template.
func (k Skeleton) IsZero() bool { return len(k.slots) == 0 }

// Slots returns a copy of the positions.
func (k Skeleton) Slots() []Slot {
	out := make([]Slot, len(k.slots))
	copy(out, k.slots)
	return out
}

// Digits counts digit slots.
func (k Skeleton) Digits() int {
	n := 0
	for _, s := range k.slots {
		if s.Class == Digit {
			n++
		}
	}
	return n
}

// Letters counts letter slots.
func (k Skeleton) Letters() int {
	n := 0
	for _, s := range k.slots {
		if s.Class == Upper || s.Class == Lower {
			n++
		}
	}
	return n
}

// HasLiteral reports whether r appears as punctuation in the skeleton.
func (k Skeleton) HasLiteral(r rune) bool {
	for _, s := range k.slots {
		if s.Class == Literal && s.Rune == r {
			return true
		}
	}
	return false
}

// FillDigits writes digits into the digit slots in order and keeps every
// other position of the template. Letter slots are rendered as 'A' or 'a'.
func (k Skeleton) FillDigits(digits string) (string, error) {
	if len(digits) != k.Digits() {
		return "", fmt.Errorf("skeleton %q needs %d digits, got %d", k.String(), k.Digits(), len(digits))
	}
	var b strings.Builder
	b.Grow(len(k.slots))
	i := 0
	for _, s := range k.slots {
		switch s.Class {
		case Digit:
			c := digits[i]
			if c < '0' || c > '9' {
				return "", fmt.Errorf("non-digit %q in payload", c)
			}
			b.WriteByte(c)
			i++
		case Upper:
			b.WriteByte('A')
		case Lower:
			b.WriteByte('a')
		default:
			b.WriteRune(s.Rune)
		}
	}
	return b.String(), nil
}

// Matches reports whether value has the same slot classes and the same
// literal runes as the skeleton. Letter case is ignored.
func (k Skeleton) Matches(value string) bool {
	other := SkeletonOf(value).slots
	if len(other) != len(k.slots) {
		return false
	}
	for i, s := range k.slots {
		o := other[i]
		switch s.Class {
		case Literal:
			if o.Class != Literal || o.Rune != s.Rune {
				return false
			}
		case Digit:
			if o.Class != Digit {
				return false
			}
		default:
			if o.Class != Upper && o.Class != Lower {
				return false
			}
		}
	}
	return true
}

// String renders digits as '#', upper letters as 'A' and lower letters as 'a'.
func (k Skeleton) String() string {
	var b strings.Builder
	for _, s := range k.slots {
		switch s.Class {
		case Digit:
			b.WriteByte('#')
		case Upper:
			b.WriteByte('A')
		case Lower:
			b.WriteByte('a')
		default:
			b.WriteRune(s.Rune)
		}
	}
	return b.String()
}

// maxCountryCode is the longest ITU country calling code.
const maxCountryCode = 3

// SkeletonFor builds the skeleton a replacement for text must follow. For
// phones written in international form the country calling code after '+'
// is kept as literal digits, so "+1-555-123-4567" yields "+1-###-###-####".
// When the code is not delimited ("+15551234567") only its first digit is
// kept.
func SkeletonFor(c Category, text string) Skeleton {
	k := SkeletonOf(text)
	if c != Phone {
		return k
	}
	plus := -1
	for i, s := range k.slots {
		if s.Class == Literal && s.Rune == '+' {
			plus = i
			break
		}
		if s.Class != Literal {
			return k
		}
	}
	if plus < 0 {
		return k
	}
	runes := []rune(text)
	end := plus + 1
	for end < len(k.slots) && k.slots[end].Class == Digit {
		end++
	}
	if end-plus-1 > maxCountryCode || end == len(k.slots) {
		end = plus + 2
	}
	for i := plus + 1; i < end && i < len(k.slots); i++ {
		if k.slots[i].Class == Digit {
			k.slots[i] = Slot{Class: Literal, Rune: runes[i]}
		}
	}
	return k
}
