package sanitizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

// maxDraws bounds how often the generator is asked for a value that differs
// from the original.
const maxDraws = 16

// Key is the normalised identity of an original value.
type Key struct {
	Category  pii.Category
	Canonical string
}

// Entry is the replacement chosen for one Key. Value is the synthetic value
// in canonical form; each occurrence is rendered through its own layout and
// case by Render. Full-name entries have no value of their own and are
// composed of one part entry per word.
type Entry struct {
	Key      Key
	Value    string
	Skeleton pii.Skeleton

	parts   []*Entry
	bound   bool
	derived *IdentityGroup
	version int
}

// Parts returns the per-word entries of a full name.
func (e *Entry) Parts() []*Entry { return e.parts }

// Group returns the identity group an email was derived from, if any.
func (e *Entry) Group() *IdentityGroup { return e.derived }

// stamp changes whenever the entry or one of its parts is re-drawn.
func (e *Entry) stamp() int {
	s := e.version
	for _, p := range e.parts {
		s += p.stamp()
	}
	return s
}

// Render returns the replacement for one occurrence of the original.
func (e *Entry) Render(original string) string {
	switch {
	case e.parts != nil:
		return e.renderFullName(original)
	case e.Key.Category.IsNumeric():
		return e.renderDigits(original)
	case e.Key.Category == pii.Email:
		switch pii.CaseOf(original) {
		case pii.CaseUpper:
			return pii.CaseUpper.Apply(e.Value)
		case pii.CaseCapitalized:
			return pii.CaseCapitalized.Apply(e.Value)
		}
		return e.Value
	}
	if isInitial(original) {
		return renderInitial(e.Value, original)
	}
	return renderCase(e.Value, original)
}

// renderDigits lays the value's digits over the original's layout. A phone's
// own country code stays as written and the free slots take the value's
// trailing digits, so the rendering does not depend on which form of the
// number was seen first.
func (e *Entry) renderDigits(original string) string {
	digits := pii.DigitsOf(e.Value)
	if e.Key.Category == pii.Phone {
		k := pii.SkeletonFor(pii.Phone, original)
		if free := k.Digits(); free > 0 && len(digits) >= free {
			if out, err := k.FillDigits(digits[len(digits)-free:]); err == nil {
				return out
			}
		}
	}
	out, err := pii.SkeletonOf(original).FillDigits(digits)
	if err != nil {
		return e.Value
	}
	return out
}

func (e *Entry) renderFullName(original string) string {
	tokens := fieldSpans(original)
	if len(tokens) != len(e.parts) {
		values := make([]string, len(e.parts))
		for i, p := range e.parts {
			values[i] = p.Value
		}
		return renderCase(strings.Join(values, " "), original)
	}
	var b strings.Builder
	last := 0
	for i, t := range tokens {
		b.WriteString(original[last:t[0]])
		b.WriteString(e.parts[i].Render(original[t[0]:t[1]]))
		last = t[1]
	}
	b.WriteString(original[last:])
	return b.String()
}

func renderCase(value, original string) string {
	switch p := pii.CaseOf(original); p {
	case pii.CaseUpper, pii.CaseLower, pii.CaseCapitalized:
		return p.Apply(value)
	}
	return value
}

// isInitial reports whether a name word is a single letter, optionally
// followed by a period ("J", "J.").
func isInitial(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	if !unicode.IsLetter(r) {
		return false
	}
	rest := s[size:]
	return rest == "" || rest == "."
}

func renderInitial(value, original string) string {
	r, _ := utf8.DecodeRuneInString(value)
	orig, size := utf8.DecodeRuneInString(original)
	if unicode.IsLower(orig) {
		r = unicode.ToLower(r)
	} else {
		r = unicode.ToUpper(r)
	}
	return string(r) + original[size:]
}

// fieldSpans returns the byte ranges of the whitespace-separated words of s.
func fieldSpans(s string) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, [2]int{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(s)})
	}
	return spans
}

// Cache maps replacement keys to entries for the lifetime of one
// sanitization call. It is not safe for concurrent use.
type Cache struct {
	gen     pii.Generator
	entries map[Key]*Entry
}

// NewCache creates an empty cache drawing values from gen.
func NewCache(gen pii.Generator) *Cache {
	return &Cache{gen: gen, entries: make(map[Key]*Entry)}
}

// Len is the number of distinct keys seen.
func (c *Cache) Len() int { return len(c.entries) }

// Lookup returns the entry for an original value without generating one.
func (c *Cache) Lookup(category pii.Category, text string) (*Entry, bool) {
	e, ok := c.entries[Key{Category: category, Canonical: pii.Canonical(category, text)}]
	return e, ok
}

// Resolve returns the entry for an original value, generating one on first
// sight. A full name resolves through its words: the first is a given name,
// the last a family name and any between are given names, so later fields
// holding just one part reuse the same replacement. A one-word full name is
// a given name.
func (c *Cache) Resolve(category pii.Category, text string) (*Entry, error) {
	key := Key{Category: category, Canonical: pii.Canonical(category, text)}
	if e, ok := c.entries[key]; ok {
		return e, nil
	}
	if key.Canonical == "" {
		return nil, &GeneratorError{Category: category, Err: ErrNoDistinctValue}
	}

	if category == pii.FullName {
		words := strings.Fields(text)
		if len(words) == 1 {
			e, err := c.Resolve(pii.GivenName, text)
			if err != nil {
				return nil, err
			}
			c.entries[key] = e
			return e, nil
		}
		e := &Entry{Key: key, Skeleton: pii.SkeletonOf(text), parts: make([]*Entry, len(words))}
		for i, w := range words {
			part := pii.GivenName
			if i == len(words)-1 {
				part = pii.FamilyName
			}
			pe, err := c.Resolve(part, strings.TrimSuffix(w, "."))
			if err != nil {
				return nil, err
			}
			e.parts[i] = pe
		}
		c.entries[key] = e
		return e, nil
	}

	skel := pii.SkeletonFor(category, text)
	value, err := c.draw(key, skel, nil)
	if err != nil {
		return nil, err
	}
	e := &Entry{Key: key, Value: value, Skeleton: skel}
	c.entries[key] = e
	return e, nil
}

// restamp re-draws an entry with an identity hint and bumps its version so
// that every rendered occurrence is revisited.
func (c *Cache) restamp(e *Entry, hint *pii.Identity) error {
	value, err := c.draw(e.Key, e.Skeleton, hint)
	if err != nil {
		return err
	}
	e.Value = value
	e.version++
	return nil
}

func (c *Cache) draw(key Key, skel pii.Skeleton, hint *pii.Identity) (string, error) {
	for i := 0; i < maxDraws; i++ {
		v, err := c.gen.Generate(key.Category, skel, hint)
		if err != nil {
			return "", &GeneratorError{Category: key.Category, Err: err}
		}
		if pii.Canonical(key.Category, v) != key.Canonical {
			return v, nil
		}
	}
	return "", &GeneratorError{Category: key.Category, Err: ErrNoDistinctValue}
}
