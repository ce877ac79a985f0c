// Package synth generates synthetic replacement values: checksum-valid card
// numbers, phone numbers in the original's layout, person names and
// name-derived email addresses. Names and digits are drawn from a gofakeit
// Faker. A Generator is safe for concurrent use; with WithSeed its output
// sequence is reproducible.
package synth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
	"github.com/2hard2touch/smart-data-sanitizer/patterns"
)

// ErrUnsupported is returned for categories the generator cannot produce.
var ErrUnsupported = errors.New("unsupported category")

// Default layouts used when no skeleton is supplied.
var (
	defaultPhone = pii.SkeletonOf("555-555-5555")
	defaultCard  = pii.SkeletonOf("4444444444444444")
	defaultEmail = pii.SkeletonOf("a.b@c.d")
)

// maxNameDraws bounds how many faker names are tried before falling back
// to the dictionary.
const maxNameDraws = 8

// zeroSeed stands in for a user seed of 0, which gofakeit treats as "seed
// randomly".
const zeroSeed uint64 = 0x5eed

// nameSource yields candidate names. draw is nil when only the list is used.
type nameSource struct {
	draw func() string
	list []string
}

// Generator implements pii.Generator.
type Generator struct {
	mu      sync.Mutex
	faker   *gofakeit.Faker
	given   nameSource
	family  nameSource
	domains []string
}

// Option configures a Generator.
type Option func(*options)

type options struct {
	seed   int64
	seeded bool
	names  *patterns.Names
}

// WithSeed makes the generated sequence reproducible.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed, o.seeded = seed, true }
}

// WithNames draws names only from n instead of the faker.
func WithNames(n *patterns.Names) Option {
	return func(o *options) { o.names = n }
}

// New creates a Generator.
func New(opts ...Option) (*Generator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var seed uint64
	if o.seeded {
		seed = uint64(o.seed)
		if seed == 0 {
			seed = zeroSeed
		}
	}
	faker := gofakeit.New(seed)

	g := &Generator{faker: faker}
	if o.names != nil {
		g.given = nameSource{list: o.names.Given}
		g.family = nameSource{list: o.names.Family}
		g.domains = o.names.EmailDomains
		return g, nil
	}
	n, err := patterns.DefaultNames()
	if err != nil {
		return nil, fmt.Errorf("loading name dictionaries: %w", err)
	}
	g.given = nameSource{draw: faker.FirstName, list: n.Given}
	g.family = nameSource{draw: faker.LastName, list: n.Family}
	g.domains = n.EmailDomains
	return g, nil
}

// Generate implements pii.Generator. Names are returned capitalised and
// emails in lower case; callers apply the original's case pattern.
func (g *Generator) Generate(category pii.Category, skeleton pii.Skeleton, hint *pii.Identity) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch category {
	case pii.Phone:
		return g.phone(skeleton)
	case pii.CreditCard:
		return g.card(skeleton)
	case pii.Email:
		return g.email(skeleton, hint)
	case pii.GivenName:
		return g.name(g.given, skeleton, hintValue(hint, true)), nil
	case pii.FamilyName:
		return g.name(g.family, skeleton, hintValue(hint, false)), nil
	case pii.FullName:
		return g.fullName(skeleton), nil
	}
	return "", fmt.Errorf("synth: %w %q", ErrUnsupported, category)
}

func hintValue(hint *pii.Identity, given bool) string {
	if hint == nil {
		return ""
	}
	if given {
		return hint.Given
	}
	return hint.Family
}

func (g *Generator) digit(low int) byte {
	return byte('0' + g.faker.Number(low, 9))
}

func (g *Generator) pick(list []string) string {
	return g.faker.RandomString(list)
}

// draw returns a lower-case name from src other than avoid. Faker names
// that are not plain ASCII words are skipped.
func (g *Generator) draw(src nameSource, avoid string) string {
	if src.draw != nil {
		for i := 0; i < maxNameDraws; i++ {
			v := src.draw()
			if plainName(v) && !strings.EqualFold(v, avoid) {
				return strings.ToLower(v)
			}
		}
	}
	i := g.faker.Number(0, len(src.list)-1)
	if strings.EqualFold(src.list[i], avoid) {
		i = (i + 1) % len(src.list)
	}
	return src.list[i]
}

func plainName(s string) bool {
	if len(s) < 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

// phone fills the free digit slots. The first free digit and, for ten-digit
// national numbers, the first exchange digit are never 0 or 1.
func (g *Generator) phone(k pii.Skeleton) (string, error) {
	if k.IsZero() {
		k = defaultPhone
	}
	n := k.Digits()
	if n == 0 {
		return "", fmt.Errorf("synth: phone skeleton %q has no digits", k.String())
	}
	digits := make([]byte, n)
	for i := range digits {
		low := 0
		if i == 0 || (n == 10 && i == 3) {
			low = 2
		}
		digits[i] = g.digit(low)
	}
	return k.FillDigits(string(digits))
}

// card builds an issuer-plausible, Luhn-valid number with the skeleton's
// digit count.
func (g *Generator) card(k pii.Skeleton) (string, error) {
	if k.IsZero() {
		k = defaultCard
	}
	n := k.Digits()
	if n < 12 || n > 19 {
		return "", fmt.Errorf("synth: card skeleton %q has %d digits, want 12-19", k.String(), n)
	}
	var prefix string
	switch n {
	case 15:
		prefix = g.pick([]string{"34", "37"})
	case 14:
		prefix = "36"
	case 16:
		prefix = g.pick([]string{"4", "51", "52", "53", "54", "55"})
	default:
		prefix = "4"
	}
	var b strings.Builder
	b.WriteString(prefix)
	for b.Len() < n-1 {
		b.WriteByte(g.digit(0))
	}
	b.WriteByte(pii.LuhnCheckDigit(b.String()))
	return k.FillDigits(b.String())
}

// name draws a capitalised name different from avoid. A hyphen in the
// skeleton yields a double-barrelled name.
func (g *Generator) name(src nameSource, k pii.Skeleton, avoid string) string {
	v := g.draw(src, avoid)
	if k.HasLiteral('-') {
		v += "-" + g.draw(src, avoid)
	}
	return pii.CaseCapitalized.Apply(v)
}

// fullName mirrors the word count of the skeleton: one word is a given name,
// three or more get a middle initial.
func (g *Generator) fullName(k pii.Skeleton) string {
	words := 2
	if !k.IsZero() {
		words = len(strings.Fields(k.String()))
	}
	given := g.name(g.given, pii.Skeleton{}, "")
	switch {
	case words <= 1:
		return given
	case words == 2:
		return given + " " + g.name(g.family, pii.Skeleton{}, "")
	}
	initial := strings.ToUpper(g.draw(g.given, "")[:1]) + "."
	return given + " " + initial + " " + g.name(g.family, pii.Skeleton{}, "")
}
