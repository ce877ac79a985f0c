package synth

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
	"github.com/2hard2touch/smart-data-sanitizer/patterns"
)

var emailSyntax = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func newTestGenerator(t *testing.T, opts ...Option) *Generator {
	t.Helper()
	g, err := New(append([]Option{WithSeed(7)}, opts...)...)
	require.NoError(t, err)
	return g
}

func TestCardIsLuhnValidAndShaped(t *testing.T) {
	g := newTestGenerator(t)
	for _, original := range []string{"4111 1111 1111 1111", "4111-1111-1111-1111", "378282246310005", "4222222222222", "30569309025904"} {
		k := pii.SkeletonFor(pii.CreditCard, original)
		for i := 0; i < 50; i++ {
			out, err := g.Generate(pii.CreditCard, k, nil)
			require.NoError(t, err)
			assert.True(t, pii.LuhnValid(out), "%s -> %s", original, out)
			assert.True(t, k.Matches(out), "%s -> %s", original, out)
		}
	}

	out, err := g.Generate(pii.CreditCard, pii.SkeletonOf("378282246310005"), nil)
	require.NoError(t, err)
	assert.Regexp(t, `^3[47]`, out)

	_, err = g.Generate(pii.CreditCard, pii.SkeletonOf("1234-5678"), nil)
	require.Error(t, err)
}

func TestPhoneKeepsLayoutAndCountryCode(t *testing.T) {
	g := newTestGenerator(t)
	tests := []struct {
		original string
		pattern  string
	}{
		{"+1-555-123-4567", `^\+1-[2-9]\d{2}-[2-9]\d{2}-\d{4}$`},
		{"(555) 987-6543", `^\([2-9]\d{2}\) [2-9]\d{2}-\d{4}$`},
		{"+44 20 7946 0958", `^\+44 [2-9]\d \d{4} \d{4}$`},
		{"5551234567", `^[2-9]\d{2}[2-9]\d{6}$`},
	}
	for _, tt := range tests {
		k := pii.SkeletonFor(pii.Phone, tt.original)
		for i := 0; i < 20; i++ {
			out, err := g.Generate(pii.Phone, k, nil)
			require.NoError(t, err)
			assert.Regexp(t, tt.pattern, out)
		}
	}

	out, err := g.Generate(pii.Phone, pii.Skeleton{}, nil)
	require.NoError(t, err)
	assert.Regexp(t, `^\d{3}-\d{3}-\d{4}$`, out)

	_, err = g.Generate(pii.Phone, pii.SkeletonOf("ext."), nil)
	require.Error(t, err)
}

func TestEmailWithoutHint(t *testing.T) {
	g := newTestGenerator(t)
	tests := []struct {
		original string
		pattern  string
	}{
		{"john.doe@example.com", `^[a-z]+\.[a-z]+@`},
		{"john_doe@example.com", `^[a-z]+_[a-z]+@`},
		{"jdoe42@example.com", `^[a-z]+\d{2}@`},
	}
	for _, tt := range tests {
		out, err := g.Generate(pii.Email, pii.SkeletonOf(tt.original), nil)
		require.NoError(t, err)
		assert.Regexp(t, tt.pattern, out)
		assert.Regexp(t, emailSyntax, out)
	}
}

func TestEmailDerivedFromIdentity(t *testing.T) {
	g := newTestGenerator(t, WithNames(&patterns.Names{
		Given:        []string{"amy"},
		Family:       []string{"lee"},
		EmailDomains: []string{"example.org"},
	}))
	tests := []struct {
		name string
		id   pii.Identity
		want string
	}{
		{"dot", pii.Identity{Given: "Zoë", Family: "O'Neil", Style: pii.EmailStyle{Separator: "."}}, "zoe.oneil@example.org"},
		{"family first", pii.Identity{Given: "Ann", Family: "Park", Style: pii.EmailStyle{Separator: "_", FamilyFirst: true}}, "park_ann@example.org"},
		{"initial", pii.Identity{Given: "Ann", Family: "Park", Style: pii.EmailStyle{GivenInitial: true}}, "apark@example.org"},
		{"missing family drawn", pii.Identity{Given: "Ann", Style: pii.EmailStyle{Separator: "."}}, "ann.lee@example.org"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := g.Generate(pii.Email, pii.SkeletonOf("x.y@z.com"), &tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	_, err := g.Generate(pii.Email, pii.SkeletonOf("no-at-sign"), nil)
	require.Error(t, err)
}

func TestNames(t *testing.T) {
	g := newTestGenerator(t, WithNames(&patterns.Names{
		Given:        []string{"amy", "bob"},
		Family:       []string{"lee", "park"},
		EmailDomains: []string{"example.org"},
	}))

	for i := 0; i < 20; i++ {
		out, err := g.Generate(pii.GivenName, pii.SkeletonOf("Jane"), &pii.Identity{Given: "Amy"})
		require.NoError(t, err)
		assert.Equal(t, "Bob", out, "hint value is never reused")

		out, err = g.Generate(pii.FamilyName, pii.SkeletonOf("Smith-Jones"), nil)
		require.NoError(t, err)
		parts := strings.Split(out, "-")
		require.Len(t, parts, 2)
		for _, p := range parts {
			assert.Equal(t, pii.CaseCapitalized, pii.CaseOf(p))
		}
	}

	out, err := g.Generate(pii.FullName, pii.SkeletonOf("John Doe"), nil)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out), 2)

	out, err = g.Generate(pii.FullName, pii.SkeletonOf("John Q Doe"), nil)
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z][a-z]+ [A-Z]\. [A-Z][a-z]+$`, out)
}

func TestSeedIsReproducible(t *testing.T) {
	a := newTestGenerator(t)
	b := newTestGenerator(t)
	for _, c := range []pii.Category{pii.Phone, pii.CreditCard, pii.Email, pii.GivenName, pii.FamilyName} {
		va, err := a.Generate(c, pii.Skeleton{}, nil)
		require.NoError(t, err)
		vb, err := b.Generate(c, pii.Skeleton{}, nil)
		require.NoError(t, err)
		assert.Equal(t, va, vb, string(c))
	}
}

func TestFakerNamesArePlainWords(t *testing.T) {
	g := newTestGenerator(t)
	prev := ""
	for i := 0; i < 50; i++ {
		given, err := g.Generate(pii.GivenName, pii.SkeletonOf("Jane"), &pii.Identity{Given: prev})
		require.NoError(t, err)
		assert.Regexp(t, `^[A-Z][a-z]+$`, given)
		assert.NotEqual(t, prev, given)
		prev = given

		family, err := g.Generate(pii.FamilyName, pii.SkeletonOf("Smith"), nil)
		require.NoError(t, err)
		assert.Regexp(t, `^[A-Z][a-z]+$`, family)
	}
}

func TestZeroSeedIsReproducible(t *testing.T) {
	a, err := New(WithSeed(0))
	require.NoError(t, err)
	b, err := New(WithSeed(0))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		va, err := a.Generate(pii.FullName, pii.Skeleton{}, nil)
		require.NoError(t, err)
		vb, err := b.Generate(pii.FullName, pii.Skeleton{}, nil)
		require.NoError(t, err)
		assert.Equal(t, va, vb)
	}
}

func TestUnsupportedCategory(t *testing.T) {
	g := newTestGenerator(t)
	_, err := g.Generate(pii.Category("iban"), pii.Skeleton{}, nil)
	require.ErrorIs(t, err, ErrUnsupported)
}
