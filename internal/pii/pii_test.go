package pii

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"email", Email, true},
		{"PHONE_NUMBER", Phone, true},
		{"credit_card", CreditCard, true},
		{"first_name", GivenName, true},
		{"last_name", FamilyName, true},
		{" name ", FullName, true},
		{"iban", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCategoryPriority(t *testing.T) {
	assert.Less(t, CreditCard.Priority(), Email.Priority())
	assert.Less(t, Email.Priority(), Phone.Priority())
	assert.Less(t, FullName.Priority(), GivenName.Priority())
	assert.Equal(t, FamilyName, GivenName.Complement())
	assert.True(t, FamilyName.Linkable())
	assert.False(t, FullName.Linkable())
}

func TestFieldPath(t *testing.T) {
	p := FieldPath{Record: 0}.Child("contact").Child("phones").Index(1)
	assert.Equal(t, "[0].contact.phones[1]", p.String())
	assert.Equal(t, "phones", p.Field())

	parent := FieldPath{Record: 2}.Child("a")
	_ = parent.Child("b")
	c := parent.Child("c")
	assert.Equal(t, "[2].a.c", c.String(), "children must not share backing arrays")

	assert.Equal(t, "note", FieldPath{Record: -1, Segments: []string{"note"}}.String())
}

func TestMatchOverlaps(t *testing.T) {
	a := Match{Start: 0, End: 8}
	assert.True(t, a.Overlaps(Match{Start: 7, End: 9}))
	assert.False(t, a.Overlaps(Match{Start: 8, End: 9}))
	assert.Equal(t, 8, a.Len())
}

func TestSkeleton(t *testing.T) {
	k := SkeletonOf("+1-555-123-4567")
	assert.Equal(t, "+#-###-###-####", k.String())
	assert.Equal(t, 11, k.Digits())
	assert.True(t, k.HasLiteral('+'))

	out, err := k.FillDigits("15559876543")
	require.NoError(t, err)
	assert.Equal(t, "+1-555-987-6543", out)
	assert.True(t, k.Matches(out))
	assert.False(t, k.Matches("+1 555 987 6543"))

	_, err = k.FillDigits("123")
	require.Error(t, err)

	assert.Equal(t, "Aaaa Aaa", SkeletonOf("John Doe").String())
	assert.Equal(t, 7, SkeletonOf("John Doe").Letters())
	assert.True(t, SkeletonOf("").IsZero())
}

func TestSkeletonForPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		free int
	}{
		{"+1-555-123-4567", "+1-###-###-####", 10},
		{"+44 20 7946 0958", "+44 ## #### ####", 10},
		{"+15551234567", "+1##########", 10},
		{"(555) 987-6543", "(###) ###-####", 10},
		{"5551234567", "##########", 10},
	}
	for _, tt := range tests {
		k := SkeletonFor(Phone, tt.in)
		assert.Equal(t, tt.want, k.String(), tt.in)
		assert.Equal(t, tt.free, k.Digits(), tt.in)
	}
	assert.Equal(t, "####-####", SkeletonFor(CreditCard, "4111-1111").String())
}

func TestCaseOf(t *testing.T) {
	tests := []struct {
		in   string
		want CasePattern
	}{
		{"JOHN DOE", CaseUpper},
		{"john doe", CaseLower},
		{"John Doe", CaseCapitalized},
		{"Mary-Jane", CaseCapitalized},
		{"J", CaseCapitalized},
		{"McDonald", CaseMixed},
		{"5551234", CaseNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CaseOf(tt.in), tt.in)
	}
}

func TestCaseApply(t *testing.T) {
	assert.Equal(t, "JANE SMITH", CaseUpper.Apply("Jane Smith"))
	assert.Equal(t, "jane smith", CaseLower.Apply("Jane Smith"))
	assert.Equal(t, "Jane Smith", CaseCapitalized.Apply("jANE smith"))
	assert.Equal(t, "Jane.Smith@Example.Org", CaseCapitalized.Apply("jane.smith@example.org"))
	assert.Equal(t, "McKay", CaseMixed.Apply("McKay"))
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "5559876543", Canonical(Phone, "(555) 987-6543"))
	assert.Equal(t, Canonical(Phone, "555-987-6543"), Canonical(Phone, "555.987.6543"))
	assert.Equal(t, "4111111111111111", Canonical(CreditCard, "4111 1111 1111 1111"))
	assert.Equal(t, "john.doe@example.com", Canonical(Email, " John.Doe@Example.com "))
	assert.Equal(t, "john doe", Canonical(FullName, "  John   DOE "))
	assert.Equal(t, "zoe", FoldAccents("Zoë"))
}

func TestLuhn(t *testing.T) {
	assert.True(t, LuhnValid("4111111111111111"))
	assert.True(t, LuhnValid("4111-1111-1111-1111"))
	assert.True(t, LuhnValid("79927398713"))
	assert.False(t, LuhnValid("4111111111111112"))
	assert.False(t, LuhnValid("0"))

	assert.Equal(t, byte('1'), LuhnCheckDigit("411111111111111"))
	assert.Equal(t, byte('3'), LuhnCheckDigit("7992739871"))
}
