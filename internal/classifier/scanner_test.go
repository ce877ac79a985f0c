package classifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

var testPath = pii.FieldPath{Record: 0, Segments: []string{"notes"}}

func spansOf(matches []pii.Match, c pii.Category) []string {
	var out []string
	for _, m := range matches {
		if m.Category == c {
			out = append(out, m.Text)
		}
	}
	return out
}

func TestScannerDetect(t *testing.T) {
	scanner := MustNewScanner()
	ctx := context.Background()

	tests := []struct {
		name     string
		text     string
		category pii.Category
		want     []string
	}{
		{name: "no PII", text: "active", category: pii.Email},
		{name: "email", text: "Contact me at user@example.com.", category: pii.Email, want: []string{"user@example.com"}},
		{name: "international phone", text: "+1-555-123-4567", category: pii.Phone, want: []string{"+1-555-123-4567"}},
		{name: "parenthesised phone", text: "Call (555) 987-6543 today", category: pii.Phone, want: []string{"(555) 987-6543"}},
		{name: "digits-only phone", text: "5551234567", category: pii.Phone, want: []string{"5551234567"}},
		{name: "too few digits", text: "Order 123456789", category: pii.Phone},
		{name: "visa spaced", text: "Card: 4111 1111 1111 1111", category: pii.CreditCard, want: []string{"4111 1111 1111 1111"}},
		{name: "amex", text: "378282246310005", category: pii.CreditCard, want: []string{"378282246310005"}},
		{name: "luhn failure", text: "Card: 4111 1111 1111 1112", category: pii.CreditCard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := scanner.Detect(ctx, tt.text, testPath)
			require.NoError(t, err)
			got := spansOf(matches, tt.category)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			for _, m := range matches {
				assert.Equal(t, tt.text[m.Start:m.End], m.Text, "offsets index the scanned text")
				assert.Equal(t, testPath, m.Path)
			}
		})
	}
}

func TestScannerContextBoost(t *testing.T) {
	scanner := MustNewScanner()
	plain, err := scanner.Detect(context.Background(), "ref 5551234567", testPath)
	require.NoError(t, err)
	boosted, err := scanner.Detect(context.Background(), "mobile 5551234567", testPath)
	require.NoError(t, err)

	require.Len(t, plain, 1)
	require.Len(t, boosted, 1)
	assert.Greater(t, boosted[0].Confidence, plain[0].Confidence)
	assert.LessOrEqual(t, boosted[0].Confidence, 1.0)
}

func TestScannerMinScore(t *testing.T) {
	scanner := MustNewScanner(WithMinScore(0.7))
	matches, err := scanner.Detect(context.Background(), "ref 5551234567", testPath)
	require.NoError(t, err)
	assert.Empty(t, matches, "digits-only phone without context falls below 0.7")
}

func TestScannerEntityFilters(t *testing.T) {
	scanner := MustNewScanner(WithEnabledEntities([]string{"email"}))
	assert.Equal(t, []pii.Category{pii.Email}, scanner.Categories())

	scanner = MustNewScanner(WithDisabledEntities([]string{"CREDIT_CARD"}))
	assert.NotContains(t, scanner.Categories(), pii.CreditCard)
}

func TestScannerPatternFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
recognizers:
  - name: "Staff Phone"
    supported_entity: "PHONE_NUMBER"
    patterns:
      - name: "extension"
        regex: '\bext-\d{4}\b'
        score: 0.9
`), 0o644))

	scanner, err := NewScanner(WithPatternFile(path))
	require.NoError(t, err)
	matches, err := scanner.Detect(context.Background(), "dial ext-1234", testPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"ext-1234"}, spansOf(matches, pii.Phone))
}

func TestNewScannerRejectsUnsupportedEntity(t *testing.T) {
	_, err := NewScanner(WithCustomRecognizers([]RecognizerConfig{{
		Name:            "IBAN",
		SupportedEntity: "IBAN_CODE",
		Patterns:        []PatternConfig{{Name: "iban", Regex: `DE\d{20}`, Score: 1}},
	}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported entity")
}
