package classifier

import (
	"fmt"
	"regexp"

	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
	"github.com/2hard2touch/smart-data-sanitizer/patterns"
)

// PIIPattern is a compiled, ready-to-use detection pattern.
type PIIPattern struct {
	Name         string
	Category     pii.Category
	Pattern      *regexp.Regexp
	Score        float64
	ContextWords []string
	ValidateLuhn bool
	MinDigits    int
	MaxDigits    int
}

// accepts applies the hard validation gates to a matched value.
func (p *PIIPattern) accepts(value string) bool {
	if p.MinDigits > 0 || p.MaxDigits > 0 {
		n := len(pii.DigitsOf(value))
		if p.MinDigits > 0 && n < p.MinDigits {
			return false
		}
		if p.MaxDigits > 0 && n > p.MaxDigits {
			return false
		}
	}
	if p.ValidateLuhn && !pii.LuhnValid(value) {
		return false
	}
	return true
}

// DefaultRecognizers returns the built-in recognizers parsed from the
// embedded pii.yaml. This is the first layer in the merge chain.
func DefaultRecognizers() ([]RecognizerConfig, error) {
	rf, err := ParseRecognizerFile(patterns.PIIYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded PII patterns: %w", err)
	}
	return rf.Recognizers, nil
}
