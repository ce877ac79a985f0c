package classifier

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

// RecognizerFile is the top-level YAML structure for a recognizer config file.
// Mirrors Presidio's recognizer registry YAML format.
type RecognizerFile struct {
	Recognizers []RecognizerConfig `yaml:"recognizers"`
}

// RecognizerConfig mirrors Presidio's YAML recognizer schema with sanitizer
// extensions.
type RecognizerConfig struct {
	Name               string            `yaml:"name" json:"name"`
	SupportedEntity    string            `yaml:"supported_entity" json:"supported_entity"`
	Enabled            *bool             `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Patterns           []PatternConfig   `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	SupportedLanguages []LanguageContext `yaml:"supported_languages,omitempty" json:"supported_languages,omitempty"`
	// Sanitizer extensions, ignored by Presidio. Validation "luhn" requires
	// the digit payload to pass the checksum; Min/MaxDigits bound its length.
	Validation string `yaml:"validation,omitempty" json:"validation,omitempty"`
	MinDigits  int    `yaml:"min_digits,omitempty" json:"min_digits,omitempty"`
	MaxDigits  int    `yaml:"max_digits,omitempty" json:"max_digits,omitempty"`
}

// PatternConfig is a single regex pattern within a recognizer.
type PatternConfig struct {
	Name  string  `yaml:"name" json:"name"`
	Regex string  `yaml:"regex" json:"regex"`
	Score float64 `yaml:"score" json:"score"`
}

// LanguageContext holds context words for a specific language.
type LanguageContext struct {
	Language string   `yaml:"language" json:"language"`
	Context  []string `yaml:"context,omitempty" json:"context,omitempty"`
}

// isEnabled returns true if the recognizer is enabled (defaults to true when nil).
func (r *RecognizerConfig) isEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

func (r *RecognizerConfig) contextWords() []string {
	var words []string
	for _, l := range r.SupportedLanguages {
		words = append(words, l.Context...)
	}
	return words
}

// ParseRecognizerFile parses recognizer YAML bytes into a RecognizerFile.
func ParseRecognizerFile(data []byte) (*RecognizerFile, error) {
	var rf RecognizerFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing recognizer YAML: %w", err)
	}
	return &rf, nil
}

// LoadRecognizerFile reads and parses a recognizer YAML file from disk.
// Returns nil (not an error) if the file does not exist, so callers can
// treat a missing pattern file as a no-op.
func LoadRecognizerFile(path string) (*RecognizerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recognizer file %s: %w", path, err)
	}
	return ParseRecognizerFile(data)
}

// MergeRecognizers layers recognizer lists: later layers override earlier
// ones by matching on Name, new recognizers are appended.
func MergeRecognizers(layers ...[]*RecognizerConfig) []RecognizerConfig {
	index := make(map[string]int)
	var merged []RecognizerConfig

	for _, layer := range layers {
		for _, rc := range layer {
			if rc == nil {
				continue
			}
			if idx, exists := index[rc.Name]; exists {
				merged[idx] = *rc
			} else {
				index[rc.Name] = len(merged)
				merged = append(merged, *rc)
			}
		}
	}

	return merged
}

func toPtrSlice(configs []RecognizerConfig) []*RecognizerConfig {
	ptrs := make([]*RecognizerConfig, len(configs))
	for i := range configs {
		ptrs[i] = &configs[i]
	}
	return ptrs
}

// CompilePIIPatterns converts recognizer configs into the compiled patterns
// used by the Scanner. Disabled recognizers are skipped. Each regex produces
// one PIIPattern. Entities the sanitizer cannot generate replacements for
// are rejected, since a match without a replacement would leak PII.
func CompilePIIPatterns(recognizers []RecognizerConfig) ([]PIIPattern, error) {
	var patterns []PIIPattern

	for _, rec := range recognizers {
		if !rec.isEnabled() {
			continue
		}
		category, ok := EntityCategory(rec.SupportedEntity)
		if !ok {
			return nil, fmt.Errorf("recognizer %q: unsupported entity %q", rec.Name, rec.SupportedEntity)
		}
		switch rec.Validation {
		case "", "luhn":
		default:
			return nil, fmt.Errorf("recognizer %q: unknown validation %q", rec.Name, rec.Validation)
		}
		for _, p := range rec.Patterns {
			compiled, err := regexp.Compile(p.Regex)
			if err != nil {
				return nil, fmt.Errorf("compiling pattern %q in recognizer %q: %w", p.Name, rec.Name, err)
			}
			patterns = append(patterns, PIIPattern{
				Name:         rec.Name + "/" + p.Name,
				Category:     category,
				Pattern:      compiled,
				Score:        p.Score,
				ContextWords: rec.contextWords(),
				ValidateLuhn: rec.Validation == "luhn",
				MinDigits:    rec.MinDigits,
				MaxDigits:    rec.MaxDigits,
			})
		}
	}

	return patterns, nil
}

// FilterByEntities applies enabled/disabled entity filters to a recognizer
// list. Filters accept Presidio entity names or sanitizer category names.
func FilterByEntities(recognizers []RecognizerConfig, enabledEntities, disabledEntities []string) []RecognizerConfig {
	result := recognizers

	if len(enabledEntities) > 0 {
		allowed := entitySet(enabledEntities)
		var filtered []RecognizerConfig
		for _, r := range result {
			if allowed[normalizeEntity(r.SupportedEntity)] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	if len(disabledEntities) > 0 {
		blocked := entitySet(disabledEntities)
		var filtered []RecognizerConfig
		for _, r := range result {
			if !blocked[normalizeEntity(r.SupportedEntity)] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	return result
}

func entitySet(entities []string) map[string]bool {
	set := make(map[string]bool, len(entities))
	for _, e := range entities {
		set[normalizeEntity(e)] = true
	}
	return set
}

func normalizeEntity(e string) string {
	if c, ok := EntityCategory(e); ok {
		return string(c)
	}
	return strings.ToLower(e)
}

// entityCategoryMap converts Presidio entity names to sanitizer categories.
var entityCategoryMap = map[string]pii.Category{
	"EMAIL_ADDRESS": pii.Email,
	"PHONE_NUMBER":  pii.Phone,
	"CREDIT_CARD":   pii.CreditCard,
	"PERSON":        pii.FullName,
	"FIRST_NAME":    pii.GivenName,
	"LAST_NAME":     pii.FamilyName,
}

// EntityCategory maps a Presidio entity name (or a category name) to the
// sanitizer category.
func EntityCategory(entity string) (pii.Category, bool) {
	if c, ok := entityCategoryMap[strings.ToUpper(strings.TrimSpace(entity))]; ok {
		return c, true
	}
	return pii.ParseCategory(entity)
}
