// Package classifier holds the PII detectors: a regex Scanner driven by
// Presidio-style recognizer YAML, a dictionary NameRecognizer, and optional
// recognizers backed by a Presidio analyzer or an OpenAI-compatible model.
// Every detector implements pii.Detector.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/2hard2touch/smart-data-sanitizer/internal/otel"
	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

var tracer = otel.Tracer("github.com/2hard2touch/smart-data-sanitizer/internal/classifier")

const (
	// DefaultMinScore is the Presidio-compatible minimum confidence threshold.
	// Matches below this score are discarded unless boosted by context words.
	DefaultMinScore = 0.5

	// ContextSimilarityFactor is the score boost applied when context words are
	// found near a match. Matches Presidio's default context_similarity_factor.
	ContextSimilarityFactor = 0.35

	// ContextWindowChars is the number of bytes searched before and after a
	// match when looking for context words.
	ContextWindowChars = 100
)

// Scanner detects structured PII (email, phone, card) with regex patterns.
type Scanner struct {
	patterns []PIIPattern
	minScore float64
}

// ScannerOption configures a Scanner via the functional options pattern.
type ScannerOption func(*scannerConfig)

type scannerConfig struct {
	patternFile       string
	enabledEntities   []string
	disabledEntities  []string
	customRecognizers []RecognizerConfig
	minScore          float64
}

// WithMinScore overrides the default minimum confidence threshold for matches.
func WithMinScore(score float64) ScannerOption {
	return func(c *scannerConfig) { c.minScore = score }
}

// WithPatternFile layers recognizers from a YAML file over the defaults.
// A missing file is skipped.
func WithPatternFile(path string) ScannerOption {
	return func(c *scannerConfig) { c.patternFile = path }
}

// WithEnabledEntities keeps only recognizers for the listed entities.
func WithEnabledEntities(entities []string) ScannerOption {
	return func(c *scannerConfig) { c.enabledEntities = entities }
}

// WithDisabledEntities drops recognizers for the listed entities.
func WithDisabledEntities(entities []string) ScannerOption {
	return func(c *scannerConfig) { c.disabledEntities = entities }
}

// WithCustomRecognizers adds recognizer definitions on top of all files.
func WithCustomRecognizers(recognizers []RecognizerConfig) ScannerOption {
	return func(c *scannerConfig) { c.customRecognizers = recognizers }
}

// NewScanner creates a pattern scanner. Without options it uses the
// embedded defaults.
func NewScanner(opts ...ScannerOption) (*Scanner, error) {
	var cfg scannerConfig
	for _, o := range opts {
		o(&cfg)
	}

	defaults, err := DefaultRecognizers()
	if err != nil {
		return nil, fmt.Errorf("loading default recognizers: %w", err)
	}

	var fileRecs []*RecognizerConfig
	if cfg.patternFile != "" {
		rf, err := LoadRecognizerFile(cfg.patternFile)
		if err != nil {
			return nil, fmt.Errorf("loading pattern file: %w", err)
		}
		if rf != nil {
			fileRecs = toPtrSlice(rf.Recognizers)
		}
	}

	merged := MergeRecognizers(toPtrSlice(defaults), fileRecs, toPtrSlice(cfg.customRecognizers))
	merged = FilterByEntities(merged, cfg.enabledEntities, cfg.disabledEntities)

	compiled, err := CompilePIIPatterns(merged)
	if err != nil {
		return nil, fmt.Errorf("compiling patterns: %w", err)
	}

	minScore := DefaultMinScore
	if cfg.minScore > 0 {
		minScore = cfg.minScore
	}
	return &Scanner{patterns: compiled, minScore: minScore}, nil
}

// MustNewScanner is like NewScanner but panics on error.
func MustNewScanner(opts ...ScannerOption) *Scanner {
	s, err := NewScanner(opts...)
	if err != nil {
		panic(fmt.Sprintf("classifier.NewScanner: %v", err))
	}
	return s
}

// Name implements pii.Detector.
func (s *Scanner) Name() string { return "pattern" }

// Categories lists the categories the scanner has patterns for.
func (s *Scanner) Categories() []pii.Category {
	seen := make(map[pii.Category]bool)
	var out []pii.Category
	for _, p := range s.patterns {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

// Detect returns every pattern match that passes validation and the score
// threshold. Overlapping matches are returned as-is.
func (s *Scanner) Detect(ctx context.Context, text string, path pii.FieldPath) ([]pii.Match, error) {
	_, span := tracer.Start(ctx, "classifier.scan")
	defer span.End()

	var out []pii.Match
	for i := range s.patterns {
		p := &s.patterns[i]
		for _, loc := range p.Pattern.FindAllStringIndex(text, -1) {
			value := text[loc[0]:loc[1]]
			if !p.accepts(value) {
				continue
			}
			confidence := enhanceScoreWithContext(text, loc[0], p.Score, p.ContextWords)
			if confidence < s.minScore {
				continue
			}
			out = append(out, pii.Match{
				Category:   p.Category,
				Start:      loc[0],
				End:        loc[1],
				Text:       value,
				Path:       path,
				Confidence: confidence,
				Detector:   p.Name,
			})
		}
	}

	span.SetAttributes(otel.DetectorName.String(s.Name()), otel.PIIMatchCount.Int(len(out)))
	return out, nil
}

// enhanceScoreWithContext boosts a match's base score if context words are found
// within +/- ContextWindowChars of the match position, mirroring Presidio's
// LemmaContextAwareEnhancer with a fixed context_similarity_factor.
func enhanceScoreWithContext(text string, position int, baseScore float64, contextWords []string) float64 {
	if len(contextWords) == 0 {
		return baseScore
	}
	start := position - ContextWindowChars
	if start < 0 {
		start = 0
	}
	end := position + ContextWindowChars
	if end > len(text) {
		end = len(text)
	}
	window := strings.ToLower(text[start:end])

	for _, cw := range contextWords {
		if strings.Contains(window, strings.ToLower(cw)) {
			boosted := baseScore + ContextSimilarityFactor
			if boosted > 1 {
				boosted = 1
			}
			return boosted
		}
	}
	return baseScore
}
