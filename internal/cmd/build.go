package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/2hard2touch/smart-data-sanitizer/internal/classifier"
	"github.com/2hard2touch/smart-data-sanitizer/internal/config"
	"github.com/2hard2touch/smart-data-sanitizer/internal/ledger"
	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
	"github.com/2hard2touch/smart-data-sanitizer/internal/sanitizer"
	"github.com/2hard2touch/smart-data-sanitizer/internal/synth"
)

// buildDetectors returns the detector chain for cfg: the pattern scanner
// and the name recognizer always, Presidio and the LLM detector when
// configured.
func buildDetectors(cfg *config.Config) ([]pii.Detector, error) {
	scanner, err := classifier.NewScanner(
		classifier.WithMinScore(cfg.MinScore),
		classifier.WithPatternFile(cfg.PatternFile),
		classifier.WithEnabledEntities(cfg.EnabledEntities),
		classifier.WithDisabledEntities(cfg.DisabledEntities),
	)
	if err != nil {
		return nil, fmt.Errorf("loading PII patterns: %w", err)
	}
	detectors := []pii.Detector{scanner}

	if categories := nameCategories(cfg); len(categories) > 0 {
		names, err := classifier.DefaultNameRecognizer(classifier.WithNameCategories(categories...))
		if err != nil {
			return nil, fmt.Errorf("loading name dictionaries: %w", err)
		}
		detectors = append(detectors, names)
	}
	if cfg.NERURL != "" {
		var opts []classifier.PresidioOption
		if len(cfg.EnabledEntities) > 0 {
			opts = append(opts, classifier.WithPresidioEntities(cfg.EnabledEntities))
		}
		detectors = append(detectors, classifier.NewPresidioRecognizer(cfg.NERURL, opts...))
	}
	if cfg.LLMModel != "" {
		detectors = append(detectors, classifier.NewLLMRecognizer(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel))
	}
	return detectors, nil
}

// nameCategories applies the entity filters to the name recognizer, which
// is not pattern based. Entries resolve the way the scanner's do, so
// "PERSON", "person" and "full_name" are the same entity. A full-name entry
// stands for every name category.
func nameCategories(cfg *config.Config) []pii.Category {
	enabled, disabled := nameEntities(cfg.EnabledEntities), nameEntities(cfg.DisabledEntities)
	var out []pii.Category
	for _, c := range pii.Categories {
		if !c.IsName() || disabled[c] {
			continue
		}
		if len(cfg.EnabledEntities) > 0 && !enabled[c] {
			continue
		}
		out = append(out, c)
	}
	return out
}

func nameEntities(entities []string) map[pii.Category]bool {
	set := make(map[pii.Category]bool)
	for _, e := range entities {
		c, ok := classifier.EntityCategory(e)
		switch {
		case !ok || !c.IsName():
		case c == pii.FullName:
			set[pii.FullName], set[pii.GivenName], set[pii.FamilyName] = true, true, true
		default:
			set[c] = true
		}
	}
	return set
}

func buildSanitizer(cfg *config.Config) (*sanitizer.Sanitizer, error) {
	detectors, err := buildDetectors(cfg)
	if err != nil {
		return nil, err
	}
	var opts []synth.Option
	if cfg.Seed != nil {
		opts = append(opts, synth.WithSeed(*cfg.Seed))
	}
	gen, err := synth.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	return sanitizer.New(gen, detectors, sanitizer.WithMinScore(cfg.MinScore))
}

// openLedger returns nil when the ledger is disabled.
func openLedger(cfg *config.Config) (*ledger.Store, error) {
	if !cfg.Ledger {
		return nil, nil
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	cfg.WarnIfDefaultKeys()
	store, err := ledger.Open(cfg.LedgerDBPath(), cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("opening run ledger: %w", err)
	}
	log.Debug().Str("path", cfg.LedgerDBPath()).Msg("run ledger opened")
	return store, nil
}
