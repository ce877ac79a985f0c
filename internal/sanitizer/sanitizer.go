// Package sanitizer replaces PII in JSON documents with synthetic values.
//
// A Sanitizer walks every string in a document, runs the configured
// detectors, and substitutes each detected span with a generated value that
// keeps the original's layout. Within one call the same original always maps
// to the same replacement, and given names, family names and name-derived
// emails found in one object are replaced by one consistent synthetic
// person.
package sanitizer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/2hard2touch/smart-data-sanitizer/internal/document"
	sanitizerotel "github.com/2hard2touch/smart-data-sanitizer/internal/otel"
	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

var tracer = otel.Tracer("github.com/2hard2touch/smart-data-sanitizer/internal/sanitizer")

// DefaultMinScore drops low-confidence matches from any detector.
const DefaultMinScore = 0.5

// Summary reports what one call did. It never carries original values.
type Summary struct {
	RecordsProcessed  int                  `json:"records_processed"`
	FieldsWithPII     int                  `json:"fields_with_pii"`
	ReplacementsMade  int                  `json:"replacements_made"`
	ByCategory        map[pii.Category]int `json:"by_category,omitempty"`
	DetectorFailures  int                  `json:"detector_failures"`
	IdentityConflicts int                  `json:"identity_conflicts"`
	IdentitiesLinked  int                  `json:"identities_linked"`
	PendingRepaired   int                  `json:"pending_repaired"`
}

func (s *Summary) count(c pii.Category) {
	if s.ByCategory == nil {
		s.ByCategory = make(map[pii.Category]int)
	}
	s.ByCategory[c]++
	s.ReplacementsMade++
}

// Result is a sanitized document with its summary.
type Result struct {
	RunID    string
	Document *document.Document
	Summary  Summary
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithMinScore sets the confidence below which matches are ignored.
func WithMinScore(score float64) Option {
	return func(s *Sanitizer) { s.minScore = score }
}

// WithLogger replaces the global logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Sanitizer) { s.logger = l }
}

// Sanitizer is safe for concurrent use; every call owns its own cache.
type Sanitizer struct {
	gen       pii.Generator
	detectors []pii.Detector
	minScore  float64
	logger    zerolog.Logger
}

// New creates a Sanitizer. Detectors run in the given order.
func New(gen pii.Generator, detectors []pii.Detector, opts ...Option) (*Sanitizer, error) {
	if gen == nil {
		return nil, errors.New("sanitizer: generator is required")
	}
	s := &Sanitizer{
		gen:       gen,
		detectors: detectors,
		minScore:  DefaultMinScore,
		logger:    log.Logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Detectors returns the names of the configured detectors in order.
func (s *Sanitizer) Detectors() []string {
	names := make([]string, len(s.detectors))
	for i, d := range s.detectors {
		names[i] = d.Name()
	}
	return names
}

// run is the state of one Sanitize call.
type run struct {
	ctx     context.Context
	chain   *chain
	cache   *Cache
	linker  *linker
	sites   []*site
	summary Summary
}

// chain returns the detector chain for doc. Detectors implementing
// pii.Primer are primed with the document's strings first, so a name given
// in one field is known when free text elsewhere is scanned.
func (s *Sanitizer) chain(doc *document.Document, logger zerolog.Logger) *chain {
	detectors := make([]pii.Detector, len(s.detectors))
	for i, d := range s.detectors {
		if p, ok := d.(pii.Primer); ok {
			if primed := p.Prime(leaves(doc)); primed != nil {
				d = primed
			}
		}
		detectors[i] = d
	}
	return &chain{detectors: detectors, minScore: s.minScore, logger: logger}
}

// Sanitize returns a sanitized copy of doc. On error no document is
// returned; doc itself is never modified.
func (s *Sanitizer) Sanitize(ctx context.Context, doc *document.Document) (*Result, error) {
	if doc == nil {
		return nil, &document.FormatError{Path: "$", Msg: "no document"}
	}
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "sanitizer.sanitize",
		trace.WithAttributes(sanitizerotel.RunID.String(runID)))
	defer span.End()

	start := time.Now()
	logger := s.logger.With().Str("run_id", runID).Logger()
	cache := NewCache(s.gen)
	r := &run{
		ctx:    ctx,
		chain:  s.chain(doc, logger),
		cache:  cache,
		linker: newLinker(cache, logger),
	}

	out, err := r.walk(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sanitization failed")
		logger.Error().Err(err).Msg("sanitization aborted")
		return nil, err
	}
	r.repair()

	sum := r.summary
	sum.IdentityConflicts = r.linker.conflicts
	sum.IdentitiesLinked = len(r.linker.groups)

	runsTotal.Add(ctx, 1)
	recordsProcessed.Add(ctx, int64(sum.RecordsProcessed))
	for c, n := range sum.ByCategory {
		replacementsMade.Add(ctx, int64(n), metric.WithAttributes(sanitizerotel.PIICategory.String(string(c))))
	}
	if sum.IdentityConflicts > 0 {
		identityConflicts.Add(ctx, int64(sum.IdentityConflicts))
	}
	runDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	span.SetAttributes(sanitizerotel.SummaryAttributes(sum.RecordsProcessed, sum.FieldsWithPII, sum.ReplacementsMade)...)
	span.SetAttributes(attribute.Int("sanitizer.identities_linked", sum.IdentitiesLinked))

	logger.Info().
		Int("records", sum.RecordsProcessed).
		Int("fields_with_pii", sum.FieldsWithPII).
		Int("replacements", sum.ReplacementsMade).
		Int("detector_failures", sum.DetectorFailures).
		Int("identity_conflicts", sum.IdentityConflicts).
		Dur("duration", time.Since(start)).
		Func(sanitizerotel.LogTraceFields(ctx)).
		Msg("sanitization complete")

	return &Result{RunID: runID, Document: out, Summary: sum}, nil
}

// Finding locates one detection without its value.
type Finding struct {
	Path       string       `json:"path"`
	Category   pii.Category `json:"category"`
	Start      int          `json:"start"`
	End        int          `json:"end"`
	Confidence float64      `json:"confidence"`
	Detector   string       `json:"detector"`
}

// ScanReport lists what Sanitize would replace.
type ScanReport struct {
	RecordsScanned   int                  `json:"records_scanned"`
	Findings         []Finding            `json:"findings"`
	ByCategory       map[pii.Category]int `json:"by_category"`
	DetectorFailures int                  `json:"detector_failures"`
}

// Scan runs the detector chain over doc without generating replacements.
func (s *Sanitizer) Scan(ctx context.Context, doc *document.Document) (*ScanReport, error) {
	if doc == nil {
		return nil, &document.FormatError{Path: "$", Msg: "no document"}
	}
	ctx, span := tracer.Start(ctx, "sanitizer.scan")
	defer span.End()

	c := s.chain(doc, s.logger)
	report := &ScanReport{
		RecordsScanned: len(doc.Records),
		Findings:       []Finding{},
		ByCategory:     make(map[pii.Category]int),
	}
	err := eachString(doc, func(path pii.FieldPath, text string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		matches, failures := c.detect(ctx, text, path)
		report.DetectorFailures += failures
		for _, m := range matches {
			report.Findings = append(report.Findings, Finding{
				Path:       path.String(),
				Category:   m.Category,
				Start:      m.Start,
				End:        m.End,
				Confidence: m.Confidence,
				Detector:   m.Detector,
			})
			report.ByCategory[m.Category]++
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(sanitizerotel.PIIMatchCount.Int(len(report.Findings)))
	return report, nil
}
