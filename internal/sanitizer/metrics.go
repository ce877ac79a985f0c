package sanitizer

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/2hard2touch/smart-data-sanitizer/internal/sanitizer")

var (
	runsTotal         metric.Int64Counter
	recordsProcessed  metric.Int64Counter
	replacementsMade  metric.Int64Counter
	detectorFailures  metric.Int64Counter
	identityConflicts metric.Int64Counter
	runDuration       metric.Float64Histogram
)

func init() {
	var err error
	runsTotal, err = meter.Int64Counter("sanitizer.runs.total",
		metric.WithDescription("Sanitization calls"))
	if err != nil {
		runsTotal, _ = meter.Int64Counter("sanitizer.runs.total.fallback")
	}

	recordsProcessed, err = meter.Int64Counter("sanitizer.records.processed",
		metric.WithDescription("Top-level records sanitized"))
	if err != nil {
		recordsProcessed, _ = meter.Int64Counter("sanitizer.records.processed.fallback")
	}

	replacementsMade, err = meter.Int64Counter("sanitizer.replacements",
		metric.WithDescription("PII spans replaced, by category"))
	if err != nil {
		replacementsMade, _ = meter.Int64Counter("sanitizer.replacements.fallback")
	}

	detectorFailures, err = meter.Int64Counter("sanitizer.detector.failures",
		metric.WithDescription("Detector errors and panics isolated to one field"))
	if err != nil {
		detectorFailures, _ = meter.Int64Counter("sanitizer.detector.failures.fallback")
	}

	identityConflicts, err = meter.Int64Counter("sanitizer.identity.conflicts",
		metric.WithDescription("Conflicting identity observations, first mapping kept"))
	if err != nil {
		identityConflicts, _ = meter.Int64Counter("sanitizer.identity.conflicts.fallback")
	}

	runDuration, err = meter.Float64Histogram("sanitizer.run.duration",
		metric.WithDescription("Sanitization call duration"),
		metric.WithUnit("ms"))
	if err != nil {
		runDuration, _ = meter.Float64Histogram("sanitizer.run.duration.fallback")
	}
}
