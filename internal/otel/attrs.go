package otel

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys. Values never carry original PII, only categories,
// counts and detector names.
const (
	RunID                 = attribute.Key("sanitizer.run_id")
	RecordsProcessed      = attribute.Key("sanitizer.records_processed")
	FieldsWithPII         = attribute.Key("sanitizer.fields_with_pii")
	ReplacementsMade      = attribute.Key("sanitizer.replacements_made")
	PIICategory           = attribute.Key("pii.category")
	PIIMatchCount         = attribute.Key("pii.match_count")
	DetectorName          = attribute.Key("pii.detector")
	GenAISystem           = attribute.Key("gen_ai.system")
	GenAIRequestModel     = attribute.Key("gen_ai.request.model")
	GenAIUsageInputTokens = attribute.Key("gen_ai.usage.input_tokens")
)

// SummaryAttributes describes a finished sanitization run.
func SummaryAttributes(records, fields, replacements int) []attribute.KeyValue {
	return []attribute.KeyValue{
		RecordsProcessed.Int(records),
		FieldsWithPII.Int(fields),
		ReplacementsMade.Int(replacements),
	}
}
