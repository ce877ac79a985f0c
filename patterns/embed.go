// Package patterns provides the embedded default recognizer definitions and
// the name and domain dictionaries shared by detection and generation.
// Recognizer YAML uses the Presidio-compatible format with sanitizer
// extensions (validation, min_digits, max_digits).
package patterns

import _ "embed"

//go:embed pii.yaml
var piiYAML []byte

//go:embed names.yaml
var namesYAML []byte

// PIIYAML returns the embedded default PII recognizer definitions.
func PIIYAML() []byte { return piiYAML }

// NamesYAML returns the embedded given-name, family-name and domain lists.
func NamesYAML() []byte { return namesYAML }
