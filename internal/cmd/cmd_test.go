package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2hard2touch/smart-data-sanitizer/internal/config"
	"github.com/2hard2touch/smart-data-sanitizer/internal/doctor"
	"github.com/2hard2touch/smart-data-sanitizer/internal/document"
	"github.com/2hard2touch/smart-data-sanitizer/internal/ledger"
	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
	"github.com/2hard2touch/smart-data-sanitizer/internal/sanitizer"
)

const contactRecords = `[{"id":1,"name":"John Doe","email":"john.doe@example.com","phone":"+1-555-123-4567","status":"active"}]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	seed := int64(42)
	return &config.Config{
		DataDir:       t.TempDir(),
		SigningKey:    strings.Repeat("ab", 32),
		Seed:          &seed,
		MinScore:      config.DefaultMinScore,
		MaxDocumentMB: 1,
		RateLimitRPM:  config.DefaultRateLimitRPM,
		ListenAddr:    config.DefaultListenAddr,
	}
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range []string{"sanitize", "scan", "serve", "history", "doctor", "version"} {
		assert.True(t, registered[name], "subcommand %q should be registered", name)
	}
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	for _, name := range []string{
		"config", "verbose", "log-level", "log-format", "otel", "seed", "min-score",
		"patterns", "entities", "disable-entities", "ner-url", "llm-model", "ledger", "data-dir",
	} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "flag %q should be registered", name)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().ShorthandLookup("v"))
}

func TestRootCommand_RequiresOutput(t *testing.T) {
	err := rootCmd.RunE(rootCmd, []string{"input.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing output file")
}

func TestVersionVars_HaveDefaults(t *testing.T) {
	assert.Equal(t, "dev", Version)
	assert.Equal(t, "none", Commit)
	assert.Equal(t, "unknown", BuildDate)
}

func TestPackageLevelTracer_IsNotNil(t *testing.T) {
	assert.NotNil(t, tracer)
}

func TestRunSanitize(t *testing.T) {
	cfg := testConfig(t)
	input := writeInput(t, contactRecords)
	output := filepath.Join(t.TempDir(), "out", "sanitized.json")

	var buf bytes.Buffer
	require.NoError(t, runSanitize(context.Background(), cfg, input, output, &buf))

	got := buf.String()
	assert.Contains(t, got, "Sanitization completed successfully!")
	assert.Contains(t, got, "  Records processed: 1\n")
	assert.Contains(t, got, "  PII fields detected: 3\n")
	assert.Contains(t, got, "  PII replacements made: 3\n")
	assert.Contains(t, got, "Sanitized data written to: "+output)
	assert.NotContains(t, got, "Smart Data Sanitizer")

	doc, err := document.ReadFile(output)
	require.NoError(t, err)
	require.Len(t, doc.Records, 1)
	email, ok := doc.Records[0].Get("email")
	require.True(t, ok)
	assert.NotEqual(t, "john.doe@example.com", email.(*document.String).Value)
	status, _ := doc.Records[0].Get("status")
	assert.Equal(t, "active", status.(*document.String).Value)
}

func TestRunSanitize_Verbose(t *testing.T) {
	verbose = true
	defer func() { verbose = false }()

	cfg := testConfig(t)
	input := writeInput(t, contactRecords)
	output := filepath.Join(t.TempDir(), "sanitized.json")

	var buf bytes.Buffer
	require.NoError(t, runSanitize(context.Background(), cfg, input, output, &buf))

	got := buf.String()
	assert.True(t, strings.HasPrefix(got, "Smart Data Sanitizer\n"+strings.Repeat("=", 50)+"\n"))
	assert.Contains(t, got, "Input file: "+input)
	assert.Contains(t, got, "Initialized detectors:\n  - pattern\n  - names\n")
	assert.Contains(t, got, "    email: 1\n")
}

func TestRunSanitize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing bool
		wantErr error
	}{
		{name: "missing input", missing: true, wantErr: document.ErrNotFound},
		{name: "malformed JSON", content: `[{"a":`, wantErr: document.ErrFormat},
		{name: "not an array", content: `{"a":1}`, wantErr: document.ErrFormat},
		{name: "too large", content: `[{"pad":"` + strings.Repeat("x", 2<<20) + `"}]`, wantErr: document.ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := filepath.Join(t.TempDir(), "absent.json")
			if !tt.missing {
				input = writeInput(t, tt.content)
			}
			output := filepath.Join(t.TempDir(), "sanitized.json")

			err := runSanitize(context.Background(), testConfig(t), input, output, &bytes.Buffer{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			_, statErr := os.Stat(output)
			assert.True(t, os.IsNotExist(statErr), "no output on failure")
		})
	}
}

func TestRunSanitize_RecordsLedger(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger = true
	input := writeInput(t, contactRecords)
	output := filepath.Join(t.TempDir(), "sanitized.json")

	require.NoError(t, runSanitize(context.Background(), cfg, input, output, &bytes.Buffer{}))

	store, err := ledger.Open(cfg.LedgerDBPath(), cfg.SigningKey)
	require.NoError(t, err)
	defer store.Close()

	records, err := store.List(context.Background(), ledger.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ledger.SourceCLI, records[0].Source)
	assert.True(t, records[0].Seeded)
	assert.Equal(t, 3, records[0].Summary.ReplacementsMade)
	assert.Equal(t, []string{"pattern", "names"}, records[0].Detectors)
}

func TestBuildDetectors(t *testing.T) {
	cfg := testConfig(t)
	cfg.NERURL = "http://presidio:3000"
	cfg.LLMModel = "gpt-4o-mini"
	cfg.LLMAPIKey = "sk-test"

	detectors, err := buildDetectors(cfg)
	require.NoError(t, err)
	var names []string
	for _, d := range detectors {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"pattern", "names", "presidio", "llm"}, names)

	cfg = testConfig(t)
	cfg.DisabledEntities = []string{"PERSON"}
	detectors, err = buildDetectors(cfg)
	require.NoError(t, err)
	require.Len(t, detectors, 1)
	assert.Equal(t, "pattern", detectors[0].Name())
}

func TestNameCategories(t *testing.T) {
	all := []pii.Category{pii.FullName, pii.GivenName, pii.FamilyName}
	tests := []struct {
		name     string
		enabled  []string
		disabled []string
		want     []pii.Category
	}{
		{name: "no filters", want: all},
		{name: "other entity enabled", enabled: []string{"EMAIL_ADDRESS"}},
		{name: "person enabled", enabled: []string{"EMAIL_ADDRESS", "PERSON"}, want: all},
		{name: "given name enabled", enabled: []string{"first_name"}, want: []pii.Category{pii.GivenName}},
		{name: "person disabled", disabled: []string{"PERSON"}},
		{name: "lower-case person disabled", disabled: []string{"person"}},
		{name: "full name disabled", disabled: []string{"full_name"}},
		{name: "given name disabled", disabled: []string{"given_name"}, want: []pii.Category{pii.FullName, pii.FamilyName}},
		{name: "unknown entity disabled", disabled: []string{"IBAN_CODE"}, want: all},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.EnabledEntities = tt.enabled
			cfg.DisabledEntities = tt.disabled
			assert.Equal(t, tt.want, nameCategories(cfg))
		})
	}
}

func TestBuildDetectorsDisabledFullName(t *testing.T) {
	cfg := testConfig(t)
	cfg.DisabledEntities = []string{"full_name"}
	detectors, err := buildDetectors(cfg)
	require.NoError(t, err)
	require.Len(t, detectors, 1)
	assert.Equal(t, "pattern", detectors[0].Name())
}

func TestServerOptions(t *testing.T) {
	cfg := testConfig(t)
	assert.Len(t, serverOptions(cfg), 3)
	cfg.RateLimitRPM = 0
	assert.Len(t, serverOptions(cfg), 2)
}

func TestRenderScanReport(t *testing.T) {
	var buf bytes.Buffer
	renderScanReport(&buf, &sanitizer.ScanReport{
		RecordsScanned: 2,
		Findings: []sanitizer.Finding{
			{Path: "[0].email", Category: pii.Email, Start: 0, End: 16, Confidence: 0.9, Detector: "pattern"},
		},
		ByCategory:       map[pii.Category]int{pii.Email: 1},
		DetectorFailures: 1,
	})
	got := buf.String()
	assert.Contains(t, got, "Records scanned: 2\n")
	assert.Contains(t, got, "PII findings: 1\n")
	assert.Contains(t, got, "  email: 1\n")
	assert.Contains(t, got, "Detector failures: 1\n")
	assert.Contains(t, got, "  [0].email [0:16] email (0.90, pattern)\n")
}

func historyRecords() []ledger.Record {
	return []ledger.Record{{
		ID:         "run_abcd1234",
		RunID:      "7d1c",
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Source:     ledger.SourceAPI,
		InputHash:  "sha256:aa",
		OutputHash: "sha256:bb",
		Summary:    sanitizer.Summary{RecordsProcessed: 4, FieldsWithPII: 6, ReplacementsMade: 7, DetectorFailures: 2},
		DurationMS: 12,
	}}
}

func TestRenderHistoryList(t *testing.T) {
	var buf bytes.Buffer
	renderHistoryList(&buf, historyRecords())
	got := buf.String()
	assert.Contains(t, got, "Runs (showing 1):")
	assert.Contains(t, got, "run_abcd1234 | 2026-03-01 12:00:00 | api | 4 records | 7 replacements | 12ms [2 detector failures]")
}

func TestRenderHistoryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderHistoryCSV(&buf, historyRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, historyCSVHeader, rows[0])
	assert.Equal(t, []string{
		"run_abcd1234", "7d1c", "2026-03-01T12:00:00Z", "api", "4", "6", "7", "2", "12", "sha256:aa", "sha256:bb",
	}, rows[1])
}

func TestRenderHistoryJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderHistoryJSON(&buf, nil))
	assert.JSONEq(t, `[]`, buf.String())

	buf.Reset()
	require.NoError(t, renderHistoryJSON(&buf, historyRecords()))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "run_abcd1234", decoded[0]["id"])
}

func TestRenderVerifyResult(t *testing.T) {
	var buf bytes.Buffer
	renderVerifyResult(&buf, "run_1", true)
	assert.Contains(t, buf.String(), "signature VALID")

	buf.Reset()
	renderVerifyResult(&buf, "run_1", false)
	assert.Contains(t, buf.String(), "signature INVALID")
}

func TestRenderDoctorReport(t *testing.T) {
	var buf bytes.Buffer
	renderDoctorReport(&buf, &doctor.Report{
		Status: doctor.StatusWarn,
		Checks: []doctor.CheckResult{
			{Name: "patterns", Status: doctor.StatusPass, Message: "built-in (3 categories)"},
			{Name: "signing_key", Status: doctor.StatusWarn, Message: "Using generated default", Fix: "Set SANITIZER_SIGNING_KEY"},
		},
		Summary: doctor.Summary{Pass: 1, Warn: 1},
	})
	got := buf.String()
	assert.Contains(t, got, "✓ patterns: built-in (3 categories)\n")
	assert.Contains(t, got, "⚠ signing_key: Using generated default\n    fix: Set SANITIZER_SIGNING_KEY\n")
	assert.Contains(t, got, "1 passed, 1 warnings, 0 failed")
}
