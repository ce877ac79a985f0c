// Package doctor runs preflight checks for the sanitizer: configuration,
// detector assets, optional upstream detectors and the run ledger.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/2hard2touch/smart-data-sanitizer/internal/classifier"
	"github.com/2hard2touch/smart-data-sanitizer/internal/config"
	"github.com/2hard2touch/smart-data-sanitizer/internal/ledger"
	"github.com/2hard2touch/smart-data-sanitizer/patterns"
)

// Check statuses.
const (
	StatusPass = "pass"
	StatusWarn = "warn"
	StatusFail = "fail"
)

// CheckResult is a single doctor check outcome.
type CheckResult struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Summary tallies pass/warn/fail counts.
type Summary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// Report is the complete doctor output.
type Report struct {
	Status  string        `json:"status"` // worst of all checks
	Checks  []CheckResult `json:"checks"`
	Summary Summary       `json:"summary"`
}

// Options controls which checks run.
type Options struct {
	SkipUpstream bool // no network calls to Presidio or the LLM API
	HTTPClient   *http.Client
}

// Run executes all checks against cfg.
func Run(ctx context.Context, cfg *config.Config, opts Options) *Report {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	report := &Report{}
	report.Checks = append(report.Checks, checkDetectors(cfg)...)
	if cfg.NERURL != "" || cfg.LLMModel != "" {
		report.Checks = append(report.Checks, checkUpstreams(ctx, cfg, client, opts.SkipUpstream)...)
	}
	report.Checks = append(report.Checks, checkLedger(ctx, cfg)...)
	report.tally()
	return report
}

func (r *Report) tally() {
	r.Summary = Summary{}
	for _, c := range r.Checks {
		switch c.Status {
		case StatusPass:
			r.Summary.Pass++
		case StatusWarn:
			r.Summary.Warn++
		case StatusFail:
			r.Summary.Fail++
		}
	}
	r.Status = StatusPass
	if r.Summary.Warn > 0 {
		r.Status = StatusWarn
	}
	if r.Summary.Fail > 0 {
		r.Status = StatusFail
	}
}

func checkDetectors(cfg *config.Config) []CheckResult {
	var results []CheckResult

	scanner, err := classifier.NewScanner(
		classifier.WithPatternFile(cfg.PatternFile),
		classifier.WithEnabledEntities(cfg.EnabledEntities),
		classifier.WithDisabledEntities(cfg.DisabledEntities),
	)
	switch {
	case err != nil:
		results = append(results, CheckResult{
			Name: "patterns", Category: "detectors", Status: StatusFail,
			Message: err.Error(),
			Fix:     "Check the YAML in pattern_file",
		})
	case len(scanner.Categories()) == 0:
		results = append(results, CheckResult{
			Name: "patterns", Category: "detectors", Status: StatusWarn,
			Message: "No pattern recognizers left after entity filters",
			Fix:     "Review enabled_entities and disabled_entities",
		})
	default:
		source := "built-in"
		if cfg.PatternFile != "" {
			source = "built-in + " + cfg.PatternFile
		}
		results = append(results, CheckResult{
			Name: "patterns", Category: "detectors", Status: StatusPass,
			Message: fmt.Sprintf("%s (%d categories)", source, len(scanner.Categories())),
		})
	}

	names, err := patterns.DefaultNames()
	if err != nil {
		results = append(results, CheckResult{
			Name: "name_dictionaries", Category: "detectors", Status: StatusFail,
			Message: err.Error(),
		})
	} else {
		results = append(results, CheckResult{
			Name: "name_dictionaries", Category: "detectors", Status: StatusPass,
			Message: fmt.Sprintf("%d given, %d family", len(names.Given), len(names.Family)),
		})
	}
	return results
}

func checkUpstreams(ctx context.Context, cfg *config.Config, client *http.Client, skip bool) []CheckResult {
	var results []CheckResult
	if cfg.LLMModel != "" {
		if cfg.LLMAPIKey == "" {
			results = append(results, CheckResult{
				Name: "llm_key", Category: "upstream", Status: StatusFail,
				Message: "llm_model is set but no API key was found",
				Fix:     "Set SANITIZER_LLM_API_KEY or OPENAI_API_KEY",
			})
		} else {
			results = append(results, CheckResult{
				Name: "llm_key", Category: "upstream", Status: StatusPass, Message: "Configured",
			})
		}
	}
	if skip {
		return results
	}
	if cfg.NERURL != "" {
		results = append(results, probe(ctx, client, "presidio", strings.TrimRight(cfg.NERURL, "/")+"/health", "")...)
	}
	if cfg.LLMModel != "" && cfg.LLMAPIKey != "" {
		base := strings.TrimSuffix(strings.TrimRight(cfg.LLMBaseURL, "/"), "/v1")
		results = append(results, probe(ctx, client, "llm", base+"/v1/models", cfg.LLMAPIKey)...)
	}
	return results
}

// probe issues a GET and reports reachability and latency. Any status
// below 500 counts as reachable.
func probe(ctx context.Context, client *http.Client, name, url, bearer string) []CheckResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return []CheckResult{{
			Name: name + "_reachable", Category: "upstream", Status: StatusFail,
			Message: fmt.Sprintf("Invalid URL: %v", err),
		}}
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	start := time.Now()
	resp, err := client.Do(req) //nolint:gosec // URL from operator config
	latency := time.Since(start)
	if err != nil {
		return []CheckResult{{
			Name: name + "_reachable", Category: "upstream", Status: StatusFail,
			Message: fmt.Sprintf("Connection failed: %v", err),
			Fix:     "Check network connectivity and the configured URL",
		}}
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return []CheckResult{{
			Name: name + "_reachable", Category: "upstream", Status: StatusFail,
			Message: fmt.Sprintf("GET %s returned %d", url, resp.StatusCode),
		}}
	}

	results := []CheckResult{{
		Name: name + "_reachable", Category: "upstream", Status: StatusPass,
		Message: fmt.Sprintf("%s (%d, %dms)", url, resp.StatusCode, latency.Milliseconds()),
	}}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		results[0].Status = StatusWarn
		results[0].Fix = "The API rejected the configured key"
	}
	if latency > 2*time.Second {
		results = append(results, CheckResult{
			Name: name + "_latency", Category: "upstream", Status: StatusWarn,
			Message: fmt.Sprintf("%.1fs (> 2s threshold), every string field waits on this detector", latency.Seconds()),
		})
	}
	return results
}

func checkLedger(ctx context.Context, cfg *config.Config) []CheckResult {
	if !cfg.Ledger {
		return []CheckResult{{
			Name: "ledger", Category: "ledger", Status: StatusPass, Message: "Disabled",
		}}
	}
	var results []CheckResult

	if err := cfg.EnsureDataDir(); err != nil {
		return []CheckResult{{
			Name: "data_dir_writable", Category: "ledger", Status: StatusFail,
			Message: fmt.Sprintf("%s: %v", cfg.DataDir, err),
			Fix:     "Ensure the directory exists and is writable",
		}}
	}
	testFile := filepath.Join(cfg.DataDir, ".doctor-write-test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return []CheckResult{{
			Name: "data_dir_writable", Category: "ledger", Status: StatusFail,
			Message: fmt.Sprintf("%s not writable: %v", cfg.DataDir, err),
		}}
	}
	_ = os.Remove(testFile)
	results = append(results, CheckResult{
		Name: "data_dir_writable", Category: "ledger", Status: StatusPass,
		Message: fmt.Sprintf("%s (writable)", cfg.DataDir),
	})

	if cfg.UsingDefaultSigningKey() {
		results = append(results, CheckResult{
			Name: "signing_key", Category: "ledger", Status: StatusWarn,
			Message: "Using generated default", Fix: "Set SANITIZER_SIGNING_KEY for production",
		})
	} else {
		results = append(results, CheckResult{
			Name: "signing_key", Category: "ledger", Status: StatusPass, Message: "Configured",
		})
	}

	store, err := ledger.Open(cfg.LedgerDBPath(), cfg.SigningKey)
	if err != nil {
		return append(results, CheckResult{
			Name: "ledger_db", Category: "ledger", Status: StatusFail, Message: err.Error(),
		})
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	count, err := store.Count(ctx)
	if err != nil {
		return append(results, CheckResult{
			Name: "ledger_db", Category: "ledger", Status: StatusFail, Message: err.Error(),
		})
	}
	size := "unknown"
	if fi, statErr := os.Stat(cfg.LedgerDBPath()); statErr == nil {
		size = fmt.Sprintf("%.1f MB", float64(fi.Size())/(1024*1024))
	}
	return append(results, CheckResult{
		Name: "ledger_db", Category: "ledger", Status: StatusPass,
		Message: fmt.Sprintf("%s (%d runs, %s)", cfg.LedgerDBPath(), count, size),
	})
}
