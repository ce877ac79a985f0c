package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2hard2touch/smart-data-sanitizer/internal/classifier"
	"github.com/2hard2touch/smart-data-sanitizer/internal/ledger"
	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
	"github.com/2hard2touch/smart-data-sanitizer/internal/sanitizer"
	"github.com/2hard2touch/smart-data-sanitizer/internal/synth"
)

const (
	testKey        = "test-api-key"
	testSigningKey = "test-signing-key-1234567890123456"
	contactRecord  = `[{"id":1,"name":"John Doe","email":"john.doe@example.com","phone":"+1-555-123-4567","status":"active"}]`
)

func newTestSanitizer(t *testing.T) *sanitizer.Sanitizer {
	t.Helper()
	gen, err := synth.New(synth.WithSeed(7))
	require.NoError(t, err)
	names, err := classifier.DefaultNameRecognizer()
	require.NoError(t, err)
	s, err := sanitizer.New(gen, []pii.Detector{classifier.MustNewScanner(), names}, sanitizer.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return s
}

func newTestHandler(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	return NewServer(newTestSanitizer(t), []string{testKey}, opts...).Routes()
}

func do(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var authed = map[string]string{KeyHeader: testKey}

func TestHealthEndpoint(t *testing.T) {
	rec := do(newTestHandler(t), http.MethodGet, "/health?detail=true", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
	components := out["components"].(map[string]interface{})
	assert.Equal(t, "disabled", components["ledger"])
	assert.Equal(t, []interface{}{"pattern", "names"}, components["detectors"])
}

func TestSanitizeEndpoint(t *testing.T) {
	rec := do(newTestHandler(t), http.MethodPost, "/v1/sanitize", contactRecord, authed)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		RunID    string                   `json:"run_id"`
		Document []map[string]interface{} `json:"document"`
		Summary  sanitizer.Summary        `json:"summary"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.NotEmpty(t, out.RunID)
	require.Len(t, out.Document, 1)
	assert.Equal(t, float64(1), out.Document[0]["id"])
	assert.Equal(t, "active", out.Document[0]["status"])
	assert.NotEqual(t, "john.doe@example.com", out.Document[0]["email"])
	assert.Equal(t, 1, out.Summary.RecordsProcessed)
	assert.Equal(t, 3, out.Summary.FieldsWithPII)
	assert.Equal(t, 3, out.Summary.ReplacementsMade)
	assert.NotContains(t, rec.Body.String(), "John Doe")
}

func TestSanitizeEndpointBearerAuth(t *testing.T) {
	rec := do(newTestHandler(t), http.MethodPost, "/v1/sanitize", `[]`,
		map[string]string{"Authorization": "Bearer " + testKey})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSanitizeEndpointErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		headers map[string]string
		opts    []Option
		status  int
		code    string
	}{
		{name: "missing key", body: `[]`, status: http.StatusUnauthorized, code: "unauthorized"},
		{name: "wrong key", body: `[]`, headers: map[string]string{KeyHeader: "nope"}, status: http.StatusUnauthorized, code: "unauthorized"},
		{name: "malformed json", body: `[{"a":}]`, headers: authed, status: http.StatusBadRequest, code: "invalid_document"},
		{name: "not an array", body: `{"a":1}`, headers: authed, status: http.StatusBadRequest, code: "invalid_document"},
		{name: "too large", body: contactRecord, headers: authed, opts: []Option{WithMaxBodyBytes(16)}, status: http.StatusRequestEntityTooLarge, code: "too_large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newTestHandler(t, tt.opts...), http.MethodPost, "/v1/sanitize", tt.body, tt.headers)
			assert.Equal(t, tt.status, rec.Code)
			var out map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
			assert.Equal(t, tt.code, out["error"])
		})
	}
}

func TestOpenAPIWithoutKeys(t *testing.T) {
	h := NewServer(newTestSanitizer(t), nil).Routes()
	rec := do(h, http.MethodPost, "/v1/sanitize", `[]`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScanEndpoint(t *testing.T) {
	rec := do(newTestHandler(t), http.MethodPost, "/v1/scan", contactRecord, authed)
	require.Equal(t, http.StatusOK, rec.Code)

	var report sanitizer.ScanReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, 1, report.RecordsScanned)
	assert.Len(t, report.Findings, 3)
	assert.NotContains(t, rec.Body.String(), "john.doe@example.com")
}

func TestRateLimit(t *testing.T) {
	h := newTestHandler(t, WithRateLimiter(NewRateLimiter(1)))
	first := do(h, http.MethodPost, "/v1/sanitize", `[]`, authed)
	assert.Equal(t, http.StatusOK, first.Code)

	second := do(h, http.MethodPost, "/v1/sanitize", `[]`, authed)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
}

func TestRateLimiterPerCaller(t *testing.T) {
	rl := NewRateLimiter(1)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestLedgerEndpoints(t *testing.T) {
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"), testSigningKey)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	h := newTestHandler(t, WithLedger(store))

	rec := do(h, http.MethodPost, "/v1/sanitize", contactRecord, authed)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		LedgerID string `json:"ledger_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.NotEmpty(t, out.LedgerID)

	list := do(h, http.MethodGet, "/v1/runs?source=api", "", authed)
	require.Equal(t, http.StatusOK, list.Code)
	var runs struct {
		Runs  []ledger.Record `json:"runs"`
		Count int             `json:"count"`
	}
	require.NoError(t, json.NewDecoder(list.Body).Decode(&runs))
	require.Equal(t, 1, runs.Count)
	assert.Equal(t, out.LedgerID, runs.Runs[0].ID)
	assert.Equal(t, 3, runs.Runs[0].Summary.ReplacementsMade)

	verify := do(h, http.MethodGet, "/v1/runs/"+out.LedgerID+"/verify", "", authed)
	require.Equal(t, http.StatusOK, verify.Code)
	assert.Contains(t, verify.Body.String(), `"valid":true`)

	missing := do(h, http.MethodGet, "/v1/runs/run_nope/verify", "", authed)
	assert.Equal(t, http.StatusNotFound, missing.Code)

	bad := do(h, http.MethodGet, "/v1/runs?limit=x", "", authed)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestRunsRouteRequiresLedger(t *testing.T) {
	rec := do(newTestHandler(t), http.MethodGet, "/v1/runs", "", authed)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
