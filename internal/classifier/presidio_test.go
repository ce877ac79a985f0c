package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

func TestPresidioRecognizerDetect(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "en", req.Language)
		assert.Equal(t, "Zoë Smith met Ann at zoe@example.com", req.Text)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]analyzeResult{
			{EntityType: "PERSON", Start: 0, End: 9, Score: 0.85},
			{EntityType: "PERSON", Start: 14, End: 17, Score: 0.8},
			{EntityType: "EMAIL_ADDRESS", Start: 21, End: 36, Score: 1.0},
			{EntityType: "LOCATION", Start: 0, End: 3, Score: 0.9},
			{EntityType: "PERSON", Start: 30, End: 99, Score: 0.9},
		})
	}))
	defer ts.Close()

	text := "Zoë Smith met Ann at zoe@example.com"
	p := NewPresidioRecognizer(ts.URL + "/")
	matches, err := p.Detect(context.Background(), text, testPath)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, pii.FullName, matches[0].Category)
	assert.Equal(t, "Zoë Smith", matches[0].Text)
	assert.Equal(t, 10, matches[0].End, "code-point offsets become byte offsets")

	assert.Equal(t, pii.GivenName, matches[1].Category, "single-word person is a given name")
	assert.Equal(t, "Ann", matches[1].Text)

	assert.Equal(t, pii.Email, matches[2].Category)
	assert.Equal(t, "zoe@example.com", text[matches[2].Start:matches[2].End])
}

func TestPresidioRecognizerFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := NewPresidioRecognizer(ts.URL).Detect(context.Background(), "Jane Smith", testPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	_, err = NewPresidioRecognizer(closed.URL).Detect(context.Background(), "Jane Smith", testPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestPresidioRecognizerSkipsBlank(t *testing.T) {
	p := NewPresidioRecognizer("http://127.0.0.1:1")
	matches, err := p.Detect(context.Background(), "   ", testPath)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
