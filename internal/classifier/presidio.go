package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2hard2touch/smart-data-sanitizer/internal/otel"
	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

// PresidioRecognizer calls a Presidio analyzer's /analyze endpoint. Presidio
// reports code-point offsets; they are converted to byte offsets here.
type PresidioRecognizer struct {
	url      string
	language string
	entities []string
	http     *http.Client
}

// PresidioOption configures a PresidioRecognizer.
type PresidioOption func(*PresidioRecognizer)

// WithPresidioHTTPClient replaces the default 10s-timeout client.
func WithPresidioHTTPClient(c *http.Client) PresidioOption {
	return func(p *PresidioRecognizer) { p.http = c }
}

// WithPresidioEntities restricts the entity types requested.
func WithPresidioEntities(entities []string) PresidioOption {
	return func(p *PresidioRecognizer) { p.entities = entities }
}

// NewPresidioRecognizer points at an analyzer base URL such as
// "http://presidio-analyzer:3000".
func NewPresidioRecognizer(baseURL string, opts ...PresidioOption) *PresidioRecognizer {
	p := &PresidioRecognizer{
		url:      strings.TrimRight(baseURL, "/") + "/analyze",
		language: "en",
		entities: []string{"PERSON", "EMAIL_ADDRESS", "PHONE_NUMBER", "CREDIT_CARD"},
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type analyzeRequest struct {
	Text     string   `json:"text"`
	Language string   `json:"language"`
	Entities []string `json:"entities,omitempty"`
}

type analyzeResult struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

// Name implements pii.Detector.
func (p *PresidioRecognizer) Name() string { return "presidio" }

// Detect implements pii.Detector. Transport and decoding failures are
// returned so the detector chain can isolate them to the current field.
func (p *PresidioRecognizer) Detect(ctx context.Context, text string, path pii.FieldPath) ([]pii.Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	ctx, span := tracer.Start(ctx, "classifier.presidio")
	defer span.End()

	body, err := json.Marshal(analyzeRequest{Text: text, Language: p.language, Entities: p.entities})
	if err != nil {
		return nil, fmt.Errorf("presidio: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("presidio: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("presidio: analyzer unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("presidio: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var results []analyzeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("presidio: decode: %w", err)
	}

	offsets := runeOffsets(text)
	out := make([]pii.Match, 0, len(results))
	for _, r := range results {
		category, ok := EntityCategory(r.EntityType)
		if !ok || r.Start < 0 || r.End <= r.Start || r.End >= len(offsets) {
			continue
		}
		start, end := offsets[r.Start], offsets[r.End]
		value := text[start:end]
		if category == pii.FullName && len(strings.Fields(value)) == 1 {
			category = pii.GivenName
		}
		out = append(out, pii.Match{
			Category:   category,
			Start:      start,
			End:        end,
			Text:       value,
			Path:       path,
			Confidence: r.Score,
			Detector:   p.Name(),
		})
	}
	span.SetAttributes(otel.DetectorName.String(p.Name()), otel.PIIMatchCount.Int(len(out)))
	return out, nil
}

// runeOffsets maps code-point index to byte offset; the final element is
// len(text).
func runeOffsets(text string) []int {
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}
