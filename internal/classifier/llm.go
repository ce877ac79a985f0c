package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/trace"

	"github.com/2hard2touch/smart-data-sanitizer/internal/otel"
	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

const llmSystemPrompt = `You find personal data in text. Reply with a JSON array only, no prose.
Each element is {"text": "<exact substring>", "category": "<category>"} where category is one of:
email, phone, credit_card, full_name, given_name, family_name.
Copy every substring exactly as it appears. Reply [] when nothing is found.`

// llmScore is the confidence given to model findings.
const llmScore = 0.7

// LLMRecognizer asks an OpenAI-compatible chat model for PII substrings and
// locates them in the text itself, since models are unreliable with offsets.
type LLMRecognizer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewLLMRecognizer creates a recognizer. An empty baseURL uses the OpenAI
// API; otherwise baseURL is scheme+host and "/v1" is appended.
func NewLLMRecognizer(apiKey, baseURL, model string) *LLMRecognizer {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/v1") + "/v1"
	}
	return &LLMRecognizer{client: openai.NewClientWithConfig(config), model: model, timeout: 60 * time.Second}
}

type llmFinding struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Name implements pii.Detector.
func (l *LLMRecognizer) Name() string { return "llm" }

// Detect implements pii.Detector.
func (l *LLMRecognizer) Detect(ctx context.Context, text string, path pii.FieldPath) ([]pii.Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	ctx, span := tracer.Start(ctx, "classifier.llm",
		trace.WithAttributes(
			otel.GenAISystem.String("openai"),
			otel.GenAIRequestModel.String(l.model),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llmSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("llm api call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm api call: no choices returned")
	}
	span.SetAttributes(otel.GenAIUsageInputTokens.Int(resp.Usage.PromptTokens))

	var findings []llmFinding
	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &findings); err != nil {
		return nil, fmt.Errorf("llm: parsing findings: %w", err)
	}

	var out []pii.Match
	for _, f := range findings {
		category, ok := pii.ParseCategory(f.Category)
		if !ok || f.Text == "" {
			continue
		}
		for pos := 0; pos < len(text); {
			idx := strings.Index(text[pos:], f.Text)
			if idx < 0 {
				break
			}
			start := pos + idx
			out = append(out, pii.Match{
				Category:   category,
				Start:      start,
				End:        start + len(f.Text),
				Text:       f.Text,
				Path:       path,
				Confidence: llmScore,
				Detector:   l.Name(),
			})
			pos = start + len(f.Text)
		}
	}
	return out, nil
}

// stripCodeFence removes a surrounding ```json ... ``` block.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
