package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/windlass-ai/retrievalkit/llm"
	"github.com/windlass-ai/retrievalkit/schema"
)

// LLMNER extracts entities by prompting a chat model for structured JSON.
// It trades speed for precision and complex-entity handling that a
// surface heuristic cannot reach.
type LLMNER struct {
	model       llm.ChatModel
	temperature float64
	logger      *slog.Logger
}

// LLMNEROption configures an LLMNER.
type LLMNEROption func(*LLMNER)

// WithLLMNERTemperature overrides the sampling temperature. Defaults to 0.1.
func WithLLMNERTemperature(t float64) LLMNEROption {
	return func(n *LLMNER) { n.temperature = t }
}

// WithLLMNERLogger overrides the logger.
func WithLLMNERLogger(logger *slog.Logger) LLMNEROption {
	return func(n *LLMNER) { n.logger = logger }
}

// NewLLMNER constructs an LLMNER over model.
func NewLLMNER(model llm.ChatModel, opts ...LLMNEROption) *LLMNER {
	n := &LLMNER{model: model, temperature: 0.1, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type llmEntityRecord struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Score float64 `json:"score"`
}

func (n *LLMNER) Extract(ctx context.Context, text string) ([]Entity, error) {
	if text == "" {
		return nil, nil
	}

	prompt := fmt.Sprintf(`Extract key entities from the following text and return them as JSON.

Text: %s

Return format: [{"text": "entity", "type": "TYPE", "score": 0.95}]

Types: PERSON, LOCATION, ORGANIZATION, TOPIC, OTHER

Return only the JSON array, nothing else.`, text)

	msg, err := n.model.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)}, llm.WithTemperature(n.temperature))
	if err != nil {
		n.logger.ErrorContext(ctx, "nlp.llm_ner.generate_failed", "error", err)
		return nil, nil
	}

	content := strings.TrimSpace(msg.Text())
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var records []llmEntityRecord
	if err := json.Unmarshal([]byte(content), &records); err != nil {
		n.logger.ErrorContext(ctx, "nlp.llm_ner.parse_failed", "error", err)
		return nil, nil
	}

	entities := make([]Entity, 0, len(records))
	for _, r := range records {
		score := r.Score
		if score == 0 {
			score = 0.9
		}
		entities = append(entities, Entity{
			Text:     r.Text,
			Type:     EntityType(r.Type),
			Score:    score,
			Metadata: map[string]any{"method": "llm"},
		})
	}

	return dedupEntities(entities), nil
}
