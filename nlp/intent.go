package nlp

import (
	"context"
	"strings"

	"github.com/windlass-ai/retrievalkit/inference"
	"github.com/windlass-ai/retrievalkit/llm"
	"github.com/windlass-ai/retrievalkit/schema"
)

// IntentClassifier is a general-purpose query-intent classifier built on
// the cascade inference engine: a cheap rule pass, an optional fast-model
// pass, and an LLM pass as the accurate fallback. Unlike the retrieval
// pipeline's IntentAdaptiveStage (a fixed two-step rule used only to
// reweight vector/graph scores), this classifier escalates through all
// three levels and returns whichever confidence-qualifying level answers.
type IntentClassifier struct {
	engine *inference.Engine
}

// IntentClassifierOption configures an IntentClassifier.
type IntentClassifierOption func(*classifierBuild)

type classifierBuild struct {
	fastModelFn inference.InferFunc
	model       llm.ChatModel
	threshold   float64
}

// WithFastModelLevel installs a fast-model level between the rule level
// and the LLM level.
func WithFastModelLevel(fn inference.InferFunc) IntentClassifierOption {
	return func(b *classifierBuild) { b.fastModelFn = fn }
}

// WithLLMLevel installs an LLM level as the final fallback.
func WithLLMLevel(model llm.ChatModel) IntentClassifierOption {
	return func(b *classifierBuild) { b.model = model }
}

// WithClassifierThreshold sets the cascade confidence threshold. Defaults
// to 0.7.
func WithClassifierThreshold(t float64) IntentClassifierOption {
	return func(b *classifierBuild) { b.threshold = t }
}

var ruleIntentKeywords = map[string][]string{
	"factual":    {"what is", "definition", "meaning", "concept", "introduce", "是什么", "定义", "含义", "概念", "介绍"},
	"temporal":   {"when", "recently", "before", "history", "time", "什么时候", "何时", "最近", "之前", "历史", "时间"},
	"relational": {"relationship", "relation", "connection", "impact", "related", "cause", "关系", "联系", "影响", "相关", "关联", "导致"},
}

// NewIntentClassifier builds an IntentClassifier. The rule level always
// runs first; fast-model and LLM levels are added only if supplied via
// options.
func NewIntentClassifier(opts ...IntentClassifierOption) *IntentClassifier {
	build := classifierBuild{threshold: 0.7}
	for _, opt := range opts {
		opt(&build)
	}

	levels := []inference.LevelDef{
		{Name: inference.LevelRule, Fn: ruleIntentLevel},
	}
	if build.fastModelFn != nil {
		levels = append(levels, inference.LevelDef{Name: inference.LevelFastModel, Fn: build.fastModelFn})
	}
	if build.model != nil {
		levels = append(levels, inference.LevelDef{Name: inference.LevelLLM, Fn: llmIntentLevel(build.model)})
	}

	engine := inference.NewEngine(levels, inference.WithThreshold(build.threshold))
	return &IntentClassifier{engine: engine}
}

// Classify returns the classifier's best guess at query's intent
// (factual, temporal, or relational) along with the confidence and level
// that produced it.
func (c *IntentClassifier) Classify(ctx context.Context, query string) (inference.InferenceResult, error) {
	return c.engine.Infer(ctx, query)
}

func ruleIntentLevel(ctx context.Context, input string) (inference.InferenceResult, error) {
	lower := strings.ToLower(input)
	for _, intent := range []string{"factual", "temporal", "relational"} {
		for _, kw := range ruleIntentKeywords[intent] {
			if strings.Contains(lower, kw) {
				return inference.InferenceResult{
					Value:      intent,
					Confidence: 0.9,
					Level:      inference.LevelRule,
				}, nil
			}
		}
	}
	return inference.InferenceResult{
		Value:      "factual",
		Confidence: 0.4,
		Level:      inference.LevelRule,
	}, nil
}

func llmIntentLevel(model llm.ChatModel) inference.InferFunc {
	return func(ctx context.Context, input string) (inference.InferenceResult, error) {
		prompt := "Classify the intent of this query as exactly one word: factual, temporal, or relational.\n\nQuery: " + input
		msg, err := model.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)}, llm.WithTemperature(0.1))
		if err != nil {
			return inference.InferenceResult{}, err
		}

		intent := strings.ToLower(strings.TrimSpace(msg.Text()))
		switch {
		case strings.Contains(intent, "relational"):
			intent = "relational"
		case strings.Contains(intent, "temporal"):
			intent = "temporal"
		default:
			intent = "factual"
		}

		return inference.InferenceResult{
			Value:      intent,
			Confidence: 0.95,
			Level:      inference.LevelLLM,
		}, nil
	}
}
