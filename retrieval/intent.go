package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/windlass-ai/retrievalkit/nlp"
)

// IntentStageName is the stage name recorded into metadata["stage"] by
// IntentAdaptiveStage.
const IntentStageName = "IntentAdaptive"

type weightAdjustment struct {
	vector float64
	graph  float64
}

var intentKeywords = map[string][]string{
	"factual":    {"what is", "definition", "meaning", "concept", "introduce", "是什么", "定义", "含义", "概念", "介绍"},
	"temporal":   {"when", "recently", "before", "history", "time", "什么时候", "何时", "最近", "之前", "历史", "时间"},
	"relational": {"relationship", "relation", "connection", "impact", "related", "cause", "关系", "联系", "影响", "相关", "关联", "导致"},
}

var intentWeights = map[string]weightAdjustment{
	"factual":    {vector: 1.2, graph: 0.8},
	"temporal":   {vector: 1.0, graph: 1.0},
	"relational": {vector: 0.8, graph: 1.2},
}

var defaultWeight = weightAdjustment{vector: 1.0, graph: 1.0}

// IntentAdaptiveStage classifies the query's intent (factual, temporal, or
// relational) and rescales each result's score according to whether it
// came from vector or graph retrieval, favoring the retrieval mode that
// best fits that intent.
type IntentAdaptiveStage struct {
	ner    nlp.NER
	logger *slog.Logger
}

// IntentOption configures an IntentAdaptiveStage.
type IntentOption func(*IntentAdaptiveStage)

// WithIntentNER supplies an entity extractor used as a fallback classifier
// when no keyword matches: a query with 3 or more entities is presumed
// relational.
func WithIntentNER(ner nlp.NER) IntentOption {
	return func(s *IntentAdaptiveStage) { s.ner = ner }
}

// WithIntentLogger overrides the stage's logger.
func WithIntentLogger(logger *slog.Logger) IntentOption {
	return func(s *IntentAdaptiveStage) { s.logger = logger }
}

// NewIntentAdaptiveStage constructs an IntentAdaptiveStage.
func NewIntentAdaptiveStage(opts ...IntentOption) *IntentAdaptiveStage {
	s := &IntentAdaptiveStage{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *IntentAdaptiveStage) Name() string { return IntentStageName }

func (s *IntentAdaptiveStage) Process(ctx context.Context, previous []Result, ec *ExecContext) ([]Result, error) {
	if len(previous) == 0 {
		return []Result{}, nil
	}

	intent := s.classifyIntent(ctx, ec.Query)
	ec.Set("detected_intent", intent)

	adj, ok := intentWeights[intent]
	if !ok {
		adj = defaultWeight
	}

	out := cloneResults(previous)
	for i := range out {
		sourceStage, _ := out[i].Metadata["source_stage"].(string)

		r := out[i]
		switch {
		case strings.Contains(sourceStage, "Vector"):
			r.Score *= adj.vector
			r = r.WithMetadata("intent_adjustment", adj.vector)
		case strings.Contains(sourceStage, "Graph"):
			r.Score *= adj.graph
			r = r.WithMetadata("intent_adjustment", adj.graph)
		}
		r = r.WithMetadata("detected_intent", intent)
		out[i] = r
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// classifyIntent applies keyword matching first, then falls back to
// entity-density detection (3 or more entities implies a relational
// query), and defaults to factual.
func (s *IntentAdaptiveStage) classifyIntent(ctx context.Context, query string) string {
	lower := strings.ToLower(query)
	for _, intent := range []string{"factual", "temporal", "relational"} {
		for _, kw := range intentKeywords[intent] {
			if strings.Contains(lower, kw) {
				return intent
			}
		}
	}

	if s.ner != nil {
		entities, err := s.ner.Extract(ctx, query)
		if err != nil {
			s.logger.WarnContext(ctx, "retrieval.intent.ner_failed", "error", err)
		} else if len(entities) >= 3 {
			return "relational"
		}
	}

	return "factual"
}
