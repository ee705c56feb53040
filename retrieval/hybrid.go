package retrieval

import "context"

// HybridStages bundles the two recall stages a hybrid pipeline fuses.
// Graph may be nil for a vector-only pipeline.
type HybridStages struct {
	Vector *VectorRetrieverStage
	Graph  *GraphRetrieverStage
}

// NewHybridPipeline wires the standard vector+graph retrieval pipeline:
// recall (vector always, then graph if supplied, run one after the
// other within a single stage) merged by fusion,
// reweighted by detected intent, reranked by semantic overlap, and
// finally filtered for diversity. Callers that need a different stage
// order or a subset of stages should build a Pipeline directly instead.
func NewHybridPipeline(name string, stages HybridStages, fusion *FusionStage, intent *IntentAdaptiveStage, rerank *SemanticRerankStage, diversity *DiversityFilterStage, opts ...Option) *Pipeline {
	p := NewPipeline(name, opts...)

	if stages.Graph != nil {
		p.AddStage(&parallelRecallStage{vector: stages.Vector, graph: stages.Graph})
	} else {
		p.AddStage(stages.Vector)
	}
	if fusion != nil {
		p.AddStage(fusion)
	}
	if intent != nil {
		p.AddStage(intent)
	}
	if rerank != nil {
		p.AddStage(rerank)
	}
	if diversity != nil {
		p.AddStage(diversity)
	}
	return p
}

// parallelRecallStage runs the vector and graph retrievers independently
// against the same query and concatenates their results, leaving
// deduplication and score combination to a following FusionStage.
type parallelRecallStage struct {
	vector *VectorRetrieverStage
	graph  *GraphRetrieverStage
}

func (s *parallelRecallStage) Name() string { return "ParallelRecall" }

func (s *parallelRecallStage) Process(ctx context.Context, previous []Result, ec *ExecContext) ([]Result, error) {
	vectorResults, err := s.vector.Process(ctx, previous, ec)
	if err != nil {
		vectorResults = []Result{}
	}
	graphResults, err := s.graph.Process(ctx, previous, ec)
	if err != nil {
		graphResults = []Result{}
	}
	return append(vectorResults, graphResults...), nil
}
