// Package retrieval implements the hybrid retrieval pipeline: a composable,
// staged execution model that recalls from a vector index and a property
// graph, fuses their scores, adapts weights to query intent, reranks by
// semantic overlap, and filters for diversity.
package retrieval

// Source tags where a RetrievalResult originated. The set is closed:
// callers should not invent new values.
type Source string

const (
	SourceVector        Source = "vector"
	SourceGraph         Source = "graph"
	SourceGraphExpanded Source = "graph_expanded"
	SourceFused         Source = "fused"
	SourceUnknown       Source = "unknown"
)

// Result is one hit produced by a retriever or transformed by a stage.
// Content may be empty until hydrated from a document store. Score is a
// finite, non-negative real; it is not bounded to [0,1] once stages like
// Fusion have combined multiple sources. Metadata keys are unique within a
// single Result; by convention `doc_id` identifies the underlying document
// when known, and `source_stage` records the name of the stage that first
// produced this result (written once, never overwritten — see FusionStage
// for why `stage` itself cannot serve as a stable partition key).
//
// A Result is owned by whichever stage currently holds it in a pipeline
// execution; stages must not mutate a Result they did not produce except by
// returning a new slice (the pipeline transfers ownership stage to stage).
type Result struct {
	Content  string
	Metadata map[string]any
	Score    float64
	Source   Source
}

// DocID returns metadata["doc_id"] as a string, or "" if unset.
func (r Result) DocID() string {
	if r.Metadata == nil {
		return ""
	}
	id, _ := r.Metadata["doc_id"].(string)
	return id
}

// WithMetadata returns a copy of r with key set to value in its metadata.
// The original Metadata map is not mutated.
func (r Result) WithMetadata(key string, value any) Result {
	m := make(map[string]any, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		m[k] = v
	}
	m[key] = value
	r.Metadata = m
	return r
}

// cloneResults returns a shallow copy of the slice so a stage can mutate
// entries without affecting the caller's slice header, without deep-copying
// every Metadata map.
func cloneResults(in []Result) []Result {
	out := make([]Result, len(in))
	copy(out, in)
	return out
}
