package retrieval

import (
	"context"
	"sync"
)

// ExecContext is the per-execution mutable state a Pipeline builds for a
// single Execute call and threads through every stage. It is never shared
// across executions.
type ExecContext struct {
	// Query is the original query text for this execution.
	Query string

	// TopK is the number of results the pipeline will truncate to.
	TopK int

	// PipelineName is the name of the owning pipeline.
	PipelineName string

	// RequestID identifies this execution for logging and tracing. It is
	// taken from the incoming context (core.GetRequestID) when present, and
	// generated otherwise.
	RequestID string

	mu     sync.Mutex
	values map[string]any
}

func newExecContext(query string, topK int, pipelineName, requestID string) *ExecContext {
	return &ExecContext{
		Query:        query,
		TopK:         topK,
		PipelineName: pipelineName,
		RequestID:    requestID,
		values:       make(map[string]any),
	}
}

// Set stores a stage-contributed value under key (e.g. "detected_intent").
func (c *ExecContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Get retrieves a value previously stored with Set.
func (c *ExecContext) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// Stage is a unit of work in the pipeline: it transforms the result list
// produced by the preceding stage. A Stage must be pure with respect to its
// inputs and whatever resources it was constructed with; it must return an
// empty slice rather than an error when it has nothing useful to do (e.g. no
// entities extracted), and reserve returned errors for conditions the
// pipeline should log and treat as a no-op for this stage.
type Stage interface {
	// Name identifies the stage, recorded into result metadata by stages
	// that annotate provenance (e.g. "VectorRetrieval", "Fusion").
	Name() string

	// Process transforms previous into a new result list. previous is nil
	// on the first stage of a pipeline.
	Process(ctx context.Context, previous []Result, ec *ExecContext) ([]Result, error)
}
