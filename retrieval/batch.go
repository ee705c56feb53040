package retrieval

import (
	"context"

	"github.com/windlass-ai/retrievalkit/core"
)

// ExecuteBatch runs the pipeline once per query, honoring opts.MaxConcurrency
// (core.BatchInvoke caps in-flight executions; Execute is otherwise safe for
// concurrent calls). Results are returned in the same order as queries.
func (p *Pipeline) ExecuteBatch(ctx context.Context, queries []string, topK int, opts core.BatchOptions) []core.BatchResult[[]Result] {
	return core.BatchInvoke(ctx, func(ctx context.Context, q string) ([]Result, error) {
		return p.Execute(ctx, q, topK)
	}, queries, opts)
}
