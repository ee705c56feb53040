// Package workflows runs bulk graph ingestion as a durable Temporal
// workflow, batching UpsertNode/UpsertEdge calls outside the request path.
package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/windlass-ai/retrievalkit/retrieval/graphstore"
)

const (
	// TaskQueue is the Temporal task queue ingestion workers poll.
	TaskQueue = "retrievalkit-graph-ingest"

	// IngestWorkflowName is registered with the Temporal worker under this name.
	IngestWorkflowName = "GraphIngestWorkflow"
)

// Batch is the unit of work a single ingestion workflow run processes.
type Batch struct {
	Nodes []graphstore.Node
	Edges []graphstore.Edge
}

// Result reports how many nodes and edges a workflow run upserted.
type Result struct {
	NodesUpserted int
	EdgesUpserted int
}

// Activities binds the GraphStore an ingestion worker writes to. Register
// its methods with a Temporal worker alongside IngestWorkflow.
type Activities struct {
	Store graphstore.GraphStore
}

// UpsertNodesActivity upserts every node in the batch, failing fast on the
// first error so the workflow can retry the whole activity.
func (a *Activities) UpsertNodesActivity(ctx context.Context, nodes []graphstore.Node) (int, error) {
	logger := activity.GetLogger(ctx)
	for i, n := range nodes {
		if err := a.Store.UpsertNode(ctx, n); err != nil {
			return i, fmt.Errorf("workflows: upsert node %s: %w", n.ID, err)
		}
		activity.RecordHeartbeat(ctx, i+1)
	}
	logger.Info("graph_ingest.nodes_upserted", "count", len(nodes))
	return len(nodes), nil
}

// UpsertEdgesActivity upserts every edge in the batch.
func (a *Activities) UpsertEdgesActivity(ctx context.Context, edges []graphstore.Edge) (int, error) {
	logger := activity.GetLogger(ctx)
	for i, e := range edges {
		if err := a.Store.UpsertEdge(ctx, e); err != nil {
			return i, fmt.Errorf("workflows: upsert edge %s->%s: %w", e.From, e.To, err)
		}
		activity.RecordHeartbeat(ctx, i+1)
	}
	logger.Info("graph_ingest.edges_upserted", "count", len(edges))
	return len(edges), nil
}

var activityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 5 * time.Minute,
	HeartbeatTimeout:    30 * time.Second,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    time.Minute,
		MaximumAttempts:    5,
	},
}

// IngestWorkflow upserts batch.Nodes, then batch.Edges (edges reference
// nodes, so nodes must land first), each as its own retryable activity.
func IngestWorkflow(ctx workflow.Context, batch Batch) (Result, error) {
	ctx = workflow.WithActivityOptions(ctx, activityOptions)
	var a *Activities

	var res Result
	if len(batch.Nodes) > 0 {
		if err := workflow.ExecuteActivity(ctx, a.UpsertNodesActivity, batch.Nodes).Get(ctx, &res.NodesUpserted); err != nil {
			return res, fmt.Errorf("workflows: ingest nodes: %w", err)
		}
	}
	if len(batch.Edges) > 0 {
		if err := workflow.ExecuteActivity(ctx, a.UpsertEdgesActivity, batch.Edges).Get(ctx, &res.EdgesUpserted); err != nil {
			return res, fmt.Errorf("workflows: ingest edges: %w", err)
		}
	}
	return res, nil
}
