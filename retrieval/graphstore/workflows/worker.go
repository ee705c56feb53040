package workflows

import (
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/windlass-ai/retrievalkit/retrieval/graphstore"
)

// RegisterWorker registers IngestWorkflow and its activities, bound to
// store, with w. Call before w.Run.
func RegisterWorker(w worker.Worker, store graphstore.GraphStore) {
	w.RegisterWorkflowWithOptions(IngestWorkflow, workflow.RegisterOptions{Name: IngestWorkflowName})
	a := &Activities{Store: store}
	w.RegisterActivity(a.UpsertNodesActivity)
	w.RegisterActivity(a.UpsertEdgesActivity)
}
