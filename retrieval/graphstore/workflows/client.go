package workflows

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.temporal.io/sdk/client"
)

// Client starts graph ingestion workflows against a Temporal server.
type Client struct {
	temporal client.Client
	tracer   trace.Tracer
}

// NewClient wraps a Temporal client for graph ingestion. tracer may be nil,
// in which case a tracer is looked up from the global otel provider.
func NewClient(temporalClient client.Client, tracer trace.Tracer) *Client {
	if tracer == nil {
		tracer = otel.Tracer("github.com/windlass-ai/retrievalkit/retrieval/graphstore/workflows")
	}
	return &Client{temporal: temporalClient, tracer: tracer}
}

// StartIngest starts an asynchronous ingestion workflow run for batch and
// returns its workflow and run IDs without waiting for completion.
func (c *Client) StartIngest(ctx context.Context, workflowID string, batch Batch) (string, string, error) {
	ctx, span := c.tracer.Start(ctx, "graphstore.workflows.start_ingest", trace.WithAttributes(
		attribute.String("workflow.id", workflowID),
		attribute.Int("nodes", len(batch.Nodes)),
		attribute.Int("edges", len(batch.Edges)),
	))
	defer span.End()

	opts := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: TaskQueue,
	}
	run, err := c.temporal.ExecuteWorkflow(ctx, opts, IngestWorkflow, batch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", "", err
	}
	span.SetAttributes(attribute.String("workflow.run_id", run.GetRunID()))
	return run.GetID(), run.GetRunID(), nil
}

// AwaitIngest blocks until the workflow started as workflowID/runID
// completes and returns its result.
func (c *Client) AwaitIngest(ctx context.Context, workflowID, runID string) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "graphstore.workflows.await_ingest", trace.WithAttributes(
		attribute.String("workflow.id", workflowID),
		attribute.String("workflow.run_id", runID),
	))
	defer span.End()

	var res Result
	run := c.temporal.GetWorkflow(ctx, workflowID, runID)
	if err := run.Get(ctx, &res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	return res, nil
}
