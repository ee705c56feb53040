package retrieval

import (
	"context"
	"fmt"
	"iter"

	"github.com/google/uuid"

	"github.com/windlass-ai/retrievalkit/core"
)

// query bundles the Invoke/Stream input a Pipeline expects: a plain string
// is also accepted, defaulting TopK to defaultInvokeTopK.
type query struct {
	Text  string
	TopK  int
}

const defaultInvokeTopK = 10

func asQuery(input any) (query, error) {
	switch v := input.(type) {
	case query:
		return v, nil
	case string:
		return query{Text: v, TopK: defaultInvokeTopK}, nil
	default:
		return query{}, fmt.Errorf("retrieval: unsupported Runnable input type %T, want string or retrieval.query", input)
	}
}

// Invoke runs the pipeline once and returns its []Result as an any, so that
// Pipeline satisfies core.Runnable alongside every other executable
// component (LLMs, tools, agents) in the framework.
func (p *Pipeline) Invoke(ctx context.Context, input any, _ ...core.Option) (any, error) {
	q, err := asQuery(input)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, q.Text, q.TopK)
}

// StageEvent is emitted once per completed stage by Stream, carrying the
// cumulative result list immediately after that stage ran.
type StageEvent struct {
	Stage   string
	Results []Result
}

// Stream runs the pipeline stage by stage, yielding a core.Event after each
// stage completes so a caller (e.g. a websocket handler) can observe
// intermediate progress instead of waiting for the full Execute call.
func (p *Pipeline) Stream(ctx context.Context, input any, _ ...core.Option) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		q, err := asQuery(input)
		if err != nil {
			yield(nil, err)
			return
		}
		for ev, err := range p.streamEvents(ctx, q.Text, q.TopK) {
			if !yield(ev, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

func (p *Pipeline) streamEvents(ctx context.Context, q string, topK int) core.Stream[StageEvent] {
	return func(yield func(core.Event[StageEvent], error) bool) {
		if len(p.stages) == 0 || topK <= 0 {
			yield(core.Event[StageEvent]{Type: core.EventDone}, nil)
			return
		}

		reqID := core.GetRequestID(ctx)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ec := newExecContext(q, topK, p.name, reqID)

		var results []Result
		for _, stage := range p.stages {
			results = p.runStage(ctx, stage, results, ec)
			out := results
			if len(out) > topK {
				out = out[:topK]
			}
			if !yield(core.Event[StageEvent]{
				Type:    core.EventData,
				Payload: StageEvent{Stage: stage.Name(), Results: out},
				Meta:    map[string]any{"request_id": ec.RequestID},
			}, nil) {
				return
			}
		}
		yield(core.Event[StageEvent]{Type: core.EventDone}, nil)
	}
}

var _ core.Runnable = (*Pipeline)(nil)
