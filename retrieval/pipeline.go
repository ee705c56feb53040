package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/windlass-ai/retrievalkit/core"
)

// Option configures a Pipeline at construction time.
type Option func(*pipelineConfig)

type pipelineConfig struct {
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *Metrics
	enableTracing bool
	enableMetrics bool
}

// WithLogger overrides the pipeline's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *pipelineConfig) { c.logger = logger }
}

// WithTracer enables per-stage span creation using the given tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *pipelineConfig) {
		c.tracer = tracer
		c.enableTracing = tracer != nil
	}
}

// WithMeter enables per-stage and per-execution metrics recorded against
// the given meter. The meter is used to build the package's Metrics
// instruments immediately; an error building them is swallowed and
// metrics are left disabled, since a pipeline must not fail to construct
// over an observability backend being unavailable.
func WithMeter(meter metric.Meter) Option {
	return func(c *pipelineConfig) {
		if meter == nil {
			return
		}
		m, err := NewMetrics(meter, c.tracer)
		if err != nil {
			return
		}
		c.metrics = m
		c.enableMetrics = true
	}
}

func applyOptions(opts ...Option) pipelineConfig {
	cfg := pipelineConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Pipeline is a named, ordered container of stages. It is the sole
// authority that constructs the per-execution context and controls stage
// ordering; stages themselves hold no state between calls. A Pipeline is
// safe for concurrent Execute calls.
type Pipeline struct {
	name          string
	stages        []Stage
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *Metrics
	enableTracing bool
	enableMetrics bool
}

// NewPipeline constructs an empty, named Pipeline.
func NewPipeline(name string, opts ...Option) *Pipeline {
	cfg := applyOptions(opts...)
	return &Pipeline{
		name:          name,
		logger:        cfg.logger,
		tracer:        cfg.tracer,
		metrics:       cfg.metrics,
		enableTracing: cfg.enableTracing,
		enableMetrics: cfg.enableMetrics,
	}
}

// AddStage appends a stage and returns the Pipeline to permit chaining.
func (p *Pipeline) AddStage(s Stage) *Pipeline {
	p.stages = append(p.stages, s)
	return p
}

// Name returns the pipeline's name.
func (p *Pipeline) Name() string { return p.name }

// StageNames returns the names of every stage in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Execute runs every stage in order, starting from no previous results,
// and returns at most topK results. A whitespace-only query or an empty
// stage list returns an empty result immediately — these are
// input-invalid and configuration-fatal conditions respectively, and the
// pipeline is a funnel: they never raise.
//
// A stage's error is logged and treated as a no-op: the result list from
// the previous stage is preserved unchanged (or initialized empty if this
// was the first stage). A panicking stage is recovered and handled the
// same way, since the pipeline's funnel guarantee must hold regardless of
// how a stage fails.
func (p *Pipeline) Execute(ctx context.Context, query string, topK int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return []Result{}, nil
	}
	if len(p.stages) == 0 {
		p.logger.WarnContext(ctx, "retrieval.pipeline.no_stages", "pipeline", p.name)
		return []Result{}, nil
	}
	if topK <= 0 {
		return []Result{}, nil
	}

	reqID := core.GetRequestID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ec := newExecContext(query, topK, p.name, reqID)

	start := time.Now()
	var results []Result
	for _, stage := range p.stages {
		results = p.runStage(ctx, stage, results, ec)
	}
	if p.enableMetrics {
		p.metrics.RecordPipeline(ctx, p.name, time.Since(start))
	}

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, previous []Result, ec *ExecContext) (out []Result) {
	out = previous

	var finishSpan func(int, error)
	if p.enableTracing {
		ctx, finishSpan = startStageSpan(ctx, p.tracer, p.name, stage.Name(), len(previous))
	} else {
		finishSpan = func(int, error) {}
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("stage panic: %v", r)
			p.logger.ErrorContext(ctx, "retrieval.pipeline.stage_panic",
				"pipeline", p.name, "stage", stage.Name(), "panic", fmt.Sprint(r))
			out = ensureNonNil(previous)
			if p.enableMetrics {
				p.metrics.RecordStage(ctx, p.name, stage.Name(), time.Since(start), len(out), err)
			}
			finishSpan(len(out), err)
		}
	}()

	next, err := stage.Process(ctx, previous, ec)
	if err != nil {
		p.logger.ErrorContext(ctx, "retrieval.pipeline.stage_error",
			"pipeline", p.name, "stage", stage.Name(), "error", err)
		next = ensureNonNil(previous)
	}
	if p.enableMetrics {
		p.metrics.RecordStage(ctx, p.name, stage.Name(), time.Since(start), len(next), err)
	}
	finishSpan(len(next), err)
	return next
}

func ensureNonNil(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	return results
}
