package retrieval

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/windlass-ai/retrievalkit/retrieval"

// Metrics holds the OpenTelemetry instruments a Pipeline records against
// while running stages. A nil *Metrics is valid and simply records
// nothing, so a Pipeline built without WithMeter pays no instrument cost.
type Metrics struct {
	stageRequests    metric.Int64Counter
	stageErrors      metric.Int64Counter
	stageDuration    metric.Float64Histogram
	resultsReturned  metric.Int64Histogram
	pipelineDuration metric.Float64Histogram
	tracer           trace.Tracer
}

// NewMetrics registers the retrieval package's instruments against meter.
// If tracer is nil, a tracer is obtained from the global otel provider
// under this package's instrumentation name.
func NewMetrics(meter metric.Meter, tracer trace.Tracer) (*Metrics, error) {
	stageRequests, err := meter.Int64Counter(
		"retrieval.stage.requests",
		metric.WithDescription("Number of times a pipeline stage's Process was invoked"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	stageErrors, err := meter.Int64Counter(
		"retrieval.stage.errors",
		metric.WithDescription("Number of stage Process calls that returned an error or panicked"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"retrieval.stage.duration",
		metric.WithDescription("Duration of a single stage's Process call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	resultsReturned, err := meter.Int64Histogram(
		"retrieval.stage.results_returned",
		metric.WithDescription("Number of results a stage returned"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, err
	}

	pipelineDuration, err := meter.Float64Histogram(
		"retrieval.pipeline.duration",
		metric.WithDescription("Duration of a full pipeline Execute call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	return &Metrics{
		stageRequests:    stageRequests,
		stageErrors:      stageErrors,
		stageDuration:    stageDuration,
		resultsReturned:  resultsReturned,
		pipelineDuration: pipelineDuration,
		tracer:           tracer,
	}, nil
}

// RecordStage records the outcome of one stage's Process call.
func (m *Metrics) RecordStage(ctx context.Context, pipeline, stage string, dur time.Duration, resultCount int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("stage", stage),
	)
	m.stageRequests.Add(ctx, 1, attrs)
	m.stageDuration.Record(ctx, dur.Seconds(), attrs)
	m.resultsReturned.Record(ctx, int64(resultCount), attrs)
	if err != nil {
		m.stageErrors.Add(ctx, 1, attrs)
	}
}

// RecordPipeline records the outcome of a full Execute call.
func (m *Metrics) RecordPipeline(ctx context.Context, pipeline string, dur time.Duration) {
	if m == nil {
		return
	}
	m.pipelineDuration.Record(ctx, dur.Seconds(), metric.WithAttributes(attribute.String("pipeline", pipeline)))
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
	metricsInitMu sync.Mutex
)

// InitMetrics builds the package-level Metrics singleton from the given
// meter and tracer, the way a process wires up global instrumentation
// once at startup. Later calls are no-ops; use GetMetrics to read it back.
func InitMetrics(meter metric.Meter, tracer trace.Tracer) error {
	var err error
	metricsOnce.Do(func() {
		metricsInitMu.Lock()
		defer metricsInitMu.Unlock()
		globalMetrics, err = NewMetrics(meter, tracer)
	})
	return err
}

// GetMetrics returns the package-level Metrics singleton, or nil if
// InitMetrics was never called.
func GetMetrics() *Metrics {
	metricsInitMu.Lock()
	defer metricsInitMu.Unlock()
	return globalMetrics
}

// startStageSpan starts a span for one stage's Process call if tracing is
// enabled, returning the (possibly unmodified) context and a finish func
// that records the span's outcome. finish is always safe to call.
func startStageSpan(ctx context.Context, tracer trace.Tracer, pipeline, stage string, resultsIn int) (context.Context, func(resultsOut int, err error)) {
	if tracer == nil {
		return ctx, func(int, error) {}
	}
	ctx, span := tracer.Start(ctx, "retrieval.stage.process",
		trace.WithAttributes(
			attribute.String("pipeline", pipeline),
			attribute.String("stage", stage),
			attribute.Int("results_in", resultsIn),
		),
	)
	return ctx, func(resultsOut int, err error) {
		span.SetAttributes(attribute.Int("results_out", resultsOut))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
