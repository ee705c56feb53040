package inference

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

const instrumentationName = "github.com/windlass-ai/retrievalkit/inference"

// Metrics holds the OpenTelemetry instruments an Engine records against
// while running levels. A nil *Metrics records nothing.
type Metrics struct {
	inferRequests  metric.Int64Counter
	levelDispatch  metric.Int64Counter
	levelFailures  metric.Int64Counter
	inferDuration  metric.Float64Histogram
	confidence     metric.Float64Histogram
	cacheHits      metric.Int64Counter
	tracer         trace.Tracer
}

// NewMetrics registers the inference package's instruments against meter.
// If tracer is nil, a tracer is obtained from the global otel provider
// under this package's instrumentation name.
func NewMetrics(meter metric.Meter, tracer trace.Tracer) (*Metrics, error) {
	inferRequests, err := meter.Int64Counter(
		"inference.engine.requests",
		metric.WithDescription("Number of Engine.Infer calls"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	levelDispatch, err := meter.Int64Counter(
		"inference.level.dispatched",
		metric.WithDescription("Number of times a cascade/ensemble level was invoked"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, err
	}

	levelFailures, err := meter.Int64Counter(
		"inference.level.failures",
		metric.WithDescription("Number of level invocations that returned an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	inferDuration, err := meter.Float64Histogram(
		"inference.engine.duration",
		metric.WithDescription("Duration of a full Infer call, across every level it dispatched to"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	confidence, err := meter.Float64Histogram(
		"inference.engine.confidence",
		metric.WithDescription("Confidence of the result Infer ultimately returned"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"inference.engine.cache_hits",
		metric.WithDescription("Number of Infer calls served from the process-local cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	return &Metrics{
		inferRequests: inferRequests,
		levelDispatch: levelDispatch,
		levelFailures: levelFailures,
		inferDuration: inferDuration,
		confidence:    confidence,
		cacheHits:     cacheHits,
		tracer:        tracer,
	}, nil
}

// RecordInfer records the outcome of a full Infer call.
func (m *Metrics) RecordInfer(ctx context.Context, strategy Strategy, dur time.Duration, result InferenceResult, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("strategy", string(strategy)))
	m.inferRequests.Add(ctx, 1, attrs)
	m.inferDuration.Record(ctx, dur.Seconds(), attrs)
	if err == nil {
		m.confidence.Record(ctx, result.Confidence, metric.WithAttributes(
			attribute.String("strategy", string(strategy)),
			attribute.String("level", string(result.Level)),
		))
	}
}

// RecordLevel records the outcome of a single level dispatch.
func (m *Metrics) RecordLevel(ctx context.Context, level Level, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("level", string(level)))
	m.levelDispatch.Add(ctx, 1, attrs)
	if err != nil {
		m.levelFailures.Add(ctx, 1, attrs)
	}
}

// RecordCacheHit records an Infer call served entirely from cache.
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1)
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
	metricsInitMu sync.Mutex
)

// InitMetrics builds the package-level Metrics singleton from the given
// meter and tracer. Later calls are no-ops; use GetMetrics to read it back.
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

// startInferSpan starts a span for a full Infer call if tracing is
// enabled, returning the (possibly unmodified) context and a finish func.
func startInferSpan(ctx context.Context, tracer trace.Tracer, strategy Strategy, input string) (context.Context, func(InferenceResult, error)) {
	if tracer == nil {
		return ctx, func(InferenceResult, error) {}
	}
	ctx, span := tracer.Start(ctx, "inference.engine.infer",
		trace.WithAttributes(
			attribute.String("strategy", string(strategy)),
			attribute.Int("input_len", len(input)),
		),
	)
	return ctx, func(result InferenceResult, err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.String("level", string(result.Level)),
				attribute.Float64("confidence", result.Confidence),
			)
		}
		span.End()
	}
}

// startLevelSpan starts a child span for one level dispatch if tracing is
// enabled.
func startLevelSpan(ctx context.Context, tracer trace.Tracer, level Level) (context.Context, func(error)) {
	if tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := tracer.Start(ctx, "inference.level.dispatch",
		trace.WithAttributes(attribute.String("level", string(level))),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
