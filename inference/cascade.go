// Package inference provides the cascade inference engine: a unified
// "rule → fast model → LLM" fallback pattern that trades cost for
// accuracy. In this module nlp.IntentClassifier is its one user; the NER
// implementations and the rerank stage do not go through it.
package inference

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Level names a rung of the inference cascade.
type Level string

const (
	LevelRule      Level = "rule"
	LevelFastModel Level = "fast_model"
	LevelLLM       Level = "llm"
	LevelEnsemble  Level = "ensemble"
)

// InferenceResult is the outcome of one level's attempt.
type InferenceResult struct {
	Value      any
	Confidence float64
	Level      Level
	Metadata   map[string]any
}

// InferFunc performs one level's inference over input.
type InferFunc func(ctx context.Context, input string) (InferenceResult, error)

// LevelDef names and binds one cascade rung.
type LevelDef struct {
	Name Level
	Fn   InferFunc
}

// Strategy selects how the engine combines its levels.
type Strategy string

const (
	// StrategyCascade tries levels in order, stopping at the first whose
	// confidence meets the threshold, or at the last level regardless.
	StrategyCascade Strategy = "cascade"
	// StrategyEnsemble runs every level and keeps the highest-confidence
	// result.
	StrategyEnsemble Strategy = "ensemble"
)

// HasherFunc derives a cache key from an input string. The default is the
// identity function, which is safe because cascade inputs here are always
// plain strings rather than arbitrary objects — there is no risk of two
// distinct logical inputs colliding on object identity the way a
// pointer/id-based cache key would.
type HasherFunc func(input string) string

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold sets the confidence threshold a non-final cascade level
// must meet to short-circuit the cascade. Defaults to 0.7.
func WithThreshold(threshold float64) Option {
	return func(e *Engine) { e.threshold = threshold }
}

// WithStrategy sets the fallback strategy. Defaults to StrategyCascade.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithCache enables or disables the process-local result cache. Defaults
// to enabled.
func WithCache(enabled bool) Option {
	return func(e *Engine) { e.cacheEnabled = enabled }
}

// WithHasher overrides the cache-key derivation function.
func WithHasher(h HasherFunc) Option {
	return func(e *Engine) { e.hasher = h }
}

// WithLogger overrides the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTracer enables span creation around Infer calls and individual
// level dispatches.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
		e.enableTracing = tracer != nil
	}
}

// WithMeter enables metrics recorded against the given meter. An error
// building the instruments is swallowed and metrics are left disabled,
// since an engine must not fail to construct over an observability
// backend being unavailable.
func WithMeter(meter metric.Meter) Option {
	return func(e *Engine) {
		if meter == nil {
			return
		}
		m, err := NewMetrics(meter, e.tracer)
		if err != nil {
			return
		}
		e.metrics = m
		e.enableMetrics = true
	}
}

// Engine runs a sequence of inference levels, escalating from cheap rules
// to expensive models only when confidence demands it.
type Engine struct {
	levels       []LevelDef
	threshold    float64
	strategy     Strategy
	cacheEnabled bool
	hasher       HasherFunc
	logger       *slog.Logger

	tracer        trace.Tracer
	metrics       *Metrics
	enableTracing bool
	enableMetrics bool

	mu    sync.Mutex
	cache map[string]InferenceResult
}

// NewEngine constructs a cascade engine with the given levels, tried in
// the order given.
func NewEngine(levels []LevelDef, opts ...Option) *Engine {
	e := &Engine{
		levels:       levels,
		threshold:    0.7,
		strategy:     StrategyCascade,
		cacheEnabled: true,
		hasher:       func(input string) string { return input },
		logger:       slog.Default(),
		cache:        make(map[string]InferenceResult),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InferOption configures a single Infer call.
type InferOption func(*inferConfig)

type inferConfig struct {
	forceLevel Level
	forced     bool
}

// WithForceLevel bypasses the cascade/ensemble strategy and runs only the
// named level. Falls back to the configured strategy if no level with
// that name exists.
func WithForceLevel(level Level) InferOption {
	return func(c *inferConfig) { c.forceLevel = level; c.forced = true }
}

// Infer runs the engine's configured strategy over input. A cascade with
// zero levels is a configuration error and is reported here, at call
// time, rather than at construction — the engine is otherwise usable
// with levels added later.
func (e *Engine) Infer(ctx context.Context, input string, opts ...InferOption) (InferenceResult, error) {
	if len(e.levels) == 0 {
		return InferenceResult{}, fmt.Errorf("inference: engine has no levels configured")
	}

	cfg := inferConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	var finishSpan func(InferenceResult, error)
	if e.enableTracing {
		ctx, finishSpan = startInferSpan(ctx, e.tracer, e.strategy, input)
	} else {
		finishSpan = func(InferenceResult, error) {}
	}
	start := time.Now()

	key := e.hasher(input)
	if e.cacheEnabled {
		e.mu.Lock()
		cached, ok := e.cache[key]
		e.mu.Unlock()
		if ok {
			if e.enableMetrics {
				e.metrics.RecordCacheHit(ctx)
			}
			finishSpan(cached, nil)
			return cached, nil
		}
	}

	if cfg.forced {
		for _, lvl := range e.levels {
			if lvl.Name != cfg.forceLevel {
				continue
			}
			result, err := e.dispatch(ctx, lvl, input)
			if err != nil {
				finishSpan(InferenceResult{}, err)
				return InferenceResult{}, err
			}
			e.store(key, result)
			if e.enableMetrics {
				e.metrics.RecordInfer(ctx, e.strategy, time.Since(start), result, nil)
			}
			finishSpan(result, nil)
			return result, nil
		}
		e.logger.WarnContext(ctx, "inference.force_level_not_found", "level", cfg.forceLevel)
	}

	var result InferenceResult
	var err error
	if e.strategy == StrategyEnsemble {
		result, err = e.runEnsemble(ctx, input)
	} else {
		result, err = e.runCascade(ctx, input)
	}
	if err != nil {
		finishSpan(InferenceResult{}, err)
		return InferenceResult{}, err
	}

	e.store(key, result)
	if e.enableMetrics {
		e.metrics.RecordInfer(ctx, e.strategy, time.Since(start), result, nil)
	}
	finishSpan(result, nil)
	return result, nil
}

// dispatch invokes a single level, instrumenting it with a child span and
// level-dispatch counters when enabled.
func (e *Engine) dispatch(ctx context.Context, lvl LevelDef, input string) (InferenceResult, error) {
	var finish func(error)
	if e.enableTracing {
		ctx, finish = startLevelSpan(ctx, e.tracer, lvl.Name)
	} else {
		finish = func(error) {}
	}
	result, err := lvl.Fn(ctx, input)
	if e.enableMetrics {
		e.metrics.RecordLevel(ctx, lvl.Name, err)
	}
	finish(err)
	return result, err
}

// runCascade tries each level in order, returning the first whose
// confidence meets the threshold. A non-final level that raises is
// logged and skipped; the final level raising degrades to a
// zero-confidence result carrying the error in metadata rather than
// failing the call.
func (e *Engine) runCascade(ctx context.Context, input string) (InferenceResult, error) {
	for i, lvl := range e.levels {
		isLast := i == len(e.levels)-1

		result, err := e.dispatch(ctx, lvl, input)
		if err != nil {
			e.logger.ErrorContext(ctx, "inference.level_failed", "level", lvl.Name, "error", err)
			if isLast {
				return InferenceResult{
					Value:      nil,
					Confidence: 0,
					Level:      lvl.Name,
					Metadata:   map[string]any{"error": err.Error()},
				}, nil
			}
			continue
		}

		if result.Confidence >= e.threshold || isLast {
			return result, nil
		}
		e.logger.DebugContext(ctx, "inference.cascading", "level", lvl.Name, "confidence", result.Confidence)
	}

	return InferenceResult{}, fmt.Errorf("inference: no level produced a result")
}

// runEnsemble runs every level and keeps the highest-confidence result.
// A level that raises is logged and excluded; if all levels raise, the
// call fails.
func (e *Engine) runEnsemble(ctx context.Context, input string) (InferenceResult, error) {
	var best InferenceResult
	haveBest := false

	for _, lvl := range e.levels {
		result, err := e.dispatch(ctx, lvl, input)
		if err != nil {
			e.logger.ErrorContext(ctx, "inference.level_failed", "level", lvl.Name, "error", err)
			continue
		}
		if !haveBest || result.Confidence > best.Confidence {
			best = result
			haveBest = true
		}
	}

	if !haveBest {
		return InferenceResult{}, fmt.Errorf("inference: all levels failed")
	}
	return best, nil
}

func (e *Engine) store(key string, result InferenceResult) {
	if !e.cacheEnabled {
		return
	}
	e.mu.Lock()
	e.cache[key] = result
	e.mu.Unlock()
}

// ClearCache empties the engine's result cache.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	e.cache = make(map[string]InferenceResult)
	e.mu.Unlock()
}
