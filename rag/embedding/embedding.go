// Package embedding defines the text-embedding contract used by the rest of
// the rag tree, a provider registry, and composable hooks/middleware around
// any Embedder implementation.
package embedding

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/windlass-ai/retrievalkit/config"
	"github.com/windlass-ai/retrievalkit/internal/hookutil"
)

// Embedder turns text into dense vectors. Implementations must be safe for
// concurrent use.
type Embedder interface {
	// Embed returns one vector per input text, in the same order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle is a convenience wrapper around Embed for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the length of vectors this embedder produces.
	Dimensions() int
}

// Factory constructs an Embedder from a ProviderConfig.
type Factory func(cfg config.ProviderConfig) (Embedder, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a named embedder factory to the global registry. It is
// typically called from a provider package's init function. Register panics
// if name is empty, factory is nil, or name is already registered.
func Register(name string, f Factory) {
	if name == "" {
		panic("embedding: Register called with empty name")
	}
	if f == nil {
		panic("embedding: Register called with nil factory for " + name)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[name]; dup {
		panic("embedding: Register called twice for " + name)
	}
	registry[name] = f
}

// New creates an Embedder by looking up the named factory and invoking it.
func New(name string, cfg config.ProviderConfig) (Embedder, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("embedding: unknown provider %q", name)
	}
	return f(cfg)
}

// List returns the sorted names of all registered embedder factories.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hooks are optional callbacks invoked around an Embedder's calls.
// Multiple Hooks values compose via ComposeHooks.
type Hooks struct {
	BeforeEmbed func(ctx context.Context, texts []string) error
	AfterEmbed  func(ctx context.Context, embeddings [][]float32, err error)
}

// ComposeHooks merges multiple Hooks into one. BeforeEmbed hooks run in
// order and the first error short-circuits; AfterEmbed hooks all run
// unconditionally, in order.
func ComposeHooks(hooks ...Hooks) Hooks {
	return Hooks{
		BeforeEmbed: hookutil.ComposeError1(hooks, func(h Hooks) func(context.Context, []string) error {
			return h.BeforeEmbed
		}),
		AfterEmbed: hookutil.ComposeVoid2(hooks, func(h Hooks) func(context.Context, [][]float32, error) {
			return h.AfterEmbed
		}),
	}
}

// Middleware wraps an Embedder to add cross-cutting behaviour. Middlewares
// compose via ApplyMiddleware and apply outside-in: the first middleware in
// the list is the outermost wrapper.
type Middleware func(Embedder) Embedder

// ApplyMiddleware wraps emb with the given middlewares so the first
// middleware in the list executes first.
func ApplyMiddleware(emb Embedder, mws ...Middleware) Embedder {
	for i := len(mws) - 1; i >= 0; i-- {
		emb = mws[i](emb)
	}
	return emb
}

// WithHooks returns middleware that invokes hooks around Embed/EmbedSingle.
func WithHooks(hooks Hooks) Middleware {
	return func(next Embedder) Embedder {
		return &hookedEmbedder{next: next, hooks: hooks}
	}
}

type hookedEmbedder struct {
	next  Embedder
	hooks Hooks
}

func (e *hookedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.hooks.BeforeEmbed != nil {
		if err := e.hooks.BeforeEmbed(ctx, texts); err != nil {
			return nil, err
		}
	}
	vecs, err := e.next.Embed(ctx, texts)
	if e.hooks.AfterEmbed != nil {
		e.hooks.AfterEmbed(ctx, vecs, err)
	}
	return vecs, err
}

func (e *hookedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if e.hooks.BeforeEmbed != nil {
		if err := e.hooks.BeforeEmbed(ctx, []string{text}); err != nil {
			return nil, err
		}
	}
	vec, err := e.next.EmbedSingle(ctx, text)
	if e.hooks.AfterEmbed != nil {
		if vec != nil {
			e.hooks.AfterEmbed(ctx, [][]float32{vec}, err)
		} else {
			e.hooks.AfterEmbed(ctx, nil, err)
		}
	}
	return vec, err
}

func (e *hookedEmbedder) Dimensions() int { return e.next.Dimensions() }
