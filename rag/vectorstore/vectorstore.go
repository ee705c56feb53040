// Package vectorstore defines the vector-store contract used by retrieval,
// a provider registry, and composable hooks/middleware around any
// VectorStore implementation.
package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/windlass-ai/retrievalkit/config"
	"github.com/windlass-ai/retrievalkit/internal/hookutil"
	"github.com/windlass-ai/retrievalkit/schema"
)

// SearchStrategy selects the similarity measure a Search call uses.
type SearchStrategy int

const (
	Cosine SearchStrategy = iota
	DotProduct
	Euclidean
)

func (s SearchStrategy) String() string {
	switch s {
	case Cosine:
		return "cosine"
	case DotProduct:
		return "dot_product"
	case Euclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

// SearchConfig holds the options a Search call accepts. Filters are
// conjunctive exact-match against document metadata.
type SearchConfig struct {
	Filter    map[string]any
	Threshold float64
	Strategy  SearchStrategy
}

// SearchOption mutates a SearchConfig.
type SearchOption func(*SearchConfig)

// WithFilter restricts results to documents whose metadata matches every
// key/value pair in filter.
func WithFilter(filter map[string]any) SearchOption {
	return func(c *SearchConfig) { c.Filter = filter }
}

// WithThreshold drops results scoring below threshold. Meaningful only
// within a single Strategy: scores are not comparable across strategies.
func WithThreshold(threshold float64) SearchOption {
	return func(c *SearchConfig) { c.Threshold = threshold }
}

// WithStrategy selects the similarity measure. Defaults to Cosine.
func WithStrategy(strategy SearchStrategy) SearchOption {
	return func(c *SearchConfig) { c.Strategy = strategy }
}

// VectorStore stores documents alongside their embeddings and serves
// nearest-neighbor search over them. Scores returned by Search are
// comparable only within the results of a single call; they carry no
// meaning across stores, queries, or strategies.
type VectorStore interface {
	// Add inserts or overwrites documents, keyed by Document.ID. docs and
	// embeddings must have the same length.
	Add(ctx context.Context, docs []schema.Document, embeddings [][]float32) error

	// Search returns the top k documents most similar to query, subject to
	// opts. Returned documents carry their similarity Score.
	Search(ctx context.Context, query []float32, k int, opts ...SearchOption) ([]schema.Document, error)

	// Delete removes documents by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error
}

// Factory constructs a VectorStore from a ProviderConfig.
type Factory func(cfg config.ProviderConfig) (VectorStore, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a named vector-store factory to the global registry. It is
// typically called from a provider package's init function. Register panics
// if name is empty, factory is nil, or name is already registered.
func Register(name string, f Factory) {
	if name == "" {
		panic("vectorstore: Register called with empty name")
	}
	if f == nil {
		panic("vectorstore: Register called with nil factory for " + name)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[name]; dup {
		panic("vectorstore: Register called twice for " + name)
	}
	registry[name] = f
}

// New creates a VectorStore by looking up the named factory and invoking it.
func New(name string, cfg config.ProviderConfig) (VectorStore, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("vectorstore: unknown provider %q", name)
	}
	return f(cfg)
}

// List returns the sorted names of all registered vector-store factories.
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

// Hooks are optional callbacks invoked around a VectorStore's calls.
// Multiple Hooks values compose via ComposeHooks.
type Hooks struct {
	BeforeAdd    func(ctx context.Context, docs []schema.Document) error
	AfterSearch  func(ctx context.Context, results []schema.Document, err error)
	BeforeDelete func(ctx context.Context, ids []string) error
}

// ComposeHooks merges multiple Hooks into one. Before* hooks run in order
// and the first error short-circuits; After* hooks all run unconditionally,
// in order.
func ComposeHooks(hooks ...Hooks) Hooks {
	return Hooks{
		BeforeAdd: hookutil.ComposeError1(hooks, func(h Hooks) func(context.Context, []schema.Document) error {
			return h.BeforeAdd
		}),
		AfterSearch: hookutil.ComposeVoid2(hooks, func(h Hooks) func(context.Context, []schema.Document, error) {
			return h.AfterSearch
		}),
		BeforeDelete: hookutil.ComposeError1(hooks, func(h Hooks) func(context.Context, []string) error {
			return h.BeforeDelete
		}),
	}
}

// Middleware wraps a VectorStore to add cross-cutting behaviour.
// Middlewares compose via ApplyMiddleware and apply outside-in: the first
// middleware in the list is the outermost wrapper.
type Middleware func(VectorStore) VectorStore

// ApplyMiddleware wraps store with the given middlewares so the first
// middleware in the list executes first.
func ApplyMiddleware(store VectorStore, mws ...Middleware) VectorStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// WithHooks returns middleware that invokes hooks around Add/Search/Delete.
func WithHooks(hooks Hooks) Middleware {
	return func(next VectorStore) VectorStore {
		return &hookedStore{next: next, hooks: hooks}
	}
}

type hookedStore struct {
	next  VectorStore
	hooks Hooks
}

func (s *hookedStore) Add(ctx context.Context, docs []schema.Document, embeddings [][]float32) error {
	if s.hooks.BeforeAdd != nil {
		if err := s.hooks.BeforeAdd(ctx, docs); err != nil {
			return err
		}
	}
	return s.next.Add(ctx, docs, embeddings)
}

func (s *hookedStore) Search(ctx context.Context, query []float32, k int, opts ...SearchOption) ([]schema.Document, error) {
	results, err := s.next.Search(ctx, query, k, opts...)
	if s.hooks.AfterSearch != nil {
		s.hooks.AfterSearch(ctx, results, err)
	}
	return results, err
}

func (s *hookedStore) Delete(ctx context.Context, ids []string) error {
	if s.hooks.BeforeDelete != nil {
		if err := s.hooks.BeforeDelete(ctx, ids); err != nil {
			return err
		}
	}
	return s.next.Delete(ctx, ids)
}
