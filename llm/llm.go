// Package llm provides the LLM abstraction layer for the Beluga AI framework.
// It defines the ChatModel interface that all LLM providers implement, a
// provider registry for dynamic instantiation, composable middleware
// (hooks, logging, fallback), lifecycle hooks, and generate options. It
// has no structured output parser, context window manager, tokenizer,
// rate limiter, or multi-backend router.
//
// Providers register themselves via init() so that importing a provider
// package is sufficient to make it available through the registry:
//
//	import _ "github.com/windlass-ai/retrievalkit/llm/providers/openai"
//
//	model, err := llm.New("openai", cfg)
//
// Middleware wraps ChatModel to add cross-cutting concerns:
//
//	model = llm.ApplyMiddleware(model, llm.WithLogging(logger), llm.WithFallback(backup))
//
// Streaming uses iter.Seq2 (Go 1.23+):
//
//	for chunk, err := range model.Stream(ctx, msgs) {
//	    if err != nil { break }
//	    fmt.Print(chunk.Delta)
//	}
package llm

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/windlass-ai/retrievalkit/config"
	"github.com/windlass-ai/retrievalkit/schema"
)

// ChatModel is the primary interface for interacting with language models.
// All LLM providers implement this interface, and middleware composes
// through it.
type ChatModel interface {
	// Generate sends a batch of messages and returns a complete AI response.
	Generate(ctx context.Context, msgs []schema.Message, opts ...GenerateOption) (*schema.AIMessage, error)

	// Stream sends a batch of messages and returns an iterator of response chunks.
	// Consumers should range over the returned sequence. A non-nil error terminates
	// the stream.
	Stream(ctx context.Context, msgs []schema.Message, opts ...GenerateOption) iter.Seq2[schema.StreamChunk, error]

	// BindTools returns a new ChatModel that includes the given tool definitions
	// in every request. The original model is not modified.
	BindTools(tools []schema.ToolDefinition) ChatModel

	// ModelID returns the identifier of the underlying model (e.g. "gpt-4o").
	ModelID() string
}

// Factory constructs a ChatModel from a ProviderConfig.
type Factory func(cfg config.ProviderConfig) (ChatModel, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a named ChatModel factory to the global registry. It is
// typically called from a provider package's init function. Register panics
// if name is empty, factory is nil, or name is already registered.
func Register(name string, f Factory) {
	if name == "" {
		panic("llm: Register called with empty name")
	}
	if f == nil {
		panic("llm: Register called with nil factory for " + name)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[name]; dup {
		panic("llm: Register called twice for " + name)
	}
	registry[name] = f
}

// New creates a ChatModel by looking up the named factory and invoking it.
func New(name string, cfg config.ProviderConfig) (ChatModel, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q", name)
	}
	return f(cfg)
}

// List returns the sorted names of all registered ChatModel factories.
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
