// Package openai provides the OpenAI LLM provider for retrievalkit.
//
// OpenAI's chat completions API is the reference implementation of the
// OpenAI-compatible wire format; this provider is a thin wrapper around the
// shared internal/openaicompat package with OpenAI's default base URL.
//
// # Registration
//
// The provider registers itself as "openai" via init(). Import the package
// for side effects to make it available through the llm registry:
//
//	import _ "github.com/windlass-ai/retrievalkit/llm/providers/openai"
//
// # Usage
//
//	model, err := llm.New("openai", config.ProviderConfig{
//	    Model:  "gpt-4o-mini",
//	    APIKey: "sk-...",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// retrievalkit's own consumers — retrieval.SemanticRerankStage's LLM mode,
// nlp.LLMNER, and nlp.IntentClassifier's llm level — take an llm.ChatModel
// by dependency injection and never import a provider package directly; a
// caller wires a concrete model (this one or another) at construction time.
//
// # Configuration
//
// The following [config.ProviderConfig] fields are used:
//
//   - Model: the OpenAI model name (e.g. "gpt-4o-mini", "gpt-4o")
//   - APIKey: the OpenAI API key
//   - BaseURL: optional, defaults to "https://api.openai.com/v1"
//   - Timeout: optional per-request timeout
package openai
