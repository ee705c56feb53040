package testutil

import (
	"github.com/windlass-ai/retrievalkit/internal/testutil/mockembedder"
	"github.com/windlass-ai/retrievalkit/internal/testutil/mockstore"
	"github.com/windlass-ai/retrievalkit/rag/embedding"
	"github.com/windlass-ai/retrievalkit/rag/vectorstore"
)

// Compile-time interface checks to ensure mocks implement their target interfaces.
var (
	_ embedding.Embedder      = (*mockembedder.MockEmbedder)(nil)
	_ vectorstore.VectorStore = (*mockstore.MockVectorStore)(nil)
)
