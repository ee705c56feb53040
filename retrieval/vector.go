package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/windlass-ai/retrievalkit/rag/embedding"
	"github.com/windlass-ai/retrievalkit/rag/vectorstore"
)

// VectorStageName is the stage name recorded into metadata["stage"] and
// metadata["source_stage"] by VectorRetrieverStage.
const VectorStageName = "VectorRetrieval"

// VectorRetrieverStage recalls documents from a dense vector index. It is
// stateless across calls: it holds only references to its embedder and
// store, never per-query state.
type VectorRetrieverStage struct {
	embedder embedding.Embedder
	store    vectorstore.VectorStore
	weight   float64
	minScore float64
	filter   map[string]any
	logger   *slog.Logger
}

// VectorOption configures a VectorRetrieverStage.
type VectorOption func(*VectorRetrieverStage)

// WithVectorWeight scales every score this stage produces by weight.
// Defaults to 1.0.
func WithVectorWeight(weight float64) VectorOption {
	return func(s *VectorRetrieverStage) { s.weight = weight }
}

// WithVectorMinScore drops results scoring below minScore after the backend
// returns them.
func WithVectorMinScore(minScore float64) VectorOption {
	return func(s *VectorRetrieverStage) { s.minScore = minScore }
}

// WithVectorFilter restricts the backend search to documents whose metadata
// matches filter.
func WithVectorFilter(filter map[string]any) VectorOption {
	return func(s *VectorRetrieverStage) { s.filter = filter }
}

// WithVectorLogger overrides the stage's logger.
func WithVectorLogger(logger *slog.Logger) VectorOption {
	return func(s *VectorRetrieverStage) { s.logger = logger }
}

// NewVectorRetrieverStage constructs a VectorRetrieverStage over the given
// embedder and vector store.
func NewVectorRetrieverStage(embedder embedding.Embedder, store vectorstore.VectorStore, opts ...VectorOption) *VectorRetrieverStage {
	s := &VectorRetrieverStage{
		embedder: embedder,
		store:    store,
		weight:   1.0,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *VectorRetrieverStage) Name() string { return VectorStageName }

// Process embeds the query once, issues a k-nearest-neighbor search, and
// wraps each hit as a Result. A whitespace-only query or a backend failure
// both yield an empty list — backend errors are logged, not propagated.
func (s *VectorRetrieverStage) Process(ctx context.Context, _ []Result, ec *ExecContext) ([]Result, error) {
	query := strings.TrimSpace(ec.Query)
	if query == "" {
		return []Result{}, nil
	}

	vec, err := s.embedder.EmbedSingle(ctx, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "retrieval.vector.embed_failed", "error", err)
		return []Result{}, nil
	}

	var opts []vectorstore.SearchOption
	if s.filter != nil {
		opts = append(opts, vectorstore.WithFilter(s.filter))
	}

	docs, err := s.store.Search(ctx, vec, ec.TopK, opts...)
	if err != nil {
		s.logger.ErrorContext(ctx, "retrieval.vector.search_failed", "error", err)
		return []Result{}, nil
	}

	results := make([]Result, 0, len(docs))
	for _, doc := range docs {
		score := doc.Score * s.weight
		if s.minScore > 0 && score < s.minScore {
			continue
		}
		meta := make(map[string]any, len(doc.Metadata)+2)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta["doc_id"] = doc.ID
		meta["stage"] = VectorStageName
		meta["source_stage"] = VectorStageName
		results = append(results, Result{
			Content:  doc.Content,
			Metadata: meta,
			Score:    score,
			Source:   SourceVector,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > ec.TopK {
		results = results[:ec.TopK]
	}
	return results, nil
}
