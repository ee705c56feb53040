// Package inmemory provides a non-persistent VectorStore backed by a Go map,
// for tests and local development.
package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/windlass-ai/retrievalkit/config"
	"github.com/windlass-ai/retrievalkit/rag/vectorstore"
	"github.com/windlass-ai/retrievalkit/schema"
)

func init() {
	vectorstore.Register("inmemory", func(cfg config.ProviderConfig) (vectorstore.VectorStore, error) {
		return New(), nil
	})
}

type entry struct {
	doc schema.Document
	vec []float32
}

// Store is a VectorStore held entirely in process memory, guarded by a
// mutex. Search is a brute-force linear scan; it is intended for tests and
// small corpora, not production scale.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New constructs an empty in-memory Store.
func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

func (s *Store) Add(ctx context.Context, docs []schema.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("inmemory: docs length (%d) does not match embeddings length (%d)", len(docs), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range docs {
		s.entries[doc.ID] = entry{doc: doc, vec: embeddings[i]}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query []float32, k int, opts ...vectorstore.SearchOption) ([]schema.Document, error) {
	cfg := &vectorstore.SearchConfig{Strategy: vectorstore.Cosine}
	for _, opt := range opts {
		opt(cfg)
	}

	s.mu.RLock()
	candidates := make([]schema.Document, 0, len(s.entries))
	for _, e := range s.entries {
		if !matchesFilter(e.doc, cfg.Filter) {
			continue
		}
		score := scoreFor(cfg.Strategy, query, e.vec)
		if cfg.Threshold != 0 && score < cfg.Threshold {
			continue
		}
		doc := e.doc
		doc.Score = score
		candidates = append(candidates, doc)
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

func scoreFor(strategy vectorstore.SearchStrategy, a, b []float32) float64 {
	switch strategy {
	case vectorstore.DotProduct:
		return dotProduct(a, b)
	case vectorstore.Euclidean:
		return -euclideanDistance(a, b)
	default:
		return cosineSimilarity(a, b)
	}
}

func matchesFilter(doc schema.Document, filter map[string]any) bool {
	if len(filter) == 0 {
		return true
	}
	if doc.Metadata == nil {
		return false
	}
	for k, v := range filter {
		if doc.Metadata[k] != v {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func dotProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func euclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
