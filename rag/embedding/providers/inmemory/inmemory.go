// Package inmemory provides a deterministic, hash-based Embedder with no
// external dependencies, for tests and local development.
package inmemory

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/windlass-ai/retrievalkit/config"
	"github.com/windlass-ai/retrievalkit/rag/embedding"
)

const defaultDimensions = 128

func init() {
	embedding.Register("inmemory", func(cfg config.ProviderConfig) (embedding.Embedder, error) {
		return New(cfg)
	})
}

// Embedder produces deterministic unit vectors derived from a hash of the
// input text. It makes no claim of semantic meaning; it exists so the rest
// of the rag pipeline can be exercised without a real embedding provider.
type Embedder struct {
	dims int
}

// New constructs an in-memory Embedder. cfg.Options["dimensions"] overrides
// the default dimension count; zero or negative values fall back to the
// default.
func New(cfg config.ProviderConfig) (*Embedder, error) {
	dims := defaultDimensions
	if d, ok := config.GetOption[float64](cfg, "dimensions"); ok && d > 0 {
		dims = int(d)
	}
	return &Embedder{dims: dims}, nil
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = e.vectorFor(t)
	}
	return vecs, nil
}

func (e *Embedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return e.vectorFor(text), nil
}

func (e *Embedder) Dimensions() int { return e.dims }

// vectorFor derives a deterministic unit vector from text by seeding a PRNG
// with the FNV-1a hash of the text and drawing dims Gaussian samples.
func (e *Embedder) vectorFor(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := int64(h.Sum64())

	r := rand.New(rand.NewSource(seed))
	vec := make([]float32, e.dims)
	var norm float64
	for i := range vec {
		v := r.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
