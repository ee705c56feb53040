package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/windlass-ai/retrievalkit/internal/syncutil"
	"github.com/windlass-ai/retrievalkit/nlp"
	"github.com/windlass-ai/retrievalkit/retrieval/graphstore"
)

// GraphStageName is the stage name recorded into metadata["stage"] and
// metadata["source_stage"] by GraphRetrieverStage for directly-retrieved
// hits. Multi-hop expansions instead carry SourceGraphExpanded.
const GraphStageName = "GraphRetrieval"

const (
	defaultMaxHops  = 2
	hardCapMaxHops  = 3
	expandSeedLimit = 5
	expandPerSeed   = 10
	hopDecayBase    = 0.7
)

// GraphRetrieverStage recalls documents by matching entities extracted
// from the query against a labeled-property graph, optionally expanding
// outward via multi-hop traversal from the best-scoring initial hits.
type GraphRetrieverStage struct {
	store           graphstore.GraphStore
	ner             nlp.NER
	weight          float64
	enableMultiHop  bool
	maxHops         int
	logger          *slog.Logger
}

// GraphOption configures a GraphRetrieverStage.
type GraphOption func(*GraphRetrieverStage)

// WithGraphWeight scales every score this stage produces. Defaults to 1.0.
func WithGraphWeight(weight float64) GraphOption {
	return func(s *GraphRetrieverStage) { s.weight = weight }
}

// WithMultiHop enables or disables multi-hop expansion. Enabled by
// default.
func WithMultiHop(enabled bool) GraphOption {
	return func(s *GraphRetrieverStage) { s.enableMultiHop = enabled }
}

// WithMaxHops sets the traversal depth for multi-hop expansion, capped at
// 3 regardless of the value given. Defaults to 2.
func WithMaxHops(hops int) GraphOption {
	return func(s *GraphRetrieverStage) {
		if hops > hardCapMaxHops {
			hops = hardCapMaxHops
		}
		s.maxHops = hops
	}
}

// WithGraphLogger overrides the stage's logger.
func WithGraphLogger(logger *slog.Logger) GraphOption {
	return func(s *GraphRetrieverStage) { s.logger = logger }
}

// NewGraphRetrieverStage constructs a GraphRetrieverStage over the given
// graph store and entity extractor.
func NewGraphRetrieverStage(store graphstore.GraphStore, ner nlp.NER, opts ...GraphOption) *GraphRetrieverStage {
	s := &GraphRetrieverStage{
		store:          store,
		ner:            ner,
		weight:         1.0,
		enableMultiHop: true,
		maxHops:        defaultMaxHops,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GraphRetrieverStage) Name() string { return GraphStageName }

// Process extracts entities from the query, searches the graph store for
// documents mentioning them (oversampled to 2x topK), optionally expands
// the top seeds via multi-hop traversal, and converts everything to
// Results. NER failures and backend failures are both logged and treated
// as an empty result, never propagated.
func (s *GraphRetrieverStage) Process(ctx context.Context, _ []Result, ec *ExecContext) ([]Result, error) {
	entities, err := s.extractEntityTexts(ctx, ec.Query)
	if err != nil {
		s.logger.WarnContext(ctx, "retrieval.graph.ner_failed", "error", err)
		return []Result{}, nil
	}
	if len(entities) == 0 {
		return []Result{}, nil
	}

	hits, err := s.store.SearchByEntities(ctx, entities, ec.TopK*2)
	if err != nil {
		s.logger.ErrorContext(ctx, "retrieval.graph.search_failed", "error", err)
		return []Result{}, nil
	}

	results := make([]Result, 0, len(hits))
	seen := make(map[string]bool, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			Content: hit.Content,
			Score:   hit.Score * s.weight,
			Source:  SourceGraph,
			Metadata: map[string]any{
				"doc_id":           hit.DocID,
				"stage":            GraphStageName,
				"source_stage":     GraphStageName,
				"matched_entities": hit.MatchedEntities,
			},
		})
		seen[hit.DocID] = true
	}

	if s.enableMultiHop {
		results = append(results, s.expand(ctx, hits, seen)...)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > ec.TopK {
		results = results[:ec.TopK]
	}
	return results, nil
}

// expand traverses outward from the top 5 initial hits only, scoring each
// new document by the seed's score decayed by 0.7^distance. Each seed's
// FindRelatedDocs call is a suspension point with no dependency on any
// other seed's result, so the fan-out runs through a bounded worker pool
// (one worker per seed, capped at expandSeedLimit) rather than serially; a
// failure expanding any single seed is logged and skipped without
// affecting the others.
func (s *GraphRetrieverStage) expand(ctx context.Context, hits []graphstore.Hit, seen map[string]bool) []Result {
	seeds := hits
	if len(seeds) > expandSeedLimit {
		seeds = seeds[:expandSeedLimit]
	}

	var (
		mu       sync.Mutex
		expanded []Result
	)
	pool := syncutil.NewWorkerPool(expandSeedLimit)
	for _, seed := range seeds {
		seed := seed
		_ = pool.Submit(func() {
			related, err := s.store.FindRelatedDocs(ctx, seed.DocID, s.maxHops, expandPerSeed)
			if err != nil {
				s.logger.WarnContext(ctx, "retrieval.graph.expand_failed", "seed", seed.DocID, "error", err)
				return
			}

			seedResults := make([]Result, 0, len(related))
			for _, r := range related {
				decay := 1.0
				for i := 0; i < r.Distance; i++ {
					decay *= hopDecayBase
				}

				seedResults = append(seedResults, Result{
					Content: r.Content,
					Score:   seed.Score * decay * s.weight,
					Source:  SourceGraphExpanded,
					Metadata: map[string]any{
						"doc_id":          r.DocID,
						"stage":           GraphStageName,
						"source_stage":    GraphStageName,
						"hop_distance":    r.Distance,
						"base_doc_id":     seed.DocID,
						"shared_entities": r.SharedEntities,
					},
				})
			}

			mu.Lock()
			for _, res := range seedResults {
				docID, _ := res.Metadata["doc_id"].(string)
				if seen[docID] {
					continue
				}
				seen[docID] = true
				expanded = append(expanded, res)
			}
			mu.Unlock()
		})
	}
	pool.Wait()
	return expanded
}

func (s *GraphRetrieverStage) extractEntityTexts(ctx context.Context, query string) ([]string, error) {
	if s.ner == nil {
		return nil, nil
	}
	entities, err := s.ner.Extract(ctx, query)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(entities))
	for _, e := range entities {
		texts = append(texts, e.Text)
	}
	return texts, nil
}
