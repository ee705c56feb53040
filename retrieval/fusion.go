package retrieval

import (
	"context"
	"fmt"
	"sort"
)

// FusionStageName is the stage name recorded into metadata["stage"] by
// FusionStage, overwriting whatever the contributing retriever stages set.
const FusionStageName = "Fusion"

// FusionMethod selects how FusionStage combines scores across sources.
type FusionMethod string

const (
	FusionWeightedSum FusionMethod = "weighted_sum"
	FusionRRF         FusionMethod = "rrf"
)

const defaultRRFK = 60

// FusionStage merges results from multiple retrieval sources (vector,
// graph, graph-expanded) into a single deduplicated, ranked list.
type FusionStage struct {
	method FusionMethod
	rrfK   int
}

// FusionOption configures a FusionStage.
type FusionOption func(*FusionStage)

// WithFusionMethod selects the fusion algorithm. Defaults to
// FusionWeightedSum.
func WithFusionMethod(method FusionMethod) FusionOption {
	return func(s *FusionStage) { s.method = method }
}

// WithRRFK sets the RRF rank-damping constant k. Defaults to 60.
func WithRRFK(k int) FusionOption {
	return func(s *FusionStage) { s.rrfK = k }
}

// NewFusionStage constructs a FusionStage.
func NewFusionStage(opts ...FusionOption) *FusionStage {
	s := &FusionStage{method: FusionWeightedSum, rrfK: defaultRRFK}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FusionStage) Name() string { return FusionStageName }

func (s *FusionStage) Process(ctx context.Context, previous []Result, ec *ExecContext) ([]Result, error) {
	if len(previous) == 0 {
		return []Result{}, nil
	}

	var fused []Result
	if s.method == FusionRRF {
		fused = s.rrfFusion(previous)
	} else {
		fused = s.weightedSumFusion(previous)
	}

	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	return fused, nil
}

// weightedSumFusion aggregates by doc_id, summing scores across every
// source that contributed to that document, and keeps the content of
// whichever result was seen first for that doc_id.
func (s *FusionStage) weightedSumFusion(results []Result) []Result {
	type bucket struct {
		result  Result
		score   float64
		sources map[string]bool
	}

	order := make([]string, 0, len(results))
	buckets := make(map[string]*bucket, len(results))

	for i, r := range results {
		docID := r.DocID()
		if docID == "" {
			docID = fmt.Sprintf("unknown_%d", i)
		}

		b, ok := buckets[docID]
		if !ok {
			b = &bucket{result: r, sources: map[string]bool{}}
			buckets[docID] = b
			order = append(order, docID)
		}
		b.score += r.Score
		if stage, _ := r.Metadata["stage"].(string); stage != "" {
			b.sources[stage] = true
		}
	}

	fused := make([]Result, 0, len(order))
	for _, docID := range order {
		b := buckets[docID]
		meta := cloneMetadata(b.result.Metadata)
		meta["fusion_method"] = string(FusionWeightedSum)
		meta["stage"] = FusionStageName
		meta["fused_sources"] = sortedKeys(b.sources)

		fused = append(fused, Result{
			Content:  b.result.Content,
			Metadata: meta,
			Score:    b.score,
			Source:   SourceFused,
		})
	}
	return fused
}

// rrfFusion partitions results by metadata["source_stage"] — written once
// at retrieval time and never overwritten by later stages — rather than
// by the mutable metadata["stage"], so that a document's RRF rank
// contribution is always attributed to the retriever that actually found
// it, even after an earlier fusion pass or rerank has relabeled "stage".
func (s *FusionStage) rrfFusion(results []Result) []Result {
	groups := make(map[string][]Result)
	var groupOrder []string
	for _, r := range results {
		source, _ := r.Metadata["source_stage"].(string)
		if source == "" {
			source = "unknown"
		}
		if _, ok := groups[source]; !ok {
			groupOrder = append(groupOrder, source)
		}
		groups[source] = append(groups[source], r)
	}

	rrfScores := make(map[string]float64)
	docResults := make(map[string]Result)
	var order []string

	for _, source := range groupOrder {
		group := groups[source]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Score > group[j].Score })

		for rank, r := range group {
			docID := r.DocID()
			if docID == "" {
				docID = fmt.Sprintf("unknown_%s_%d", source, rank)
			}
			rrfScores[docID] += 1.0 / float64(s.rrfK+rank+1)
			if _, ok := docResults[docID]; !ok {
				docResults[docID] = r
				order = append(order, docID)
			}
		}
	}

	fused := make([]Result, 0, len(order))
	for _, docID := range order {
		r := docResults[docID]
		meta := cloneMetadata(r.Metadata)
		meta["fusion_method"] = string(FusionRRF)
		meta["stage"] = FusionStageName

		fused = append(fused, Result{
			Content:  r.Content,
			Metadata: meta,
			Score:    rrfScores[docID],
			Source:   SourceFused,
		})
	}
	return fused
}

func cloneMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
