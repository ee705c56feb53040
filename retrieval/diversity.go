package retrieval

import (
	"context"
	"math"
)

// DiversityStageName is the stage name recorded into metadata["stage"] by
// DiversityFilterStage.
const DiversityStageName = "DiversityFilter"

const defaultMMRLambda = 0.7

// DiversityFilterStage reorders results using Maximal Marginal Relevance,
// trading off raw relevance against redundancy with already-selected
// results so near-duplicate documents don't crowd out distinct ones.
type DiversityFilterStage struct {
	lambda float64
}

// DiversityOption configures a DiversityFilterStage.
type DiversityOption func(*DiversityFilterStage)

// WithLambda sets the MMR relevance/diversity trade-off: 1.0 is pure
// relevance, 0.0 is pure diversity. Defaults to 0.7.
func WithLambda(lambda float64) DiversityOption {
	return func(s *DiversityFilterStage) { s.lambda = lambda }
}

// NewDiversityFilterStage constructs a DiversityFilterStage.
func NewDiversityFilterStage(opts ...DiversityOption) *DiversityFilterStage {
	s := &DiversityFilterStage{lambda: defaultMMRLambda}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DiversityFilterStage) Name() string { return DiversityStageName }

func (s *DiversityFilterStage) Process(ctx context.Context, previous []Result, ec *ExecContext) ([]Result, error) {
	if len(previous) <= 1 {
		return cloneResults(previous), nil
	}
	return s.mmrFilter(previous), nil
}

// mmrFilter seeds the selection with the highest-scoring result, then
// greedily picks, from what remains, the candidate maximizing
// lambda*score - (1-lambda)*max_similarity_to_selected. Ties in the
// candidate scan are broken by earliest position, matching a stable
// left-to-right scan.
func (s *DiversityFilterStage) mmrFilter(results []Result) []Result {
	wordSets := make([]map[string]bool, len(results))
	for i, r := range results {
		wordSets[i] = tokenizeWords(r.Content)
	}

	selected := []int{0}
	remaining := make([]int, 0, len(results)-1)
	for i := 1; i < len(results); i++ {
		remaining = append(remaining, i)
	}

	mmrScores := make(map[int]float64, len(results))

	for len(remaining) > 0 {
		bestPos := 0
		bestIdx := remaining[0]
		bestMMR := math.Inf(-1)

		for pos, idx := range remaining {
			relevance := results[idx].Score

			maxSim := 0.0
			for _, selIdx := range selected {
				sim := jaccard(wordSets[idx], wordSets[selIdx])
				if sim > maxSim {
					maxSim = sim
				}
			}

			mmr := s.lambda*relevance - (1-s.lambda)*maxSim
			if mmr > bestMMR {
				bestMMR = mmr
				bestIdx = idx
				bestPos = pos
			}
		}

		mmrScores[bestIdx] = bestMMR
		selected = append(selected, bestIdx)
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	out := make([]Result, 0, len(results))
	for _, idx := range selected {
		score, ok := mmrScores[idx]
		if !ok {
			out = append(out, results[idx])
			continue
		}
		out = append(out, results[idx].WithMetadata("mmr_score", score))
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := intersectionSize(a, b)
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
