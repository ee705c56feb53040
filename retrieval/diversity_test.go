package retrieval

import (
	"context"
	"testing"
)

func TestDiversityFilterStage_PrefersDiverseOverRedundant(t *testing.T) {
	s := NewDiversityFilterStage(WithLambda(0.5))
	previous := []Result{
		{Content: "golang concurrency patterns and goroutines", Score: 1.0},
		{Content: "golang concurrency patterns and goroutines explained further", Score: 0.95}, // near-duplicate of the top result
		{Content: "distributed tracing with opentelemetry", Score: 0.9},                       // distinct topic
	}

	out, err := s.Process(context.Background(), previous, newExecContext("q", 10, "p", "req"))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("Process returned %d results, want 3 (same length as input)", len(out))
	}
	if out[0].Content != previous[0].Content {
		t.Errorf("seed result = %q, want the highest-scoring result first", out[0].Content)
	}

	// The distinct document should rank above the near-duplicate despite
	// its lower raw score, since the duplicate has high similarity to the
	// already-selected seed.
	distinctPos, duplicatePos := -1, -1
	for i, r := range out {
		if r.Content == previous[2].Content {
			distinctPos = i
		}
		if r.Content == previous[1].Content {
			duplicatePos = i
		}
	}
	if distinctPos == -1 || duplicatePos == -1 {
		t.Fatalf("expected both documents present in output: %v", out)
	}
	if distinctPos > duplicatePos {
		t.Errorf("distinct document ranked at %d, duplicate at %d; want distinct ranked higher", distinctPos, duplicatePos)
	}
}

func TestDiversityFilterStage_RecordsMMRScoreExceptForSeed(t *testing.T) {
	s := NewDiversityFilterStage()
	previous := []Result{
		{Content: "a b c", Score: 1.0, Metadata: map[string]any{}},
		{Content: "d e f", Score: 0.8, Metadata: map[string]any{}},
	}

	out, err := s.Process(context.Background(), previous, newExecContext("q", 10, "p", "req"))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if _, ok := out[1].Metadata["mmr_score"]; !ok {
		t.Error("expected mmr_score set on the second-selected result")
	}
}

func TestDiversityFilterStage_SingleResult_Passthrough(t *testing.T) {
	s := NewDiversityFilterStage()
	previous := []Result{{Content: "only one", Score: 1.0}}
	out, err := s.Process(context.Background(), previous, newExecContext("q", 10, "p", "req"))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("Process() returned %d results, want 1", len(out))
	}
}

func TestJaccard_DisjointSets(t *testing.T) {
	a := map[string]bool{"x": true}
	b := map[string]bool{"y": true}
	if got := jaccard(a, b); got != 0 {
		t.Errorf("jaccard(disjoint) = %v, want 0", got)
	}
}
