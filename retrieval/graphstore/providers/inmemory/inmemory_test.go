package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/windlass-ai/retrievalkit/retrieval/graphstore"
)

func TestStore_SearchByEntities_ScoresByMatchFraction(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.UpsertNode(ctx, graphstore.Node{ID: "1", Properties: map[string]any{
		"entities": []string{"alice", "bob"},
		"content":  "doc one",
	}})
	s.UpsertNode(ctx, graphstore.Node{ID: "2", Properties: map[string]any{
		"entities": []string{"alice"},
		"content":  "doc two",
	}})

	hits, err := s.SearchByEntities(ctx, []string{"alice", "bob"}, 10)
	if err != nil {
		t.Fatalf("SearchByEntities returned error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("SearchByEntities returned %d hits, want 2", len(hits))
	}
	if hits[0].DocID != "1" || hits[0].Score != 1.0 {
		t.Errorf("top hit = %+v, want doc 1 with score 1.0 (both entities match)", hits[0])
	}
	if hits[1].DocID != "2" || hits[1].Score != 0.5 {
		t.Errorf("second hit = %+v, want doc 2 with score 0.5", hits[1])
	}
}

func TestStore_SearchByEntities_CaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.UpsertNode(ctx, graphstore.Node{ID: "1", Properties: map[string]any{"entities": []string{"Alice"}}})

	hits, err := s.SearchByEntities(ctx, []string{"alice"}, 10)
	if err != nil {
		t.Fatalf("SearchByEntities returned error: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("SearchByEntities returned %d hits, want 1", len(hits))
	}
}

func TestStore_SearchByEntities_TopKLimit(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3"} {
		s.UpsertNode(ctx, graphstore.Node{ID: id, Properties: map[string]any{"entities": []string{"x"}}})
	}

	hits, err := s.SearchByEntities(ctx, []string{"x"}, 2)
	if err != nil {
		t.Fatalf("SearchByEntities returned error: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("SearchByEntities returned %d hits, want 2 (topK)", len(hits))
	}
}

func TestStore_FindRelatedDocs_RespectsMaxHopsAndValidity(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	s.UpsertNode(ctx, graphstore.Node{ID: "a", Properties: map[string]any{"entities": []string{"x"}, "content": "a"}})
	s.UpsertNode(ctx, graphstore.Node{ID: "b", Properties: map[string]any{"entities": []string{"x"}, "content": "b"}})
	s.UpsertNode(ctx, graphstore.Node{ID: "c", Properties: map[string]any{"content": "c"}})
	s.UpsertNode(ctx, graphstore.Node{ID: "expired", Properties: map[string]any{"content": "expired"}})

	s.UpsertEdge(ctx, graphstore.Edge{From: "a", To: "b", Relation: "rel", ValidFrom: now.Add(-time.Hour)})
	s.UpsertEdge(ctx, graphstore.Edge{From: "b", To: "c", Relation: "rel", ValidFrom: now.Add(-time.Hour)})
	s.UpsertEdge(ctx, graphstore.Edge{
		From: "a", To: "expired", Relation: "rel",
		ValidFrom: now.Add(-2 * time.Hour), ValidUntil: now.Add(-time.Hour),
	})

	related, err := s.FindRelatedDocs(ctx, "a", 1, 10)
	if err != nil {
		t.Fatalf("FindRelatedDocs returned error: %v", err)
	}
	if len(related) != 1 || related[0].DocID != "b" {
		t.Errorf("FindRelatedDocs(maxHops=1) = %v, want only b (c is 2 hops, expired edge invalid)", related)
	}

	related, err = s.FindRelatedDocs(ctx, "a", 2, 10)
	if err != nil {
		t.Fatalf("FindRelatedDocs returned error: %v", err)
	}
	if len(related) != 2 {
		t.Errorf("FindRelatedDocs(maxHops=2) returned %d, want 2 (b and c)", len(related))
	}
}

func TestStore_DeleteNode_RemovesInboundEdges(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.UpsertNode(ctx, graphstore.Node{ID: "a", Properties: map[string]any{}})
	s.UpsertNode(ctx, graphstore.Node{ID: "b", Properties: map[string]any{}})
	s.UpsertEdge(ctx, graphstore.Edge{From: "a", To: "b", ValidFrom: time.Now().Add(-time.Hour)})

	if err := s.DeleteNode(ctx, "b"); err != nil {
		t.Fatalf("DeleteNode returned error: %v", err)
	}

	related, err := s.FindRelatedDocs(ctx, "a", 2, 10)
	if err != nil {
		t.Fatalf("FindRelatedDocs returned error: %v", err)
	}
	if len(related) != 0 {
		t.Errorf("FindRelatedDocs after deleting b = %v, want empty", related)
	}
}

func TestEdge_CurrentlyValid(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		edge graphstore.Edge
		want bool
	}{
		{"no bounds is always valid", graphstore.Edge{}, true},
		{"future start is invalid", graphstore.Edge{ValidFrom: now.Add(time.Hour)}, false},
		{"past end is invalid", graphstore.Edge{ValidUntil: now.Add(-time.Hour)}, false},
		{"within window is valid", graphstore.Edge{ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour)}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.edge.CurrentlyValid(now); got != c.want {
				t.Errorf("CurrentlyValid() = %v, want %v", got, c.want)
			}
		})
	}
}

var _ graphstore.GraphStore = (*Store)(nil)
