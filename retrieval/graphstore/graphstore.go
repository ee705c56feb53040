// Package graphstore defines the labeled-property-graph contract the graph
// retriever depends on: entity-anchored search, multi-hop neighbor lookup,
// and node/edge CRUD with temporal edge validity.
package graphstore

import (
	"context"
	"time"
)

// Hit is one document returned by an entity-anchored search.
type Hit struct {
	DocID           string
	Score           float64
	Content         string
	MatchedEntities []string
}

// Related is one document reached by traversing from a seed document.
type Related struct {
	DocID          string
	Score          float64
	Content        string
	Distance       int
	SharedEntities []string
}

// Node is a graph vertex.
type Node struct {
	ID         string
	Labels     []string
	Properties map[string]any
}

// Edge connects two nodes and carries a temporal validity window. An edge
// is currently valid iff ValidFrom is not after now and (ValidUntil is zero
// or after now).
type Edge struct {
	From       string
	To         string
	Relation   string
	ValidFrom  time.Time
	ValidUntil time.Time
}

// CurrentlyValid reports whether the edge is valid at instant now.
func (e Edge) CurrentlyValid(now time.Time) bool {
	if now.Before(e.ValidFrom) {
		return false
	}
	return e.ValidUntil.IsZero() || now.Before(e.ValidUntil)
}

// GraphStore is the labeled-property-graph backend the graph retriever
// queries. Implementations are assumed thread-safe; scores are comparable
// only within the results of a single call.
type GraphStore interface {
	// SearchByEntities returns documents linked to any of entities, most
	// relevant first, oversampled to topK.
	SearchByEntities(ctx context.Context, entities []string, topK int) ([]Hit, error)

	// FindRelatedDocs traverses up to maxHops edges from docID and returns
	// neighboring documents, limited to limit results.
	FindRelatedDocs(ctx context.Context, docID string, maxHops, limit int) ([]Related, error)

	// UpsertNode inserts or replaces a node.
	UpsertNode(ctx context.Context, node Node) error

	// UpsertEdge inserts or replaces an edge.
	UpsertEdge(ctx context.Context, edge Edge) error

	// DeleteNode removes a node and any edges touching it.
	DeleteNode(ctx context.Context, id string) error
}
