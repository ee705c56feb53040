// Package inmemory provides a non-persistent GraphStore backed by Go maps,
// for tests and local development. Nodes represent documents; the
// "entities" property (a []string) lists the entity texts a document
// mentions, and edges carry the temporal validity GraphStore promises.
package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/windlass-ai/retrievalkit/retrieval/graphstore"
)

type nodeRecord struct {
	node     graphstore.Node
	entities []string
	content  string
}

// Store is a GraphStore held entirely in process memory, guarded by a
// mutex. Traversal is breadth-first and unbounded except by the caller's
// maxHops and limit.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]nodeRecord
	edges map[string][]graphstore.Edge
}

// New constructs an empty in-memory Store.
func New() *Store {
	return &Store{
		nodes: make(map[string]nodeRecord),
		edges: make(map[string][]graphstore.Edge),
	}
}

func (s *Store) UpsertNode(ctx context.Context, node graphstore.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entities []string
	if raw, ok := node.Properties["entities"].([]string); ok {
		entities = raw
	}
	content, _ := node.Properties["content"].(string)

	s.nodes[node.ID] = nodeRecord{node: node, entities: entities, content: content}
	return nil
}

func (s *Store) UpsertEdge(ctx context.Context, edge graphstore.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[edge.From] = append(s.edges[edge.From], edge)
	return nil
}

func (s *Store) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
	delete(s.edges, id)
	for from, edges := range s.edges {
		filtered := edges[:0]
		for _, e := range edges {
			if e.To != id {
				filtered = append(filtered, e)
			}
		}
		s.edges[from] = filtered
	}
	return nil
}

// SearchByEntities scores documents by the fraction of entities they
// mention and returns the topK highest-scoring, ties broken by doc ID for
// determinism.
func (s *Store) SearchByEntities(ctx context.Context, entities []string, topK int) ([]graphstore.Hit, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	wanted := make(map[string]bool, len(entities))
	for _, e := range entities {
		wanted[strings.ToLower(e)] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []graphstore.Hit
	for id, rec := range s.nodes {
		var matched []string
		for _, ent := range rec.entities {
			if wanted[strings.ToLower(ent)] {
				matched = append(matched, ent)
			}
		}
		if len(matched) == 0 {
			continue
		}
		hits = append(hits, graphstore.Hit{
			DocID:           id,
			Score:           float64(len(matched)) / float64(len(entities)),
			Content:         rec.content,
			MatchedEntities: matched,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocID < hits[j].DocID
	})

	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// FindRelatedDocs performs a breadth-first traversal from docID over
// currently-valid edges, up to maxHops, returning at most limit neighbors.
func (s *Store) FindRelatedDocs(ctx context.Context, docID string, maxHops, limit int) ([]graphstore.Related, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	seedEntities := map[string]bool{}
	if rec, ok := s.nodes[docID]; ok {
		for _, e := range rec.entities {
			seedEntities[strings.ToLower(e)] = true
		}
	}

	visited := map[string]int{docID: 0}
	queue := []string{docID}
	var related []graphstore.Related

	for len(queue) > 0 && len(related) < limit {
		current := queue[0]
		queue = queue[1:]
		dist := visited[current]
		if dist >= maxHops {
			continue
		}

		for _, edge := range s.edges[current] {
			if !edge.CurrentlyValid(now) {
				continue
			}
			if _, seen := visited[edge.To]; seen {
				continue
			}
			visited[edge.To] = dist + 1
			queue = append(queue, edge.To)

			rec, ok := s.nodes[edge.To]
			if !ok {
				continue
			}
			var shared []string
			for _, e := range rec.entities {
				if seedEntities[strings.ToLower(e)] {
					shared = append(shared, e)
				}
			}
			related = append(related, graphstore.Related{
				DocID:          edge.To,
				Content:        rec.content,
				Distance:       dist + 1,
				SharedEntities: shared,
			})
			if len(related) >= limit {
				break
			}
		}
	}

	return related, nil
}
