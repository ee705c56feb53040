package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/windlass-ai/retrievalkit/retrieval/graphstore"
)

var _ graphstore.GraphStore = (*Store)(nil)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Store{db: db, nodeTable: "graph_nodes", edgeTable: "graph_edges"}, mock
}

func TestStore_UpsertNode_ExecutesInsert(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec("INSERT INTO graph_nodes").
		WithArgs("doc1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "hello world").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpsertNode(context.Background(), graphstore.Node{
		ID:         "doc1",
		Labels:     []string{"Document"},
		Properties: map[string]any{"content": "hello world", "entities": []string{"alice"}},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpsertEdge_DefaultsValidFrom(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec("INSERT INTO graph_edges").
		WithArgs("a", "b", "mentions", sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpsertEdge(context.Background(), graphstore.Edge{From: "a", To: "b", Relation: "mentions"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteNode_RunsInTransaction(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM graph_edges WHERE to_id = \\$1").
		WithArgs("doc1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM graph_nodes WHERE id = \\$1").
		WithArgs("doc1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.DeleteNode(context.Background(), "doc1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SearchByEntities_EmptyEntitiesReturnsNoRows(t *testing.T) {
	store, _ := newTestStore(t)
	hits, err := store.SearchByEntities(context.Background(), nil, 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestStore_SearchByEntities_ScoresAndOrdersHits(t *testing.T) {
	store, mock := newTestStore(t)
	rows := sqlmock.NewRows([]string{"id", "content", "entities"}).
		AddRow("doc1", "about alice and bob", "{alice,bob}").
		AddRow("doc2", "about alice only", "{alice}")
	mock.ExpectQuery("SELECT id, content, entities FROM graph_nodes").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	hits, err := store.SearchByEntities(context.Background(), []string{"alice", "bob"}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "doc1", hits[0].DocID, "the doubly-matched document should rank first")
	require.InDelta(t, 1.0, hits[0].Score, 0.001)
	require.InDelta(t, 0.5, hits[1].Score, 0.001)
}

func TestEdge_CurrentlyValid(t *testing.T) {
	now := time.Now()
	e := graphstore.Edge{ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour)}
	require.True(t, e.CurrentlyValid(now))
	require.False(t, e.CurrentlyValid(now.Add(2*time.Hour)))
}
