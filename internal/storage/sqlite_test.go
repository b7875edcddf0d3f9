package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	// Use in-memory database for testing
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestNode(agentID, name, entityType string, observations ...string) types.Node {
	if observations == nil {
		observations = []string{}
	}
	return types.Node{
		ID:           uuid.NewString(),
		AgentID:      agentID,
		Name:         name,
		EntityType:   entityType,
		Observations: observations,
		Timestamp:    time.Now().UnixMilli(),
		Version:      1,
	}
}

func newTestRelation(fromID, toID, relationType string) types.Relation {
	return types.Relation{
		ID:           uuid.NewString(),
		FromNodeID:   fromID,
		ToNodeID:     toID,
		RelationType: relationType,
		Timestamp:    time.Now().UnixMilli(),
		Version:      1,
	}
}

func TestInsertAndGetNodesByName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	nodes := []types.Node{
		newTestNode("agent-1", "AuthService", "class", "handles login"),
		newTestNode("agent-1", "Database", "module"),
	}
	require.NoError(t, store.InsertNodes(ctx, "agent-1", nodes))

	found, err := store.GetNodesByName(ctx, "agent-1", []string{"AuthService", "Database", "Missing"})
	require.NoError(t, err)
	// Misses are dropped silently
	assert.Len(t, found, 2)

	byName := map[string]types.Node{}
	for _, n := range found {
		byName[n.Name] = n
	}
	assert.Equal(t, "class", byName["AuthService"].EntityType)
	assert.Equal(t, []string{"handles login"}, byName["AuthService"].Observations)
	assert.Equal(t, []string{}, byName["Database"].Observations)
}

func TestGetNodesByName_CaseSensitive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertNodes(ctx, "agent-1", []types.Node{
		newTestNode("agent-1", "AuthService", "class"),
	}))

	found, err := store.GetNodesByName(ctx, "agent-1", []string{"authservice"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestAgentIsolation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertNodes(ctx, "agent-1", []types.Node{
		newTestNode("agent-1", "Shared", "concept"),
	}))

	found, err := store.GetNodesByName(ctx, "agent-2", []string{"Shared"})
	require.NoError(t, err)
	assert.Empty(t, found)

	all, err := store.GetAllNodes(ctx, "agent-2")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDuplicateNamesAllowed(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertNodes(ctx, "agent-1", []types.Node{
		newTestNode("agent-1", "Dup", "class"),
		newTestNode("agent-1", "Dup", "function"),
	}))

	found, err := store.GetNodesByName(ctx, "agent-1", []string{"Dup"})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestUpdateNodeObservations_CAS(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	node := newTestNode("agent-1", "CASNode", "concept", "first")
	require.NoError(t, store.InsertNodes(ctx, "agent-1", []types.Node{node}))

	err := store.UpdateNodeObservations(ctx, "agent-1", node.ID, []string{"first", "second"}, 1)
	require.NoError(t, err)

	updated, err := store.GetNodeByID(ctx, "agent-1", node.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, []string{"first", "second"}, updated.Observations)

	// Stale version loses the race
	err = store.UpdateNodeObservations(ctx, "agent-1", node.ID, []string{"stale"}, 1)
	assert.ErrorIs(t, err, ErrVersionConflict)

	// Missing node is reported as such, not as a conflict
	err = store.UpdateNodeObservations(ctx, "agent-1", uuid.NewString(), []string{"x"}, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteNode_LeavesRelations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := newTestNode("agent-1", "A", "class")
	b := newTestNode("agent-1", "B", "class")
	require.NoError(t, store.InsertNodes(ctx, "agent-1", []types.Node{a, b}))
	require.NoError(t, store.InsertRelations(ctx, "agent-1", []types.Relation{
		newTestRelation(a.ID, b.ID, "depends_on"),
	}))

	deleted, err := store.DeleteNode(ctx, "agent-1", a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// No cascade: the relation row survives the node delete
	relations, err := store.GetAllRelations(ctx, "agent-1")
	require.NoError(t, err)
	assert.Len(t, relations, 1)

	deleted, err = store.DeleteNode(ctx, "agent-1", a.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteRelation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := newTestNode("agent-1", "A", "class")
	b := newTestNode("agent-1", "B", "class")
	require.NoError(t, store.InsertNodes(ctx, "agent-1", []types.Node{a, b}))

	rel := newTestRelation(a.ID, b.ID, "calls")
	require.NoError(t, store.InsertRelations(ctx, "agent-1", []types.Relation{rel}))

	deleted, err := store.DeleteRelation(ctx, "agent-1", rel.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteRelation(ctx, "agent-1", rel.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSearchNodes(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertNodes(ctx, "agent-1", []types.Node{
		newTestNode("agent-1", "src/auth.ts", "file", "authentication entry point"),
		newTestNode("agent-1", "src/db.ts", "file", "database pool"),
		newTestNode("agent-1", "AuthService", "class"),
	}))

	// Substring over name
	found, err := store.SearchNodes(ctx, "agent-1", "auth", "")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	// Narrowed by entity type
	found, err = store.SearchNodes(ctx, "agent-1", "auth", "file")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "src/auth.ts", found[0].Name)

	// Substring over observation text
	found, err = store.SearchNodes(ctx, "agent-1", "database pool", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "src/db.ts", found[0].Name)

	// Empty term with a type filter returns all of that type
	found, err = store.SearchNodes(ctx, "agent-1", "", "file")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestRankNodesByDegree(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	hub := newTestNode("agent-1", "hub", "class")
	s1 := newTestNode("agent-1", "spoke1", "class")
	s2 := newTestNode("agent-1", "spoke2", "class")
	lone := newTestNode("agent-1", "lone", "class")
	require.NoError(t, store.InsertNodes(ctx, "agent-1", []types.Node{hub, s1, s2, lone}))
	require.NoError(t, store.InsertRelations(ctx, "agent-1", []types.Relation{
		newTestRelation(hub.ID, s1.ID, "calls"),
		newTestRelation(s2.ID, hub.ID, "calls"),
	}))

	ranks, err := store.RankNodesByDegree(ctx, "agent-1", 2)
	require.NoError(t, err)
	require.Len(t, ranks, 2)
	assert.Equal(t, "hub", ranks[0].Node.Name)
	assert.Equal(t, 2, ranks[0].Degree)
	assert.Equal(t, 1, ranks[1].Degree)
}
