package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSearchGraph(t *testing.T, m *Manager) {
	t.Helper()
	createTestEntities(t, m,
		EntityInput{Name: "src/auth.ts", EntityType: "file", Observations: []string{"language: typescript"}},
		EntityInput{Name: "src/db.ts", EntityType: "file", Observations: []string{"handles database pooling"}},
		EntityInput{Name: "AuthService", EntityType: "class", Observations: []string{"authentication entry point"}},
	)
}

func TestSearchEntityTypeFilter(t *testing.T) {
	m := setupManager(t)
	seedSearchGraph(t, m)

	nodes, err := m.SearchNodes(context.Background(), testAgent, "entityType:file auth")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "src/auth.ts", nodes[0].Name)
	assert.Equal(t, "file", nodes[0].EntityType)
}

func TestSearchObservationOnly(t *testing.T) {
	m := setupManager(t)
	seedSearchGraph(t, m)

	nodes, err := m.SearchNodes(context.Background(), testAgent, "obs:database")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "src/db.ts", nodes[0].Name)
}

func TestSearchObservationExcludesNameMatches(t *testing.T) {
	m := setupManager(t)
	seedSearchGraph(t, m)

	// "auth" appears in two names but only one observation set
	nodes, err := m.SearchNodes(context.Background(), testAgent, "obs:auth")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "AuthService", nodes[0].Name)
}

func TestSearchEmptyQueryReturnsAll(t *testing.T) {
	m := setupManager(t)
	seedSearchGraph(t, m)

	nodes, err := m.SearchNodes(context.Background(), testAgent, "")
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
}

func TestSearchEntityTypeWithoutTerm(t *testing.T) {
	m := setupManager(t)
	seedSearchGraph(t, m)

	nodes, err := m.SearchNodes(context.Background(), testAgent, "entityType:class")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "AuthService", nodes[0].Name)
}

func TestSearchPlainSubstring(t *testing.T) {
	m := setupManager(t)
	seedSearchGraph(t, m)

	nodes, err := m.SearchNodes(context.Background(), testAgent, "db")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "src/db.ts", nodes[0].Name)
}
