package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDiagramGraph(t *testing.T, m *Manager) {
	t.Helper()
	createTestEntities(t, m,
		EntityInput{Name: "src", EntityType: "directory"},
		EntityInput{Name: "src/main.ts", EntityType: "file"},
		EntityInput{Name: "src/auth.ts", EntityType: "file"},
		EntityInput{Name: "lodash", EntityType: "module"},
	)
	_, err := m.CreateRelations(context.Background(), testAgent, []RelationInput{
		{From: "src", To: "src/main.ts", RelationType: "contains_item"},
		{From: "src", To: "src/auth.ts", RelationType: "contains_item"},
		{From: "src/main.ts", To: "src/auth.ts", RelationType: "imports_file"},
		{From: "src/main.ts", To: "lodash", RelationType: "imports_module"},
	})
	require.NoError(t, err)
}

func TestMermaidOverviewMode(t *testing.T) {
	m := setupManager(t)
	seedDiagramGraph(t, m)

	out, err := m.GenerateMermaidGraph(context.Background(), testAgent, MermaidOptions{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `"src/main.ts"`)
	assert.Contains(t, out, "|contains_item|")
	assert.Contains(t, out, "nodes,")
}

func TestMermaidFreeTextMode(t *testing.T) {
	m := setupManager(t)
	seedDiagramGraph(t, m)

	out, err := m.GenerateMermaidGraph(context.Background(), testAgent, MermaidOptions{Query: "auth"})
	require.NoError(t, err)

	// Traversal expansion from the auth seed reaches its neighbors
	assert.Contains(t, out, `"src/auth.ts"`)
	assert.Contains(t, out, `"src/main.ts"`)
}

func TestMermaidNaturalLanguageModeWithoutAI(t *testing.T) {
	m := setupManager(t)
	seedDiagramGraph(t, m)

	out, err := m.GenerateMermaidGraph(context.Background(), testAgent, MermaidOptions{
		Query:           "auth",
		NaturalLanguage: true,
	})
	require.NoError(t, err, "nl mode degrades to search without an ai service")
	assert.Contains(t, out, `"src/auth.ts"`)
}

func TestMermaidExcludeImports(t *testing.T) {
	m := setupManager(t)
	seedDiagramGraph(t, m)

	out, err := m.GenerateMermaidGraph(context.Background(), testAgent, MermaidOptions{
		ExcludeImports: true,
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "|imports_file|")
	assert.NotContains(t, out, "|imports_module|")
	assert.Contains(t, out, "|contains_item|")
}

func TestMermaidExcludeRelationTypes(t *testing.T) {
	m := setupManager(t)
	seedDiagramGraph(t, m)

	out, err := m.GenerateMermaidGraph(context.Background(), testAgent, MermaidOptions{
		ExcludeRelationTypes: []string{"contains_item"},
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "|contains_item|")
	assert.Contains(t, out, "|imports_file|")
}

func TestMermaidEmptyGraphPlaceholder(t *testing.T) {
	m := setupManager(t)

	out, err := m.GenerateMermaidGraph(context.Background(), testAgent, MermaidOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "No graph data")
}

func TestMermaidNoSearchMatchesPlaceholder(t *testing.T) {
	m := setupManager(t)
	seedDiagramGraph(t, m)

	out, err := m.GenerateMermaidGraph(context.Background(), testAgent, MermaidOptions{Query: "zzz-nothing"})
	require.NoError(t, err)
	assert.Contains(t, out, "No graph data")
}

func TestMermaidLegendAndDirection(t *testing.T) {
	m := setupManager(t)
	seedDiagramGraph(t, m)

	out, err := m.GenerateMermaidGraph(context.Background(), testAgent, MermaidOptions{
		Direction:     "LR",
		IncludeLegend: true,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph LR\n"))
	assert.Contains(t, out, "subgraph Legend")
}

func TestMermaidNodeCap(t *testing.T) {
	m := setupManager(t)
	seedDiagramGraph(t, m)

	out, err := m.GenerateMermaidGraph(context.Background(), testAgent, MermaidOptions{MaxNodes: 2})
	require.NoError(t, err)
	assert.Contains(t, out, "2 nodes")
}

func TestMermaidLabelEscaping(t *testing.T) {
	m := setupManager(t)
	createTestEntities(t, m, EntityInput{Name: `say "hi"`, EntityType: "function"})

	out, err := m.GenerateMermaidGraph(context.Background(), testAgent, MermaidOptions{Query: "say"})
	require.NoError(t, err)
	assert.Contains(t, out, "say #quot;hi#quot;")
}
