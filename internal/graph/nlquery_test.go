package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAI returns canned responses, or an error, for every prompt
type fakeAI struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeAI) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeAI) Model() string { return "fake-model" }

func TestNLQueryWithoutAIFallsBack(t *testing.T) {
	m := setupManager(t)
	createTestEntities(t, m, EntityInput{Name: "src/db.ts", EntityType: "file", Observations: []string{"database pooling"}})

	result, err := m.QueryNaturalLanguage(context.Background(), testAgent, "database")
	require.NoError(t, err)

	assert.False(t, result.Metadata.UsedGemini)
	require.Len(t, result.Metadata.TranslatedOperations, 1)
	op := result.Metadata.TranslatedOperations[0]
	assert.Equal(t, "search_nodes", op.Operation)
	assert.Equal(t, map[string]interface{}{"query": "database"}, op.Args)

	require.Len(t, result.Results, 1)
	assert.Equal(t, "src/db.ts", result.Results[0].Name)
}

func TestNLQueryAIErrorFallsBack(t *testing.T) {
	m := setupManager(t, WithAI(&fakeAI{err: errors.New("quota exceeded")}))
	createTestEntities(t, m, EntityInput{Name: "src/db.ts", EntityType: "file"})

	result, err := m.QueryNaturalLanguage(context.Background(), testAgent, "db")
	require.NoError(t, err, "ai faults never propagate from nl query")
	assert.False(t, result.Metadata.UsedGemini)
	assert.Contains(t, result.Metadata.FallbackReason, "ai call failed")
}

func TestNLQueryUnparseableAnalysisFallsBack(t *testing.T) {
	m := setupManager(t, WithAI(&fakeAI{response: "definitely not json"}))
	createTestEntities(t, m, EntityInput{Name: "src/db.ts", EntityType: "file"})

	result, err := m.QueryNaturalLanguage(context.Background(), testAgent, "db")
	require.NoError(t, err)
	assert.False(t, result.Metadata.UsedGemini)
}

func TestNLQueryUnknownStrategyFallsBack(t *testing.T) {
	m := setupManager(t, WithAI(&fakeAI{response: `{"search_strategy": "quantum"}`}))
	createTestEntities(t, m, EntityInput{Name: "src/db.ts", EntityType: "file"})

	result, err := m.QueryNaturalLanguage(context.Background(), testAgent, "db")
	require.NoError(t, err)
	assert.False(t, result.Metadata.UsedGemini)
	assert.Contains(t, result.Metadata.FallbackReason, "quantum")
}

func TestNLQuerySemanticStrategy(t *testing.T) {
	m := setupManager(t, WithAI(&fakeAI{response: `{
		"search_strategy": "semantic",
		"semantic_keywords": ["auth"]
	}`}))
	createTestEntities(t, m,
		EntityInput{Name: "src/auth.ts", EntityType: "file"},
		EntityInput{Name: "src/db.ts", EntityType: "file"},
	)

	result, err := m.QueryNaturalLanguage(context.Background(), testAgent, "where is authentication handled")
	require.NoError(t, err)

	assert.True(t, result.Metadata.UsedGemini)
	assert.Equal(t, "fake-model", result.Metadata.Model)
	assert.Equal(t, "semantic", result.Metadata.SearchStrategy)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "src/auth.ts", result.Results[0].Name)
}

func TestNLQueryTraversalStrategyDeduplicates(t *testing.T) {
	m := setupManager(t, WithAI(&fakeAI{response: `{
		"search_strategy": "traversal",
		"graph_traversal_rules": [
			{"start_nodes": ["a", "b"], "depth": 1}
		]
	}`}))
	createTestEntities(t, m,
		EntityInput{Name: "a", EntityType: "file"},
		EntityInput{Name: "b", EntityType: "file"},
	)
	_, err := m.CreateRelations(context.Background(), testAgent, []RelationInput{
		{From: "a", To: "b", RelationType: "imports_file"},
	})
	require.NoError(t, err)

	result, err := m.QueryNaturalLanguage(context.Background(), testAgent, "what does a import")
	require.NoError(t, err)

	// Both traversals reach both nodes; dedup keeps each once
	assert.Len(t, result.Results, 2)
	assert.Len(t, result.Metadata.TranslatedOperations, 2)
}

func TestNLQueryOperationCap(t *testing.T) {
	m := setupManager(t, WithAI(&fakeAI{response: `{
		"search_strategy": "traversal",
		"graph_traversal_rules": [
			{"start_nodes": ["a", "b", "c", "d", "e", "f"], "depth": 1}
		]
	}`}))
	createTestEntities(t, m, EntityInput{Name: "a", EntityType: "file"})

	result, err := m.QueryNaturalLanguage(context.Background(), testAgent, "fan out")
	require.NoError(t, err)
	assert.Len(t, result.Metadata.TranslatedOperations, maxTranslatedOps)
}

func TestNLQueryAggregationStrategy(t *testing.T) {
	m := setupManager(t, WithAI(&fakeAI{response: `{"search_strategy": "aggregation"}`}))
	createTestEntities(t, m,
		EntityInput{Name: "hub", EntityType: "file"},
		EntityInput{Name: "leaf", EntityType: "file"},
	)
	_, err := m.CreateRelations(context.Background(), testAgent, []RelationInput{
		{From: "hub", To: "leaf", RelationType: "imports_file"},
	})
	require.NoError(t, err)

	result, err := m.QueryNaturalLanguage(context.Background(), testAgent, "most connected nodes")
	require.NoError(t, err)
	require.Len(t, result.Metadata.TranslatedOperations, 1)
	assert.Equal(t, OpRankByDegree, result.Metadata.TranslatedOperations[0].Operation)
	require.NotEmpty(t, result.Results)
	assert.Equal(t, "hub", result.Results[0].Name)
}

func TestGraphContextBound(t *testing.T) {
	m := setupManager(t)
	createTestEntities(t, m, EntityInput{Name: "a", EntityType: "file", Observations: []string{"x"}})

	serialized, err := m.buildGraphContext(context.Background(), testAgent)
	require.NoError(t, err)
	assert.Contains(t, serialized, "a (file)")
	assert.LessOrEqual(t, len(serialized), maxGraphContextChars)
}
