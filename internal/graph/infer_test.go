package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rashee1997/memgraph-mcp/internal/ai"
)

func TestInferRelationsRequiresAI(t *testing.T) {
	m := setupManager(t)

	_, err := m.InferRelations(context.Background(), testAgent, nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrUnavailable))
}

func TestInferRelationsMaterializesHighConfidence(t *testing.T) {
	m := setupManager(t, WithAI(&fakeAI{response: `[
		{"from": "AuthService", "to": "Database", "relationType": "uses", "confidence": 0.95, "evidence": "queries users table"},
		{"from": "AuthService", "to": "Logger", "relationType": "uses", "confidence": 0.5}
	]`}))
	createTestEntities(t, m,
		EntityInput{Name: "AuthService", EntityType: "class"},
		EntityInput{Name: "Database", EntityType: "class"},
		EntityInput{Name: "Logger", EntityType: "class"},
	)

	inferred, err := m.InferRelations(context.Background(), testAgent, nil, "")
	require.NoError(t, err)
	require.Len(t, inferred, 2)

	byTo := map[string]InferredRelation{}
	for _, rel := range inferred {
		byTo[rel.To] = rel
	}
	assert.Equal(t, "created", byTo["Database"].Status)
	assert.Equal(t, "proposed", byTo["Logger"].Status)

	view, err := m.ReadGraph(context.Background(), testAgent)
	require.NoError(t, err)
	require.Len(t, view.Relations, 1, "only the high-confidence proposal is materialized")
	assert.Equal(t, "uses", view.Relations[0].RelationType)
}

func TestInferRelationsRejectsUnknownEndpointsAndVocabulary(t *testing.T) {
	m := setupManager(t, WithAI(&fakeAI{response: `[
		{"from": "AuthService", "to": "Ghost", "relationType": "uses", "confidence": 0.9},
		{"from": "AuthService", "to": "Database", "relationType": "summons", "confidence": 0.9},
		{"from": "AuthService", "to": "AuthService", "relationType": "uses", "confidence": 0.9}
	]`}))
	createTestEntities(t, m,
		EntityInput{Name: "AuthService", EntityType: "class"},
		EntityInput{Name: "Database", EntityType: "class"},
	)

	inferred, err := m.InferRelations(context.Background(), testAgent, nil, "")
	require.NoError(t, err)
	assert.Empty(t, inferred)
}

func TestInferRelationsSkipsExistingTriples(t *testing.T) {
	m := setupManager(t, WithAI(&fakeAI{response: `[
		{"from": "A", "to": "B", "relationType": "uses", "confidence": 0.9}
	]`}))
	createTestEntities(t, m,
		EntityInput{Name: "A", EntityType: "class"},
		EntityInput{Name: "B", EntityType: "class"},
	)
	_, err := m.CreateRelations(context.Background(), testAgent, []RelationInput{
		{From: "A", To: "B", RelationType: "uses"},
	})
	require.NoError(t, err)

	inferred, err := m.InferRelations(context.Background(), testAgent, nil, "")
	require.NoError(t, err)
	assert.Empty(t, inferred, "duplicate triples are filtered before creation")
}

func TestInferRelationsThresholdConfigurable(t *testing.T) {
	m := setupManager(t,
		WithAI(&fakeAI{response: `[
			{"from": "A", "to": "B", "relationType": "uses", "confidence": 0.6}
		]`}),
		WithInferThreshold(0.5),
	)
	createTestEntities(t, m,
		EntityInput{Name: "A", EntityType: "class"},
		EntityInput{Name: "B", EntityType: "class"},
	)

	inferred, err := m.InferRelations(context.Background(), testAgent, nil, "")
	require.NoError(t, err)
	require.Len(t, inferred, 1)
	assert.Equal(t, "created", inferred[0].Status)
}

func TestInferRelationsWrappedArray(t *testing.T) {
	m := setupManager(t, WithAI(&fakeAI{response: `{"relations": [
		{"from": "A", "to": "B", "relationType": "calls", "confidence": 0.3}
	]}`}))
	createTestEntities(t, m,
		EntityInput{Name: "A", EntityType: "function"},
		EntityInput{Name: "B", EntityType: "function"},
	)

	inferred, err := m.InferRelations(context.Background(), testAgent, nil, "")
	require.NoError(t, err)
	require.Len(t, inferred, 1)
	assert.Equal(t, "proposed", inferred[0].Status)
}

func TestInferPromptTruncation(t *testing.T) {
	nodes := make([]EntityInput, 0, 30)
	m := setupManager(t, WithAI(&fakeAI{response: `[]`}))
	for i := 0; i < 30; i++ {
		nodes = append(nodes, EntityInput{Name: string(rune('a'+i%26)) + "-node-" + string(rune('0'+i%10)), EntityType: "class"})
	}
	createTestEntities(t, m, nodes...)

	svc := m.ai.(*fakeAI)
	_, err := m.InferRelations(context.Background(), testAgent, nil, "")
	require.NoError(t, err)
	require.Len(t, svc.prompts, 1)
	assert.Contains(t, svc.prompts[0], "... and 10 more")
}
