package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

func TestJSONLRecordsPerLine(t *testing.T) {
	src := []byte(`{"name": "alpha", "score": 1}
{"id": 42, "score": 2}

{"score": 3}
`)

	p := NewJSONLParser()
	entities, err := p.ParseCodeEntities(context.Background(), "data/items.jsonl", src, "", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, entities, 3)

	alpha := findEntity(t, entities, "alpha")
	assert.Equal(t, types.EntityRecord, alpha.Type)
	assert.Equal(t, "data/items.jsonl::alpha", alpha.FullName)
	assert.Equal(t, 1, alpha.StartLine)
	assert.Equal(t, "{name, score}", alpha.Signature)

	byID := findEntity(t, entities, "42")
	assert.Equal(t, 2, byID.StartLine)

	anon := findEntity(t, entities, "record_4")
	assert.Equal(t, 4, anon.StartLine)
}

func TestJSONLMalformedLinesSkipped(t *testing.T) {
	src := []byte(`{"name": "good"}
not json at all
{"name": "also good"}
`)

	p := NewJSONLParser()
	entities, err := p.ParseCodeEntities(context.Background(), "data/mixed.jsonl", src, "", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "good", entities[0].Name)
	assert.Equal(t, "also good", entities[1].Name)
}

func TestJSONLNoImports(t *testing.T) {
	p := NewJSONLParser()
	imports, err := p.ParseImports(context.Background(), "data/items.jsonl", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Empty(t, imports)
}
