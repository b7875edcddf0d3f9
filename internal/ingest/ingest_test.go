package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rashee1997/memgraph-mcp/internal/graph"
	"github.com/rashee1997/memgraph-mcp/internal/parser"
	"github.com/rashee1997/memgraph-mcp/internal/storage"
	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

const testAgent = "agent-1"

func setupIngestor(t *testing.T) (*Ingestor, *graph.Manager) {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	manager := graph.NewManager(store)
	cached := parser.NewCachedParser(parser.NewRegistry(), parser.NoopCache{}, parser.DefaultOptions())
	return NewIngestor(manager, cached, nil), manager
}

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setupProject(t *testing.T) string {
	root := t.TempDir()
	writeSource(t, root, "main.ts", `import { helper } from "./util";
export function run() { helper(); }
`)
	writeSource(t, root, "util.ts", `export function helper() {}
`)
	writeSource(t, root, "notes.txt", "plain text\n")
	return root
}

func TestIngestStructureRoundTrip(t *testing.T) {
	ing, manager := setupIngestor(t)
	ctx := context.Background()
	root := setupProject(t)

	report, err := ing.IngestCodebaseStructure(ctx, testAgent, root, StructureOptions{ParseImports: true})
	require.NoError(t, err)

	// Root directory + 3 files
	assert.Equal(t, 4, report.NodesCreated)
	assert.Empty(t, report.FilesSkipped)
	assert.Equal(t, 2, report.FilesParsed, "only the two supported source files are parsed")

	view, err := manager.ReadGraph(ctx, testAgent)
	require.NoError(t, err)
	require.Len(t, view.Nodes, 4)

	byName := map[string]types.Node{}
	for _, node := range view.Nodes {
		byName[node.Name] = node
	}
	assert.Equal(t, "directory", byName["."].EntityType)
	assert.Equal(t, "file", byName["main.ts"].EntityType)
	assert.Contains(t, byName["main.ts"].Observations, "language: typescript")

	var contains, importsFile int
	for _, rel := range view.Relations {
		switch rel.RelationType {
		case types.RelationContainsItem:
			contains++
		case types.RelationImportsFile:
			importsFile++
			assert.Equal(t, "main.ts", rel.From)
			assert.Equal(t, "util.ts", rel.To)
		}
	}
	assert.Equal(t, 3, contains, "one containment per parent/child pair")
	assert.Equal(t, 1, importsFile)
}

func TestIngestStructureRerunDoesNotFail(t *testing.T) {
	ing, manager := setupIngestor(t)
	ctx := context.Background()
	root := setupProject(t)

	_, err := ing.IngestCodebaseStructure(ctx, testAgent, root, StructureOptions{ParseImports: true})
	require.NoError(t, err)
	_, err = ing.IngestCodebaseStructure(ctx, testAgent, root, StructureOptions{ParseImports: true})
	require.NoError(t, err, "re-ingestion duplicates nodes but never crashes")

	view, err := manager.ReadGraph(ctx, testAgent)
	require.NoError(t, err)
	assert.Len(t, view.Nodes, 8)
}

func TestIngestModuleImports(t *testing.T) {
	ing, manager := setupIngestor(t)
	ctx := context.Background()
	root := t.TempDir()
	writeSource(t, root, "app.ts", `import { readFile } from "fs";
`)

	_, err := ing.IngestCodebaseStructure(ctx, testAgent, root, StructureOptions{ParseImports: true})
	require.NoError(t, err)

	view, err := manager.ReadGraph(ctx, testAgent)
	require.NoError(t, err)

	var moduleNode bool
	for _, node := range view.Nodes {
		if node.Name == "fs" && node.EntityType == "module" {
			moduleNode = true
		}
	}
	assert.True(t, moduleNode, "bare specifiers become module nodes")

	var importsModule int
	for _, rel := range view.Relations {
		if rel.RelationType == types.RelationImportsModule {
			importsModule++
			assert.Equal(t, "fs", rel.To)
		}
	}
	assert.Equal(t, 1, importsModule)
}

func TestIngestJSSpecifierResolvesToTS(t *testing.T) {
	ing, manager := setupIngestor(t)
	ctx := context.Background()
	root := t.TempDir()
	writeSource(t, root, "main.ts", `import { helper } from "./util.js";
`)
	writeSource(t, root, "util.ts", `export function helper() {}
`)

	_, err := ing.IngestCodebaseStructure(ctx, testAgent, root, StructureOptions{ParseImports: true})
	require.NoError(t, err)

	view, err := manager.ReadGraph(ctx, testAgent)
	require.NoError(t, err)

	var found bool
	for _, rel := range view.Relations {
		if rel.RelationType == types.RelationImportsFile {
			found = true
			assert.Equal(t, "util.ts", rel.To, "compiled .js specifier resolves to the .ts source")
		}
	}
	assert.True(t, found)
}

func TestIngestSkipsBrokenFileAndContinues(t *testing.T) {
	ing, _ := setupIngestor(t)
	ctx := context.Background()
	root := t.TempDir()
	writeSource(t, root, "good.py", "import os\n")
	// Unreadable rather than unparseable: tree-sitter recovers from most
	// syntax damage, a permission error it cannot
	badPath := filepath.Join(root, "bad.py")
	require.NoError(t, os.WriteFile(badPath, []byte("import sys\n"), 0o000))
	if _, err := os.ReadFile(badPath); err == nil {
		t.Skip("running as a user that ignores file modes")
	}

	report, err := ing.IngestCodebaseStructure(ctx, testAgent, root, StructureOptions{ParseImports: true})
	require.NoError(t, err, "one broken file never aborts the run")
	assert.Equal(t, 1, report.FilesParsed)
	assert.Equal(t, []string{"bad.py"}, report.FilesSkipped)
}

func TestIngestFileEntities(t *testing.T) {
	ing, manager := setupIngestor(t)
	ctx := context.Background()
	root := t.TempDir()
	writeSource(t, root, "svc.ts", `export class Foo { bar() { baz(); } }`)

	_, err := ing.IngestCodebaseStructure(ctx, testAgent, root, StructureOptions{})
	require.NoError(t, err)

	report, err := ing.IngestFileEntities(ctx, testAgent, "svc.ts", root)
	require.NoError(t, err)
	assert.Equal(t, 2, report.NodesCreated)
	assert.Equal(t, 2, report.RelationsCreated)

	nodes, err := manager.SearchNodes(ctx, testAgent, "entityType:class")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "svc.ts::Foo", nodes[0].Name)
	assert.Contains(t, nodes[0].Observations, "exported")

	methods, err := manager.SearchNodes(ctx, testAgent, "entityType:method")
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Contains(t, methods[0].Observations, "calls baz")
}

func TestIngestRejectsMissingRoot(t *testing.T) {
	ing, _ := setupIngestor(t)

	_, err := ing.IngestCodebaseStructure(context.Background(), testAgent, "/nonexistent/path", StructureOptions{})
	require.Error(t, err)
}

func TestIngestFileEntitiesUnsupported(t *testing.T) {
	ing, _ := setupIngestor(t)
	root := t.TempDir()
	writeSource(t, root, "notes.txt", "hi")

	_, err := ing.IngestFileEntities(context.Background(), testAgent, "notes.txt", root)
	require.Error(t, err)
}
