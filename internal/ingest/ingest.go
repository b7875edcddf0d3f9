// Package ingest walks directory trees and loads the resulting file,
// directory, and code entity batches into an agent's knowledge graph.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rashee1997/memgraph-mcp/internal/graph"
	"github.com/rashee1997/memgraph-mcp/internal/parser"
	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

// Directories never descended into during a walk
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
}

// Ingestor drives directory and file ingestion through the graph manager
type Ingestor struct {
	manager *graph.Manager
	parser  *parser.CachedParser
	logger  *log.Logger
}

// NewIngestor creates an Ingestor
func NewIngestor(manager *graph.Manager, cachedParser *parser.CachedParser, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = log.Default()
	}
	return &Ingestor{manager: manager, parser: cachedParser, logger: logger}
}

// Report summarizes one ingestion run
type Report struct {
	NodesCreated     int      `json:"nodesCreated"`
	RelationsCreated int      `json:"relationsCreated"`
	FilesParsed      int      `json:"filesParsed"`
	FilesSkipped     []string `json:"filesSkipped,omitempty"`
}

// StructureOptions controls a codebase-structure ingestion
type StructureOptions struct {
	// ParseImports adds a second pass creating imports_file and
	// imports_module relations from each supported source file
	ParseImports bool `json:"parseImports"`
}

// walkEntry is one filesystem entry discovered during the scan
type walkEntry struct {
	relPath string
	absPath string
	isDir   bool
	size    int64
	modTime time.Time
}

// IngestCodebaseStructure scans rootPath and creates one node per file
// and directory, contains_item relations for every parent/child pair,
// and, when requested, import relations. Per-file parse failures are
// logged and skipped; they never abort the run.
func (ing *Ingestor) IngestCodebaseStructure(ctx context.Context, agentID, rootPath string, opts StructureOptions) (*Report, error) {
	rootAbs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(rootAbs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", rootPath)
	}

	entries, err := scanTree(rootAbs)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	if err := ing.createStructureNodes(ctx, agentID, entries, report); err != nil {
		return nil, err
	}
	if err := ing.createContainment(ctx, agentID, entries, report); err != nil {
		return nil, err
	}
	if opts.ParseImports {
		if err := ing.createImportRelations(ctx, agentID, rootAbs, entries, report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// scanTree collects every entry under root, the root itself included,
// in deterministic path order
func scanTree(rootAbs string) ([]walkEntry, error) {
	entries := make([]walkEntry, 0)
	err := filepath.WalkDir(rootAbs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() && path != rootAbs && (skippedDirs[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(rootAbs, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, walkEntry{
			relPath: filepath.ToSlash(rel),
			absPath: path,
			isDir:   d.IsDir(),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", rootAbs, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].relPath < entries[j].relPath })
	return entries, nil
}

// createStructureNodes batches one entity per entry
func (ing *Ingestor) createStructureNodes(ctx context.Context, agentID string, entries []walkEntry, report *Report) error {
	inputs := make([]graph.EntityInput, 0, len(entries))
	for _, entry := range entries {
		entityType := "file"
		if entry.isDir {
			entityType = "directory"
		}
		observations := []string{
			"path: " + entry.relPath,
			"modified: " + entry.modTime.UTC().Format(time.RFC3339),
		}
		if !entry.isDir {
			observations = append(observations, fmt.Sprintf("size: %d", entry.size))
			if language := ing.parser.Language(entry.relPath); language != "" {
				observations = append(observations, "language: "+language)
			}
		}
		inputs = append(inputs, graph.EntityInput{
			Name:         entry.relPath,
			EntityType:   entityType,
			Observations: observations,
		})
	}

	results, err := ing.manager.CreateEntities(ctx, agentID, inputs)
	if err != nil {
		return err
	}
	for _, result := range results {
		if result.Success {
			report.NodesCreated++
		}
	}
	return nil
}

// createContainment links every entry to its parent directory
func (ing *Ingestor) createContainment(ctx context.Context, agentID string, entries []walkEntry, report *Report) error {
	relations := make([]graph.RelationInput, 0, len(entries))
	for _, entry := range entries {
		if entry.relPath == "." {
			continue
		}
		parent := filepath.ToSlash(filepath.Dir(entry.relPath))
		relations = append(relations, graph.RelationInput{
			From:         parent,
			To:           entry.relPath,
			RelationType: types.RelationContainsItem,
		})
	}
	if len(relations) == 0 {
		return nil
	}

	results, err := ing.manager.CreateRelations(ctx, agentID, relations)
	if err != nil {
		return err
	}
	for _, result := range results {
		if result.Success {
			report.RelationsCreated++
		} else {
			ing.logger.Printf("ingest: containment %s -> %s failed: %s", result.From, result.To, result.Message)
		}
	}
	return nil
}

// parsedImports is the import list for one source file
type parsedImports struct {
	relPath string
	imports []types.ExtractedImport
}

// createImportRelations parses every supported file and links importers
// to their targets. Parsing is pure and fans out across a worker group;
// graph writes stay sequential.
func (ing *Ingestor) createImportRelations(ctx context.Context, agentID, rootAbs string, entries []walkEntry, report *Report) error {
	var mu sync.Mutex
	parsed := make([]parsedImports, 0)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, entry := range entries {
		if entry.isDir || !ing.parser.Supports(entry.relPath) {
			continue
		}
		entry := entry
		g.Go(func() error {
			content, err := os.ReadFile(entry.absPath)
			if err != nil {
				ing.skipFile(&mu, report, entry.relPath, err)
				return nil
			}
			result, err := ing.parser.Parse(gctx, entry.relPath, content, rootAbs)
			if err != nil {
				ing.skipFile(&mu, report, entry.relPath, err)
				return nil
			}
			mu.Lock()
			report.FilesParsed++
			parsed = append(parsed, parsedImports{relPath: entry.relPath, imports: result.Imports})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].relPath < parsed[j].relPath })

	return ing.linkImports(ctx, agentID, rootAbs, parsed, report)
}

// skipFile records a per-file failure without failing the run
func (ing *Ingestor) skipFile(mu *sync.Mutex, report *Report, relPath string, err error) {
	ing.logger.Printf("ingest: skipping %s: %v", relPath, err)
	mu.Lock()
	report.FilesSkipped = append(report.FilesSkipped, relPath)
	mu.Unlock()
}

// linkImports turns parsed imports into graph relations. File imports
// resolve to project-relative node names; imports that leave the root or
// name a bare package become module nodes instead.
func (ing *Ingestor) linkImports(ctx context.Context, agentID, rootAbs string, parsed []parsedImports, report *Report) error {
	moduleNodes := make(map[string]bool)
	var moduleInputs []graph.EntityInput
	var relations []graph.RelationInput

	addModule := func(name string) {
		if !moduleNodes[name] {
			moduleNodes[name] = true
			moduleInputs = append(moduleInputs, graph.EntityInput{
				Name:         name,
				EntityType:   "module",
				Observations: []string{"external module"},
			})
		}
	}

	for _, file := range parsed {
		for _, imp := range file.imports {
			switch imp.Type {
			case types.ImportFile:
				target, err := parser.ResolveImportPath(rootAbs, file.relPath, imp.TargetPath)
				if err != nil {
					var escape *types.PathEscapeError
					if errors.As(err, &escape) {
						// Out of root: treat as an external module
						addModule(imp.TargetPath)
						relations = append(relations, graph.RelationInput{
							From:         file.relPath,
							To:           imp.TargetPath,
							RelationType: types.RelationImportsModule,
						})
						continue
					}
					return err
				}
				relations = append(relations, graph.RelationInput{
					From:         file.relPath,
					To:           target,
					RelationType: types.RelationImportsFile,
				})
			case types.ImportModule:
				addModule(imp.TargetPath)
				relations = append(relations, graph.RelationInput{
					From:         file.relPath,
					To:           imp.TargetPath,
					RelationType: types.RelationImportsModule,
				})
			}
		}
	}

	if len(moduleInputs) > 0 {
		results, err := ing.manager.CreateEntities(ctx, agentID, moduleInputs)
		if err != nil {
			return err
		}
		for _, result := range results {
			if result.Success {
				report.NodesCreated++
			}
		}
	}
	if len(relations) > 0 {
		results, err := ing.manager.CreateRelations(ctx, agentID, relations)
		if err != nil {
			return err
		}
		for _, result := range results {
			if result.Success {
				report.RelationsCreated++
			} else {
				ing.logger.Printf("ingest: import %s -> %s failed: %s", result.From, result.To, result.Message)
			}
		}
	}
	return nil
}

// IngestFileEntities parses one source file and creates a node per
// extracted code entity, linked from the file's node when it exists.
func (ing *Ingestor) IngestFileEntities(ctx context.Context, agentID, filePath, rootPath string) (*Report, error) {
	rootAbs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	absPath := filePath
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(rootAbs, absPath)
	}
	relPath, err := filepath.Rel(rootAbs, absPath)
	if err != nil {
		return nil, fmt.Errorf("relativize %s: %w", filePath, err)
	}
	relPath = filepath.ToSlash(relPath)

	if !ing.parser.Supports(relPath) {
		return nil, fmt.Errorf("no parser for %s", relPath)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", relPath, err)
	}
	result, err := ing.parser.Parse(ctx, relPath, content, rootAbs)
	if err != nil {
		return nil, err
	}

	report := &Report{FilesParsed: 1}
	if len(result.Entities) == 0 {
		return report, nil
	}

	inputs := make([]graph.EntityInput, 0, len(result.Entities))
	for _, entity := range result.Entities {
		inputs = append(inputs, graph.EntityInput{
			Name:         entity.FullName,
			EntityType:   string(entity.Type),
			Observations: entityObservations(entity),
		})
	}
	created, err := ing.manager.CreateEntities(ctx, agentID, inputs)
	if err != nil {
		return nil, err
	}
	for _, r := range created {
		if r.Success {
			report.NodesCreated++
		}
	}

	// Link entities from the file's structure node when one exists
	relations := make([]graph.RelationInput, 0, len(result.Entities))
	for _, entity := range result.Entities {
		relations = append(relations, graph.RelationInput{
			From:         relPath,
			To:           entity.FullName,
			RelationType: types.RelationContainsItem,
		})
	}
	linked, err := ing.manager.CreateRelations(ctx, agentID, relations)
	if err != nil {
		return nil, err
	}
	for _, r := range linked {
		if r.Success {
			report.RelationsCreated++
		}
	}
	return report, nil
}

// entityObservations flattens an extracted entity into observation text
func entityObservations(entity types.ExtractedCodeEntity) []string {
	observations := []string{
		fmt.Sprintf("defined in %s:%d-%d", entity.FilePath, entity.StartLine, entity.EndLine),
	}
	if entity.Signature != "" {
		observations = append(observations, "signature: "+entity.Signature)
	}
	if entity.Docstring != "" {
		observations = append(observations, "doc: "+entity.Docstring)
	}
	if entity.ParentClass != "" {
		observations = append(observations, "parent: "+entity.ParentClass)
	}
	if entity.IsExported {
		observations = append(observations, "exported")
	}
	if entity.IsAsync {
		observations = append(observations, "async")
	}
	if entity.IsStatic {
		observations = append(observations, "static")
	}
	if entity.ReturnType != "" {
		observations = append(observations, "returns: "+entity.ReturnType)
	}
	if entity.Complexity > 0 {
		observations = append(observations, fmt.Sprintf("complexity: %d", entity.Complexity))
	}
	for _, call := range entity.Calls {
		verb := "calls"
		if call.IsNew {
			verb = "instantiates"
		}
		observations = append(observations, fmt.Sprintf("%s %s", verb, call.Name))
	}
	return observations
}
