package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

// Options controls optional extraction features
type Options struct {
	// IncludeComplexity computes a McCabe-style score per function/method
	IncludeComplexity bool
	// IncludeDecorators captures decorators/attributes as raw strings
	IncludeDecorators bool
}

// DefaultOptions returns the options used when callers pass none
func DefaultOptions() Options {
	return Options{
		IncludeComplexity: true,
		IncludeDecorators: true,
	}
}

// LanguageParser extracts imports and code entities from one language
type LanguageParser interface {
	// Language returns the canonical language name
	Language() string

	// Extensions returns the file extensions this parser handles
	Extensions() []string

	// ParseImports extracts import statements. Pure function of content.
	ParseImports(ctx context.Context, filePath string, content []byte) ([]types.ExtractedImport, error)

	// ParseCodeEntities extracts declarations. projectRoot is used only to
	// compute the project-relative path embedded in each FullName.
	ParseCodeEntities(ctx context.Context, filePath string, content []byte, projectRoot string, opts Options) ([]types.ExtractedCodeEntity, error)
}

// Registry dispatches files to language parsers by extension
type Registry struct {
	byExt map[string]LanguageParser
}

// NewRegistry creates a registry with all built-in language parsers
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]LanguageParser)}
	r.Register(NewTypeScriptParser())
	r.Register(NewPHPParser())
	r.Register(NewPythonParser())
	r.Register(NewJSONLParser())
	return r
}

// Register adds a parser for each of its extensions
func (r *Registry) Register(p LanguageParser) {
	for _, ext := range p.Extensions() {
		r.byExt[ext] = p
	}
}

// ForFile returns the parser handling the file's extension, or nil
func (r *Registry) ForFile(filePath string) LanguageParser {
	return r.byExt[strings.ToLower(filepath.Ext(filePath))]
}

// Extensions returns every extension a registered parser handles
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// projectRelative converts filePath to a forward-slash path relative to
// projectRoot, falling back to the input when it is not under the root
func projectRelative(projectRoot, filePath string) string {
	if projectRoot == "" {
		return filepath.ToSlash(filePath)
	}
	rel, err := filepath.Rel(projectRoot, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(filePath)
	}
	return filepath.ToSlash(rel)
}

// qualifyName builds the FullName for a declaration: project-relative
// path, then the scope chain, joined with "::"
func qualifyName(relPath string, scope []string, name string) string {
	parts := append([]string{}, scope...)
	parts = append(parts, name)
	return relPath + "::" + strings.Join(parts, ".")
}

func parseErr(filePath string, err error) error {
	if err == nil {
		return nil
	}
	return &types.ParseError{File: filePath, Err: err}
}

func syntaxErr(filePath, detail string) error {
	return &types.ParseError{File: filePath, Err: fmt.Errorf("syntax error: %s", detail)}
}
