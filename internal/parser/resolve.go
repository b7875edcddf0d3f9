package parser

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

// tsResolveExtensions are tried in order when a specifier has no extension
var tsResolveExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// ResolveImportPath resolves a relative import specifier against the
// importing file's directory and returns the project-relative path of the
// target. Specifiers that resolve outside projectRoot, directly or through
// a symlink, are rejected with a PathEscapeError.
//
// Compiled-output specifiers ending in .js resolve to a sibling .ts or
// .tsx source when one exists. Extensionless specifiers try the known
// source extensions, then index files.
func ResolveImportPath(projectRoot, importingFile, specifier string) (string, error) {
	if !strings.HasPrefix(specifier, ".") {
		return "", &types.PathEscapeError{Import: specifier, Root: projectRoot}
	}

	rootAbs, err := filepath.Abs(projectRoot)
	if err != nil {
		return "", err
	}

	base := filepath.Dir(importingFile)
	if !filepath.IsAbs(base) {
		base = filepath.Join(rootAbs, base)
	}
	candidate := filepath.Clean(filepath.Join(base, filepath.FromSlash(specifier)))

	// Lexical containment first; a specifier like ../../etc/passwd never
	// touches the filesystem
	if !within(rootAbs, candidate) {
		return "", &types.PathEscapeError{Import: specifier, Root: projectRoot}
	}

	resolved := resolveCandidate(candidate)
	if resolved == "" {
		// Target does not exist on disk; keep the lexical resolution so
		// the graph still records the intended edge
		resolved = candidate
	}

	// A symlink inside the root must not point outside it
	if real, err := filepath.EvalSymlinks(resolved); err == nil {
		realRoot := rootAbs
		if rr, err := filepath.EvalSymlinks(rootAbs); err == nil {
			realRoot = rr
		}
		if !within(realRoot, real) {
			return "", &types.PathEscapeError{Import: specifier, Root: projectRoot}
		}
	}

	rel, err := filepath.Rel(rootAbs, resolved)
	if err != nil {
		return "", &types.PathEscapeError{Import: specifier, Root: projectRoot}
	}
	return filepath.ToSlash(rel), nil
}

// resolveCandidate maps a cleaned absolute candidate to an existing file,
// applying the .js to .ts sibling heuristic and extension probing.
// Returns "" when nothing on disk matches.
func resolveCandidate(candidate string) string {
	if ext := filepath.Ext(candidate); ext == ".js" || ext == ".jsx" || ext == ".mjs" || ext == ".cjs" {
		stem := strings.TrimSuffix(candidate, ext)
		for _, src := range []string{".ts", ".tsx"} {
			if fileExists(stem + src) {
				return stem + src
			}
		}
		if fileExists(candidate) {
			return candidate
		}
		return ""
	}

	if fileExists(candidate) {
		return candidate
	}

	for _, ext := range tsResolveExtensions {
		if fileExists(candidate + ext) {
			return candidate + ext
		}
	}

	// Directory import resolves to its index file
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		for _, ext := range tsResolveExtensions {
			index := filepath.Join(candidate, "index"+ext)
			if fileExists(index) {
				return index
			}
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// within reports whether path is root or beneath it, comparing cleaned
// absolute paths
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}
