// Package parser extracts code entities and imports from source files.
//
// Each language parser (TypeScript/JavaScript, PHP, Python, JSONL) walks a
// tree-sitter syntax tree and emits the normalized shapes defined in
// pkg/types: ExtractedCodeEntity and ExtractedImport. The Registry picks a
// parser by file extension; the Cached wrapper memoizes results keyed by
// file path, content hash, project root, and options, so unchanged files
// are never re-parsed.
//
// Parsing is a pure function of file content plus the project root (used
// only to compute project-relative paths). Parsers never touch the
// filesystem; import path RESOLUTION (which does, to reject root escapes
// and symlink tricks) lives in resolve.go and is invoked by ingestion,
// not by the parsers themselves.
//
// A syntax failure is reported as *types.ParseError wrapping the
// underlying error with the file path; directory-wide ingestion catches
// it per file and continues.
package parser
