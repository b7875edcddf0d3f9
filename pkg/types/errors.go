package types

import "fmt"

// ParseError wraps a syntax failure in one source file. Ingestion catches
// it per file, logs, and continues with the remaining files.
type ParseError struct {
	File string
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

// Unwrap returns the underlying syntax error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// PathEscapeError reports an import specifier that resolves outside the
// configured project root. This is a security boundary: the resolution is
// rejected, not silently corrected.
type PathEscapeError struct {
	Import string
	Root   string
}

// Error implements the error interface.
func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("import %q resolves outside project root %s", e.Import, e.Root)
}
