// Package storage provides persistence for per-agent knowledge graphs.
//
// The Store interface defines typed node and relation CRUD, exact-name
// lookup, substring search, bounded breadth-first traversal, and a
// degree-ranking aggregation. Every operation is scoped by agent id; no
// cross-agent visibility is possible through any Store method.
//
// The SQLite implementation supports two drivers selected at build time:
// modernc.org/sqlite (pure Go, default) and mattn/go-sqlite3 (cgo, with
// the sqlite_cgo build tag). Schema changes are applied through
// semver-ordered migrations at open time.
//
// Storage-layer faults are returned as *StorageError values carrying the
// failing operation name and agent id. "Row not found" conditions are
// reported through boolean results or short result sets, not errors; the
// graph manager turns those into per-item failures.
package storage
