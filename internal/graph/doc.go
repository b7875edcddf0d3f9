// Package graph implements the knowledge graph manager: entity and
// relation lifecycle, search with the entityType:/obs: micro-syntax,
// bounded traversal, natural-language query translation, AI relation
// inference, and Mermaid diagram generation.
//
// The manager holds no state beyond its storage and AI service handles.
// Batch mutations never fail atomically: each item succeeds or fails
// independently and every result is returned. A missing entity is a
// per-item success:false result, never an error; returned errors are
// reserved for storage or AI infrastructure faults.
package graph
