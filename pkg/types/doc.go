// Package types provides shared type definitions for the MemGraph MCP server.
//
// This package defines the domain types used across multiple components:
// graph nodes and relations, parser output (extracted code entities and
// imports), and the per-item result shapes returned by batch operations.
//
// # Core Types
//
// Node represents a vertex in an agent's knowledge graph. The pair
// (AgentID, Name) is the effective lookup key used by mutation operations;
// the ID is a UUID assigned at creation and never changes:
//
//	node := &types.Node{
//	    AgentID:      "agent-1",
//	    Name:         "src/auth.ts::AuthService",
//	    EntityType:   "class",
//	    Observations: []string{"Defined in src/auth.ts"},
//	}
//
// ExtractedCodeEntity and ExtractedImport are the normalized parser output
// shapes shared by every language parser. Their JSON field names are a
// stable contract consumed by ingestion and external tooling and must not
// be renamed.
//
// # Batch Results
//
// Mutation operations on named entities never fail atomically. Each item
// succeeds or fails independently and is reported as an OperationResult:
//
//	if !result.Success {
//	    log.Printf("skipped %s: %s", result.Name, result.Message)
//	}
package types
