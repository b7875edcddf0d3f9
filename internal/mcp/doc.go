// Package mcp implements the Model Context Protocol (MCP) server for
// memgraph.
//
// The server exposes a per-agent knowledge graph of code entities to AI
// coding assistants. Every tool takes an agent_id parameter; no tool can
// see another agent's graph.
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server reads MCP messages from stdin and writes responses to
// stdout, so all logging goes to stderr.
//
// # Tools
//
// Graph mutation (batch, per-item success reporting):
//   - create_entities: create named nodes with observations
//   - create_relations: create typed edges between named nodes
//   - add_observations / delete_observations: mutate observation lists
//   - delete_entities / delete_relations: remove nodes and edges
//
// Graph reads:
//   - read_graph: full node/relation dump with endpoint names resolved
//   - search_nodes: substring search with entityType:/obs: micro-syntax
//   - traverse_graph: bounded breadth-first expansion from a named node
//
// AI-assisted (degrade deterministically without a Gemini key):
//   - query_natural_language: translate a question into graph operations
//   - infer_relations: propose and materialize likely relations
//   - generate_mermaid_graph: render a Mermaid diagram of the graph
//
// Code ingestion:
//   - ingest_codebase_structure: walk a project tree into file/directory
//     nodes, containment and import relations
//   - ingest_file_entities: parse one source file into entity nodes
//
// # Example: create_entities
//
//	Request:
//	{
//	  "name": "create_entities",
//	  "arguments": {
//	    "agent_id": "agent-1",
//	    "entities": [
//	      {"name": "src/auth.ts", "entityType": "file",
//	       "observations": ["handles login"]}
//	    ]
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {"node_id": "…", "name": "src/auth.ts", "entityType": "file",
//	     "success": true}
//	  ]
//	}
//
// Mutations report per-item results: a missing endpoint fails that one
// relation with an explanatory message, never the whole call.
package mcp
