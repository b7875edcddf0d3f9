package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// agentIDProperty is the agent_id schema shared by every tool
func agentIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Agent namespace; all graph data is scoped to this id",
	}
}

// createEntitiesTool returns the tool definition for create_entities
func createEntitiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_entities",
		Description: "Create entities (graph nodes) with observations in the agent's knowledge graph",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id": agentIDProperty(),
				"entities": map[string]interface{}{
					"type":        "array",
					"description": "Entities to create; duplicate names are allowed (lookups take the first match)",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name": map[string]interface{}{
								"type":        "string",
								"description": "Entity name, the lookup key for later operations",
							},
							"entityType": map[string]interface{}{
								"type":        "string",
								"description": "Entity kind (file, directory, class, function, module, ...)",
							},
							"observations": map[string]interface{}{
								"type":        "array",
								"description": "Free-text facts about the entity",
								"items":       map[string]interface{}{"type": "string"},
							},
						},
						"required": []string{"name", "entityType"},
					},
				},
			},
			Required: []string{"agent_id", "entities"},
		},
	}
}

// createRelationsTool returns the tool definition for create_relations
func createRelationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_relations",
		Description: "Create typed relations between existing entities; a missing endpoint fails that one relation, not the batch",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id":  agentIDProperty(),
				"relations": relationArraySchema("Relations to create"),
			},
			Required: []string{"agent_id", "relations"},
		},
	}
}

// relationArraySchema is the {from, to, relationType} array shared by
// create_relations and delete_relations
func relationArraySchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"from": map[string]interface{}{
					"type":        "string",
					"description": "Source entity name",
				},
				"to": map[string]interface{}{
					"type":        "string",
					"description": "Target entity name",
				},
				"relationType": map[string]interface{}{
					"type":        "string",
					"description": "Relation kind (calls, imports_file, contains_item, extends, ...)",
				},
			},
			"required": []string{"from", "to", "relationType"},
		},
	}
}

// observationArraySchema is the {entityName, contents} array shared by
// add_observations and delete_observations
func observationArraySchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"entityName": map[string]interface{}{
					"type":        "string",
					"description": "Name of the entity to update",
				},
				"contents": map[string]interface{}{
					"type":        "array",
					"description": "Observation strings",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			"required": []string{"entityName", "contents"},
		},
	}
}

// addObservationsTool returns the tool definition for add_observations
func addObservationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_observations",
		Description: "Append observations to existing entities; duplicates are skipped",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id":     agentIDProperty(),
				"observations": observationArraySchema("Observations to merge into each entity"),
			},
			Required: []string{"agent_id", "observations"},
		},
	}
}

// deleteObservationsTool returns the tool definition for delete_observations
func deleteObservationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_observations",
		Description: "Remove exact-match observations from existing entities",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id":     agentIDProperty(),
				"observations": observationArraySchema("Observations to remove from each entity"),
			},
			Required: []string{"agent_id", "observations"},
		},
	}
}

// deleteEntitiesTool returns the tool definition for delete_entities
func deleteEntitiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_entities",
		Description: "Delete entities by name; relations referencing a deleted entity are not cascaded",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id": agentIDProperty(),
				"names": map[string]interface{}{
					"type":        "array",
					"description": "Entity names to delete (first match per name)",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"agent_id", "names"},
		},
	}
}

// deleteRelationsTool returns the tool definition for delete_relations
func deleteRelationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_relations",
		Description: "Delete relations matching exact {from, to, relationType} triples",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id":  agentIDProperty(),
				"relations": relationArraySchema("Relation triples to delete"),
			},
			Required: []string{"agent_id", "relations"},
		},
	}
}

// readGraphTool returns the tool definition for read_graph
func readGraphTool() mcp.Tool {
	return mcp.Tool{
		Name:        "read_graph",
		Description: "Read the agent's full graph with relation endpoints resolved to entity names",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id": agentIDProperty(),
			},
			Required: []string{"agent_id"},
		},
	}
}

// searchNodesTool returns the tool definition for search_nodes
func searchNodesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_nodes",
		Description: "Search entities by substring; supports entityType:<type> and obs:<text> query filters. An empty query returns all entities",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id": agentIDProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search term, optionally prefixed with entityType:<type> or obs:<text>",
					"default":     "",
				},
			},
			Required: []string{"agent_id"},
		},
	}
}

// traverseGraphTool returns the tool definition for traverse_graph
func traverseGraphTool() mcp.Tool {
	return mcp.Tool{
		Name:        "traverse_graph",
		Description: "Breadth-first expansion from a named entity, following relations in either direction",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id": agentIDProperty(),
				"start_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the entity to start from; an unknown name returns an empty result",
				},
				"relation_types": map[string]interface{}{
					"type":        "array",
					"description": "Restrict traversal to these relation types (empty means all)",
					"items":       map[string]interface{}{"type": "string"},
				},
				"max_depth": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum traversal depth (0-10)",
					"default":     2,
					"minimum":     0,
					"maximum":     10,
				},
			},
			Required: []string{"agent_id", "start_name"},
		},
	}
}

// queryNaturalLanguageTool returns the tool definition for query_natural_language
func queryNaturalLanguageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query_natural_language",
		Description: "Answer a natural-language question about the graph; falls back to plain search when no AI service is configured",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id": agentIDProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Question about the graph, e.g. 'which classes depend on the auth service?'",
				},
			},
			Required: []string{"agent_id", "query"},
		},
	}
}

// inferRelationsTool returns the tool definition for infer_relations
func inferRelationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "infer_relations",
		Description: "Ask the AI to propose relations between entities; high-confidence proposals are created, the rest returned for review. Requires GEMINI_API_KEY",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id": agentIDProperty(),
				"entity_names": map[string]interface{}{
					"type":        "array",
					"description": "Restrict candidates to these entity names (empty means all entities)",
					"items":       map[string]interface{}{"type": "string"},
				},
				"context": map[string]interface{}{
					"type":        "string",
					"description": "Optional free-text hint guiding the inference",
				},
			},
			Required: []string{"agent_id"},
		},
	}
}

// generateMermaidGraphTool returns the tool definition for generate_mermaid_graph
func generateMermaidGraphTool() mcp.Tool {
	return mcp.Tool{
		Name:        "generate_mermaid_graph",
		Description: "Render the graph (or a query-selected subgraph) as a Mermaid flowchart",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id": agentIDProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Seed query; empty renders a connectivity overview of the whole graph",
				},
				"natural_language": map[string]interface{}{
					"type":        "boolean",
					"description": "Treat query as a natural-language question instead of a keyword search",
					"default":     false,
				},
				"direction": map[string]interface{}{
					"type":        "string",
					"description": "Flowchart direction",
					"enum":        []string{"TD", "LR", "BT", "RL"},
					"default":     "TD",
				},
				"max_nodes": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum nodes in the diagram (default 50)",
				},
				"max_edges": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum edges in the diagram (default 100)",
				},
				"exclude_relation_types": map[string]interface{}{
					"type":        "array",
					"description": "Relation types to drop from the diagram",
					"items":       map[string]interface{}{"type": "string"},
				},
				"exclude_imports": map[string]interface{}{
					"type":        "boolean",
					"description": "Drop imports_file and imports_module edges",
					"default":     false,
				},
				"include_legend": map[string]interface{}{
					"type":        "boolean",
					"description": "Append a legend subgraph describing node shapes",
					"default":     false,
				},
			},
			Required: []string{"agent_id"},
		},
	}
}

// ingestCodebaseStructureTool returns the tool definition for ingest_codebase_structure
func ingestCodebaseStructureTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_codebase_structure",
		Description: "Walk a project tree into file/directory entities with containment and import relations",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id": agentIDProperty(),
				"root_path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root directory",
				},
				"parse_imports": map[string]interface{}{
					"type":        "boolean",
					"description": "Parse supported source files and create imports_file/imports_module relations",
					"default":     true,
				},
			},
			Required: []string{"agent_id", "root_path"},
		},
	}
}

// ingestFileEntitiesTool returns the tool definition for ingest_file_entities
func ingestFileEntitiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_file_entities",
		Description: "Parse one source file (TypeScript/JavaScript, Python, PHP, JSONL) into code-entity nodes linked to their file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_id": agentIDProperty(),
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the source file",
				},
				"root_path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root; entity names are root-relative",
				},
			},
			Required: []string{"agent_id", "file_path", "root_path"},
		},
	}
}
