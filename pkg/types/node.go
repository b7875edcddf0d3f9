package types

import "errors"

// Node represents a vertex in an agent's knowledge graph. A node can stand
// for a code element, a file, a directory, or an arbitrary concept.
type Node struct {
	ID           string   `json:"id"`
	AgentID      string   `json:"agentId"`
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`
	Timestamp    int64    `json:"timestamp"`
	Version      int      `json:"version"`
}

// Relation represents a typed, directed edge between two nodes. Relations
// carry no content beyond their type; updating one means delete-and-recreate.
type Relation struct {
	ID           string `json:"id"`
	FromNodeID   string `json:"fromNodeId"`
	ToNodeID     string `json:"toNodeId"`
	RelationType string `json:"relationType"`
	Timestamp    int64  `json:"timestamp"`
	Version      int    `json:"version"`
}

// Well-known relation types produced by ingestion.
const (
	RelationContainsItem  = "contains_item"
	RelationImportsFile   = "imports_file"
	RelationImportsModule = "imports_module"
)

// Validate checks the node's required fields.
func (n *Node) Validate() error {
	if n.AgentID == "" {
		return errors.New("node agent id is required")
	}
	if n.Name == "" {
		return errors.New("node name is required")
	}
	if n.EntityType == "" {
		return errors.New("node entity type is required")
	}
	if n.Version < 1 {
		return errors.New("node version must be >= 1")
	}
	return nil
}

// Validate checks the relation's required fields.
func (r *Relation) Validate() error {
	if r.FromNodeID == "" || r.ToNodeID == "" {
		return errors.New("relation endpoints are required")
	}
	if r.RelationType == "" {
		return errors.New("relation type is required")
	}
	return nil
}
