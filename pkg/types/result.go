package types

// OperationResult reports the outcome of one item in a batch mutation.
// A missing entity is reported here, never as a returned error.
type OperationResult struct {
	NodeID     string `json:"node_id,omitempty"`
	Name       string `json:"name"`
	EntityType string `json:"entityType,omitempty"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
}

// RelationResult reports the outcome of one relation in a batch mutation.
type RelationResult struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
	RelationID   string `json:"relation_id,omitempty"`
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
}

// GraphRelation is a relation with its endpoints resolved back to node
// names for display. Used by read_graph output.
type GraphRelation struct {
	ID           string `json:"id"`
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
}

// GraphView is the full node/relation set for one agent.
type GraphView struct {
	Nodes     []Node          `json:"nodes"`
	Relations []GraphRelation `json:"relations"`
}

// TraversalResult is the subgraph reached by a bounded traversal.
type TraversalResult struct {
	Nodes     []Node     `json:"nodes"`
	Relations []Relation `json:"relations"`
}
