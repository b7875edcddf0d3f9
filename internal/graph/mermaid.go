package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

const (
	defaultMaxDiagramNodes = 50
	defaultMaxDiagramEdges = 100

	// Free-text mode expands the graph around at most this many seed
	// nodes, each to at most this depth
	maxSeedNodes     = 5
	maxSeedDepth     = 2
	overviewRankSize = 15
)

// MermaidOptions selects one of three diagram modes. A non-empty Query
// with NaturalLanguage set uses the NL query pipeline; a non-empty Query
// without it uses keyword search plus traversal expansion; an empty Query
// produces a connectivity overview.
type MermaidOptions struct {
	Query                string   `json:"query,omitempty"`
	NaturalLanguage      bool     `json:"naturalLanguage,omitempty"`
	Direction            string   `json:"direction,omitempty"`
	MaxNodes             int      `json:"maxNodes,omitempty"`
	MaxEdges             int      `json:"maxEdges,omitempty"`
	ExcludeRelationTypes []string `json:"excludeRelationTypes,omitempty"`
	ExcludeImports       bool     `json:"excludeImports,omitempty"`
	IncludeLegend        bool     `json:"includeLegend,omitempty"`
}

// nodeShape is the Mermaid bracket pair for one entity type
type nodeShape struct {
	open, close string
}

var nodeShapes = map[string]nodeShape{
	"class":     {"[", "]"},
	"interface": {"{{", "}}"},
	"trait":     {"{{", "}}"},
	"function":  {"([", "])"},
	"method":    {"([", "])"},
	"file":      {"[/", "/]"},
	"directory": {"[[", "]]"},
	"module":    {"[(", ")]"},
	"enum":      {">", "]"},
	"variable":  {"(", ")"},
	"record":    {"(", ")"},
}

var defaultShape = nodeShape{"[", "]"}

var nodeStyles = map[string]string{
	"class":     "fill:#e1f0ff,stroke:#2b6cb0",
	"interface": "fill:#fefcbf,stroke:#b7791f",
	"trait":     "fill:#fefcbf,stroke:#b7791f",
	"function":  "fill:#e6fffa,stroke:#2c7a7b",
	"method":    "fill:#e6fffa,stroke:#2c7a7b",
	"file":      "fill:#f0fff4,stroke:#2f855a",
	"directory": "fill:#edf2f7,stroke:#4a5568",
	"module":    "fill:#faf5ff,stroke:#6b46c1",
	"enum":      "fill:#fff5f5,stroke:#c53030",
}

var arrowStyles = map[string]string{
	types.RelationContainsItem:  "-->",
	types.RelationImportsFile:   "-.->",
	types.RelationImportsModule: "-.->",
	"calls":                     "==>",
	"instantiates":              "==>",
	"implements":                "-..->",
	"extends":                   "===>",
}

const defaultArrow = "-->"

// GenerateMermaidGraph renders a subgraph of the agent's knowledge graph
// as Mermaid text. An empty selection at any stage yields a placeholder
// diagram with the reason, never an error.
func (m *Manager) GenerateMermaidGraph(ctx context.Context, agentID string, opts MermaidOptions) (string, error) {
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = defaultMaxDiagramNodes
	}
	if opts.MaxEdges <= 0 {
		opts.MaxEdges = defaultMaxDiagramEdges
	}
	if opts.Direction == "" {
		opts.Direction = "TD"
	}

	var nodes []types.Node
	var relations []types.Relation
	var err error

	switch {
	case opts.Query != "" && opts.NaturalLanguage:
		nodes, relations, err = m.diagramFromNLQuery(ctx, agentID, opts.Query)
	case opts.Query != "":
		nodes, relations, err = m.diagramFromSearch(ctx, agentID, opts.Query)
	default:
		nodes, relations, err = m.diagramOverview(ctx, agentID, opts.MaxNodes)
	}
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return placeholderDiagram(opts.Direction, "no matching nodes"), nil
	}

	nodes, relations = applyDiagramFilters(nodes, relations, opts)
	if len(nodes) == 0 {
		return placeholderDiagram(opts.Direction, "all nodes excluded by filters"), nil
	}

	return renderMermaid(nodes, relations, opts), nil
}

// diagramFromNLQuery delegates selection to the NL query pipeline and
// keeps relations with both endpoints in the answer set
func (m *Manager) diagramFromNLQuery(ctx context.Context, agentID, query string) ([]types.Node, []types.Relation, error) {
	result, err := m.QueryNaturalLanguage(ctx, agentID, query)
	if err != nil {
		return nil, nil, err
	}
	relations, err := m.relationsAmong(ctx, agentID, result.Results)
	if err != nil {
		return nil, nil, err
	}
	return result.Results, relations, nil
}

// diagramFromSearch finds seed nodes by keyword and expands the subgraph
// around each seed by bounded traversal
func (m *Manager) diagramFromSearch(ctx context.Context, agentID, query string) ([]types.Node, []types.Relation, error) {
	seeds, err := m.SearchNodes(ctx, agentID, query)
	if err != nil {
		return nil, nil, err
	}
	if len(seeds) > maxSeedNodes {
		seeds = seeds[:maxSeedNodes]
	}

	seenNodes := make(map[string]bool)
	seenRels := make(map[string]bool)
	var nodes []types.Node
	var relations []types.Relation

	for _, seed := range seeds {
		traversal, err := m.store.TraverseGraph(ctx, agentID, seed.ID, nil, maxSeedDepth)
		if err != nil {
			return nil, nil, err
		}
		for _, node := range traversal.Nodes {
			if !seenNodes[node.ID] {
				seenNodes[node.ID] = true
				nodes = append(nodes, node)
			}
		}
		for _, rel := range traversal.Relations {
			if !seenRels[rel.ID] {
				seenRels[rel.ID] = true
				relations = append(relations, rel)
			}
		}
	}
	return nodes, relations, nil
}

// diagramOverview ranks nodes by connectivity and unions in entry-point
// candidates whose names suggest an application root
func (m *Manager) diagramOverview(ctx context.Context, agentID string, maxNodes int) ([]types.Node, []types.Relation, error) {
	limit := overviewRankSize
	if limit > maxNodes {
		limit = maxNodes
	}
	ranks, err := m.store.RankNodesByDegree(ctx, agentID, limit)
	if err != nil {
		return nil, nil, err
	}

	selected := make(map[string]bool)
	var nodes []types.Node
	for _, rank := range ranks {
		selected[rank.Node.ID] = true
		nodes = append(nodes, rank.Node)
	}

	all, err := m.store.GetAllNodes(ctx, agentID)
	if err != nil {
		return nil, nil, err
	}
	for _, node := range all {
		if len(nodes) >= maxNodes {
			break
		}
		if selected[node.ID] || !looksLikeEntryPoint(node.Name) {
			continue
		}
		selected[node.ID] = true
		nodes = append(nodes, node)
	}

	relations, err := m.relationsAmong(ctx, agentID, nodes)
	if err != nil {
		return nil, nil, err
	}
	return nodes, relations, nil
}

// looksLikeEntryPoint matches the conventional entry-point names
func looksLikeEntryPoint(name string) bool {
	lowered := strings.ToLower(name)
	return strings.Contains(lowered, "index") ||
		strings.Contains(lowered, "main") ||
		strings.Contains(lowered, "app")
}

// relationsAmong returns the agent's relations with both endpoints in the
// node set
func (m *Manager) relationsAmong(ctx context.Context, agentID string, nodes []types.Node) ([]types.Relation, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	ids := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		ids[node.ID] = true
	}
	all, err := m.store.GetAllRelations(ctx, agentID)
	if err != nil {
		return nil, err
	}
	kept := make([]types.Relation, 0)
	for _, rel := range all {
		if ids[rel.FromNodeID] && ids[rel.ToNodeID] {
			kept = append(kept, rel)
		}
	}
	return kept, nil
}

// applyDiagramFilters drops excluded relation types and import edges,
// then truncates to the node/edge caps, pruning dangling relations
func applyDiagramFilters(nodes []types.Node, relations []types.Relation, opts MermaidOptions) ([]types.Node, []types.Relation) {
	excluded := make(map[string]bool, len(opts.ExcludeRelationTypes))
	for _, rt := range opts.ExcludeRelationTypes {
		excluded[rt] = true
	}
	if opts.ExcludeImports {
		excluded[types.RelationImportsFile] = true
		excluded[types.RelationImportsModule] = true
	}

	if len(nodes) > opts.MaxNodes {
		nodes = nodes[:opts.MaxNodes]
	}
	ids := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		ids[node.ID] = true
	}

	kept := make([]types.Relation, 0, len(relations))
	for _, rel := range relations {
		if excluded[rel.RelationType] {
			continue
		}
		if !ids[rel.FromNodeID] || !ids[rel.ToNodeID] {
			continue
		}
		kept = append(kept, rel)
		if len(kept) >= opts.MaxEdges {
			break
		}
	}
	return nodes, kept
}

// renderMermaid emits the diagram text: header, node declarations with
// per-type shapes, styled edges, optional legend, and a summary comment
func renderMermaid(nodes []types.Node, relations []types.Relation, opts MermaidOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "graph %s\n", opts.Direction)

	// Stable short ids; Mermaid identifiers cannot be raw UUIDs with dashes
	mermaidID := make(map[string]string, len(nodes))
	for i, node := range nodes {
		id := fmt.Sprintf("n%d", i)
		mermaidID[node.ID] = id
		shape := nodeShapes[node.EntityType]
		if shape.open == "" {
			shape = defaultShape
		}
		fmt.Fprintf(&b, "    %s%s\"%s\"%s\n", id, shape.open, escapeMermaidLabel(node.Name), shape.close)
	}

	for _, rel := range relations {
		arrow := arrowStyles[rel.RelationType]
		if arrow == "" {
			arrow = defaultArrow
		}
		fmt.Fprintf(&b, "    %s %s|%s| %s\n",
			mermaidID[rel.FromNodeID], arrow, escapeMermaidLabel(rel.RelationType), mermaidID[rel.ToNodeID])
	}

	styledTypes := make(map[string][]string)
	for _, node := range nodes {
		if _, ok := nodeStyles[node.EntityType]; ok {
			styledTypes[node.EntityType] = append(styledTypes[node.EntityType], mermaidID[node.ID])
		}
	}
	styleOrder := make([]string, 0, len(styledTypes))
	for entityType := range styledTypes {
		styleOrder = append(styleOrder, entityType)
	}
	sort.Strings(styleOrder)
	for i, entityType := range styleOrder {
		class := fmt.Sprintf("t%d", i)
		fmt.Fprintf(&b, "    classDef %s %s\n", class, nodeStyles[entityType])
		fmt.Fprintf(&b, "    class %s %s\n", strings.Join(styledTypes[entityType], ","), class)
	}

	if opts.IncludeLegend {
		b.WriteString("    subgraph Legend\n")
		for i, entityType := range styleOrder {
			fmt.Fprintf(&b, "        legend%d[\"%s\"]\n", i, escapeMermaidLabel(entityType))
		}
		b.WriteString("    end\n")
	}

	fmt.Fprintf(&b, "    %%%% %d nodes, %d edges\n", len(nodes), len(relations))
	return b.String()
}

// placeholderDiagram is returned instead of an error when nothing can be
// drawn
func placeholderDiagram(direction, reason string) string {
	return fmt.Sprintf("graph %s\n    empty[\"No graph data: %s\"]\n", direction, escapeMermaidLabel(reason))
}

// escapeMermaidLabel keeps labels valid inside quoted Mermaid strings
func escapeMermaidLabel(label string) string {
	label = strings.ReplaceAll(label, `"`, "#quot;")
	label = strings.ReplaceAll(label, "\n", " ")
	return label
}
