package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

const (
	// maxGraphContextChars bounds the serialized graph sent to the model
	maxGraphContextChars = 150000

	// maxTranslatedOps bounds how many operations one query may run
	maxTranslatedOps = 4

	// degreeAggregationLimit is the top-N for connectivity aggregation
	degreeAggregationLimit = 10
)

// Operation names in translated operation lists. The set is closed: an
// AI-supplied operation outside it triggers the deterministic fallback.
const (
	OpSearchNodes   = "search_nodes"
	OpTraverseGraph = "traverse_graph"
	OpRankByDegree  = "rank_by_degree"
)

// TranslatedOp is one concrete graph operation derived from the model's
// query analysis
type TranslatedOp struct {
	Operation string                 `json:"operation"`
	Args      map[string]interface{} `json:"args"`
}

// NLQueryMetadata describes how a natural-language query was answered
type NLQueryMetadata struct {
	UsedGemini           bool           `json:"usedGemini"`
	Model                string         `json:"model,omitempty"`
	SearchStrategy       string         `json:"searchStrategy,omitempty"`
	TranslatedOperations []TranslatedOp `json:"translatedOperations"`
	FallbackReason       string         `json:"fallbackReason,omitempty"`
}

// NLQueryResult is the answer to a natural-language graph query
type NLQueryResult struct {
	Results  []types.Node    `json:"results"`
	Metadata NLQueryMetadata `json:"metadata"`
}

// nlAnalysis is the JSON analysis contract expected from the model.
// Missing fields default safely to their zero values.
type nlAnalysis struct {
	SearchStrategy      string            `json:"search_strategy"`
	PrimaryEntityTypes  []string          `json:"primary_entity_types"`
	SemanticKeywords    []string          `json:"semantic_keywords"`
	KeyRelationTypes    []string          `json:"key_relation_types"`
	GraphTraversalRules []nlTraversalRule `json:"graph_traversal_rules"`
	SearchOptimization  struct {
		FocusNodes []string `json:"focus_nodes"`
	} `json:"search_optimization"`
	TraversalDepth int `json:"traversal_depth"`
}

type nlTraversalRule struct {
	StartNodes    []string `json:"start_nodes"`
	RelationTypes []string `json:"relation_types"`
	Depth         int      `json:"depth"`
}

var validStrategies = map[string]bool{
	"traversal":   true,
	"structural":  true,
	"semantic":    true,
	"hybrid":      true,
	"aggregation": true,
}

// QueryNaturalLanguage answers a free-form question about the agent's
// graph. With an AI service it asks the model for a query analysis,
// translates the analysis into a bounded list of concrete operations,
// runs them, and deduplicates results by node id. Any AI or parse failure
// degrades to a plain search; this method never fails because of the
// model.
func (m *Manager) QueryNaturalLanguage(ctx context.Context, agentID, query string) (*NLQueryResult, error) {
	if m.ai == nil {
		return m.nlFallback(ctx, agentID, query, "no ai service configured")
	}

	graphContext, err := m.buildGraphContext(ctx, agentID)
	if err != nil {
		return nil, err
	}

	raw, err := m.ai.GenerateJSON(ctx, nlAnalysisPrompt(query, graphContext))
	if err != nil {
		m.logger.Printf("nl query: ai call failed, falling back to search: %v", err)
		return m.nlFallback(ctx, agentID, query, fmt.Sprintf("ai call failed: %v", err))
	}

	var analysis nlAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		m.logger.Printf("nl query: unparseable analysis, falling back to search: %v", err)
		return m.nlFallback(ctx, agentID, query, "unparseable analysis")
	}
	if !validStrategies[analysis.SearchStrategy] {
		return m.nlFallback(ctx, agentID, query, fmt.Sprintf("unrecognized strategy %q", analysis.SearchStrategy))
	}

	ops := translateAnalysis(&analysis, query)
	if len(ops) == 0 {
		return m.nlFallback(ctx, agentID, query, "analysis produced no operations")
	}

	results, err := m.executeOps(ctx, agentID, ops)
	if err != nil {
		return nil, err
	}

	return &NLQueryResult{
		Results: results,
		Metadata: NLQueryMetadata{
			UsedGemini:           true,
			Model:                m.ai.Model(),
			SearchStrategy:       analysis.SearchStrategy,
			TranslatedOperations: ops,
		},
	}, nil
}

// nlFallback is the deterministic no-AI path: a single search_nodes call
func (m *Manager) nlFallback(ctx context.Context, agentID, query, reason string) (*NLQueryResult, error) {
	nodes, err := m.SearchNodes(ctx, agentID, query)
	if err != nil {
		return nil, err
	}
	return &NLQueryResult{
		Results: nodes,
		Metadata: NLQueryMetadata{
			UsedGemini: false,
			TranslatedOperations: []TranslatedOp{
				{Operation: OpSearchNodes, Args: map[string]interface{}{"query": query}},
			},
			FallbackReason: reason,
		},
	}, nil
}

// translateAnalysis maps the strategy to at most maxTranslatedOps
// concrete operations
func translateAnalysis(analysis *nlAnalysis, query string) []TranslatedOp {
	var ops []TranslatedOp

	addSearches := func() {
		if len(analysis.PrimaryEntityTypes) == 0 && len(analysis.SemanticKeywords) == 0 {
			ops = append(ops, searchOp(query))
			return
		}
		keyword := strings.Join(analysis.SemanticKeywords, " ")
		if len(analysis.PrimaryEntityTypes) == 0 {
			ops = append(ops, searchOp(keyword))
			return
		}
		for _, entityType := range analysis.PrimaryEntityTypes {
			q := strings.TrimSpace(fmt.Sprintf("entityType:%s %s", entityType, keyword))
			ops = append(ops, searchOp(q))
		}
	}

	addTraversals := func() {
		rules := analysis.GraphTraversalRules
		if len(rules) == 0 && len(analysis.SearchOptimization.FocusNodes) > 0 {
			rules = []nlTraversalRule{{
				StartNodes:    analysis.SearchOptimization.FocusNodes,
				RelationTypes: analysis.KeyRelationTypes,
				Depth:         analysis.TraversalDepth,
			}}
		}
		for _, rule := range rules {
			depth := rule.Depth
			if depth <= 0 {
				depth = analysis.TraversalDepth
			}
			if depth <= 0 {
				depth = 2
			}
			for _, start := range rule.StartNodes {
				ops = append(ops, TranslatedOp{
					Operation: OpTraverseGraph,
					Args: map[string]interface{}{
						"startNode":     start,
						"relationTypes": rule.RelationTypes,
						"depth":         depth,
					},
				})
			}
		}
	}

	switch analysis.SearchStrategy {
	case "traversal":
		addTraversals()
	case "structural", "semantic":
		addSearches()
	case "hybrid":
		addSearches()
		addTraversals()
	case "aggregation":
		ops = append(ops, TranslatedOp{
			Operation: OpRankByDegree,
			Args:      map[string]interface{}{"limit": degreeAggregationLimit},
		})
	}

	if len(ops) > maxTranslatedOps {
		ops = ops[:maxTranslatedOps]
	}
	return ops
}

func searchOp(query string) TranslatedOp {
	return TranslatedOp{
		Operation: OpSearchNodes,
		Args:      map[string]interface{}{"query": query},
	}
}

// executeOps runs the translated operations in sequence. Every handler
// returns a uniform node slice; results are deduplicated by node id.
func (m *Manager) executeOps(ctx context.Context, agentID string, ops []TranslatedOp) ([]types.Node, error) {
	seen := make(map[string]bool)
	results := make([]types.Node, 0)

	appendNodes := func(nodes []types.Node) {
		for _, node := range nodes {
			if seen[node.ID] {
				continue
			}
			seen[node.ID] = true
			results = append(results, node)
		}
	}

	for _, op := range ops {
		switch op.Operation {
		case OpSearchNodes:
			nodes, err := m.SearchNodes(ctx, agentID, stringArg(op.Args, "query"))
			if err != nil {
				return nil, err
			}
			appendNodes(nodes)
		case OpTraverseGraph:
			traversal, err := m.TraverseGraph(ctx, agentID,
				stringArg(op.Args, "startNode"),
				stringSliceArg(op.Args, "relationTypes"),
				intArg(op.Args, "depth", 2))
			if err != nil {
				return nil, err
			}
			appendNodes(traversal.Nodes)
		case OpRankByDegree:
			ranks, err := m.store.RankNodesByDegree(ctx, agentID, intArg(op.Args, "limit", degreeAggregationLimit))
			if err != nil {
				return nil, err
			}
			nodes := make([]types.Node, 0, len(ranks))
			for _, rank := range ranks {
				nodes = append(nodes, rank.Node)
			}
			appendNodes(nodes)
		default:
			// Closed enum: unknown operations are skipped, not executed
			m.logger.Printf("nl query: skipping unknown operation %q", op.Operation)
		}
	}
	return results, nil
}

// buildGraphContext serializes the agent's graph for the analysis prompt,
// substituting a size summary when it would exceed the context bound
func (m *Manager) buildGraphContext(ctx context.Context, agentID string) (string, error) {
	view, err := m.ReadGraph(ctx, agentID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Nodes:\n")
	for _, node := range view.Nodes {
		fmt.Fprintf(&b, "- %s (%s)", node.Name, node.EntityType)
		if len(node.Observations) > 0 {
			fmt.Fprintf(&b, ": %s", strings.Join(node.Observations, "; "))
		}
		b.WriteByte('\n')
	}
	b.WriteString("Relations:\n")
	for _, rel := range view.Relations {
		fmt.Fprintf(&b, "- %s -[%s]-> %s\n", rel.From, rel.RelationType, rel.To)
	}

	serialized := b.String()
	if len(serialized) > maxGraphContextChars {
		return fmt.Sprintf("Graph too large to inline: %d nodes, %d relations.",
			len(view.Nodes), len(view.Relations)), nil
	}
	return serialized, nil
}

func nlAnalysisPrompt(query, graphContext string) string {
	return fmt.Sprintf(`You are a knowledge graph query planner. Analyze the question against the graph below and respond with JSON only:
{
  "search_strategy": "traversal|structural|semantic|hybrid|aggregation",
  "primary_entity_types": ["..."],
  "semantic_keywords": ["..."],
  "key_relation_types": ["..."],
  "graph_traversal_rules": [{"start_nodes": ["..."], "relation_types": ["..."], "depth": 2}],
  "search_optimization": {"focus_nodes": ["..."]},
  "traversal_depth": 2
}

Question: %s

Graph:
%s`, query, graphContext)
}

// Argument coercion helpers for AI-derived operation args. The values
// come from JSON, so numbers arrive as float64.

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
