package graph

import (
	"context"
	"regexp"
	"strings"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

// Search micro-syntax recognized inside the query string. The patterns
// are a compatibility contract; do not loosen them.
var (
	entityTypePattern = regexp.MustCompile(`entityType:(\w+)`)
	obsPattern        = regexp.MustCompile(`obs:(.+)`)
)

// SearchNodes searches the agent's graph. Two micro-syntax prefixes are
// recognized in the query: "entityType:<type>" restricts by entity type
// and "obs:<text>" searches observation text only. The remaining term is
// a substring match over name, type, and observations. An empty query
// with no type filter returns every node.
func (m *Manager) SearchNodes(ctx context.Context, agentID, query string) ([]types.Node, error) {
	entityType := ""
	term := query

	if match := entityTypePattern.FindStringSubmatch(term); match != nil {
		entityType = match[1]
		term = strings.Replace(term, match[0], "", 1)
	}

	if match := obsPattern.FindStringSubmatch(term); match != nil {
		obsTerm := strings.TrimSpace(match[1])
		return m.searchObservations(ctx, agentID, obsTerm, entityType)
	}

	term = strings.TrimSpace(term)
	if term == "" && entityType == "" {
		return m.store.GetAllNodes(ctx, agentID)
	}
	return m.store.SearchNodes(ctx, agentID, term, entityType)
}

// searchObservations keeps only nodes whose observation text contains the
// term; name and type matches do not count for obs: queries
func (m *Manager) searchObservations(ctx context.Context, agentID, term, entityType string) ([]types.Node, error) {
	candidates, err := m.store.SearchNodes(ctx, agentID, term, entityType)
	if err != nil {
		return nil, err
	}

	matched := make([]types.Node, 0, len(candidates))
	lowered := strings.ToLower(term)
	for _, node := range candidates {
		for _, obs := range node.Observations {
			if strings.Contains(strings.ToLower(obs), lowered) {
				matched = append(matched, node)
				break
			}
		}
	}
	return matched, nil
}
