package storage

import (
	"context"
	"strings"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

// TraverseGraph walks outward from startNodeID breadth-first, following
// relations in either direction. Depth 0 returns only the start node.
// A visited set keyed by node id keeps cyclic graphs from looping.
func (s *SQLiteStore) TraverseGraph(ctx context.Context, agentID, startNodeID string, relationTypes []string, maxDepth int) (*types.TraversalResult, error) {
	result := &types.TraversalResult{
		Nodes:     make([]types.Node, 0),
		Relations: make([]types.Relation, 0),
	}

	start, err := s.GetNodeByID(ctx, agentID, startNodeID)
	if err == ErrNotFound {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{start.ID: true}
	seenRelations := make(map[string]bool)
	result.Nodes = append(result.Nodes, *start)

	frontier := []string{start.ID}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		edges, err := s.relationsTouching(ctx, agentID, frontier, relationTypes)
		if err != nil {
			return nil, err
		}

		next := make([]string, 0)
		for _, edge := range edges {
			if seenRelations[edge.ID] {
				continue
			}
			seenRelations[edge.ID] = true
			result.Relations = append(result.Relations, edge)

			for _, id := range []string{edge.FromNodeID, edge.ToNodeID} {
				if visited[id] {
					continue
				}
				visited[id] = true
				node, err := s.GetNodeByID(ctx, agentID, id)
				if err == ErrNotFound {
					// Dangling endpoint left behind by a node delete
					continue
				}
				if err != nil {
					return nil, err
				}
				result.Nodes = append(result.Nodes, *node)
				next = append(next, id)
			}
		}
		frontier = next
	}

	return result, nil
}

// relationsTouching returns relations with either endpoint in the frontier,
// restricted to relationTypes when the filter is non-empty
func (s *SQLiteStore) relationsTouching(ctx context.Context, agentID string, frontier, relationTypes []string) ([]types.Relation, error) {
	idPlaceholders := strings.TrimSuffix(strings.Repeat("?,", len(frontier)), ",")
	args := make([]interface{}, 0, 2*len(frontier)+len(relationTypes)+1)
	args = append(args, agentID)
	for _, id := range frontier {
		args = append(args, id)
	}
	for _, id := range frontier {
		args = append(args, id)
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT id, from_node_id, to_node_id, relation_type, timestamp, version
		FROM relations
		WHERE agent_id = ? AND (from_node_id IN (` + idPlaceholders + `) OR to_node_id IN (` + idPlaceholders + `))`)

	if len(relationTypes) > 0 {
		typePlaceholders := strings.TrimSuffix(strings.Repeat("?,", len(relationTypes)), ",")
		sb.WriteString(` AND relation_type IN (` + typePlaceholders + `)`)
		for _, rt := range relationTypes {
			args = append(args, rt)
		}
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, storageErr("traverse_graph", agentID, err)
	}
	defer func() { _ = rows.Close() }()

	relations := make([]types.Relation, 0)
	for rows.Next() {
		var rel types.Relation
		if err := rows.Scan(&rel.ID, &rel.FromNodeID, &rel.ToNodeID,
			&rel.RelationType, &rel.Timestamp, &rel.Version); err != nil {
			return nil, storageErr("traverse_graph", agentID, err)
		}
		relations = append(relations, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("traverse_graph", agentID, err)
	}
	return relations, nil
}

// RankNodesByDegree returns the top-N nodes by incident relation count.
// This is the aggregation behind hub detection and overview diagrams.
func (s *SQLiteStore) RankNodesByDegree(ctx context.Context, agentID string, limit int) ([]DegreeRank, error) {
	query := `
		SELECT n.id, n.agent_id, n.name, n.entity_type, n.observations, n.timestamp, n.version,
		       COUNT(r.id) AS degree
		FROM nodes n
		LEFT JOIN relations r
		  ON r.agent_id = n.agent_id AND (r.from_node_id = n.id OR r.to_node_id = n.id)
		WHERE n.agent_id = ?
		GROUP BY n.id
		ORDER BY degree DESC, n.name
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, agentID, limit)
	if err != nil {
		return nil, storageErr("rank_nodes_by_degree", agentID, err)
	}
	defer func() { _ = rows.Close() }()

	ranks := make([]DegreeRank, 0, limit)
	for rows.Next() {
		var rank DegreeRank
		var observations string
		if err := rows.Scan(&rank.Node.ID, &rank.Node.AgentID, &rank.Node.Name,
			&rank.Node.EntityType, &observations, &rank.Node.Timestamp,
			&rank.Node.Version, &rank.Degree); err != nil {
			return nil, storageErr("rank_nodes_by_degree", agentID, err)
		}
		if err := unmarshalObservations(observations, &rank.Node.Observations); err != nil {
			return nil, storageErr("rank_nodes_by_degree", agentID, err)
		}
		ranks = append(ranks, rank)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("rank_nodes_by_degree", agentID, err)
	}
	return ranks, nil
}
