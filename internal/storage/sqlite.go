package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const nodeColumns = "id, agent_id, name, entity_type, observations, timestamp, version"

func scanNode(scanner interface{ Scan(...interface{}) error }) (types.Node, error) {
	var node types.Node
	var observations string
	err := scanner.Scan(&node.ID, &node.AgentID, &node.Name, &node.EntityType,
		&observations, &node.Timestamp, &node.Version)
	if err != nil {
		return node, err
	}
	if err := json.Unmarshal([]byte(observations), &node.Observations); err != nil {
		return node, fmt.Errorf("corrupt observations for node %s: %w", node.ID, err)
	}
	return node, nil
}

func unmarshalObservations(raw string, dst *[]string) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("corrupt observations: %w", err)
	}
	return nil
}

func marshalObservations(observations []string) (string, error) {
	if observations == nil {
		observations = []string{}
	}
	raw, err := json.Marshal(observations)
	if err != nil {
		return "", fmt.Errorf("failed to encode observations: %w", err)
	}
	return string(raw), nil
}

// InsertNodes bulk-inserts nodes inside a single transaction
func (s *SQLiteStore) InsertNodes(ctx context.Context, agentID string, nodes []types.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("insert_nodes", agentID, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (id, agent_id, name, entity_type, observations, timestamp, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return storageErr("insert_nodes", agentID, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, node := range nodes {
		observations, err := marshalObservations(node.Observations)
		if err != nil {
			return storageErr("insert_nodes", agentID, err)
		}
		if _, err := stmt.ExecContext(ctx, node.ID, agentID, node.Name,
			node.EntityType, observations, node.Timestamp, node.Version); err != nil {
			return storageErr("insert_nodes", agentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("insert_nodes", agentID, err)
	}
	return nil
}

// InsertRelations bulk-inserts relations inside a single transaction
func (s *SQLiteStore) InsertRelations(ctx context.Context, agentID string, relations []types.Relation) error {
	if len(relations) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("insert_relations", agentID, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO relations (id, agent_id, from_node_id, to_node_id, relation_type, timestamp, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return storageErr("insert_relations", agentID, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rel := range relations {
		if _, err := stmt.ExecContext(ctx, rel.ID, agentID, rel.FromNodeID,
			rel.ToNodeID, rel.RelationType, rel.Timestamp, rel.Version); err != nil {
			return storageErr("insert_relations", agentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("insert_relations", agentID, err)
	}
	return nil
}

// GetNodesByName returns nodes matching the given names exactly. Misses are
// silently dropped; the result may be shorter than the request.
func (s *SQLiteStore) GetNodesByName(ctx context.Context, agentID string, names []string) ([]types.Node, error) {
	if len(names) == 0 {
		return []types.Node{}, nil
	}

	placeholders := make([]string, len(names))
	args := make([]interface{}, 0, len(names)+1)
	args = append(args, agentID)
	for i, name := range names {
		placeholders[i] = "?"
		args = append(args, name)
	}

	query := `SELECT ` + nodeColumns + ` FROM nodes
		WHERE agent_id = ? AND name IN (` + strings.Join(placeholders, ",") + `)
		ORDER BY timestamp`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("get_nodes_by_name", agentID, err)
	}
	defer func() { _ = rows.Close() }()

	nodes := make([]types.Node, 0, len(names))
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, storageErr("get_nodes_by_name", agentID, err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("get_nodes_by_name", agentID, err)
	}
	return nodes, nil
}

// GetNodeByID returns one node or ErrNotFound
func (s *SQLiteStore) GetNodeByID(ctx context.Context, agentID, nodeID string) (*types.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE agent_id = ? AND id = ?`
	node, err := scanNode(s.db.QueryRowContext(ctx, query, agentID, nodeID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get_node_by_id", agentID, err)
	}
	return &node, nil
}

// GetAllNodes returns every node in the agent's graph
func (s *SQLiteStore) GetAllNodes(ctx context.Context, agentID string) ([]types.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE agent_id = ? ORDER BY timestamp`
	rows, err := s.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, storageErr("get_all_nodes", agentID, err)
	}
	defer func() { _ = rows.Close() }()

	nodes := make([]types.Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, storageErr("get_all_nodes", agentID, err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("get_all_nodes", agentID, err)
	}
	return nodes, nil
}

// GetAllRelations returns every relation in the agent's graph
func (s *SQLiteStore) GetAllRelations(ctx context.Context, agentID string) ([]types.Relation, error) {
	query := `
		SELECT id, from_node_id, to_node_id, relation_type, timestamp, version
		FROM relations WHERE agent_id = ? ORDER BY timestamp
	`
	rows, err := s.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, storageErr("get_all_relations", agentID, err)
	}
	defer func() { _ = rows.Close() }()

	relations := make([]types.Relation, 0)
	for rows.Next() {
		var rel types.Relation
		if err := rows.Scan(&rel.ID, &rel.FromNodeID, &rel.ToNodeID,
			&rel.RelationType, &rel.Timestamp, &rel.Version); err != nil {
			return nil, storageErr("get_all_relations", agentID, err)
		}
		relations = append(relations, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("get_all_relations", agentID, err)
	}
	return relations, nil
}

// UpdateNodeObservations replaces the observation list under a
// compare-and-swap guard on the expected version
func (s *SQLiteStore) UpdateNodeObservations(ctx context.Context, agentID, nodeID string, observations []string, expectedVersion int) error {
	encoded, err := marshalObservations(observations)
	if err != nil {
		return storageErr("update_node_observations", agentID, err)
	}

	query := `
		UPDATE nodes SET observations = ?, version = version + 1
		WHERE agent_id = ? AND id = ? AND version = ?
	`
	result, err := s.db.ExecContext(ctx, query, encoded, agentID, nodeID, expectedVersion)
	if err != nil {
		return storageErr("update_node_observations", agentID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storageErr("update_node_observations", agentID, err)
	}
	if affected == 0 {
		// Distinguish a missing node from a lost CAS race
		if _, err := s.GetNodeByID(ctx, agentID, nodeID); err == ErrNotFound {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// DeleteNode removes a node. Incident relations are NOT removed; callers
// own relation cleanup.
func (s *SQLiteStore) DeleteNode(ctx context.Context, agentID, nodeID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM nodes WHERE agent_id = ? AND id = ?`, agentID, nodeID)
	if err != nil {
		return false, storageErr("delete_node", agentID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("delete_node", agentID, err)
	}
	return affected > 0, nil
}

// DeleteRelation removes a relation by id
func (s *SQLiteStore) DeleteRelation(ctx context.Context, agentID, relationID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM relations WHERE agent_id = ? AND id = ?`, agentID, relationID)
	if err != nil {
		return false, storageErr("delete_relation", agentID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("delete_relation", agentID, err)
	}
	return affected > 0, nil
}

// SearchNodes matches term as a substring of name, entity type, or
// observation text, optionally narrowed to one entity type
func (s *SQLiteStore) SearchNodes(ctx context.Context, agentID, term, entityType string) ([]types.Node, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + nodeColumns + ` FROM nodes WHERE agent_id = ?`)
	args := []interface{}{agentID}

	if entityType != "" {
		sb.WriteString(` AND entity_type = ?`)
		args = append(args, entityType)
	}
	if term != "" {
		sb.WriteString(` AND (name LIKE '%' || ? || '%' OR entity_type LIKE '%' || ? || '%' OR observations LIKE '%' || ? || '%')`)
		args = append(args, term, term, term)
	}
	sb.WriteString(` ORDER BY timestamp`)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, storageErr("search_nodes", agentID, err)
	}
	defer func() { _ = rows.Close() }()

	nodes := make([]types.Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, storageErr("search_nodes", agentID, err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("search_nodes", agentID, err)
	}
	return nodes, nil
}
