package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested row doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when a compare-and-swap update loses
	// the race against a concurrent writer
	ErrVersionConflict = errors.New("version conflict")
)

// StorageError tags a persistence fault with the failing operation and the
// agent whose graph was being touched.
type StorageError struct {
	Op      string
	AgentID string
	Err     error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s (agent %s): %v", e.Op, e.AgentID, e.Err)
}

// Unwrap returns the underlying fault
func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op, agentID string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, AgentID: agentID, Err: err}
}

// DegreeRank is one row of the connectivity aggregation used for hub
// detection and overview diagrams.
type DegreeRank struct {
	Node   types.Node
	Degree int
}

// Store defines the persistence contract for per-agent knowledge graphs
type Store interface {
	// Bulk insert, no implicit merge
	InsertNodes(ctx context.Context, agentID string, nodes []types.Node) error
	InsertRelations(ctx context.Context, agentID string, relations []types.Relation) error

	// Lookup operations. GetNodesByName is exact and case-sensitive and
	// may return fewer nodes than names requested; callers must check.
	GetNodesByName(ctx context.Context, agentID string, names []string) ([]types.Node, error)
	GetNodeByID(ctx context.Context, agentID, nodeID string) (*types.Node, error)
	GetAllNodes(ctx context.Context, agentID string) ([]types.Node, error)
	GetAllRelations(ctx context.Context, agentID string) ([]types.Relation, error)

	// UpdateNodeObservations replaces the observation list and bumps the
	// version, guarded by compare-and-swap on the expected version.
	// Returns ErrVersionConflict when a concurrent writer got there first.
	UpdateNodeObservations(ctx context.Context, agentID, nodeID string, observations []string, expectedVersion int) error

	// Deletes report whether a row was actually removed
	DeleteNode(ctx context.Context, agentID, nodeID string) (bool, error)
	DeleteRelation(ctx context.Context, agentID, relationID string) (bool, error)

	// SearchNodes is a substring match over name, entity type, and
	// observation text. entityType narrows the match when non-empty.
	SearchNodes(ctx context.Context, agentID, term, entityType string) ([]types.Node, error)

	// TraverseGraph expands breadth-first from startNodeID following
	// edges in either direction, bounded by maxDepth and restricted to
	// relationTypes when non-empty.
	TraverseGraph(ctx context.Context, agentID, startNodeID string, relationTypes []string, maxDepth int) (*types.TraversalResult, error)

	// RankNodesByDegree returns the top-N nodes by incident relation count
	RankNodesByDegree(ctx context.Context, agentID string, limit int) ([]DegreeRank, error)

	Close() error
}
