package graph

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rashee1997/memgraph-mcp/internal/ai"
	"github.com/rashee1997/memgraph-mcp/internal/storage"
	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

const (
	// casRetries bounds the read-modify-CAS loop on observation updates
	casRetries = 3

	// defaultInferThreshold is the confidence at or above which an
	// inferred relation is materialized instead of merely proposed
	defaultInferThreshold = 0.8
)

// Manager orchestrates all knowledge graph operations for every agent.
// It is safe for concurrent use; all state lives in the store.
type Manager struct {
	store          storage.Store
	ai             ai.Service
	logger         *log.Logger
	inferThreshold float64
}

// Option configures a Manager
type Option func(*Manager)

// WithAI attaches an AI service. Without one, natural-language query
// degrades to plain search and relation inference returns an error.
func WithAI(svc ai.Service) Option {
	return func(m *Manager) { m.ai = svc }
}

// WithLogger overrides the default stderr logger
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithInferThreshold overrides the auto-materialization confidence cutoff
func WithInferThreshold(threshold float64) Option {
	return func(m *Manager) { m.inferThreshold = threshold }
}

// NewManager creates a Manager on the given store
func NewManager(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		logger:         log.Default(),
		inferThreshold: defaultInferThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EntityInput is one entity in a create_entities batch
type EntityInput struct {
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations,omitempty"`
}

// RelationInput is one relation in a create/delete batch, endpoints by name
type RelationInput struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
}

// ObservationInput names an entity and the observation strings to merge
// into or filter out of its observation list
type ObservationInput struct {
	EntityName string   `json:"entityName"`
	Contents   []string `json:"contents"`
}

// CreateEntities assigns identity and version to each entity and bulk
// inserts them. Duplicate names are allowed; lookups take the first match.
func (m *Manager) CreateEntities(ctx context.Context, agentID string, entities []EntityInput) ([]types.OperationResult, error) {
	now := time.Now().UnixMilli()
	results := make([]types.OperationResult, 0, len(entities))
	nodes := make([]types.Node, 0, len(entities))

	for _, input := range entities {
		node := types.Node{
			ID:           uuid.NewString(),
			AgentID:      agentID,
			Name:         input.Name,
			EntityType:   input.EntityType,
			Observations: input.Observations,
			Timestamp:    now,
			Version:      1,
		}
		if node.Observations == nil {
			node.Observations = []string{}
		}
		if err := node.Validate(); err != nil {
			results = append(results, types.OperationResult{
				Name:       input.Name,
				EntityType: input.EntityType,
				Success:    false,
				Message:    err.Error(),
			})
			continue
		}
		nodes = append(nodes, node)
		results = append(results, types.OperationResult{
			NodeID:     node.ID,
			Name:       node.Name,
			EntityType: node.EntityType,
			Success:    true,
		})
	}

	if len(nodes) > 0 {
		if err := m.store.InsertNodes(ctx, agentID, nodes); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// CreateRelations resolves endpoints by exact name (first match when
// names are ambiguous) and inserts one relation per resolvable pair.
// A missing endpoint fails that item only.
func (m *Manager) CreateRelations(ctx context.Context, agentID string, relations []RelationInput) ([]types.RelationResult, error) {
	now := time.Now().UnixMilli()
	results := make([]types.RelationResult, 0, len(relations))
	inserts := make([]types.Relation, 0, len(relations))

	for _, input := range relations {
		result := types.RelationResult{
			From:         input.From,
			To:           input.To,
			RelationType: input.RelationType,
		}
		from, to, err := m.resolveEndpoints(ctx, agentID, input.From, input.To)
		if err != nil {
			var missing *missingEntityError
			if errors.As(err, &missing) {
				result.Message = missing.Error()
				results = append(results, result)
				continue
			}
			return nil, err
		}
		if input.RelationType == "" {
			result.Message = "relation type is required"
			results = append(results, result)
			continue
		}

		rel := types.Relation{
			ID:           uuid.NewString(),
			FromNodeID:   from.ID,
			ToNodeID:     to.ID,
			RelationType: input.RelationType,
			Timestamp:    now,
			Version:      1,
		}
		inserts = append(inserts, rel)
		result.RelationID = rel.ID
		result.Success = true
		results = append(results, result)
	}

	if len(inserts) > 0 {
		if err := m.store.InsertRelations(ctx, agentID, inserts); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// AddObservations merges new observation strings into each named entity,
// skipping strings already present, and bumps the version. Updates use
// compare-and-swap with a bounded retry so concurrent writers cannot
// silently lose each other's observations.
func (m *Manager) AddObservations(ctx context.Context, agentID string, inputs []ObservationInput) ([]types.OperationResult, error) {
	return m.mutateObservations(ctx, agentID, inputs, mergeObservations)
}

// DeleteObservations filters the given strings out of each named entity's
// observation list and bumps the version.
func (m *Manager) DeleteObservations(ctx context.Context, agentID string, inputs []ObservationInput) ([]types.OperationResult, error) {
	return m.mutateObservations(ctx, agentID, inputs, filterObservations)
}

func mergeObservations(current, contents []string) []string {
	existing := make(map[string]bool, len(current))
	merged := append([]string{}, current...)
	for _, obs := range current {
		existing[obs] = true
	}
	for _, obs := range contents {
		if !existing[obs] {
			merged = append(merged, obs)
			existing[obs] = true
		}
	}
	return merged
}

func filterObservations(current, contents []string) []string {
	drop := make(map[string]bool, len(contents))
	for _, obs := range contents {
		drop[obs] = true
	}
	kept := make([]string, 0, len(current))
	for _, obs := range current {
		if !drop[obs] {
			kept = append(kept, obs)
		}
	}
	return kept
}

func (m *Manager) mutateObservations(ctx context.Context, agentID string, inputs []ObservationInput, apply func(current, contents []string) []string) ([]types.OperationResult, error) {
	results := make([]types.OperationResult, 0, len(inputs))

	for _, input := range inputs {
		node, err := m.firstByName(ctx, agentID, input.EntityName)
		if err != nil {
			return nil, err
		}
		if node == nil {
			results = append(results, types.OperationResult{
				Name:    input.EntityName,
				Success: false,
				Message: fmt.Sprintf("entity %q not found", input.EntityName),
			})
			continue
		}

		result := types.OperationResult{
			NodeID:     node.ID,
			Name:       node.Name,
			EntityType: node.EntityType,
		}
		if err := m.casUpdate(ctx, agentID, node, input.Contents, apply); err != nil {
			if errors.Is(err, storage.ErrVersionConflict) {
				result.Message = "concurrent update, retries exhausted"
				results = append(results, result)
				continue
			}
			return nil, err
		}
		result.Success = true
		results = append(results, result)
	}
	return results, nil
}

// casUpdate runs the read-modify-CAS loop for one node
func (m *Manager) casUpdate(ctx context.Context, agentID string, node *types.Node, contents []string, apply func(current, contents []string) []string) error {
	current := node
	for attempt := 0; attempt < casRetries; attempt++ {
		updated := apply(current.Observations, contents)
		err := m.store.UpdateNodeObservations(ctx, agentID, current.ID, updated, current.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return err
		}
		// Re-read and try again against the newer version
		fresh, ferr := m.store.GetNodeByID(ctx, agentID, current.ID)
		if ferr != nil {
			return ferr
		}
		current = fresh
	}
	return storage.ErrVersionConflict
}

// DeleteEntities removes each named node. Incident relations are NOT
// cascade-deleted; callers delete them separately. See DESIGN.md.
func (m *Manager) DeleteEntities(ctx context.Context, agentID string, names []string) ([]types.OperationResult, error) {
	results := make([]types.OperationResult, 0, len(names))

	for _, name := range names {
		node, err := m.firstByName(ctx, agentID, name)
		if err != nil {
			return nil, err
		}
		if node == nil {
			results = append(results, types.OperationResult{
				Name:    name,
				Success: false,
				Message: fmt.Sprintf("entity %q not found", name),
			})
			continue
		}

		deleted, err := m.store.DeleteNode(ctx, agentID, node.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, types.OperationResult{
			NodeID:     node.ID,
			Name:       node.Name,
			EntityType: node.EntityType,
			Success:    deleted,
		})
	}
	return results, nil
}

// DeleteRelations resolves each triple's endpoints by name and deletes the
// first relation matching (fromId, toId, relationType). The match is a
// linear scan over the agent's relations.
func (m *Manager) DeleteRelations(ctx context.Context, agentID string, relations []RelationInput) ([]types.RelationResult, error) {
	results := make([]types.RelationResult, 0, len(relations))

	var all []types.Relation
	var loaded bool

	for _, input := range relations {
		result := types.RelationResult{
			From:         input.From,
			To:           input.To,
			RelationType: input.RelationType,
		}
		from, to, err := m.resolveEndpoints(ctx, agentID, input.From, input.To)
		if err != nil {
			var missing *missingEntityError
			if errors.As(err, &missing) {
				result.Message = missing.Error()
				results = append(results, result)
				continue
			}
			return nil, err
		}

		if !loaded {
			all, err = m.store.GetAllRelations(ctx, agentID)
			if err != nil {
				return nil, err
			}
			loaded = true
		}

		var match *types.Relation
		for i := range all {
			rel := &all[i]
			if rel.FromNodeID == from.ID && rel.ToNodeID == to.ID && rel.RelationType == input.RelationType {
				match = rel
				break
			}
		}
		if match == nil {
			result.Message = "relation not found"
			results = append(results, result)
			continue
		}

		deleted, err := m.store.DeleteRelation(ctx, agentID, match.ID)
		if err != nil {
			return nil, err
		}
		result.RelationID = match.ID
		result.Success = deleted
		results = append(results, result)
	}
	return results, nil
}

// ReadGraph returns the agent's full graph with relation endpoints
// resolved back to node names for display. Dangling endpoints keep the
// raw node id.
func (m *Manager) ReadGraph(ctx context.Context, agentID string) (*types.GraphView, error) {
	nodes, err := m.store.GetAllNodes(ctx, agentID)
	if err != nil {
		return nil, err
	}
	relations, err := m.store.GetAllRelations(ctx, agentID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(nodes))
	for _, node := range nodes {
		names[node.ID] = node.Name
	}

	view := &types.GraphView{
		Nodes:     nodes,
		Relations: make([]types.GraphRelation, 0, len(relations)),
	}
	for _, rel := range relations {
		from, ok := names[rel.FromNodeID]
		if !ok {
			from = rel.FromNodeID
		}
		to, ok := names[rel.ToNodeID]
		if !ok {
			to = rel.ToNodeID
		}
		view.Relations = append(view.Relations, types.GraphRelation{
			ID:           rel.ID,
			From:         from,
			To:           to,
			RelationType: rel.RelationType,
		})
	}
	return view, nil
}

// TraverseGraph resolves startName and expands breadth-first. An unknown
// start name returns empty result sets, not an error.
func (m *Manager) TraverseGraph(ctx context.Context, agentID, startName string, relationTypes []string, maxDepth int) (*types.TraversalResult, error) {
	start, err := m.firstByName(ctx, agentID, startName)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return &types.TraversalResult{
			Nodes:     []types.Node{},
			Relations: []types.Relation{},
		}, nil
	}
	return m.store.TraverseGraph(ctx, agentID, start.ID, relationTypes, maxDepth)
}

// missingEntityError marks a name that resolved to no node. It stays
// internal: callers convert it to a per-item failure result.
type missingEntityError struct {
	name string
}

func (e *missingEntityError) Error() string {
	return fmt.Sprintf("entity %q not found", e.name)
}

// firstByName returns the first node with the given name, or nil
func (m *Manager) firstByName(ctx context.Context, agentID, name string) (*types.Node, error) {
	nodes, err := m.store.GetNodesByName(ctx, agentID, []string{name})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &nodes[0], nil
}

// resolveEndpoints looks up both relation endpoints, first match wins
func (m *Manager) resolveEndpoints(ctx context.Context, agentID, fromName, toName string) (*types.Node, *types.Node, error) {
	from, err := m.firstByName(ctx, agentID, fromName)
	if err != nil {
		return nil, nil, err
	}
	if from == nil {
		return nil, nil, &missingEntityError{name: fromName}
	}
	to, err := m.firstByName(ctx, agentID, toName)
	if err != nil {
		return nil, nil, err
	}
	if to == nil {
		return nil, nil, &missingEntityError{name: toName}
	}
	return from, to, nil
}
