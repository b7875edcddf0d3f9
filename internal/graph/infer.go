package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rashee1997/memgraph-mcp/internal/ai"
	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

// Prompt truncation caps. Inference quality degrades past these sizes and
// token cost grows without bound.
const (
	inferMaxNodes     = 20
	inferMaxRelations = 10
	inferMaxObsLength = 200
)

// RelationVocabulary is the closed set of relation types the model may
// propose. Proposals outside it are discarded.
var RelationVocabulary = []string{
	"calls",
	"implements",
	"extends",
	"uses",
	"contains",
	"depends_on",
	"imports",
	"instantiates",
	"configures",
	"tests",
	"related_to",
}

// InferredRelation is one proposal from relation inference. Status is
// "created" when the proposal was materialized and "proposed" otherwise.
type InferredRelation struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	RelationType string  `json:"relationType"`
	Confidence   float64 `json:"confidence"`
	Evidence     string  `json:"evidence,omitempty"`
	Status       string  `json:"status"`
}

// InferRelations asks the AI to propose relations between the named nodes
// (or all nodes when names is empty). Valid proposals at or above the
// configured confidence threshold are created immediately; the rest are
// returned as proposed for external review. There is no deterministic
// fallback: without an AI service this returns an error.
func (m *Manager) InferRelations(ctx context.Context, agentID string, names []string, hint string) ([]InferredRelation, error) {
	if m.ai == nil {
		return nil, fmt.Errorf("infer relations: %w", ai.ErrUnavailable)
	}

	nodes, err := m.candidateNodes(ctx, agentID, names)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return []InferredRelation{}, nil
	}
	relations, err := m.store.GetAllRelations(ctx, agentID)
	if err != nil {
		return nil, err
	}

	raw, err := m.ai.GenerateJSON(ctx, inferPrompt(nodes, relations, hint))
	if err != nil {
		return nil, fmt.Errorf("infer relations: %w", err)
	}

	var proposals []InferredRelation
	if err := json.Unmarshal([]byte(raw), &proposals); err != nil {
		// Some models wrap the array in an object
		var wrapped struct {
			Relations []InferredRelation `json:"relations"`
		}
		if err2 := json.Unmarshal([]byte(raw), &wrapped); err2 != nil {
			return nil, fmt.Errorf("infer relations: unparseable proposals: %w", err)
		}
		proposals = wrapped.Relations
	}

	valid := m.validateProposals(nodes, relations, proposals)

	var toCreate []RelationInput
	for i := range valid {
		if valid[i].Confidence >= m.inferThreshold {
			toCreate = append(toCreate, RelationInput{
				From:         valid[i].From,
				To:           valid[i].To,
				RelationType: valid[i].RelationType,
			})
		}
	}
	if len(toCreate) > 0 {
		created, err := m.CreateRelations(ctx, agentID, toCreate)
		if err != nil {
			return nil, err
		}
		byTriple := make(map[string]bool, len(created))
		for _, result := range created {
			if result.Success {
				byTriple[result.From+"\x00"+result.To+"\x00"+result.RelationType] = true
			}
		}
		for i := range valid {
			if byTriple[valid[i].From+"\x00"+valid[i].To+"\x00"+valid[i].RelationType] {
				valid[i].Status = "created"
			}
		}
	}
	return valid, nil
}

// candidateNodes restricts inference to the named nodes, or all nodes
// when names is empty
func (m *Manager) candidateNodes(ctx context.Context, agentID string, names []string) ([]types.Node, error) {
	if len(names) == 0 {
		return m.store.GetAllNodes(ctx, agentID)
	}
	return m.store.GetNodesByName(ctx, agentID, names)
}

// validateProposals keeps proposals whose endpoints resolve to candidate
// nodes, whose type is in the vocabulary, and whose triple is new
func (m *Manager) validateProposals(nodes []types.Node, existing []types.Relation, proposals []InferredRelation) []InferredRelation {
	byName := make(map[string]string, len(nodes))
	for _, node := range nodes {
		if _, ok := byName[node.Name]; !ok {
			byName[node.Name] = node.ID
		}
	}
	vocabulary := make(map[string]bool, len(RelationVocabulary))
	for _, rt := range RelationVocabulary {
		vocabulary[rt] = true
	}
	present := make(map[string]bool, len(existing))
	for _, rel := range existing {
		present[rel.FromNodeID+"\x00"+rel.ToNodeID+"\x00"+rel.RelationType] = true
	}

	kept := make([]InferredRelation, 0, len(proposals))
	seen := make(map[string]bool)
	for _, p := range proposals {
		fromID, okFrom := byName[p.From]
		toID, okTo := byName[p.To]
		if !okFrom || !okTo || p.From == p.To {
			continue
		}
		if !vocabulary[p.RelationType] {
			continue
		}
		triple := fromID + "\x00" + toID + "\x00" + p.RelationType
		if present[triple] || seen[triple] {
			continue
		}
		seen[triple] = true
		p.Status = "proposed"
		kept = append(kept, p)
	}
	return kept
}

func inferPrompt(nodes []types.Node, relations []types.Relation, extra string) string {
	byID := make(map[string]string, len(nodes))
	for _, node := range nodes {
		byID[node.ID] = node.Name
	}

	var b strings.Builder
	b.WriteString("Propose relationships between these code entities. Respond with a JSON array of objects ")
	b.WriteString(`{"from": "...", "to": "...", "relationType": "...", "confidence": 0.0, "evidence": "..."}. `)
	fmt.Fprintf(&b, "relationType must be one of: %s. Use exact entity names.\n\nEntities:\n", strings.Join(RelationVocabulary, ", "))

	for i, node := range nodes {
		if i >= inferMaxNodes {
			fmt.Fprintf(&b, "... and %d more\n", len(nodes)-inferMaxNodes)
			break
		}
		fmt.Fprintf(&b, "- %s (%s)", node.Name, node.EntityType)
		if len(node.Observations) > 0 {
			obs := strings.Join(node.Observations, "; ")
			if len(obs) > inferMaxObsLength {
				obs = obs[:inferMaxObsLength] + "..."
			}
			fmt.Fprintf(&b, ": %s", obs)
		}
		b.WriteByte('\n')
	}

	b.WriteString("\nExisting relations (do not repeat):\n")
	for i, rel := range relations {
		if i >= inferMaxRelations {
			fmt.Fprintf(&b, "... and %d more\n", len(relations)-inferMaxRelations)
			break
		}
		from, to := byID[rel.FromNodeID], byID[rel.ToNodeID]
		if from == "" || to == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s -[%s]-> %s\n", from, rel.RelationType, to)
	}

	if extra != "" {
		fmt.Fprintf(&b, "\nAdditional context: %s\n", extra)
	}
	return b.String()
}
