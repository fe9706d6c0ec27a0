package graph

import (
	"encoding/json"

	"go.uber.org/zap"

	apperrors "graphspace/backend/pkg/errors"
	"graphspace/backend/pkg/logger"
)

// Relationship is the named view of one edge. The graph is undirected, so
// Source and Target only record which endpoint the caller started from.
type Relationship struct {
	SourceKind Kind           `json:"source_type"`
	SourceID   string         `json:"source_id"`
	TargetKind Kind           `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Type       string         `json:"relationship_type"`
	Weight     float64        `json:"weight"`
	Attributes map[string]any `json:"attributes"`
}

// UnmarshalJSON requires both endpoints and defaults a missing weight to 1.0.
func (r *Relationship) UnmarshalJSON(b []byte) error {
	var wire struct {
		SourceKind *Kind          `json:"source_type"`
		SourceID   string         `json:"source_id"`
		TargetKind *Kind          `json:"target_type"`
		TargetID   string         `json:"target_id"`
		Type       string         `json:"relationship_type"`
		Weight     *float64       `json:"weight"`
		Attributes map[string]any `json:"attributes"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	switch {
	case wire.SourceKind == nil:
		return apperrors.NewInvalidRecord("relationship", "missing source_type")
	case wire.SourceID == "":
		return apperrors.NewInvalidRecord("relationship", "missing source_id")
	case wire.TargetKind == nil:
		return apperrors.NewInvalidRecord("relationship", "missing target_type")
	case wire.TargetID == "":
		return apperrors.NewInvalidRecord("relationship", "missing target_id")
	}
	*r = Relationship{
		SourceKind: *wire.SourceKind,
		SourceID:   wire.SourceID,
		TargetKind: *wire.TargetKind,
		TargetID:   wire.TargetID,
		Type:       wire.Type,
		Weight:     1.0,
		Attributes: wire.Attributes,
	}
	if wire.Weight != nil {
		r.Weight = *wire.Weight
	}
	return nil
}

// Source returns the source node key.
func (r Relationship) Source() Key { return NewKey(r.SourceKind, r.SourceID) }

// Target returns the target node key.
func (r Relationship) Target() Key { return NewKey(r.TargetKind, r.TargetID) }

// Reverse returns the same relationship seen from the target.
func (r Relationship) Reverse() Relationship {
	r.SourceKind, r.TargetKind = r.TargetKind, r.SourceKind
	r.SourceID, r.TargetID = r.TargetID, r.SourceID
	r.Attributes = edgeExtras(r.Attributes)
	return r
}

func relationshipFromEdge(source, target Key, e *Edge) Relationship {
	typ := e.Relationship()
	if typ == "" {
		typ = RelCustom
	}
	return Relationship{
		SourceKind: source.Kind,
		SourceID:   source.ID,
		TargetKind: target.Kind,
		TargetID:   target.ID,
		Type:       typ,
		Weight:     e.Weight(1.0),
		Attributes: edgeExtras(e.attrs, AttrRelationship, AttrWeight),
	}
}

// RelationshipManager edits explicit edges directly on the live graph.
// Edges it creates are not written to the entity store, so the next rebuild
// drops them.
type RelationshipManager struct {
	graph  *Graph
	logger *zap.Logger
}

// NewRelationshipManager creates a manager bound to g
func NewRelationshipManager(g *Graph) *RelationshipManager {
	return &RelationshipManager{
		graph:  g,
		logger: logger.Get(),
	}
}

// Create merges the relationship into the edge between its endpoints.
// Returns false when either endpoint is not in the graph.
func (m *RelationshipManager) Create(rel Relationship) bool {
	patch := make(map[string]any, len(rel.Attributes)+2)
	patch[AttrRelationship] = rel.Type
	patch[AttrWeight] = rel.Weight
	for k, v := range rel.Attributes {
		patch[k] = v
	}
	if !m.graph.MergeEdge(rel.Source(), rel.Target(), patch) {
		m.logger.Debug("Relationship endpoints missing",
			zap.String("source", rel.Source().String()),
			zap.String("target", rel.Target().String()),
		)
		return false
	}
	return true
}

// Delete removes the edge between the relationship's endpoints.
func (m *RelationshipManager) Delete(rel Relationship) bool {
	return m.graph.RemoveEdge(rel.Source(), rel.Target())
}

// Get reads the edge between two entities back as a Relationship.
func (m *RelationshipManager) Get(sourceKind Kind, sourceID string, targetKind Kind, targetID string) (Relationship, bool) {
	source := NewKey(sourceKind, sourceID)
	target := NewKey(targetKind, targetID)
	e, ok := m.graph.Edge(source, target)
	if !ok {
		return Relationship{}, false
	}
	return relationshipFromEdge(source, target, e), true
}

// Update replaces the edge: delete, then create. When there is no edge to
// delete nothing is created and the result is false.
func (m *RelationshipManager) Update(rel Relationship) bool {
	if !m.Delete(rel) {
		return false
	}
	return m.Create(rel)
}

// ListByEntity returns every relationship incident to the entity, seen from it.
func (m *RelationshipManager) ListByEntity(kind Kind, id string) ([]Relationship, error) {
	key := NewKey(kind, id)
	if !m.graph.HasNode(key) {
		return nil, apperrors.NewEntityNotFound(kind.String(), id)
	}
	neighbors := m.graph.Neighbors(key)
	out := make([]Relationship, 0, len(neighbors))
	for _, n := range neighbors {
		e, _ := m.graph.Edge(key, n)
		out = append(out, relationshipFromEdge(key, n, e))
	}
	return out, nil
}

// ListByKind returns every edge whose relationship equals typ.
func (m *RelationshipManager) ListByKind(typ string) []Relationship {
	var out []Relationship
	m.graph.EachEdge(func(a, b Key, e *Edge) {
		if e.Relationship() == typ {
			out = append(out, relationshipFromEdge(a, b, e))
		}
	})
	return out
}

// RemoveAll deletes every edge incident to key and returns how many went.
func (m *RelationshipManager) RemoveAll(key Key) int {
	removed := 0
	for _, n := range m.graph.Neighbors(key) {
		if m.graph.RemoveEdge(key, n) {
			removed++
		}
	}
	return removed
}
