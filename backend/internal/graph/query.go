package graph

import (
	"go.uber.org/zap"

	apperrors "graphspace/backend/pkg/errors"
	"graphspace/backend/pkg/logger"
)

// QueryEngine answers read-only questions about the live graph.
type QueryEngine struct {
	graph  *Graph
	logger *zap.Logger
}

// NewQueryEngine creates a query engine bound to g
func NewQueryEngine(g *Graph) *QueryEngine {
	return &QueryEngine{
		graph:  g,
		logger: logger.Get(),
	}
}

// RelatedEntities returns the neighbours of an entity. A non-empty filter
// keeps only edges whose relationship equals it.
func (q *QueryEngine) RelatedEntities(kind Kind, id, filter string) ([]RelatedEntity, error) {
	key := NewKey(kind, id)
	if !q.graph.HasNode(key) {
		return nil, apperrors.NewEntityNotFound(kind.String(), id)
	}

	related := make([]RelatedEntity, 0)
	for _, n := range q.graph.Neighbors(key) {
		e, _ := q.graph.Edge(key, n)
		rel := e.Relationship()
		if filter != "" && rel != filter {
			continue
		}
		node, _ := q.graph.Node(n)
		related = append(related, RelatedEntity{
			EntityRef:        refFor(node),
			Relationship:     rel,
			RelationshipData: edgeExtras(e.attrs, AttrRelationship),
		})
	}
	return related, nil
}

// SearchByTag returns every entity whose tags contain tag exactly
// (case-sensitive).
func (q *QueryEngine) SearchByTag(tag string) []EntityRef {
	results := make([]EntityRef, 0)
	for _, n := range q.graph.nodes {
		if n.Record.Tags().Has(tag) {
			results = append(results, refFor(n))
		}
	}
	return results
}

// FindPath returns an unweighted shortest path between two entities. The
// result is empty when the endpoints are the same entity or not connected.
func (q *QueryEngine) FindPath(sourceKind Kind, sourceID string, targetKind Kind, targetID string) ([]PathStep, error) {
	start, ok := q.graph.index[NewKey(sourceKind, sourceID)]
	if !ok {
		return nil, apperrors.NewEntityNotFound(sourceKind.String(), sourceID)
	}
	end, ok := q.graph.index[NewKey(targetKind, targetID)]
	if !ok {
		return nil, apperrors.NewEntityNotFound(targetKind.String(), targetID)
	}
	if start == end {
		return []PathStep{}, nil
	}

	prev := make([]int, len(q.graph.nodes))
	for i := range prev {
		prev[i] = -1
	}
	prev[start] = start

	queue := []int{start}
	found := false
	for len(queue) > 0 && !found {
		current := queue[0]
		queue = queue[1:]
		for _, next := range q.graph.neighborSlots(current) {
			if prev[next] != -1 {
				continue
			}
			prev[next] = current
			if next == end {
				found = true
				break
			}
			queue = append(queue, next)
		}
	}
	if !found {
		return []PathStep{}, nil
	}

	var slots []int
	for at := end; at != start; at = prev[at] {
		slots = append(slots, at)
	}
	slots = append(slots, start)
	for i, j := 0, len(slots)-1; i < j; i, j = i+1, j-1 {
		slots[i], slots[j] = slots[j], slots[i]
	}

	steps := make([]PathStep, len(slots))
	for i, s := range slots {
		steps[i] = PathStep{EntityRef: refFor(q.graph.nodes[s])}
		if i+1 < len(slots) {
			steps[i].NextRelationship = q.graph.adj[s].edges[slots[i+1]].Attributes()
		}
	}
	return steps, nil
}
