package knowledge

import (
	"go.uber.org/zap"

	"graphspace/backend/internal/graph"
)

// resolve infers the kind of an entity from its id. It fails when no kind or
// more than one kind holds the id.
func (kg *KnowledgeGraph) resolve(id string) (graph.Key, bool) {
	if id == "" {
		return graph.Key{}, false
	}
	kinds := kg.store.KindsOf(id)
	switch len(kinds) {
	case 1:
		return graph.NewKey(kinds[0], id), true
	case 0:
		kg.logger.Debug("Entity id not found", zap.String("id", id))
	default:
		kg.logger.Warn("Entity id is ambiguous across kinds", zap.String("id", id), zap.Int("kinds", len(kinds)))
	}
	return graph.Key{}, false
}

// AddRelationship links two entities by id, inferring their kinds. props are
// merged into the edge after the relationship kind. Returns false when either
// id is unknown or ambiguous. The edge lives in the graph only.
func (kg *KnowledgeGraph) AddRelationship(sourceID, targetID, relationship string, props map[string]any) bool {
	kg.mu.Lock()
	defer kg.mu.Unlock()

	source, ok := kg.resolve(sourceID)
	if !ok {
		return false
	}
	target, ok := kg.resolve(targetID)
	if !ok {
		return false
	}

	patch := map[string]any{graph.AttrRelationship: relationship}
	for k, v := range props {
		patch[k] = v
	}
	return kg.graph.MergeEdge(source, target, patch)
}

// RemoveAllRelationships deletes every edge incident to the entity with the
// given id. Returns false when the id is unknown or ambiguous.
func (kg *KnowledgeGraph) RemoveAllRelationships(id string) bool {
	kg.mu.Lock()
	defer kg.mu.Unlock()

	key, ok := kg.resolve(id)
	if !ok {
		return false
	}
	removed := kg.relationships.RemoveAll(key)
	kg.logger.Debug("Relationships removed", zap.String("entity", key.String()), zap.Int("count", removed))
	return true
}

// CreateRelationship adds or merges an explicit edge.
func (kg *KnowledgeGraph) CreateRelationship(rel graph.Relationship) bool {
	kg.mu.Lock()
	defer kg.mu.Unlock()
	return kg.relationships.Create(rel)
}

// DeleteRelationship removes an edge.
func (kg *KnowledgeGraph) DeleteRelationship(rel graph.Relationship) bool {
	kg.mu.Lock()
	defer kg.mu.Unlock()
	return kg.relationships.Delete(rel)
}

// UpdateRelationship replaces an existing edge.
func (kg *KnowledgeGraph) UpdateRelationship(rel graph.Relationship) bool {
	kg.mu.Lock()
	defer kg.mu.Unlock()
	return kg.relationships.Update(rel)
}

// GetRelationship reads the edge between two entities.
func (kg *KnowledgeGraph) GetRelationship(sourceKind graph.Kind, sourceID string, targetKind graph.Kind, targetID string) (graph.Relationship, bool) {
	kg.mu.RLock()
	defer kg.mu.RUnlock()
	return kg.relationships.Get(sourceKind, sourceID, targetKind, targetID)
}

// RelationshipsByEntity lists the edges incident to an entity.
func (kg *KnowledgeGraph) RelationshipsByEntity(kind graph.Kind, id string) ([]graph.Relationship, error) {
	kg.mu.RLock()
	defer kg.mu.RUnlock()
	return kg.relationships.ListByEntity(kind, id)
}

// RelationshipsByKind lists the edges of one relationship kind.
func (kg *KnowledgeGraph) RelationshipsByKind(relationship string) []graph.Relationship {
	kg.mu.RLock()
	defer kg.mu.RUnlock()
	return kg.relationships.ListByKind(relationship)
}

// ============================================================================
// Queries
// ============================================================================

// RelatedEntities returns the neighbours of an entity, optionally filtered by
// relationship kind.
func (kg *KnowledgeGraph) RelatedEntities(kind graph.Kind, id, relationship string) ([]graph.RelatedEntity, error) {
	kg.mu.RLock()
	defer kg.mu.RUnlock()
	return kg.queries.RelatedEntities(kind, id, relationship)
}

// SearchByTag returns every entity carrying tag exactly.
func (kg *KnowledgeGraph) SearchByTag(tag string) []graph.EntityRef {
	kg.mu.RLock()
	defer kg.mu.RUnlock()
	return kg.queries.SearchByTag(tag)
}

// TextSearch ranks entities of the given kinds by keyword matches on their
// text fields. No kinds means notes, tasks and contacts.
func (kg *KnowledgeGraph) TextSearch(query string, kinds []graph.Kind, limit int) []graph.SearchHit {
	kg.mu.RLock()
	defer kg.mu.RUnlock()
	return kg.queries.TextSearch(query, kinds, limit)
}

// FindPath returns a shortest path between two entities.
func (kg *KnowledgeGraph) FindPath(sourceKind graph.Kind, sourceID string, targetKind graph.Kind, targetID string) ([]graph.PathStep, error) {
	kg.mu.RLock()
	defer kg.mu.RUnlock()
	return kg.queries.FindPath(sourceKind, sourceID, targetKind, targetID)
}

// Statistics summarises the graph.
func (kg *KnowledgeGraph) Statistics() graph.Statistics {
	kg.mu.RLock()
	defer kg.mu.RUnlock()
	stats := kg.queries.Statistics()
	stats.NotesCount = kg.store.Len(graph.KindNote)
	stats.TasksCount = kg.store.Len(graph.KindTask)
	stats.ContactsCount = kg.store.Len(graph.KindContact)
	stats.DocumentsCount = kg.store.Len(graph.KindDocument)
	return stats
}
