// Package knowledge wires the entity store, the derived graph and the data
// file into one unit that callers can share between goroutines.
package knowledge

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"graphspace/backend/internal/graph"
	"graphspace/backend/internal/store"
	apperrors "graphspace/backend/pkg/errors"
	"graphspace/backend/pkg/logger"
)

// KnowledgeGraph owns the entity store and the graph derived from it. Every
// mutation runs store, rebuild, save under one write lock; queries share a
// read lock.
type KnowledgeGraph struct {
	mu sync.RWMutex

	store         *store.EntityStore
	gateway       *store.Gateway
	graph         *graph.Graph
	builder       *graph.Builder
	relationships *graph.RelationshipManager
	queries       *graph.QueryEngine

	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Open loads the data file at path and builds the graph.
func Open(path string, repairCorrupt bool) (*KnowledgeGraph, error) {
	return New(store.NewGateway(path, repairCorrupt))
}

// New loads the store through gateway and builds the graph.
func New(gateway *store.Gateway) (*KnowledgeGraph, error) {
	s, err := gateway.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	g := graph.New()
	kg := &KnowledgeGraph{
		store:         s,
		gateway:       gateway,
		graph:         g,
		builder:       graph.NewBuilder(),
		relationships: graph.NewRelationshipManager(g),
		queries:       graph.NewQueryEngine(g),
		logger:        logger.Get(),
		now:           time.Now,
		newID:         uuid.NewString,
	}
	kg.builder.Rebuild(kg.graph, kg.store.Snapshot())
	return kg, nil
}

// Reload re-reads the data file and rebuilds the graph.
func (kg *KnowledgeGraph) Reload() error {
	kg.mu.Lock()
	defer kg.mu.Unlock()

	s, err := kg.gateway.Load()
	if err != nil {
		return fmt.Errorf("failed to reload data: %w", err)
	}
	kg.store = s
	kg.builder.Rebuild(kg.graph, kg.store.Snapshot())
	return nil
}

// Snapshot returns a copy of every entity record.
func (kg *KnowledgeGraph) Snapshot() graph.Snapshot {
	kg.mu.RLock()
	defer kg.mu.RUnlock()
	return kg.store.Snapshot()
}

// Graph returns a copy of the live graph, explicit relationships included.
func (kg *KnowledgeGraph) Graph() *graph.Graph {
	kg.mu.RLock()
	defer kg.mu.RUnlock()
	return kg.graph.Clone()
}

// commit rebuilds the graph from the store and saves the store. Callers hold
// the write lock.
func (kg *KnowledgeGraph) commit() error {
	kg.builder.Rebuild(kg.graph, kg.store.Snapshot())
	if err := kg.gateway.Save(kg.store); err != nil {
		kg.logger.Error("Failed to save data", zap.String("path", kg.gateway.Path()), zap.Error(err))
		return err
	}
	return nil
}

func (kg *KnowledgeGraph) timestamp() string {
	return kg.now().Format(time.RFC3339)
}

// ============================================================================
// Entities
// ============================================================================

// AddEntity stores a copy of rec, assigning an id when it has none and
// stamping created_at/updated_at when unset. Returns the id.
func (kg *KnowledgeGraph) AddEntity(kind graph.Kind, rec graph.Record) (string, error) {
	kg.mu.Lock()
	defer kg.mu.Unlock()

	if !kind.Valid() {
		return "", apperrors.NewUnknownKind(kind.String())
	}
	rec = kg.prepare(rec)
	id := rec.ID()
	if _, exists := kg.store.Find(kind, id); exists {
		return "", apperrors.NewInvalidRecord(kind.String(), fmt.Sprintf("duplicate id %q", id))
	}
	if err := kg.store.Append(kind, rec); err != nil {
		return "", err
	}
	if err := kg.commit(); err != nil {
		return id, err
	}

	kg.logger.Debug("Entity added", zap.String("kind", kind.String()), zap.String("id", id))
	return id, nil
}

func (kg *KnowledgeGraph) prepare(rec graph.Record) graph.Record {
	rec = rec.Clone()
	if rec == nil {
		rec = graph.Record{}
	}
	if rec.ID() == "" {
		rec[graph.FieldID] = kg.newID()
	}
	now := kg.timestamp()
	if rec.StringField(graph.FieldCreatedAt) == "" {
		rec[graph.FieldCreatedAt] = now
	}
	if rec.StringField(graph.FieldUpdatedAt) == "" {
		rec[graph.FieldUpdatedAt] = now
	}
	return rec
}

// GetEntity returns a copy of one record.
func (kg *KnowledgeGraph) GetEntity(kind graph.Kind, id string) (graph.Record, bool) {
	kg.mu.RLock()
	defer kg.mu.RUnlock()
	return kg.store.Find(kind, id)
}

// ListEntities returns copies of every record of kind, in insertion order.
func (kg *KnowledgeGraph) ListEntities(kind graph.Kind) []graph.Record {
	kg.mu.RLock()
	defer kg.mu.RUnlock()
	return kg.store.List(kind)
}

// UpdateEntity merges patch into the record and refreshes updated_at. The id
// cannot be changed. Returns false when the record does not exist.
func (kg *KnowledgeGraph) UpdateEntity(kind graph.Kind, id string, patch map[string]any) (bool, error) {
	kg.mu.Lock()
	defer kg.mu.Unlock()
	return kg.update(kind, id, func(rec graph.Record) {
		rec.Merge(patch)
	})
}

func (kg *KnowledgeGraph) update(kind graph.Kind, id string, mutate func(graph.Record)) (bool, error) {
	rec, ok := kg.store.Find(kind, id)
	if !ok {
		kg.logger.Warn("Entity not found for update", zap.String("kind", kind.String()), zap.String("id", id))
		return false, nil
	}
	mutate(rec)
	rec[graph.FieldID] = id
	rec[graph.FieldUpdatedAt] = kg.timestamp()
	kg.store.Replace(kind, id, rec)
	if err := kg.commit(); err != nil {
		return true, err
	}
	return true, nil
}

// DeleteEntity removes the record. Returns false when it does not exist.
func (kg *KnowledgeGraph) DeleteEntity(kind graph.Kind, id string) (bool, error) {
	kg.mu.Lock()
	defer kg.mu.Unlock()

	if !kg.store.Remove(kind, id) {
		kg.logger.Warn("Entity not found for delete", zap.String("kind", kind.String()), zap.String("id", id))
		return false, nil
	}
	if err := kg.commit(); err != nil {
		return true, err
	}
	return true, nil
}

// AddNote stores a note.
func (kg *KnowledgeGraph) AddNote(rec graph.Record) (string, error) {
	return kg.AddEntity(graph.KindNote, rec)
}

// AddTask stores a task.
func (kg *KnowledgeGraph) AddTask(rec graph.Record) (string, error) {
	return kg.AddEntity(graph.KindTask, rec)
}

// AddContact stores a contact.
func (kg *KnowledgeGraph) AddContact(rec graph.Record) (string, error) {
	return kg.AddEntity(graph.KindContact, rec)
}

// AddDocument stores a document, replacing any document with the same id.
func (kg *KnowledgeGraph) AddDocument(rec graph.Record) (string, error) {
	kg.mu.Lock()
	defer kg.mu.Unlock()

	rec = kg.prepare(rec)
	id := rec.ID()
	if !kg.store.Replace(graph.KindDocument, id, rec) {
		if err := kg.store.Append(graph.KindDocument, rec); err != nil {
			return "", err
		}
	}
	if err := kg.commit(); err != nil {
		return id, err
	}
	return id, nil
}

// GetNote returns a note.
func (kg *KnowledgeGraph) GetNote(id string) (graph.Record, bool) {
	return kg.GetEntity(graph.KindNote, id)
}

// GetTask returns a task.
func (kg *KnowledgeGraph) GetTask(id string) (graph.Record, bool) {
	return kg.GetEntity(graph.KindTask, id)
}

// GetContact returns a contact.
func (kg *KnowledgeGraph) GetContact(id string) (graph.Record, bool) {
	return kg.GetEntity(graph.KindContact, id)
}

// GetDocument returns a document.
func (kg *KnowledgeGraph) GetDocument(id string) (graph.Record, bool) {
	return kg.GetEntity(graph.KindDocument, id)
}

// AddTag adds tag to the record's tags if missing.
func (kg *KnowledgeGraph) AddTag(kind graph.Kind, id, tag string) (bool, error) {
	kg.mu.Lock()
	defer kg.mu.Unlock()
	return kg.update(kind, id, func(rec graph.Record) {
		tags := rec.Tags()
		if tags.Has(tag) {
			return
		}
		rec[graph.FieldTags] = append(orderedTags(rec), tag)
	})
}

// RemoveTag removes tag from the record's tags.
func (kg *KnowledgeGraph) RemoveTag(kind graph.Kind, id, tag string) (bool, error) {
	kg.mu.Lock()
	defer kg.mu.Unlock()
	return kg.update(kind, id, func(rec graph.Record) {
		kept := make([]string, 0)
		for _, t := range orderedTags(rec) {
			if t != tag {
				kept = append(kept, t)
			}
		}
		rec[graph.FieldTags] = kept
	})
}

// orderedTags returns the string tags of rec in their stored order.
func orderedTags(rec graph.Record) []string {
	out := make([]string, 0)
	switch tags := rec[graph.FieldTags].(type) {
	case []string:
		out = append(out, tags...)
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
