// Package store holds the entity records and persists them as one JSON
// document.
package store

import (
	"graphspace/backend/internal/graph"
	apperrors "graphspace/backend/pkg/errors"
)

// EntityStore holds four ordered collections of records, one per kind. It is
// the only durable state; the graph is derived from it. Callers serialize
// access.
type EntityStore struct {
	collections map[graph.Kind][]graph.Record
}

// New creates an empty entity store.
func New() *EntityStore {
	return &EntityStore{collections: make(map[graph.Kind][]graph.Record, len(graph.Kinds))}
}

// FromSnapshot creates a store holding copies of the snapshot's records.
func FromSnapshot(snap graph.Snapshot) *EntityStore {
	s := New()
	for _, kind := range graph.Kinds {
		for _, rec := range snap.Records(kind) {
			s.collections[kind] = append(s.collections[kind], rec.Clone())
		}
	}
	return s
}

// Append adds a copy of rec at the end of the kind's collection. The record
// must carry a non-empty string id.
func (s *EntityStore) Append(kind graph.Kind, rec graph.Record) error {
	if !kind.Valid() {
		return apperrors.NewUnknownKind(kind.String())
	}
	if rec == nil {
		return apperrors.NewInvalidRecord(kind.String(), "record is nil")
	}
	if rec.ID() == "" {
		return apperrors.NewInvalidRecord(kind.String(), "missing id")
	}
	s.collections[kind] = append(s.collections[kind], rec.Clone())
	return nil
}

// Find returns a copy of the first record of kind with the given id.
func (s *EntityStore) Find(kind graph.Kind, id string) (graph.Record, bool) {
	i := s.indexOf(kind, id)
	if i < 0 {
		return nil, false
	}
	return s.collections[kind][i].Clone(), true
}

// Replace overwrites the first record with the given id, keeping its position.
func (s *EntityStore) Replace(kind graph.Kind, id string, rec graph.Record) bool {
	i := s.indexOf(kind, id)
	if i < 0 {
		return false
	}
	s.collections[kind][i] = rec.Clone()
	return true
}

// Remove filters every record with the given id out of the kind's collection.
func (s *EntityStore) Remove(kind graph.Kind, id string) bool {
	records := s.collections[kind]
	kept := records[:0]
	for _, rec := range records {
		if rec.ID() != id {
			kept = append(kept, rec)
		}
	}
	removed := len(kept) < len(records)
	for i := len(kept); i < len(records); i++ {
		records[i] = nil
	}
	s.collections[kind] = kept
	return removed
}

// List returns copies of every record of kind, in order.
func (s *EntityStore) List(kind graph.Kind) []graph.Record {
	records := s.collections[kind]
	out := make([]graph.Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out
}

// Len returns the number of records of kind.
func (s *EntityStore) Len(kind graph.Kind) int {
	return len(s.collections[kind])
}

// KindsOf returns every kind holding a record with the given id.
func (s *EntityStore) KindsOf(id string) []graph.Kind {
	var kinds []graph.Kind
	for _, kind := range graph.Kinds {
		if s.indexOf(kind, id) >= 0 {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Snapshot returns a deep copy of every collection.
func (s *EntityStore) Snapshot() graph.Snapshot {
	return graph.Snapshot{
		Notes:     s.List(graph.KindNote),
		Tasks:     s.List(graph.KindTask),
		Contacts:  s.List(graph.KindContact),
		Documents: s.List(graph.KindDocument),
	}
}

func (s *EntityStore) indexOf(kind graph.Kind, id string) int {
	for i, rec := range s.collections[kind] {
		if rec.ID() == id {
			return i
		}
	}
	return -1
}
