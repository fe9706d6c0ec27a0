package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "graphspace/backend/pkg/errors"
)

func twoNotes(t *testing.T) (*Graph, *RelationshipManager) {
	t.Helper()
	g := build(t, Snapshot{Notes: []Record{note("a", nil, ""), note("b", nil, "")}})
	return g, NewRelationshipManager(g)
}

func linked(attrs map[string]any) Relationship {
	return Relationship{
		SourceKind: KindNote, SourceID: "a",
		TargetKind: KindNote, TargetID: "b",
		Type: "linked", Weight: 2.5, Attributes: attrs,
	}
}

func TestRelationshipManager_CreateAndGet(t *testing.T) {
	_, m := twoNotes(t)

	require.True(t, m.Create(linked(map[string]any{"note": "x"})))

	rel, ok := m.Get(KindNote, "b", KindNote, "a")
	require.True(t, ok)
	assert.Equal(t, "linked", rel.Type)
	assert.Equal(t, 2.5, rel.Weight)
	assert.Equal(t, map[string]any{"note": "x"}, rel.Attributes)
	assert.Equal(t, "b", rel.SourceID, "view starts from the requested source")
}

func TestRelationshipManager_CreateMissingEndpoint(t *testing.T) {
	_, m := twoNotes(t)
	rel := linked(nil)
	rel.TargetID = "ghost"
	assert.False(t, m.Create(rel))
}

func TestRelationshipManager_CreateMerges(t *testing.T) {
	g, m := twoNotes(t)
	require.True(t, m.Create(linked(map[string]any{"first": 1})))
	second := linked(map[string]any{"second": 2})
	second.Type = "other"
	require.True(t, m.Create(second))

	assert.Equal(t, 1, g.EdgeCount())
	rel, _ := m.Get(KindNote, "a", KindNote, "b")
	assert.Equal(t, "other", rel.Type)
	assert.Equal(t, map[string]any{"first": 1, "second": 2}, rel.Attributes)
}

func TestRelationshipManager_GetDefaults(t *testing.T) {
	g, m := twoNotes(t)
	require.True(t, g.MergeEdge(NewKey(KindNote, "a"), NewKey(KindNote, "b"), map[string]any{"label": "bare"}))

	rel, ok := m.Get(KindNote, "a", KindNote, "b")
	require.True(t, ok)
	assert.Equal(t, RelCustom, rel.Type)
	assert.Equal(t, 1.0, rel.Weight)
}

func TestRelationshipManager_DeleteAndUpdate(t *testing.T) {
	_, m := twoNotes(t)

	assert.False(t, m.Delete(linked(nil)), "nothing to delete yet")
	assert.False(t, m.Update(linked(nil)), "update without an edge creates nothing")
	_, ok := m.Get(KindNote, "a", KindNote, "b")
	assert.False(t, ok)

	require.True(t, m.Create(linked(map[string]any{"stale": true})))
	updated := linked(map[string]any{"fresh": true})
	updated.Weight = 4
	require.True(t, m.Update(updated))

	rel, _ := m.Get(KindNote, "a", KindNote, "b")
	assert.Equal(t, 4.0, rel.Weight)
	assert.Equal(t, map[string]any{"fresh": true}, rel.Attributes, "update replaces instead of merging")

	assert.True(t, m.Delete(linked(nil)))
	_, ok = m.Get(KindNote, "a", KindNote, "b")
	assert.False(t, ok)
}

func TestRelationshipManager_ListByEntity(t *testing.T) {
	_, m := twoNotes(t)
	require.True(t, m.Create(linked(nil)))

	rels, err := m.ListByEntity(KindNote, "b")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "b", rels[0].SourceID)
	assert.Equal(t, "a", rels[0].TargetID)

	_, err = m.ListByEntity(KindTask, "a")
	assert.True(t, apperrors.IsEntityNotFound(err))
}

func TestRelationshipManager_ListByKind(t *testing.T) {
	g := build(t, Snapshot{Notes: []Record{
		note("a", []string{"x"}, ""),
		note("b", []string{"x"}, ""),
		note("c", nil, ""),
	}})
	m := NewRelationshipManager(g)
	require.True(t, m.Create(Relationship{
		SourceKind: KindNote, SourceID: "a", TargetKind: KindNote, TargetID: "c", Type: RelReference, Weight: 1,
	}))

	assert.Len(t, m.ListByKind(RelSharedTags), 1)
	refs := m.ListByKind(RelReference)
	require.Len(t, refs, 1)
	assert.Equal(t, NewKey(KindNote, "c"), refs[0].Target())
	assert.Empty(t, m.ListByKind("nope"))
}

func TestRelationshipManager_LostOnRebuild(t *testing.T) {
	snap := Snapshot{Notes: []Record{note("a", nil, ""), note("b", nil, "")}}
	g := New()
	b := NewBuilder()
	b.Rebuild(g, snap)
	m := NewRelationshipManager(g)

	require.True(t, m.Create(linked(nil)))
	_, ok := m.Get(KindNote, "a", KindNote, "b")
	require.True(t, ok)

	snap.Tasks = []Record{{"id": "t1", "title": "unrelated"}}
	b.Rebuild(g, snap)

	_, ok = m.Get(KindNote, "a", KindNote, "b")
	assert.False(t, ok, "explicit edges are not stored and vanish on rebuild")
}

func TestRelationshipManager_RemoveAll(t *testing.T) {
	g := build(t, Snapshot{Notes: []Record{
		note("a", []string{"x"}, ""),
		note("b", []string{"x"}, ""),
		note("c", []string{"x"}, ""),
	}})
	m := NewRelationshipManager(g)

	assert.Equal(t, 2, m.RemoveAll(NewKey(KindNote, "a")))
	assert.Empty(t, g.Neighbors(NewKey(KindNote, "a")))
	assert.Equal(t, 1, g.EdgeCount())
}

func TestRelationship_Reverse(t *testing.T) {
	rel := linked(map[string]any{"k": "v"})
	rev := rel.Reverse()
	assert.Equal(t, NewKey(KindNote, "b"), rev.Source())
	assert.Equal(t, NewKey(KindNote, "a"), rev.Target())
	assert.Equal(t, rel.Type, rev.Type)

	rev.Attributes["k"] = "changed"
	assert.Equal(t, "v", rel.Attributes["k"])
}

func TestRelationship_UnmarshalJSON(t *testing.T) {
	var rel Relationship
	require.NoError(t, json.Unmarshal([]byte(`{"source_type":"note","source_id":"a","target_type":"tasks","target_id":"b","relationship_type":"linked"}`), &rel))
	assert.Equal(t, KindNote, rel.SourceKind)
	assert.Equal(t, KindTask, rel.TargetKind)
	assert.Equal(t, 1.0, rel.Weight)

	require.NoError(t, json.Unmarshal([]byte(`{"source_type":"note","source_id":"a","target_type":"task","target_id":"b","weight":0}`), &rel))
	assert.Equal(t, 0.0, rel.Weight, "explicit zero is kept")

	missing := map[string]string{
		"source_type": `{"source_id":"a","target_type":"task","target_id":"b"}`,
		"source_id":   `{"source_type":"note","target_type":"task","target_id":"b"}`,
		"target_type": `{"source_type":"note","source_id":"a","target_id":"b"}`,
		"target_id":   `{"source_type":"note","source_id":"a","target_type":"task"}`,
	}
	for field, body := range missing {
		t.Run(field, func(t *testing.T) {
			err := json.Unmarshal([]byte(body), &Relationship{})
			var invalid *apperrors.ErrInvalidRecord
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "missing "+field, invalid.Reason)
		})
	}

	err := json.Unmarshal([]byte(`{"source_type":"planet","source_id":"a","target_type":"task","target_id":"b"}`), &rel)
	assert.Error(t, err)
}
