package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphspace/backend/internal/graph"
	apperrors "graphspace/backend/pkg/errors"
)

func open(t *testing.T) (*KnowledgeGraph, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_data.json")
	kg, err := Open(path, false)
	require.NoError(t, err)
	kg.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return kg, path
}

func saved(t *testing.T, path string) map[string][]map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	return doc
}

func TestAddEntity_AssignsIDAndTimestamps(t *testing.T) {
	kg, path := open(t)

	id, err := kg.AddNote(graph.Record{"title": "Hello", "tags": []string{"a"}})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, ok := kg.GetNote(id)
	require.True(t, ok)
	assert.Equal(t, "2024-05-01T12:00:00Z", rec[graph.FieldCreatedAt])
	assert.Equal(t, "2024-05-01T12:00:00Z", rec[graph.FieldUpdatedAt])

	doc := saved(t, path)
	require.Len(t, doc["notes"], 1)
	assert.Equal(t, id, doc["notes"][0]["id"])
}

func TestAddEntity_DuplicateID(t *testing.T) {
	kg, _ := open(t)
	_, err := kg.AddTask(graph.Record{"id": "t1"})
	require.NoError(t, err)

	_, err = kg.AddTask(graph.Record{"id": "t1"})
	var invalid *apperrors.ErrInvalidRecord
	assert.ErrorAs(t, err, &invalid)
	assert.Len(t, kg.ListEntities(graph.KindTask), 1)
}

func TestAddDocument_Upserts(t *testing.T) {
	kg, _ := open(t)
	_, err := kg.AddDocument(graph.Record{"id": "report.pdf", "title": "v1"})
	require.NoError(t, err)
	_, err = kg.AddDocument(graph.Record{"id": "report.pdf", "title": "v2"})
	require.NoError(t, err)

	docs := kg.ListEntities(graph.KindDocument)
	require.Len(t, docs, 1)
	assert.Equal(t, "v2", docs[0].Title())
}

func TestUpdateEntity_RebuildsGraph(t *testing.T) {
	kg, path := open(t)
	_, err := kg.AddNote(graph.Record{"id": "n1", "tags": []string{"a"}})
	require.NoError(t, err)
	_, err = kg.AddNote(graph.Record{"id": "n2", "tags": []string{"b"}})
	require.NoError(t, err)

	related, err := kg.RelatedEntities(graph.KindNote, "n1", "")
	require.NoError(t, err)
	assert.Empty(t, related)

	kg.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	ok, err := kg.UpdateEntity(graph.KindNote, "n2", map[string]any{"tags": []string{"a"}, "id": "hijack"})
	require.NoError(t, err)
	require.True(t, ok)

	related, err = kg.RelatedEntities(graph.KindNote, "n1", graph.RelSharedTags)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "n2", related[0].ID)

	rec, _ := kg.GetNote("n2")
	assert.Equal(t, "2024-06-01T00:00:00Z", rec[graph.FieldUpdatedAt])
	assert.Equal(t, "2024-05-01T12:00:00Z", rec[graph.FieldCreatedAt])
	assert.Equal(t, "n2", saved(t, path)["notes"][1]["id"])

	ok, err = kg.UpdateEntity(graph.KindNote, "ghost", map[string]any{"title": "x"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteEntity_DeletionLaw(t *testing.T) {
	kg, path := open(t)
	_, err := kg.AddNote(graph.Record{"id": "n1", "tags": []string{"x"}})
	require.NoError(t, err)
	_, err = kg.AddNote(graph.Record{"id": "n2", "tags": []string{"x"}})
	require.NoError(t, err)

	ok, err := kg.DeleteEntity(graph.KindNote, "n1")
	require.NoError(t, err)
	require.True(t, ok)

	for _, ref := range kg.SearchByTag("x") {
		assert.NotEqual(t, "n1", ref.ID)
	}
	related, err := kg.RelatedEntities(graph.KindNote, "n2", "")
	require.NoError(t, err)
	assert.Empty(t, related)
	_, err = kg.FindPath(graph.KindNote, "n1", graph.KindNote, "n2")
	assert.True(t, apperrors.IsEntityNotFound(err))
	assert.Len(t, saved(t, path)["notes"], 1)

	ok, err = kg.DeleteEntity(graph.KindNote, "n1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTags(t *testing.T) {
	kg, _ := open(t)
	_, err := kg.AddContact(graph.Record{"id": "c1", "tags": []any{"friend"}})
	require.NoError(t, err)

	ok, err := kg.AddTag(graph.KindContact, "c1", "work")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = kg.AddTag(graph.KindContact, "c1", "work")
	require.NoError(t, err)
	require.True(t, ok)

	rec, _ := kg.GetContact("c1")
	assert.Equal(t, []string{"friend", "work"}, rec["tags"])

	ok, err = kg.RemoveTag(graph.KindContact, "c1", "friend")
	require.NoError(t, err)
	require.True(t, ok)
	rec, _ = kg.GetContact("c1")
	assert.Equal(t, []string{"work"}, rec["tags"])

	ok, err = kg.AddTag(graph.KindContact, "ghost", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddRelationship_InfersKinds(t *testing.T) {
	kg, _ := open(t)
	_, err := kg.AddNote(graph.Record{"id": "n1"})
	require.NoError(t, err)
	_, err = kg.AddContact(graph.Record{"id": "c1", "name": "Ada"})
	require.NoError(t, err)

	require.True(t, kg.AddRelationship("n1", "c1", graph.RelReference, map[string]any{"weight": 0.4, "why": "cited"}))

	rel, ok := kg.GetRelationship(graph.KindNote, "n1", graph.KindContact, "c1")
	require.True(t, ok)
	assert.Equal(t, graph.RelReference, rel.Type)
	assert.Equal(t, 0.4, rel.Weight)
	assert.Equal(t, "cited", rel.Attributes["why"])

	assert.False(t, kg.AddRelationship("n1", "ghost", graph.RelReference, nil))
}

func TestAddRelationship_AmbiguousFailsClosed(t *testing.T) {
	kg, _ := open(t)
	_, err := kg.AddNote(graph.Record{"id": "same"})
	require.NoError(t, err)
	_, err = kg.AddTask(graph.Record{"id": "same"})
	require.NoError(t, err)
	_, err = kg.AddContact(graph.Record{"id": "c1"})
	require.NoError(t, err)

	assert.False(t, kg.AddRelationship("same", "c1", "linked", nil))
	assert.False(t, kg.RemoveAllRelationships("same"))
	assert.Equal(t, 0, kg.Statistics().TotalEdges)
}

func TestRemoveAllRelationships(t *testing.T) {
	kg, _ := open(t)
	for _, id := range []string{"n1", "n2", "n3"} {
		_, err := kg.AddNote(graph.Record{"id": id, "tags": []string{"x"}})
		require.NoError(t, err)
	}
	require.Equal(t, 3, kg.Statistics().TotalEdges)

	assert.True(t, kg.RemoveAllRelationships("n1"))
	assert.Equal(t, 1, kg.Statistics().TotalEdges)
	assert.False(t, kg.RemoveAllRelationships("ghost"))
}

func TestExplicitRelationshipLostOnMutation(t *testing.T) {
	kg, _ := open(t)
	_, err := kg.AddNote(graph.Record{"id": "a"})
	require.NoError(t, err)
	_, err = kg.AddNote(graph.Record{"id": "b"})
	require.NoError(t, err)

	require.True(t, kg.CreateRelationship(graph.Relationship{
		SourceKind: graph.KindNote, SourceID: "a",
		TargetKind: graph.KindNote, TargetID: "b",
		Type: "linked", Weight: 1,
	}))
	assert.Len(t, kg.RelationshipsByKind("linked"), 1)

	_, err = kg.AddTask(graph.Record{"id": "unrelated"})
	require.NoError(t, err)

	assert.Empty(t, kg.RelationshipsByKind("linked"))
	_, ok := kg.GetRelationship(graph.KindNote, "a", graph.KindNote, "b")
	assert.False(t, ok)
}

func TestReloadAndPersistence(t *testing.T) {
	kg, path := open(t)
	_, err := kg.AddTask(graph.Record{"id": "t1", "project": "Launch"})
	require.NoError(t, err)
	_, err = kg.AddTask(graph.Record{"id": "t2", "project": "Launch"})
	require.NoError(t, err)

	reopened, err := Open(path, false)
	require.NoError(t, err)
	rels := reopened.RelationshipsByKind(graph.RelSameProject)
	require.Len(t, rels, 1)

	require.NoError(t, os.WriteFile(path, []byte(`{"tasks":[{"id":"t9"}]}`), 0o644))
	require.NoError(t, reopened.Reload())
	assert.Len(t, reopened.ListEntities(graph.KindTask), 1)
	_, ok := reopened.GetTask("t9")
	assert.True(t, ok)
}

func TestStatistics_CountsStoredRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"notes":[{"id":"n1","tags":["x"]},{"title":"no id"}],
		"tasks":[{"id":"t1","tags":["x"]}],
		"contacts":[{"id":"c1"}]
	}`), 0o644))
	kg, err := Open(path, false)
	require.NoError(t, err)

	stats := kg.Statistics()
	assert.Equal(t, 3, stats.TotalNodes, "the id-less note is not a node")
	assert.Equal(t, 2, stats.NotesCount)
	assert.Equal(t, 1, stats.TasksCount)
	assert.Equal(t, 1, stats.ContactsCount)
	assert.Equal(t, 0, stats.DocumentsCount)
}

func TestGraphCopyIncludesExplicitEdges(t *testing.T) {
	kg, _ := open(t)
	_, err := kg.AddNote(graph.Record{"id": "a"})
	require.NoError(t, err)
	_, err = kg.AddDocument(graph.Record{"id": "d", "tags": []string{"t"}, "content": "body"})
	require.NoError(t, err)
	require.True(t, kg.AddRelationship("a", "d", graph.RelReference, nil))

	g := kg.Graph()
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 2, kg.Snapshot().Len())
}

func TestConcurrentMutations(t *testing.T) {
	kg, path := open(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := kg.AddNote(graph.Record{"id": fmt.Sprintf("n%d", i), "tags": []string{"shared"}})
			assert.NoError(t, err)
			kg.SearchByTag("shared")
		}(i)
	}
	wg.Wait()

	assert.Len(t, kg.ListEntities(graph.KindNote), 20)
	assert.Len(t, saved(t, path)["notes"], 20)
	assert.Equal(t, 190, kg.Statistics().TotalEdges)
}
