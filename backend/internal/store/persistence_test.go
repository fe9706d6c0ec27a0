package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphspace/backend/internal/graph"
)

const skeleton = `{"notes":[],"tasks":[],"contacts":[],"documents":[]}`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func readJSON(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestGateway_LoadMissingCreatesSkeleton(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "user_data.json")
	gw := NewGateway(path, false)

	s, err := gw.Load()
	require.NoError(t, err)
	for _, kind := range graph.Kinds {
		assert.Equal(t, 0, s.Len(kind))
	}
	assert.JSONEq(t, skeleton, readJSON(t, path))
}

func TestGateway_LoadMissingKeysAreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	writeFile(t, path, `{"notes":[{"id":"n1","title":"Hello","custom":{"x":1}}, 5, null]}`)

	s, err := NewGateway(path, false).Load()
	require.NoError(t, err)
	require.Equal(t, 1, s.Len(graph.KindNote))
	assert.Equal(t, 0, s.Len(graph.KindTask))

	rec, ok := s.Find(graph.KindNote, "n1")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"x": float64(1)}, rec["custom"], "unknown fields are carried through")
}

func TestGateway_LoadCorruptResets(t *testing.T) {
	for name, body := range map[string]string{
		"truncated":    `{"notes":[{"id":"n1","title":"Hel`,
		"empty":        ``,
		"array":        `[1,2,3]`,
		"unrecognised": `{"something":"else"}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.json")
			writeFile(t, path, body)

			s, err := NewGateway(path, false).Load()
			require.NoError(t, err)
			assert.Equal(t, 0, s.Len(graph.KindNote))
			assert.JSONEq(t, skeleton, readJSON(t, path))
		})
	}
}

func TestGateway_LoadCorruptWithRepair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	writeFile(t, path, `{"notes":[{"id":"n1","title":"Hello",}],"tasks":[]`)

	s, err := NewGateway(path, true).Load()
	require.NoError(t, err)
	rec, ok := s.Find(graph.KindNote, "n1")
	require.True(t, ok)
	assert.Equal(t, "Hello", rec.Title())
}

func TestGateway_LoadNodeLink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	writeFile(t, path, `{
	  "directed": false, "multigraph": false, "graph": {},
	  "nodes": [
	    {"id": "note_n_1", "type": "note", "data": {"id": "n_1", "title": "Kept"}},
	    {"id": "task_t1", "type": "task", "title": "Rebuilt", "project": "P"},
	    {"id": "widget_w", "type": "widget"}
	  ],
	  "links": [{"source": "note_n_1", "target": "task_t1", "relationship": "mention"}]
	}`)

	s, err := NewGateway(path, false).Load()
	require.NoError(t, err)

	n, ok := s.Find(graph.KindNote, "n_1")
	require.True(t, ok)
	assert.Equal(t, "Kept", n.Title())

	task, ok := s.Find(graph.KindTask, "t1")
	require.True(t, ok)
	assert.Equal(t, "Rebuilt", task.Title())
	assert.Equal(t, "P", task.Project())
	assert.Equal(t, 0, s.Len(graph.KindContact))
}

func TestGateway_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	gw := NewGateway(path, false)

	s := New()
	require.NoError(t, s.Append(graph.KindContact, graph.Record{"id": "c1", "name": "Ada", "tags": []string{"x"}}))
	require.NoError(t, gw.Save(s))

	raw := readJSON(t, path)
	assert.Contains(t, raw, "\n  \"notes\": []", "two-space indentation")

	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Len(t, doc["notes"], 0)
	require.Len(t, doc["contacts"], 1)
	assert.Equal(t, "Ada", doc["contacts"][0]["name"])

	loaded, err := gw.Load()
	require.NoError(t, err)
	rec, ok := loaded.Find(graph.KindContact, "c1")
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, rec.Tags().Sorted())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
