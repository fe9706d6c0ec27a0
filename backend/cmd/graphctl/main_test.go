package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphspace/backend/internal/graph"
	"graphspace/backend/pkg/config"
	"graphspace/backend/pkg/logger"
)

const fixture = `{
  "notes": [
    {"id": "n1", "title": "Alpha", "content": "prepare the Alpha launch", "tags": ["go"]},
    {"id": "n2", "title": "Beta", "tags": ["go"]}
  ],
  "tasks": [
    {"id": "t1", "title": "Alpha", "tags": []}
  ],
  "contacts": [],
  "documents": []
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	require.NoError(t, logger.Init("test"))

	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	var out bytes.Buffer
	cmd := newRootCmd(config.Defaults(), &out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--data", path))
	err := cmd.Execute()
	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	out, err := run(t, "stats")
	require.NoError(t, err)

	var stats graph.Statistics
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 3, stats.TotalNodes)
	assert.Equal(t, 2, stats.TotalEdges)
	assert.Equal(t, 1, stats.EdgeTypes["shared_tags"])
	assert.Equal(t, 1, stats.EdgeTypes["mention"])
	assert.Equal(t, 2, stats.NotesCount)
	assert.Equal(t, 1, stats.TasksCount)
}

func TestSearchCommand(t *testing.T) {
	out, err := run(t, "search", "go")
	require.NoError(t, err)

	var refs []graph.EntityRef
	require.NoError(t, json.Unmarshal([]byte(out), &refs))
	assert.Len(t, refs, 2)
}

func TestSearchTextCommand(t *testing.T) {
	out, err := run(t, "search-text", "alpha")
	require.NoError(t, err)

	var hits []graph.SearchHit
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 2)
	assert.Equal(t, "n1", hits[0].ID)
	assert.Equal(t, 5.0, hits[0].Score)
	assert.Equal(t, "t1", hits[1].ID)
	assert.Equal(t, 3.0, hits[1].Score)

	out, err = run(t, "search-text", "alpha", "--kinds", "task", "--limit", "1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, graph.KindTask, hits[0].Kind)

	_, err = run(t, "search-text", "alpha", "--kinds", "planet")
	assert.Error(t, err)
}

func TestPathCommand(t *testing.T) {
	out, err := run(t, "path", "note", "n2", "task", "t1")
	require.NoError(t, err)

	var steps []graph.PathStep
	require.NoError(t, json.Unmarshal([]byte(out), &steps))
	require.Len(t, steps, 3)
	assert.Equal(t, "n2", steps[0].ID)
	assert.Equal(t, "t1", steps[2].ID)
}

func TestRelatedCommand(t *testing.T) {
	out, err := run(t, "related", "note", "n1", "--relationship", "mention")
	require.NoError(t, err)

	var related []graph.RelatedEntity
	require.NoError(t, json.Unmarshal([]byte(out), &related))
	require.Len(t, related, 1)
	assert.Equal(t, "t1", related[0].ID)

	_, err = run(t, "related", "note", "ghost")
	assert.Error(t, err)
	_, err = run(t, "related", "planet", "n1")
	assert.Error(t, err)
}

func TestMirrorCommand_RequiresURI(t *testing.T) {
	_, err := run(t, "mirror")
	assert.ErrorContains(t, err, "no Neo4j URI")
}
