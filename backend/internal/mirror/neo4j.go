// Package mirror exports the derived graph into Neo4j so it can be explored
// with Cypher. The export is one-way: the data file stays authoritative.
package mirror

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"graphspace/backend/internal/graph"
	apperrors "graphspace/backend/pkg/errors"
	"graphspace/backend/pkg/logger"
)

const (
	// EntityLabel is carried by every mirrored entity node.
	EntityLabel = "GraphSpaceEntity"
	// RelationType is the Neo4j type of every mirrored edge.
	RelationType = "RELATED"

	batchSize = 500
)

// Result reports what one Sync wrote.
type Result struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// Neo4jMirror replaces the mirrored label space with the current graph.
type Neo4jMirror struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// Connect opens a driver and verifies that the server is reachable.
func Connect(ctx context.Context, uri, user, password string) (*Neo4jMirror, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, apperrors.NewMirrorConnectionFailed(uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.NewMirrorConnectionFailed(uri, err)
	}
	return NewNeo4jMirror(driver), nil
}

// NewNeo4jMirror wraps an existing driver.
func NewNeo4jMirror(driver neo4j.DriverWithContext) *Neo4jMirror {
	return &Neo4jMirror{
		driver: driver,
		logger: logger.Named("mirror"),
	}
}

// Close closes the Neo4j driver connection
func (m *Neo4jMirror) Close(ctx context.Context) error {
	return m.driver.Close(ctx)
}

var schemaStatements = []struct {
	name  string
	query string
}{
	{
		name:  "entity key uniqueness",
		query: "CREATE CONSTRAINT graphspace_entity_key IF NOT EXISTS FOR (e:" + EntityLabel + ") REQUIRE e.key IS UNIQUE",
	},
	{
		name:  "entity kind index",
		query: "CREATE INDEX graphspace_entity_kind IF NOT EXISTS FOR (e:" + EntityLabel + ") ON (e.kind)",
	},
	{
		name:  "entity tags full-text index",
		query: "CREATE FULLTEXT INDEX graphspace_entity_text IF NOT EXISTS FOR (e:" + EntityLabel + ") ON EACH [e.title, e.content, e.description, e.name]",
	},
}

// EnsureSchema creates the constraint and indexes the mirror relies on. A
// failing full-text index is logged and skipped since not every edition
// supports it.
func (m *Neo4jMirror) EnsureSchema(ctx context.Context) error {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for i, stmt := range schemaStatements {
		if _, err := session.Run(ctx, stmt.query, nil); err != nil {
			if i == 0 {
				return apperrors.NewMirrorQueryFailed(stmt.name, err)
			}
			m.logger.Warn("Schema statement failed", zap.String("name", stmt.name), zap.Error(err))
			continue
		}
		m.logger.Debug("Schema statement applied", zap.String("name", stmt.name))
	}
	return nil
}

// Sync deletes every mirrored node and writes g in batches.
func (m *Neo4jMirror) Sync(ctx context.Context, g *graph.Graph) (Result, error) {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	clearQuery := "MATCH (e:" + EntityLabel + ") DETACH DELETE e"
	if _, err := session.Run(ctx, clearQuery, nil); err != nil {
		return Result{}, apperrors.NewMirrorQueryFailed("clear", err)
	}

	nodes := NodeRows(g)
	nodeQuery := `
		UNWIND $rows AS row
		CREATE (e:` + EntityLabel + ` {key: row.key})
		SET e += row.props
	`
	if err := m.runBatches(ctx, session, nodeQuery, nodes); err != nil {
		return Result{}, err
	}

	edges := EdgeRows(g)
	edgeQuery := `
		UNWIND $rows AS row
		MATCH (a:` + EntityLabel + ` {key: row.source})
		MATCH (b:` + EntityLabel + ` {key: row.target})
		CREATE (a)-[r:` + RelationType + `]->(b)
		SET r += row.props
	`
	if err := m.runBatches(ctx, session, edgeQuery, edges); err != nil {
		return Result{}, err
	}

	m.logger.Info("Graph mirrored to Neo4j",
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)
	return Result{Nodes: len(nodes), Edges: len(edges)}, nil
}

func (m *Neo4jMirror) runBatches(ctx context.Context, session neo4j.SessionWithContext, query string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		result, err := session.Run(ctx, query, map[string]any{"rows": rows[start:end]})
		if err != nil {
			return apperrors.NewMirrorQueryFailed(query, err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return apperrors.NewMirrorQueryFailed(query, fmt.Errorf("batch %d-%d: %w", start, end, err))
		}
	}
	return nil
}

// NodeRows converts the nodes of g into UNWIND rows: key plus the scalar
// properties Neo4j can store.
func NodeRows(g *graph.Graph) []map[string]any {
	nodes := g.Nodes()
	rows := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		props := Properties(n.Record)
		props["key"] = n.Key.String()
		props["kind"] = n.Key.Kind.String()
		props["entity_id"] = n.Key.ID
		delete(props, "id")
		rows = append(rows, map[string]any{"key": n.Key.String(), "props": props})
	}
	return rows
}

// EdgeRows converts the edges of g into UNWIND rows. Edges without a
// relationship kind are exported as "unknown".
func EdgeRows(g *graph.Graph) []map[string]any {
	rows := make([]map[string]any, 0, g.EdgeCount())
	g.EachEdge(func(a, b graph.Key, e *graph.Edge) {
		props := Properties(e.Attributes())
		if e.Relationship() == "" {
			props[graph.AttrRelationship] = "unknown"
		}
		rows = append(rows, map[string]any{
			"source": a.String(),
			"target": b.String(),
			"props":  props,
		})
	})
	return rows
}

// Properties keeps the values Neo4j accepts as properties: strings, booleans,
// numbers and homogeneous lists of those. Nested maps are dropped, mixed
// lists are reduced to their string members.
func Properties(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, raw := range attrs {
		switch v := raw.(type) {
		case string, bool, int, int32, int64, float32, float64:
			out[k] = v
		case []string:
			out[k] = append([]string{}, v...)
		case []any:
			strs := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					strs = append(strs, s)
				}
			}
			out[k] = strs
		}
	}
	return out
}
