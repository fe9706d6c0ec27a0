package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"graphspace/backend/internal/constants"
	"graphspace/backend/internal/graph"
	apperrors "graphspace/backend/pkg/errors"
	"graphspace/backend/pkg/logger"
)

var errUnrecognized = errors.New("document has no entity collections")

// document is the on-disk layout. Field order fixes the key order on save.
type document struct {
	Notes     []graph.Record `json:"notes"`
	Tasks     []graph.Record `json:"tasks"`
	Contacts  []graph.Record `json:"contacts"`
	Documents []graph.Record `json:"documents"`
}

// Gateway loads and saves an EntityStore as a single JSON document.
type Gateway struct {
	path   string
	repair bool
	logger *zap.Logger
}

// NewGateway creates a gateway for the document at path. With repair set, a
// corrupt document is passed through jsonrepair before being given up on.
func NewGateway(path string, repair bool) *Gateway {
	return &Gateway{
		path:   path,
		repair: repair,
		logger: logger.Get(),
	}
}

// Path returns the document path.
func (g *Gateway) Path() string { return g.path }

// Load reads the document. A missing file is created as an empty skeleton;
// an unparsable or unrecognised one is overwritten by the skeleton. Only a
// failure to write that skeleton is returned as an error.
func (g *Gateway) Load() (*EntityStore, error) {
	data, err := os.ReadFile(g.path)
	if errors.Is(err, os.ErrNotExist) {
		g.logger.Info("Data file not found, creating empty skeleton", zap.String("path", g.path))
		return g.reset()
	}
	if err != nil {
		g.logger.Error("Failed to read data file", zap.String("path", g.path), zap.Error(err))
		return g.reset()
	}

	s, err := g.decode(data)
	if err != nil && g.repair {
		s, err = g.decodeRepaired(data)
	}
	if err != nil {
		g.logger.Error("Data file is corrupt, resetting to empty skeleton",
			zap.String("path", g.path),
			zap.Error(err),
		)
		return g.reset()
	}

	g.logger.Info("Loaded data file",
		zap.String("path", g.path),
		zap.Int("notes", s.Len(graph.KindNote)),
		zap.Int("tasks", s.Len(graph.KindTask)),
		zap.Int("contacts", s.Len(graph.KindContact)),
		zap.Int("documents", s.Len(graph.KindDocument)),
	)
	return s, nil
}

// Save writes the store to a temp file next to the document and renames it
// over the destination.
func (g *Gateway) Save(s *EntityStore) error {
	snap := s.Snapshot()
	body, err := json.MarshalIndent(document{
		Notes:     snap.Notes,
		Tasks:     snap.Tasks,
		Contacts:  snap.Contacts,
		Documents: snap.Documents,
	}, "", "  ")
	if err != nil {
		return apperrors.NewPersistFailed(g.path, fmt.Errorf("failed to encode document: %w", err))
	}

	dir := filepath.Dir(g.path)
	if err := os.MkdirAll(dir, constants.DataDirMode); err != nil {
		return apperrors.NewPersistFailed(g.path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(g.path)+"-*.tmp")
	if err != nil {
		return apperrors.NewPersistFailed(g.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return apperrors.NewPersistFailed(g.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.NewPersistFailed(g.path, err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewPersistFailed(g.path, err)
	}
	if err := os.Chmod(tmpName, constants.DataFileMode); err != nil {
		return apperrors.NewPersistFailed(g.path, err)
	}
	if err := os.Rename(tmpName, g.path); err != nil {
		return apperrors.NewPersistFailed(g.path, err)
	}
	return nil
}

func (g *Gateway) reset() (*EntityStore, error) {
	s := New()
	if err := g.Save(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (g *Gateway) decodeRepaired(data []byte) (*EntityStore, error) {
	repaired, err := jsonrepair.JSONRepair(string(data))
	if err != nil {
		return nil, fmt.Errorf("json repair failed: %w", err)
	}
	s, err := g.decode([]byte(repaired))
	if err != nil {
		return nil, fmt.Errorf("decode after repair: %w", err)
	}
	g.logger.Warn("Recovered corrupt data file with json repair", zap.String("path", g.path))
	return s, nil
}

func (g *Gateway) decode(data []byte) (*EntityStore, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("document is empty")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	if top == nil {
		return nil, errUnrecognized
	}

	_, hasNodes := top["nodes"]
	_, hasLinks := top["links"]
	if hasNodes && hasLinks {
		return g.decodeNodeLink(top["nodes"])
	}

	found := false
	s := New()
	for _, kind := range graph.Kinds {
		raw, ok := top[kind.Collection()]
		if !ok {
			continue
		}
		found = true
		s.collections[kind] = g.decodeRecords(kind, raw)
	}
	if !found {
		return nil, errUnrecognized
	}
	return s, nil
}

func (g *Gateway) decodeRecords(kind graph.Kind, raw json.RawMessage) []graph.Record {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		g.logger.Warn("Collection is not a list, treating as empty",
			zap.String("collection", kind.Collection()),
			zap.Error(err),
		)
		return nil
	}

	records := make([]graph.Record, 0, len(items))
	for i, item := range items {
		var rec graph.Record
		if err := json.Unmarshal(item, &rec); err != nil || rec == nil {
			g.logger.Warn("Skipping non-object record",
				zap.String("collection", kind.Collection()),
				zap.Int("index", i),
			)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// decodeNodeLink recovers records from a node-link graph dump, where every
// node carries its kind under "type" and the full record under "data".
func (g *Gateway) decodeNodeLink(raw json.RawMessage) (*EntityStore, error) {
	var nodes []map[string]any
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("node-link nodes: %w", err)
	}

	s := New()
	for _, node := range nodes {
		typ, _ := node["type"].(string)
		kind, err := graph.ParseKind(typ)
		if err != nil {
			g.logger.Warn("Skipping node-link node of unknown type", zap.String("type", typ))
			continue
		}

		var rec graph.Record
		if data, ok := node["data"].(map[string]any); ok {
			rec = graph.Record(data)
		} else {
			rec = make(graph.Record, len(node))
			for k, v := range node {
				if k != "type" && k != "data" && k != "id" {
					rec[k] = v
				}
			}
		}
		if rec.ID() == "" {
			nodeID, _ := node["id"].(string)
			if id, ok := strings.CutPrefix(nodeID, kind.String()+"_"); ok && id != "" {
				rec[graph.FieldID] = id
			}
		}
		s.collections[kind] = append(s.collections[kind], rec)
	}

	g.logger.Info("Imported legacy node-link document", zap.Int("nodes", len(nodes)))
	return s, nil
}
