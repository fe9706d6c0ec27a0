package graph

import (
	"go.uber.org/zap"

	"graphspace/backend/pkg/logger"
)

// Builder derives the graph from a snapshot of the entity store.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a new graph builder
func NewBuilder() *Builder {
	return &Builder{logger: logger.Get()}
}

type keyed struct {
	key Key
	rec Record
}

// Rebuild clears g and re-derives every node and heuristic edge from snap.
// Phases run in a fixed order because patches for the same pair are merged:
//
//	1  nodes: notes, tasks, contacts, documents
//	2a note pairs:    shared_tags
//	2b task pairs:    same_project, shared_tags
//	2c contact pairs: same_organization, shared_tags
//	3a note x task:   shared_tags, mention
//	3b documents:     fallback to every note, or one rule per note/task/contact
//
// Rebuild never fails; missing or malformed fields just produce fewer edges.
func (b *Builder) Rebuild(g *Graph, snap Snapshot) {
	g.Clear()

	byKind := make(map[Kind][]keyed, len(Kinds))
	for _, kind := range Kinds {
		for _, rec := range snap.Records(kind) {
			id := rec.ID()
			if id == "" {
				b.logger.Warn("Skipping record without id", zap.String("kind", kind.String()))
				continue
			}
			key := NewKey(kind, id)
			g.AddNode(key, rec)
			byKind[kind] = append(byKind[kind], keyed{key: key, rec: rec})
		}
	}

	for _, kind := range []Kind{KindNote, KindTask, KindContact} {
		items := byKind[kind]
		for i := 0; i < len(items); i++ {
			for j := i + 1; j < len(items); j++ {
				b.apply(g, items[i].key, items[j].key, samePair(kind, items[i].rec, items[j].rec))
			}
		}
	}

	for _, note := range byKind[KindNote] {
		for _, task := range byKind[KindTask] {
			b.apply(g, note.key, task.key, noteTask(note.rec, task.rec))
		}
	}

	for _, doc := range byKind[KindDocument] {
		b.linkDocument(g, doc, byKind)
	}

	b.logger.Debug("Graph rebuilt",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
	)
}

func (b *Builder) linkDocument(g *Graph, doc keyed, byKind map[Kind][]keyed) {
	docTags := doc.rec.Tags().Union(doc.rec.Topics())

	if len(docTags) == 0 && (doc.rec.Title() != "" || doc.rec.Content() != "") {
		for _, note := range byKind[KindNote] {
			b.apply(g, doc.key, note.key, []Patch{documentFallbackPatch()})
		}
		return
	}

	for _, kind := range []Kind{KindNote, KindTask, KindContact} {
		for _, target := range byKind[kind] {
			if p, ok := documentTarget(kind, doc.rec, docTags, target.rec); ok {
				b.apply(g, doc.key, target.key, []Patch{p})
			}
		}
	}
}

func (b *Builder) apply(g *Graph, a, c Key, patches []Patch) {
	if a == c {
		return
	}
	for _, p := range patches {
		g.MergeEdge(a, c, p.Attrs)
	}
}
