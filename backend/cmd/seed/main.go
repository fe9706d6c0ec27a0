package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"graphspace/backend/internal/graph"
	"graphspace/backend/internal/knowledge"
	"graphspace/backend/pkg/config"
	"graphspace/backend/pkg/logger"
)

func main() {
	dataPath := flag.String("data", "", "Data file to seed (defaults to GRAPHSPACE_DATA_PATH)")
	force := flag.Bool("force", false, "Seed even if the data file already holds entities")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting data seeding...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *dataPath == "" {
		*dataPath = cfg.DataPath
	}

	kg, err := knowledge.Open(*dataPath, cfg.RepairCorrupt)
	if err != nil {
		log.Fatal("Failed to open data file", zap.Error(err), zap.String("path", *dataPath))
	}

	if n := kg.Snapshot().Len(); n > 0 && !*force {
		log.Info("Data file already holds entities, skipping (use -force to add samples anyway)",
			zap.String("path", *dataPath),
			zap.Int("entities", n),
		)
		os.Exit(0)
	}

	added, err := seed(kg)
	if err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}

	stats := kg.Statistics()
	log.Info("Seeding completed successfully!",
		zap.String("path", *dataPath),
		zap.Int("added", added),
		zap.Int("nodes", stats.TotalNodes),
		zap.Int("edges", stats.TotalEdges),
	)
}

type sample struct {
	kind graph.Kind
	rec  graph.Record
}

// samples is a small dataset that exercises every inference rule.
func samples() []sample {
	return []sample{
		{graph.KindNote, graph.Record{
			"id": "note-kickoff", "title": "Launch kickoff",
			"content": "Agreed to Draft press release by Friday. Ada Lovelace from Analytical Engines joins.",
			"tags":    []string{"launch", "marketing"},
		}},
		{graph.KindNote, graph.Record{
			"id": "note-retro", "title": "Sprint retro",
			"content": "Velocity improved. Keep pairing on the graph engine.",
			"tags":    []string{"engineering", "process"},
		}},
		{graph.KindNote, graph.Record{
			"id": "note-reading", "title": "Reading list",
			"content": "", "tags": []string{},
		}},
		{graph.KindTask, graph.Record{
			"id": "task-press", "title": "Draft press release",
			"description": "Announce the launch", "project": "Launch",
			"status": "in_progress", "priority": "high", "tags": []string{"marketing"},
		}},
		{graph.KindTask, graph.Record{
			"id": "task-site", "title": "Update landing page",
			"description": "New screenshots", "project": "Launch",
			"status": "pending", "priority": "medium", "tags": []string{"web"},
		}},
		{graph.KindTask, graph.Record{
			"id": "task-ci", "title": "Speed up CI",
			"project": "Platform", "status": "pending", "priority": "low",
			"tags": []string{"engineering"},
		}},
		{graph.KindContact, graph.Record{
			"id": "contact-ada", "name": "Ada Lovelace", "organization": "Analytical Engines",
			"email": "ada@example.com", "tags": []string{"launch"},
		}},
		{graph.KindContact, graph.Record{
			"id": "contact-charles", "name": "Charles Babbage", "organization": "Analytical Engines",
			"email": "charles@example.com", "tags": []string{},
		}},
		{graph.KindDocument, graph.Record{
			"id": "doc-brief", "title": "Launch brief",
			"content": "Prepared with Analytical Engines for the Launch kickoff.",
			"topics":  []string{"marketing"},
		}},
		{graph.KindDocument, graph.Record{
			"id": "doc-scan", "title": "Whiteboard scan",
			"content": "",
		}},
	}
}

// seed adds every sample and returns how many were stored.
func seed(kg *knowledge.KnowledgeGraph) (int, error) {
	added := 0
	for _, s := range samples() {
		var err error
		if s.kind == graph.KindDocument {
			_, err = kg.AddDocument(s.rec)
		} else {
			_, err = kg.AddEntity(s.kind, s.rec)
		}
		if err != nil {
			return added, fmt.Errorf("failed to add %s %s: %w", s.kind, s.rec.ID(), err)
		}
		added++
	}
	return added, nil
}
