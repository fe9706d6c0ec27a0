package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"graphspace/backend/internal/adapter"
	"graphspace/backend/internal/constants"
	"graphspace/backend/internal/graph"
	"graphspace/backend/internal/knowledge"
	"graphspace/backend/pkg/logger"
)

const (
	fieldDueDate  = "due_date"
	fieldPriority = "priority"
)

// TaskService manages task records: defaults on creation, status changes and
// status, project or due-date listings.
type TaskService struct {
	kg     *knowledge.KnowledgeGraph
	llm    adapter.LanguageModel
	logger *zap.Logger
	now    func() time.Time
}

// NewTaskService creates a task service. llm may be nil.
func NewTaskService(kg *knowledge.KnowledgeGraph, llm adapter.LanguageModel) *TaskService {
	return &TaskService{
		kg:     kg,
		llm:    llm,
		logger: logger.Named("tasks"),
		now:    time.Now,
	}
}

// CreateTask stores a task with status pending and priority medium unless
// rec sets them. A missing title or tags are generated from the description
// when a model is configured.
func (s *TaskService) CreateTask(ctx context.Context, rec graph.Record) (string, error) {
	rec = rec.Clone()
	if rec == nil {
		rec = graph.Record{}
	}
	if rec.StringField(graph.FieldStatus) == "" {
		rec[graph.FieldStatus] = constants.TaskStatusPending
	}
	if rec.StringField(fieldPriority) == "" {
		rec[fieldPriority] = constants.TaskPriorityMedium
	}

	if s.llm != nil && rec.Description() != "" {
		if rec.Title() == "" {
			title, err := s.llm.GenerateTitle(ctx, rec.Description())
			if err != nil || title == "" {
				s.logger.Warn("Title generation failed", zap.Error(err))
				title = constants.UntitledTask
			}
			rec[graph.FieldTitle] = title
		}
		if len(rec.Tags()) == 0 {
			tags, err := s.llm.ExtractTags(ctx, rec.Description())
			if err != nil {
				s.logger.Warn("Tag extraction failed", zap.Error(err))
				tags = []string{}
			}
			rec[graph.FieldTags] = tags
		}
	}

	return s.kg.AddTask(rec)
}

// CompleteTask marks a task completed. Returns false when it does not exist.
func (s *TaskService) CompleteTask(id string) (bool, error) {
	return s.kg.UpdateEntity(graph.KindTask, id, map[string]any{
		graph.FieldStatus: constants.TaskStatusCompleted,
	})
}

// MarkInProgress sets a task's status to in progress. Returns false when it
// does not exist.
func (s *TaskService) MarkInProgress(id string) (bool, error) {
	return s.kg.UpdateEntity(graph.KindTask, id, map[string]any{
		graph.FieldStatus: constants.TaskStatusInProgress,
	})
}

// TasksByStatus lists tasks whose status equals status.
func (s *TaskService) TasksByStatus(status string) []graph.Record {
	return s.filter(func(rec graph.Record) bool {
		return rec.StringField(graph.FieldStatus) == status
	})
}

// TasksByProject lists tasks belonging to project.
func (s *TaskService) TasksByProject(project string) []graph.Record {
	return s.filter(func(rec graph.Record) bool {
		return rec.Project() == project
	})
}

// TasksByTag lists tasks carrying tag (exact match).
func (s *TaskService) TasksByTag(tag string) []graph.Record {
	return s.filter(func(rec graph.Record) bool {
		return rec.Tags().Has(tag)
	})
}

// TasksByPriority lists tasks whose priority equals priority.
func (s *TaskService) TasksByPriority(priority string) []graph.Record {
	return s.filter(func(rec graph.Record) bool {
		return rec.StringField(fieldPriority) == priority
	})
}

// OverdueTasks lists unfinished tasks whose RFC3339 due_date has passed.
// Tasks with a missing or unparseable due date are skipped.
func (s *TaskService) OverdueTasks() []graph.Record {
	now := s.now()
	return s.filter(func(rec graph.Record) bool {
		if rec.StringField(graph.FieldStatus) == constants.TaskStatusCompleted {
			return false
		}
		due, err := time.Parse(time.RFC3339, rec.StringField(fieldDueDate))
		return err == nil && due.Before(now)
	})
}

// TasksDueSoon lists unfinished tasks due between now and days from now,
// both ends inclusive.
func (s *TaskService) TasksDueSoon(days int) []graph.Record {
	now := s.now()
	soon := now.AddDate(0, 0, days)
	return s.filter(func(rec graph.Record) bool {
		if rec.StringField(graph.FieldStatus) == constants.TaskStatusCompleted {
			return false
		}
		due, err := time.Parse(time.RFC3339, rec.StringField(fieldDueDate))
		return err == nil && !due.Before(now) && !due.After(soon)
	})
}

func (s *TaskService) filter(keep func(graph.Record) bool) []graph.Record {
	out := make([]graph.Record, 0)
	for _, rec := range s.kg.ListEntities(graph.KindTask) {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}
