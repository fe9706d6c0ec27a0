package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"graphspace/backend/internal/adapter"
	"graphspace/backend/internal/constants"
	"graphspace/backend/internal/graph"
	"graphspace/backend/internal/knowledge"
	apperrors "graphspace/backend/pkg/errors"
	"graphspace/backend/pkg/logger"
)

// NoteService creates notes on top of the knowledge graph, asking the
// language model for a title and tags when the caller leaves them out.
type NoteService struct {
	kg     *knowledge.KnowledgeGraph
	llm    adapter.LanguageModel
	logger *zap.Logger
}

// NewNoteService creates a note service. llm may be nil.
func NewNoteService(kg *knowledge.KnowledgeGraph, llm adapter.LanguageModel) *NoteService {
	return &NoteService{
		kg:     kg,
		llm:    llm,
		logger: logger.Named("notes"),
	}
}

// CreateNote stores a note and returns its id. An empty title is generated,
// or derived from the first line of content when no model is available or
// the model fails. Empty tags are extracted by the model when one is set.
func (s *NoteService) CreateNote(ctx context.Context, title, content string, tags []string) (string, error) {
	if title == "" {
		title = s.title(ctx, content)
	}
	if len(tags) == 0 {
		tags = s.tags(ctx, content)
	}

	return s.kg.AddNote(graph.Record{
		graph.FieldTitle:   title,
		graph.FieldContent: content,
		graph.FieldTags:    tags,
	})
}

func (s *NoteService) title(ctx context.Context, content string) string {
	if s.llm != nil && strings.TrimSpace(content) != "" {
		title, err := s.llm.GenerateTitle(ctx, content)
		if err == nil && title != "" {
			return title
		}
		s.logger.Warn("Title generation failed, deriving from content", zap.Error(err))
	}
	return DeriveTitle(content)
}

func (s *NoteService) tags(ctx context.Context, content string) []string {
	if s.llm == nil || strings.TrimSpace(content) == "" {
		return []string{}
	}
	tags, err := s.llm.ExtractTags(ctx, content)
	if err != nil {
		s.logger.Warn("Tag extraction failed, storing note untagged", zap.Error(err))
		return []string{}
	}
	return tags
}

// Summarize returns a model summary of an entity's content, or its
// description when it has no content.
func (s *NoteService) Summarize(ctx context.Context, kind graph.Kind, id string) (string, error) {
	rec, ok := s.kg.GetEntity(kind, id)
	if !ok {
		return "", apperrors.NewEntityNotFound(kind.String(), id)
	}
	if s.llm == nil {
		return "", apperrors.NewBaseError(apperrors.ErrorTypeProvider, "no language model configured", nil)
	}

	text := rec.Content()
	if text == "" {
		text = rec.Description()
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return s.llm.Summarize(ctx, text)
}

// DeriveTitle returns the first line of text, cut to the derived title length
// with a trailing ellipsis, or the untitled placeholder for blank text.
func DeriveTitle(text string) string {
	firstLine, _, _ := strings.Cut(text, "\n")
	firstLine = strings.TrimSpace(firstLine)
	if firstLine == "" {
		return constants.UntitledNote
	}
	return adapter.Truncate(firstLine, constants.MaxDerivedTitleLength, constants.DerivedTitleSuffix)
}
