package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// TopicDTO is a topic as listed to clients.
type TopicDTO struct {
	ID                 int64    `json:"id"`
	Slug               string   `json:"slug"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	DifficultyLevel    int      `json:"difficulty_level"`
	LearningObjectives []string `json:"learning_objectives"`
}

// TemplateDTO is a content template.
type TemplateDTO struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Type     string            `json:"template_type"`
	Title    string            `json:"title"`
	Sections []catalog.Section `json:"sections"`
}

// TopicDetailDTO is a topic with its templates.
type TopicDetailDTO struct {
	TopicDTO
	Templates []TemplateDTO `json:"templates"`
}

// LessonDTO is one lesson of the course.
type LessonDTO struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	TopicSlug string `json:"topic_slug"`
	Summary   string `json:"summary,omitempty"`
}

func newTopicDTO(t *catalog.Topic) TopicDTO {
	objectives := t.LearningObjectives
	if objectives == nil {
		objectives = []string{}
	}
	return TopicDTO{
		ID:                 t.ID.Int64(),
		Slug:               t.Slug,
		Name:               t.Name,
		Description:        t.Description,
		DifficultyLevel:    t.DifficultyLevel.Int(),
		LearningObjectives: objectives,
	}
}

// CatalogHandler serves the read-only reference data.
type CatalogHandler struct {
	catalog catalog.Repository
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(cat catalog.Repository) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

// ListTopics returns all topics ordered by difficulty, then name.
func (h *CatalogHandler) ListTopics(ctx context.Context) ([]TopicDTO, error) {
	topics, err := h.catalog.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_topics: %w", err)
	}
	out := make([]TopicDTO, 0, len(topics))
	for _, t := range topics {
		out = append(out, newTopicDTO(t))
	}
	return out, nil
}

// GetTopic returns a topic and its templates by slug.
func (h *CatalogHandler) GetTopic(ctx context.Context, slug string) (*TopicDetailDTO, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, shared.NewDomainError("catalog", "GetTopic", shared.ErrEmptyValue, "topic slug is required")
	}

	topic, err := h.catalog.GetTopicBySlug(ctx, slug)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get_topic: %w", err)
	}
	templates, err := h.catalog.ListTemplates(ctx, topic.ID)
	if err != nil {
		return nil, fmt.Errorf("get_topic: %w", err)
	}

	dto := &TopicDetailDTO{TopicDTO: newTopicDTO(topic), Templates: make([]TemplateDTO, 0, len(templates))}
	for _, t := range templates {
		dto.Templates = append(dto.Templates, TemplateDTO{
			ID:       t.ID,
			Name:     t.Name,
			Type:     string(t.Type),
			Title:    t.Title,
			Sections: t.Sections,
		})
	}
	return dto, nil
}

// ListLessons returns the course lessons in order.
func (h *CatalogHandler) ListLessons(ctx context.Context) ([]LessonDTO, error) {
	lessons, err := h.catalog.ListLessons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_lessons: %w", err)
	}
	out := make([]LessonDTO, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, LessonDTO{ID: l.ID, Title: l.Title, TopicSlug: l.TopicSlug, Summary: l.Summary})
	}
	return out, nil
}
