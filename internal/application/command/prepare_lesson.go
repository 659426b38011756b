package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
	"github.com/ai-literacy/literacy-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PREPARE LESSON COMMAND
// Instantiates a content template for a user at the difficulty the user has
// reached on the topic. Template selection:
//  1. the topic's template of the requested type;
//  2. otherwise the topic's first template;
//  3. a topic without templates falls back to the default topic's
//     context_lessons template.
// ══════════════════════════════════════════════════════════════════════════════

// PrepareLessonCommand asks for a lesson on a topic.
type PrepareLessonCommand struct {
	UserID shared.UserID

	// Topic is a topic slug. Empty means the default topic.
	Topic string

	// Type is the template type. Empty means context_lessons.
	Type string
}

// PrepareLessonResult is the stored lesson and the topic it was taken from.
type PrepareLessonResult struct {
	Lesson *catalog.GeneratedLesson
	Topic  *catalog.Topic
	Type   catalog.TemplateType
}

// PrepareLessonHandler handles PrepareLessonCommand.
type PrepareLessonHandler struct {
	catalog      catalog.Repository
	topics       progress.TopicRepository
	generated    catalog.GeneratedLessonRepository
	defaultTopic string
	clock        timeutil.Clock
	log          *logger.Logger
}

// NewPrepareLessonHandler creates a new PrepareLessonHandler.
func NewPrepareLessonHandler(
	cat catalog.Repository,
	topics progress.TopicRepository,
	generated catalog.GeneratedLessonRepository,
	defaultTopic string,
	clock timeutil.Clock,
	log *logger.Logger,
) *PrepareLessonHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PrepareLessonHandler{
		catalog:      cat,
		topics:       topics,
		generated:    generated,
		defaultTopic: defaultTopic,
		clock:        clock,
		log:          log.With(logger.Component("prepare_lesson")),
	}
}

// Handle selects a template and stores the prepared lesson.
func (h *PrepareLessonHandler) Handle(ctx context.Context, cmd PrepareLessonCommand) (*PrepareLessonResult, error) {
	if !cmd.UserID.IsValid() {
		return nil, shared.NewDomainError("catalog", "PrepareLesson", shared.ErrInvalidID, "user id is invalid")
	}

	typ := catalog.NormalizeTemplateType(cmd.Type)
	if typ == "" {
		typ = catalog.TemplateContextLessons
	}
	slug := strings.TrimSpace(cmd.Topic)
	if slug == "" {
		slug = h.defaultTopic
	}

	topic, err := h.catalog.GetTopicBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	topic, tmpl, err := h.selectTemplate(ctx, topic, typ)
	if err != nil {
		return nil, err
	}

	tp, err := h.topics.GetOrDefault(ctx, cmd.UserID, topic.ID)
	if err != nil {
		return nil, fmt.Errorf("prepare_lesson: %w", err)
	}

	lesson := &catalog.GeneratedLesson{
		ID:                uuid.NewString(),
		UserID:            cmd.UserID,
		TopicID:           topic.ID,
		TemplateID:        tmpl.ID,
		DifficultyAdapted: tp.CurrentDifficulty.Clamp(),
		Title:             tmpl.Title,
		Sections:          tmpl.Sections,
		CreatedAt:         h.clock.Now().UTC(),
	}
	if err := h.generated.Create(ctx, lesson); err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("prepare_lesson: %w", err)
	}

	h.log.Info("lesson prepared",
		logger.UserID(cmd.UserID.String()),
		logger.TopicID(topic.ID.Int64()),
		logger.String("template_type", string(tmpl.Type)),
		logger.Int("difficulty", lesson.DifficultyAdapted.Int()))

	return &PrepareLessonResult{Lesson: lesson, Topic: topic, Type: tmpl.Type}, nil
}

func (h *PrepareLessonHandler) selectTemplate(ctx context.Context, topic *catalog.Topic, typ catalog.TemplateType) (*catalog.Topic, *catalog.ContentTemplate, error) {
	templates, err := h.catalog.ListTemplates(ctx, topic.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare_lesson: %w", err)
	}
	if tmpl := catalog.SelectTemplate(templates, typ); tmpl != nil {
		return topic, tmpl, nil
	}

	if topic.Slug == h.defaultTopic || h.defaultTopic == "" {
		return nil, nil, shared.ErrTemplateNotFound
	}
	fallback, err := h.catalog.GetTopicBySlug(ctx, h.defaultTopic)
	if errors.Is(err, shared.ErrTopicNotFound) {
		return nil, nil, shared.ErrTemplateNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("prepare_lesson: %w", err)
	}
	templates, err = h.catalog.ListTemplates(ctx, fallback.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare_lesson: %w", err)
	}
	tmpl := catalog.SelectTemplate(templates, catalog.TemplateContextLessons)
	if tmpl == nil {
		return nil, nil, shared.ErrTemplateNotFound
	}
	return fallback, tmpl, nil
}
