package catalog

import (
	"context"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

// Repository reads the reference data.
type Repository interface {
	// ListTopics returns all topics ordered by difficulty, then name.
	ListTopics(ctx context.Context) ([]*Topic, error)

	// GetTopic returns a topic by ID.
	// Returns shared.ErrTopicNotFound if there is no such topic.
	GetTopic(ctx context.Context, id TopicID) (*Topic, error)

	// GetTopicBySlug returns a topic by slug.
	// Returns shared.ErrTopicNotFound if there is no such topic.
	GetTopicBySlug(ctx context.Context, slug string) (*Topic, error)

	// ListTemplates returns the templates of a topic ordered by ID.
	ListTemplates(ctx context.Context, topicID TopicID) ([]*ContentTemplate, error)

	// ListLessons returns the course lessons ordered by ID.
	ListLessons(ctx context.Context) ([]*Lesson, error)
}

// Seeder upserts reference data. Topics are matched by slug, templates by
// (topic, name), lessons by ID; running it twice changes nothing.
type Seeder interface {
	Seed(ctx context.Context, s Seed) error
}

// GeneratedLessonRepository stores prepared lessons.
type GeneratedLessonRepository interface {
	Create(ctx context.Context, l *GeneratedLesson) error

	// ListByUser returns the newest prepared lessons of a user first.
	ListByUser(ctx context.Context, userID shared.UserID, limit int) ([]*GeneratedLesson, error)
}
