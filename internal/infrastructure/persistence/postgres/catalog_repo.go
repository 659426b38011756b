package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements catalog.Repository and catalog.Seeder.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

const topicSelect = `
	SELECT id, slug, name, description, difficulty_level, learning_objectives, created_at
	FROM learning_topics
`

// ListTopics returns all topics ordered by difficulty, then name.
func (r *CatalogRepository) ListTopics(ctx context.Context) ([]*catalog.Topic, error) {
	rows, err := r.conn.Query(ctx, topicSelect+` ORDER BY difficulty_level, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	var topics []*catalog.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// GetTopic returns a topic by ID.
func (r *CatalogRepository) GetTopic(ctx context.Context, id catalog.TopicID) (*catalog.Topic, error) {
	return scanTopic(r.conn.QueryRow(ctx, topicSelect+` WHERE id = $1`, id.Int64()))
}

// GetTopicBySlug returns a topic by slug.
func (r *CatalogRepository) GetTopicBySlug(ctx context.Context, slug string) (*catalog.Topic, error) {
	return scanTopic(r.conn.QueryRow(ctx, topicSelect+` WHERE slug = $1`, slug))
}

// ListTemplates returns the templates of a topic ordered by ID.
func (r *CatalogRepository) ListTemplates(ctx context.Context, topicID catalog.TopicID) ([]*catalog.ContentTemplate, error) {
	query := `
		SELECT id, topic_id, name, template_type, title, sections
		FROM content_templates
		WHERE topic_id = $1
		ORDER BY id
	`
	rows, err := r.conn.Query(ctx, query, topicID.Int64())
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var out []*catalog.ContentTemplate
	for rows.Next() {
		var (
			t        catalog.ContentTemplate
			topic    int64
			typ      string
			sections []byte
		)
		if err := rows.Scan(&t.ID, &topic, &t.Name, &typ, &t.Title, &sections); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		t.TopicID = catalog.TopicID(topic)
		t.Type = catalog.TemplateType(typ)
		if err := json.Unmarshal(sections, &t.Sections); err != nil {
			return nil, fmt.Errorf("failed to decode template %d sections: %w", t.ID, err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// ListLessons returns the course lessons ordered by ID.
func (r *CatalogRepository) ListLessons(ctx context.Context) ([]*catalog.Lesson, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, title, topic_slug, summary FROM lesson_catalog ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	var out []*catalog.Lesson
	for rows.Next() {
		var l catalog.Lesson
		if err := rows.Scan(&l.ID, &l.Title, &l.TopicSlug, &l.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// Seed upserts the reference data in one transaction.
func (r *CatalogRepository) Seed(ctx context.Context, s catalog.Seed) error {
	return r.conn.WithinTx(ctx, func(ctx context.Context) error {
		for _, ts := range s.Topics {
			topicID, err := r.upsertTopic(ctx, ts.Topic)
			if err != nil {
				return err
			}
			for _, tmpl := range ts.Templates {
				if err := r.upsertTemplate(ctx, topicID, tmpl); err != nil {
					return err
				}
			}
		}

		for _, l := range s.Lessons {
			query := `
				INSERT INTO lesson_catalog (id, title, topic_slug, summary)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE SET
					title = EXCLUDED.title,
					topic_slug = EXCLUDED.topic_slug,
					summary = EXCLUDED.summary
			`
			if _, err := r.conn.Exec(ctx, query, l.ID, l.Title, l.TopicSlug, l.Summary); err != nil {
				return fmt.Errorf("failed to upsert lesson %d: %w", l.ID, err)
			}
		}
		return nil
	})
}

func (r *CatalogRepository) upsertTopic(ctx context.Context, t catalog.Topic) (catalog.TopicID, error) {
	objectives := t.LearningObjectives
	if objectives == nil {
		objectives = []string{}
	}
	objJSON, err := json.Marshal(objectives)
	if err != nil {
		return 0, fmt.Errorf("failed to encode objectives: %w", err)
	}

	query := `
		INSERT INTO learning_topics (slug, name, description, difficulty_level, learning_objectives)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			difficulty_level = EXCLUDED.difficulty_level,
			learning_objectives = EXCLUDED.learning_objectives
		RETURNING id
	`
	var id int64
	err = r.conn.QueryRow(ctx, query, t.Slug, t.Name, t.Description, t.DifficultyLevel.Clamp().Int(), objJSON).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert topic %q: %w", t.Slug, err)
	}
	return catalog.TopicID(id), nil
}

func (r *CatalogRepository) upsertTemplate(ctx context.Context, topicID catalog.TopicID, t catalog.ContentTemplate) error {
	sections := t.Sections
	if sections == nil {
		sections = []catalog.Section{}
	}
	secJSON, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("failed to encode sections: %w", err)
	}

	query := `
		INSERT INTO content_templates (topic_id, name, template_type, title, sections)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (topic_id, name) DO UPDATE SET
			template_type = EXCLUDED.template_type,
			title = EXCLUDED.title,
			sections = EXCLUDED.sections
	`
	if _, err := r.conn.Exec(ctx, query, topicID.Int64(), t.Name, string(t.Type), t.Title, secJSON); err != nil {
		return fmt.Errorf("failed to upsert template %q: %w", t.Name, err)
	}
	return nil
}

func scanTopic(row pgx.Row) (*catalog.Topic, error) {
	var (
		t          catalog.Topic
		id         int64
		difficulty int
		objectives []byte
	)

	err := row.Scan(&id, &t.Slug, &t.Name, &t.Description, &difficulty, &objectives, &t.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrTopicNotFound
		}
		return nil, fmt.Errorf("failed to scan topic: %w", err)
	}

	t.ID = catalog.TopicID(id)
	t.DifficultyLevel = shared.Difficulty(difficulty)
	t.CreatedAt = t.CreatedAt.UTC()
	if err := json.Unmarshal(objectives, &t.LearningObjectives); err != nil {
		return nil, fmt.Errorf("failed to decode objectives of topic %q: %w", t.Slug, err)
	}
	return &t, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GENERATED LESSON REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// GeneratedLessonRepository implements catalog.GeneratedLessonRepository.
type GeneratedLessonRepository struct {
	conn *Connection
}

// NewGeneratedLessonRepository creates a new GeneratedLessonRepository.
func NewGeneratedLessonRepository(conn *Connection) *GeneratedLessonRepository {
	return &GeneratedLessonRepository{conn: conn}
}

// Create stores a prepared lesson.
func (r *GeneratedLessonRepository) Create(ctx context.Context, l *catalog.GeneratedLesson) error {
	secJSON, err := json.Marshal(l.Sections)
	if err != nil {
		return fmt.Errorf("failed to encode sections: %w", err)
	}

	query := `
		INSERT INTO generated_lessons (id, user_id, topic_id, template_id, difficulty_adapted, title, sections, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.conn.Exec(ctx, query,
		l.ID,
		l.UserID.String(),
		l.TopicID.Int64(),
		l.TemplateID,
		l.DifficultyAdapted.Clamp().Int(),
		l.Title,
		secJSON,
		l.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrTemplateNotFound
		}
		return fmt.Errorf("failed to create generated lesson: %w", err)
	}
	return nil
}

// ListByUser returns the newest prepared lessons of a user first.
func (r *GeneratedLessonRepository) ListByUser(ctx context.Context, userID shared.UserID, limit int) ([]*catalog.GeneratedLesson, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, user_id, topic_id, template_id, difficulty_adapted, title, sections, created_at
		FROM generated_lessons
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.conn.Query(ctx, query, userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query generated lessons: %w", err)
	}
	defer rows.Close()

	var out []*catalog.GeneratedLesson
	for rows.Next() {
		var (
			l          catalog.GeneratedLesson
			uid        string
			topicID    int64
			difficulty int
			sections   []byte
		)
		if err := rows.Scan(&l.ID, &uid, &topicID, &l.TemplateID, &difficulty, &l.Title, &sections, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generated lesson: %w", err)
		}
		l.UserID = shared.UserID(uid)
		l.TopicID = catalog.TopicID(topicID)
		l.DifficultyAdapted = shared.Difficulty(difficulty)
		l.CreatedAt = l.CreatedAt.UTC()
		if err := json.Unmarshal(sections, &l.Sections); err != nil {
			return nil, fmt.Errorf("failed to decode generated lesson sections: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
