package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS RECORD REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
// Each update runs as insert-if-absent, lock, read, apply, write inside one
// transaction, so concurrent submissions for the same user serialize on the
// row while different users never block each other.
type ProgressRepository struct {
	conn *Connection
	log  *logger.Logger
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection, log *logger.Logger) *ProgressRepository {
	if log == nil {
		log = logger.Nop()
	}
	return &ProgressRepository{conn: conn, log: log.With(logger.Component("progress_repo"))}
}

const recordColumns = `user_id, lessons_completed, total_score, completed_lessons, lesson_details,
	certification_earned, certification_date, created_at, updated_at`

// Create inserts the default record. An existing record is left untouched.
func (r *ProgressRepository) Create(ctx context.Context, rec *progress.Record) error {
	set, err := progress.EncodeLessonSet(rec.CompletedLessons)
	if err != nil {
		return fmt.Errorf("failed to encode completed lessons: %w", err)
	}
	details, err := progress.EncodeLessonDetails(rec.Details)
	if err != nil {
		return fmt.Errorf("failed to encode lesson details: %w", err)
	}

	query := `
		INSERT INTO progress_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err = r.conn.Exec(ctx, query,
		rec.UserID.String(),
		rec.LessonsCompleted,
		rec.TotalScore,
		set,
		details,
		rec.CertificationEarned,
		rec.CertificationDate,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrUserNotFound
		}
		return fmt.Errorf("failed to create progress record: %w", err)
	}
	return nil
}

// GetOrCreate returns the record, inserting the default one first if needed.
func (r *ProgressRepository) GetOrCreate(ctx context.Context, userID shared.UserID) (*progress.Record, error) {
	if err := r.ensure(ctx, userID); err != nil {
		return nil, err
	}
	query := `SELECT ` + recordColumns + ` FROM progress_records WHERE user_id = $1`
	return r.scanRecord(r.conn.QueryRow(ctx, query, userID.String()))
}

// Update applies fn to the locked record and persists it.
func (r *ProgressRepository) Update(ctx context.Context, userID shared.UserID, fn func(rec *progress.Record) error) (*progress.Record, error) {
	var out *progress.Record

	err := r.conn.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.ensure(ctx, userID); err != nil {
			return err
		}

		query := `SELECT ` + recordColumns + ` FROM progress_records WHERE user_id = $1 FOR UPDATE`
		rec, err := r.scanRecord(r.conn.QueryRow(ctx, query, userID.String()))
		if err != nil {
			return err
		}

		if err := fn(rec); err != nil {
			return err
		}

		if err := r.write(ctx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProgressRepository) ensure(ctx context.Context, userID shared.UserID) error {
	return ensureRecord(ctx, r.conn, userID)
}

func ensureRecord(ctx context.Context, conn *Connection, userID shared.UserID) error {
	query := `INSERT INTO progress_records (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	if _, err := conn.Exec(ctx, query, userID.String()); err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrUserNotFound
		}
		return fmt.Errorf("failed to ensure progress record: %w", err)
	}
	return nil
}

func (r *ProgressRepository) write(ctx context.Context, rec *progress.Record) error {
	set, err := progress.EncodeLessonSet(rec.CompletedLessons)
	if err != nil {
		return fmt.Errorf("failed to encode completed lessons: %w", err)
	}
	details, err := progress.EncodeLessonDetails(rec.Details)
	if err != nil {
		return fmt.Errorf("failed to encode lesson details: %w", err)
	}

	query := `
		UPDATE progress_records SET
			lessons_completed = $1,
			total_score = $2,
			completed_lessons = $3,
			lesson_details = $4,
			certification_earned = $5,
			certification_date = $6,
			updated_at = $7
		WHERE user_id = $8
	`
	_, err = r.conn.Exec(ctx, query,
		rec.LessonsCompleted,
		rec.TotalScore,
		set,
		details,
		rec.CertificationEarned,
		rec.CertificationDate,
		rec.UpdatedAt,
		rec.UserID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update progress record: %w", err)
	}
	return nil
}

func (r *ProgressRepository) scanRecord(row pgx.Row) (*progress.Record, error) {
	var (
		rec         progress.Record
		userID      string
		setDoc      []byte
		detailsDoc  []byte
		certifiedAt *time.Time
	)

	err := row.Scan(&userID, &rec.LessonsCompleted, &rec.TotalScore, &setDoc, &detailsDoc,
		&rec.CertificationEarned, &certifiedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan progress record: %w", err)
	}

	rec.UserID = shared.UserID(userID)

	rec.CompletedLessons, err = progress.DecodeLessonSet(setDoc)
	if err != nil {
		r.log.Warn("stored completed_lessons is corrupt, keeping valid ids",
			logger.UserID(userID), logger.Err(err))
	}
	rec.Details, err = progress.DecodeLessonDetails(detailsDoc)
	if err != nil {
		r.log.Warn("stored lesson_details is corrupt, keeping valid entries",
			logger.UserID(userID), logger.Err(err))
	}

	stored := rec.LessonsCompleted
	if rec.Reconcile() {
		r.log.Warn("stored progress counters repaired",
			logger.UserID(userID),
			logger.Int("stored_lessons_completed", stored),
			logger.Int("lessons_completed", rec.LessonsCompleted))
	}

	if certifiedAt != nil {
		t := certifiedAt.UTC()
		rec.CertificationDate = &t
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TOPIC PROGRESS REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// TopicProgressRepository implements progress.TopicRepository for PostgreSQL.
type TopicProgressRepository struct {
	conn *Connection
}

// NewTopicProgressRepository creates a new TopicProgressRepository.
func NewTopicProgressRepository(conn *Connection) *TopicProgressRepository {
	return &TopicProgressRepository{conn: conn}
}

const topicColumns = `user_id, topic_id, lessons_completed, average_score, current_difficulty, updated_at`

// ListByUser returns the stored topic records of a user ordered by topic.
func (r *TopicProgressRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]*progress.TopicProgress, error) {
	query := `SELECT ` + topicColumns + ` FROM topic_progress WHERE user_id = $1 ORDER BY topic_id`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query topic progress: %w", err)
	}
	defer rows.Close()

	var out []*progress.TopicProgress
	for rows.Next() {
		tp, err := scanTopicProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

// GetOrDefault returns the stored record or an unsaved default one.
func (r *TopicProgressRepository) GetOrDefault(ctx context.Context, userID shared.UserID, topicID catalog.TopicID) (*progress.TopicProgress, error) {
	query := `SELECT ` + topicColumns + ` FROM topic_progress WHERE user_id = $1 AND topic_id = $2`

	tp, err := scanTopicProgress(r.conn.QueryRow(ctx, query, userID.String(), topicID.Int64()))
	if err != nil {
		if IsNoRows(err) {
			return progress.NewTopicProgress(userID, topicID), nil
		}
		return nil, err
	}
	return tp, nil
}

// Update locks the (user, topic) row, creating it if absent, applies fn and
// persists the result.
func (r *TopicProgressRepository) Update(ctx context.Context, userID shared.UserID, topicID catalog.TopicID, fn func(tp *progress.TopicProgress) error) (*progress.TopicProgress, error) {
	var out *progress.TopicProgress

	err := r.conn.WithinTx(ctx, func(ctx context.Context) error {
		if err := ensureRecord(ctx, r.conn, userID); err != nil {
			return err
		}

		insert := `
			INSERT INTO topic_progress (user_id, topic_id, lessons_completed, average_score, current_difficulty)
			VALUES ($1, $2, 0, 0, $3)
			ON CONFLICT (user_id, topic_id) DO NOTHING
		`
		if _, err := r.conn.Exec(ctx, insert, userID.String(), topicID.Int64(), shared.MinDifficulty.Int()); err != nil {
			if IsForeignKeyViolation(err) {
				return shared.ErrTopicNotFound
			}
			return fmt.Errorf("failed to ensure topic progress: %w", err)
		}

		query := `SELECT ` + topicColumns + ` FROM topic_progress WHERE user_id = $1 AND topic_id = $2 FOR UPDATE`
		tp, err := scanTopicProgress(r.conn.QueryRow(ctx, query, userID.String(), topicID.Int64()))
		if err != nil {
			return err
		}

		if err := fn(tp); err != nil {
			return err
		}

		update := `
			UPDATE topic_progress SET
				lessons_completed = $1,
				average_score = $2,
				current_difficulty = $3,
				updated_at = $4
			WHERE user_id = $5 AND topic_id = $6
		`
		_, err = r.conn.Exec(ctx, update,
			tp.LessonsCompleted,
			tp.AverageScore,
			tp.CurrentDifficulty.Clamp().Int(),
			tp.UpdatedAt,
			userID.String(),
			topicID.Int64(),
		)
		if err != nil {
			return fmt.Errorf("failed to update topic progress: %w", err)
		}

		out = tp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanTopicProgress(row pgx.Row) (*progress.TopicProgress, error) {
	var (
		tp         progress.TopicProgress
		userID     string
		topicID    int64
		difficulty int
	)

	err := row.Scan(&userID, &topicID, &tp.LessonsCompleted, &tp.AverageScore, &difficulty, &tp.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan topic progress: %w", err)
	}

	tp.UserID = shared.UserID(userID)
	tp.TopicID = catalog.TopicID(topicID)
	tp.CurrentDifficulty = shared.Difficulty(difficulty).Clamp()
	tp.UpdatedAt = tp.UpdatedAt.UTC()
	return &tp, nil
}
