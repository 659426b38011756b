// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Returns the aggregate course progress of a user. A user without a stored
// record gets the empty default, which is created on the way.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery identifies the user.
type GetProgressQuery struct {
	UserID shared.UserID
}

// LessonDetailDTO is the latest submission of one lesson.
type LessonDetailDTO struct {
	Score       float64   `json:"score"`
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completed_at"`
}

// ProgressDTO is the aggregate progress view.
type ProgressDTO struct {
	CompletedLessons []int                      `json:"completed_lessons"`
	Progress         map[string]LessonDetailDTO `json:"progress"`

	// TotalLessons is the number of distinct lessons completed.
	TotalLessons    int     `json:"total_lessons"`
	RequiredLessons int     `json:"required_lessons"`
	TotalScore      float64 `json:"total_score"`

	CertificationEarned bool       `json:"certification_earned"`
	CertificationDate   *time.Time `json:"certification_date"`

	AllLessonsCompleted bool  `json:"all_lessons_completed"`
	ProgressPercentage  int   `json:"progress_percentage"`
	NextLesson          *int  `json:"next_lesson"`
	UnlockedLessons     []int `json:"unlocked_lessons"`
}

// NewProgressDTO builds the view of a record.
func NewProgressDTO(r *progress.Record) ProgressDTO {
	details := make(map[string]LessonDetailDTO, len(r.Details))
	for id, d := range r.Details {
		details[strconv.Itoa(id.Int())] = LessonDetailDTO{
			Score:       d.Score,
			Completed:   d.Completed,
			CompletedAt: d.CompletedAt,
		}
	}

	dto := ProgressDTO{
		CompletedLessons:    r.CompletedLessons.Ints(),
		Progress:            details,
		TotalLessons:        r.LessonsCompleted,
		RequiredLessons:     progress.TotalLessons,
		TotalScore:          r.TotalScore,
		CertificationEarned: r.CertificationEarned,
		CertificationDate:   r.CertificationDate,
		AllLessonsCompleted: r.AllLessonsCompleted(),
		ProgressPercentage:  r.ProgressPercentage(),
		UnlockedLessons:     r.UnlockedLessons(),
	}
	if next, ok := r.NextLesson(); ok {
		n := next.Int()
		dto.NextLesson = &n
	}
	return dto
}

// GetProgressHandler handles GetProgressQuery.
type GetProgressHandler struct {
	records progress.Repository
	cache   progress.Cache
	log     *logger.Logger
}

// NewGetProgressHandler creates a new GetProgressHandler. cache may be nil.
func NewGetProgressHandler(records progress.Repository, cache progress.Cache, log *logger.Logger) *GetProgressHandler {
	if cache == nil {
		cache = nopCache{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GetProgressHandler{records: records, cache: cache, log: log.With(logger.Component("get_progress"))}
}

// Handle reads through the cache.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressDTO, error) {
	if !q.UserID.IsValid() {
		return nil, shared.NewDomainError("progress", "Get", shared.ErrInvalidID, "user id is invalid")
	}

	if rec, ok := h.cache.Get(ctx, q.UserID); ok {
		dto := NewProgressDTO(rec)
		return &dto, nil
	}

	rec, err := h.records.GetOrCreate(ctx, q.UserID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get_progress: %w", err)
	}
	h.cache.Set(ctx, rec)

	dto := NewProgressDTO(rec)
	return &dto, nil
}

type nopCache struct{}

func (nopCache) Get(context.Context, shared.UserID) (*progress.Record, bool) { return nil, false }
func (nopCache) Set(context.Context, *progress.Record)                       {}
func (nopCache) Invalidate(context.Context, shared.UserID)                   {}
