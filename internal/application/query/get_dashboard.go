package query

import (
	"context"
	"fmt"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// Every catalog topic with the user's progress on it (topics never touched
// show the default state), the profile stats and certification readiness.
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardQuery identifies the user.
type GetDashboardQuery struct {
	UserID shared.UserID
}

// UserStatsDTO is the gamification summary of a profile.
type UserStatsDTO struct {
	TotalXP             int        `json:"total_xp"`
	Level               int        `json:"level"`
	LevelTitle          string     `json:"level_title"`
	ProgressToNextLevel int        `json:"progress_to_next_level"`
	CurrentStreak       int        `json:"current_streak"`
	BestStreak          int        `json:"best_streak"`
	LastActivityDate    *time.Time `json:"last_activity_date"`
}

// NewUserStatsDTO builds the stats view of a profile.
func NewUserStatsDTO(p *user.Profile) UserStatsDTO {
	dto := UserStatsDTO{
		TotalXP:             p.TotalXP.Int(),
		Level:               p.Level.Int(),
		LevelTitle:          p.Level.Title(),
		ProgressToNextLevel: p.TotalXP.ProgressToNextLevel(),
		CurrentStreak:       p.CurrentStreak,
		BestStreak:          p.BestStreak,
	}
	if !p.LastActivityDate.IsZero() {
		d := p.LastActivityDate
		dto.LastActivityDate = &d
	}
	return dto
}

// TopicProgressDTO is one dashboard row.
type TopicProgressDTO struct {
	TopicID           int64   `json:"topic_id"`
	TopicSlug         string  `json:"topic_slug"`
	TopicName         string  `json:"topic_name"`
	DifficultyLevel   int     `json:"difficulty_level"`
	LessonsCompleted  int     `json:"lessons_completed"`
	AverageScore      float64 `json:"average_score"`
	CurrentDifficulty int     `json:"current_difficulty"`
}

// DashboardDTO is the dashboard view.
type DashboardDTO struct {
	UserStats             UserStatsDTO       `json:"user_stats"`
	Progress              []TopicProgressDTO `json:"progress"`
	ReadyForCertification bool               `json:"ready_for_certification"`
}

// GetDashboardHandler handles GetDashboardQuery.
type GetDashboardHandler struct {
	profiles user.ProfileRepository
	topics   progress.TopicRepository
	catalog  catalog.Repository
}

// NewGetDashboardHandler creates a new GetDashboardHandler.
func NewGetDashboardHandler(profiles user.ProfileRepository, topics progress.TopicRepository, cat catalog.Repository) *GetDashboardHandler {
	return &GetDashboardHandler{profiles: profiles, topics: topics, catalog: cat}
}

// Handle builds the dashboard.
func (h *GetDashboardHandler) Handle(ctx context.Context, q GetDashboardQuery) (*DashboardDTO, error) {
	profile, err := h.profiles.GetByUserID(ctx, q.UserID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get_dashboard: %w", err)
	}

	topics, err := h.catalog.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_dashboard: %w", err)
	}
	stored, err := h.topics.ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_dashboard: %w", err)
	}

	byTopic := make(map[catalog.TopicID]*progress.TopicProgress, len(stored))
	for _, tp := range stored {
		byTopic[tp.TopicID] = tp
	}

	rows := make([]TopicProgressDTO, 0, len(topics))
	for _, t := range topics {
		tp, ok := byTopic[t.ID]
		if !ok {
			tp = progress.NewTopicProgress(q.UserID, t.ID)
		}
		rows = append(rows, TopicProgressDTO{
			TopicID:           t.ID.Int64(),
			TopicSlug:         t.Slug,
			TopicName:         t.Name,
			DifficultyLevel:   t.DifficultyLevel.Int(),
			LessonsCompleted:  tp.LessonsCompleted,
			AverageScore:      tp.AverageScore,
			CurrentDifficulty: tp.CurrentDifficulty.Int(),
		})
	}

	return &DashboardDTO{
		UserStats:             NewUserStatsDTO(profile),
		Progress:              rows,
		ReadyForCertification: profile.ReadyForCertification(),
	}, nil
}
