package progress

import (
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

// Difficulty adaptation thresholds on the running average score.
const (
	PromoteAverage = 85.0
	DemoteAverage  = 60.0
)

// ══════════════════════════════════════════════════════════════════════════════
// TOPIC PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// TopicProgress tracks one user's results on one topic.
type TopicProgress struct {
	UserID  shared.UserID
	TopicID catalog.TopicID

	// LessonsCompleted - number of scores submitted for the topic.
	LessonsCompleted int

	// AverageScore - running mean of every submitted score.
	AverageScore float64

	// CurrentDifficulty - adaptive difficulty, always within [1,5].
	CurrentDifficulty shared.Difficulty

	UpdatedAt time.Time
}

// NewTopicProgress returns the default {0, 0.0, 1} state.
func NewTopicProgress(userID shared.UserID, topicID catalog.TopicID) *TopicProgress {
	return &TopicProgress{
		UserID:            userID,
		TopicID:           topicID,
		CurrentDifficulty: shared.MinDifficulty,
	}
}

// TopicOutcome describes what one RecordScore call changed.
type TopicOutcome struct {
	PreviousDifficulty shared.Difficulty
	CurrentDifficulty  shared.Difficulty
	AverageScore       float64
	LessonsCompleted   int
}

// RecordScore folds a score into the running average and adapts difficulty:
// an average of 85 or more raises it by one, below 60 lowers it by one.
func (t *TopicProgress) RecordScore(score shared.Score, now time.Time) TopicOutcome {
	prev := t.CurrentDifficulty.Clamp()

	n := float64(t.LessonsCompleted)
	newCount := t.LessonsCompleted + 1
	t.AverageScore = (t.AverageScore*n + score.Float64()) / float64(newCount)
	t.LessonsCompleted = newCount

	switch {
	case t.AverageScore >= PromoteAverage:
		t.CurrentDifficulty = prev.Harder()
	case t.AverageScore < DemoteAverage:
		t.CurrentDifficulty = prev.Easier()
	default:
		t.CurrentDifficulty = prev
	}
	t.UpdatedAt = now.UTC()

	return TopicOutcome{
		PreviousDifficulty: prev,
		CurrentDifficulty:  t.CurrentDifficulty,
		AverageScore:       t.AverageScore,
		LessonsCompleted:   t.LessonsCompleted,
	}
}
