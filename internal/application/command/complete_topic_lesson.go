package command

import (
	"context"
	"fmt"

	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
	"github.com/ai-literacy/literacy-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE TOPIC LESSON COMMAND
// Per-topic progress update: folds a score into the topic's running average,
// adapts the difficulty and awards XP in the same transaction.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteTopicLessonCommand is one scored topic lesson.
type CompleteTopicLessonCommand struct {
	UserID  shared.UserID
	TopicID int64
	Score   float64
}

// Validate validates the command.
func (c CompleteTopicLessonCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.NewDomainError("progress", "CompleteTopicLesson", shared.ErrInvalidID, "user id is invalid")
	}
	if c.TopicID <= 0 {
		return shared.NewDomainError("progress", "CompleteTopicLesson", shared.ErrInvalidID, "topic id must be a positive integer")
	}
	_, err := shared.NewScore(c.Score)
	return err
}

// CompleteTopicLessonResult contains the updated topic record and XP award.
type CompleteTopicLessonResult struct {
	progress.TopicOutcome

	TopicID catalog.TopicID
	XP      *AwardXPResult
}

// CompleteTopicLessonHandler handles CompleteTopicLessonCommand.
type CompleteTopicLessonHandler struct {
	tx      shared.Transactor
	topics  progress.TopicRepository
	awardXP *AwardXPHandler
	events  shared.EventPublisher
	clock   timeutil.Clock
	log     *logger.Logger
}

// NewCompleteTopicLessonHandler creates a new CompleteTopicLessonHandler.
func NewCompleteTopicLessonHandler(
	tx shared.Transactor,
	topics progress.TopicRepository,
	awardXP *AwardXPHandler,
	events shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
) *CompleteTopicLessonHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CompleteTopicLessonHandler{
		tx:      tx,
		topics:  topics,
		awardXP: awardXP,
		events:  events,
		clock:   clock,
		log:     log.With(logger.Component("complete_topic_lesson")),
	}
}

// Handle applies the score. An unknown topic yields shared.ErrTopicNotFound.
func (h *CompleteTopicLessonHandler) Handle(ctx context.Context, cmd CompleteTopicLessonCommand) (*CompleteTopicLessonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	topicID := catalog.TopicID(cmd.TopicID)
	score := shared.Score(cmd.Score)

	var result *CompleteTopicLessonResult
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := h.clock.Now().UTC()
		result = &CompleteTopicLessonResult{TopicID: topicID}

		_, err := h.topics.Update(ctx, cmd.UserID, topicID, func(t *progress.TopicProgress) error {
			result.TopicOutcome = t.RecordScore(score, now)
			return nil
		})
		if err != nil {
			return err
		}

		result.XP, err = h.awardXP.Handle(ctx, AwardXPCommand{
			UserID: cmd.UserID,
			Amount: shared.XPForScore(score),
			Source: XPSourceTopic,
			At:     now,
		})
		return err
	})
	if err != nil {
		if shared.IsNotFound(err) || shared.IsValidation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("complete_topic_lesson: %w", err)
	}

	h.log.Info("topic lesson completed",
		logger.UserID(cmd.UserID.String()),
		logger.TopicID(cmd.TopicID),
		logger.Float64("average_score", result.AverageScore),
		logger.Int("difficulty", result.CurrentDifficulty.Int()))

	events := []shared.Event{
		shared.NewTopicLessonCompletedEvent(cmd.UserID.String(), cmd.TopicID, cmd.Score,
			result.AverageScore, result.PreviousDifficulty.Int(), result.CurrentDifficulty.Int()),
	}
	publishAll(h.events, append(events, result.XP.Events...))

	return result, nil
}
