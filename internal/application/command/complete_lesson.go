package command

import (
	"context"
	"fmt"

	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
	"github.com/ai-literacy/literacy-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE LESSON COMMAND
// Aggregate progress update: records a lesson submission on the user's
// course record, certifies once four distinct lessons are done, and awards
// XP in the same transaction.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteLessonCommand is one lesson submission.
type CompleteLessonCommand struct {
	UserID   shared.UserID
	LessonID int
	Score    float64
}

// Validate validates the command.
func (c CompleteLessonCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.NewDomainError("progress", "CompleteLesson", shared.ErrInvalidID, "user id is invalid")
	}
	if _, err := progress.NewLessonID(c.LessonID); err != nil {
		return err
	}
	_, err := shared.NewScore(c.Score)
	return err
}

// CompleteLessonResult contains the updated record and what changed.
type CompleteLessonResult struct {
	progress.LessonOutcome

	Record *progress.Record
	XP     *AwardXPResult
}

// CompleteLessonHandler handles CompleteLessonCommand.
type CompleteLessonHandler struct {
	tx      shared.Transactor
	records progress.Repository
	awardXP *AwardXPHandler
	events  shared.EventPublisher
	order   LessonOrderPolicy
	clock   timeutil.Clock
	log     *logger.Logger
}

// NewCompleteLessonHandler creates a new CompleteLessonHandler. A nil order
// policy never enforces lesson order.
func NewCompleteLessonHandler(
	tx shared.Transactor,
	records progress.Repository,
	awardXP *AwardXPHandler,
	events shared.EventPublisher,
	order LessonOrderPolicy,
	clock timeutil.Clock,
	log *logger.Logger,
) *CompleteLessonHandler {
	if order == nil {
		order = func(shared.UserID) bool { return false }
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CompleteLessonHandler{
		tx:      tx,
		records: records,
		awardXP: awardXP,
		events:  events,
		order:   order,
		clock:   clock,
		log:     log.With(logger.Component("complete_lesson")),
	}
}

// Handle applies the submission.
func (h *CompleteLessonHandler) Handle(ctx context.Context, cmd CompleteLessonCommand) (*CompleteLessonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	lessonID := progress.LessonID(cmd.LessonID)
	score := shared.Score(cmd.Score)
	enforce := h.order(cmd.UserID)

	var result *CompleteLessonResult
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := h.clock.Now().UTC()
		result = &CompleteLessonResult{}

		rec, err := h.records.Update(ctx, cmd.UserID, func(r *progress.Record) error {
			if enforce && !r.IsUnlocked(lessonID) && !r.IsCompleted(lessonID) {
				return shared.ErrLessonLocked
			}
			result.LessonOutcome = r.CompleteLesson(lessonID, score, now)
			return nil
		})
		if err != nil {
			return err
		}
		result.Record = rec

		result.XP, err = h.awardXP.Handle(ctx, AwardXPCommand{
			UserID: cmd.UserID,
			Amount: shared.XPForScore(score),
			Source: XPSourceLesson,
			At:     now,
		})
		return err
	})
	if err != nil {
		if shared.IsNotFound(err) || shared.IsValidation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("complete_lesson: %w", err)
	}

	rec := result.Record
	h.log.Info("lesson completed",
		logger.UserID(cmd.UserID.String()),
		logger.LessonID(cmd.LessonID),
		logger.Bool("new_lesson", result.NewLesson),
		logger.Int("lessons_completed", rec.LessonsCompleted))

	uid := cmd.UserID.String()
	events := []shared.Event{
		shared.NewLessonCompletedEvent(uid, cmd.LessonID, cmd.Score, result.NewLesson, rec.LessonsCompleted),
	}
	if result.JustCertified {
		events = append(events, shared.NewCertificationEarnedEvent(uid, *rec.CertificationDate, rec.LessonsCompleted, rec.TotalScore))
	}
	events = append(events, result.XP.Events...)
	publishAll(h.events, events)

	return result, nil
}
