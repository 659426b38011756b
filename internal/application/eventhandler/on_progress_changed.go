// Package eventhandler contains the domain event subscribers.
package eventhandler

import (
	"context"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PROGRESS CHANGED
// Writes the committed progress record of a user into the cache whenever a
// lesson completion commits. The cache keeps the record with the later
// UpdatedAt, so a reader that loaded the row before the commit cannot
// overwrite it afterwards.
// ═══════════════════════════════════════════════════════════════════════════

// OnProgressChangedHandler refreshes the progress cache.
type OnProgressChangedHandler struct {
	records progress.Repository
	cache   progress.Cache
	timeout time.Duration
	log     *logger.Logger
}

// NewOnProgressChangedHandler creates the handler.
func NewOnProgressChangedHandler(records progress.Repository, cache progress.Cache, log *logger.Logger) *OnProgressChangedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnProgressChangedHandler{
		records: records,
		cache:   cache,
		timeout: 2 * time.Second,
		log:     log.With(logger.String("handler", "on_progress_changed")),
	}
}

// Register subscribes the handler.
func (h *OnProgressChangedHandler) Register(bus shared.EventSubscriber) error {
	if err := bus.Subscribe(shared.EventLessonCompleted, h.Handle); err != nil {
		return err
	}
	return bus.Subscribe(shared.EventCertificationEarned, h.Handle)
}

// Handle implements shared.EventHandler.
func (h *OnProgressChangedHandler) Handle(event shared.Event) error {
	uid, err := shared.NewUserID(event.AggregateID())
	if err != nil {
		h.log.Warn("event without a valid user id", logger.String("event_type", string(event.EventType())))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	rec, err := h.records.GetOrCreate(ctx, uid)
	if err != nil {
		h.log.Warn("reload after commit failed, invalidating cached progress",
			logger.UserID(uid.String()), logger.Err(err))
		h.cache.Invalidate(ctx, uid)
		return nil
	}

	h.cache.Set(ctx, rec)
	h.log.Debug("progress cache refreshed", logger.UserID(uid.String()))
	return nil
}
