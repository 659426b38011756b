package eventhandler

import (
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON MILESTONE
// Audit log of the one-off moments of a learner: registration, level-ups
// and the certification.
// ═══════════════════════════════════════════════════════════════════════════

// OnMilestoneHandler writes milestone events to the log.
type OnMilestoneHandler struct {
	log *logger.Logger
}

// NewOnMilestoneHandler creates the handler.
func NewOnMilestoneHandler(log *logger.Logger) *OnMilestoneHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnMilestoneHandler{log: log.With(logger.String("handler", "on_milestone"))}
}

// Register subscribes the handler.
func (h *OnMilestoneHandler) Register(bus shared.EventSubscriber) error {
	for _, t := range []shared.EventType{
		shared.EventUserRegistered,
		shared.EventLevelUp,
		shared.EventCertificationEarned,
	} {
		if err := bus.Subscribe(t, h.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle implements shared.EventHandler.
func (h *OnMilestoneHandler) Handle(event shared.Event) error {
	fields := []logger.Field{
		logger.UserID(event.AggregateID()),
		logger.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case shared.UserRegisteredEvent:
		h.log.Info("learner registered", append(fields, logger.Username(e.Username))...)
	case shared.LevelUpEvent:
		h.log.Info("level up", append(fields,
			logger.Int("old_level", e.OldLevel),
			logger.Int("new_level", e.NewLevel),
			logger.Int("total_xp", e.TotalXP))...)
	case shared.CertificationEarnedEvent:
		h.log.Info("certification earned", append(fields,
			logger.Time("certified_at", e.CertifiedAt),
			logger.Int("lessons_completed", e.LessonsCompleted),
			logger.Float64("total_score", e.TotalScore))...)
	default:
		h.log.Debug("ignored event", logger.String("event_type", string(event.EventType())))
	}
	return nil
}
