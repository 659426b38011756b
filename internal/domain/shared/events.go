package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Handlers subscribe to these to react to progress changes.
const (
	// User events
	EventUserRegistered EventType = "user.registered"
	EventXPAwarded      EventType = "user.xp_awarded"
	EventLevelUp        EventType = "user.level_up"

	// Progress events
	EventLessonCompleted      EventType = "progress.lesson_completed"
	EventTopicLessonCompleted EventType = "progress.topic_lesson_completed"
	EventCertificationEarned  EventType = "progress.certification_earned"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map, used in bus log lines.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// User Events
// ═══════════════════════════════════════════════════════════════════════════

// UserRegisteredEvent is emitted once registration has committed.
type UserRegisteredEvent struct {
	BaseEvent
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Payload implements Event interface.
func (e UserRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"username": e.Username,
		"email":    e.Email,
	}
}

// NewUserRegisteredEvent creates a new UserRegisteredEvent.
func NewUserRegisteredEvent(userID, username, email string) UserRegisteredEvent {
	return UserRegisteredEvent{
		BaseEvent: NewBaseEvent(EventUserRegistered, userID),
		Username:  username,
		Email:     email,
	}
}

// XPAwardedEvent is emitted when XP is added to a user profile.
type XPAwardedEvent struct {
	BaseEvent
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Source   string `json:"source"` // "lesson" or "topic"
}

// Payload implements Event interface.
func (e XPAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    e.Source,
	}
}

// NewXPAwardedEvent creates a new XPAwardedEvent.
func NewXPAwardedEvent(userID string, amount, newTotal int, source string) XPAwardedEvent {
	return XPAwardedEvent{
		BaseEvent: NewBaseEvent(EventXPAwarded, userID),
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// LevelUpEvent is emitted when a user's level increases.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
	TotalXP  int `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// LessonCompletedEvent is emitted after a lesson completion was persisted.
type LessonCompletedEvent struct {
	BaseEvent
	LessonID         int     `json:"lesson_id"`
	Score            float64 `json:"score"`
	NewLesson        bool    `json:"new_lesson"`
	LessonsCompleted int     `json:"lessons_completed"`
}

// Payload implements Event interface.
func (e LessonCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id":         e.LessonID,
		"score":             e.Score,
		"new_lesson":        e.NewLesson,
		"lessons_completed": e.LessonsCompleted,
	}
}

// NewLessonCompletedEvent creates a new LessonCompletedEvent.
func NewLessonCompletedEvent(userID string, lessonID int, score float64, newLesson bool, completed int) LessonCompletedEvent {
	return LessonCompletedEvent{
		BaseEvent:        NewBaseEvent(EventLessonCompleted, userID),
		LessonID:         lessonID,
		Score:            score,
		NewLesson:        newLesson,
		LessonsCompleted: completed,
	}
}

// TopicLessonCompletedEvent is emitted after a topic score was recorded.
type TopicLessonCompletedEvent struct {
	BaseEvent
	TopicID            int64   `json:"topic_id"`
	Score              float64 `json:"score"`
	AverageScore       float64 `json:"average_score"`
	PreviousDifficulty int     `json:"previous_difficulty"`
	CurrentDifficulty  int     `json:"current_difficulty"`
}

// Payload implements Event interface.
func (e TopicLessonCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"topic_id":            e.TopicID,
		"score":               e.Score,
		"average_score":       e.AverageScore,
		"previous_difficulty": e.PreviousDifficulty,
		"current_difficulty":  e.CurrentDifficulty,
	}
}

// NewTopicLessonCompletedEvent creates a new TopicLessonCompletedEvent.
func NewTopicLessonCompletedEvent(userID string, topicID int64, score, average float64, prevDifficulty, difficulty int) TopicLessonCompletedEvent {
	return TopicLessonCompletedEvent{
		BaseEvent:          NewBaseEvent(EventTopicLessonCompleted, userID),
		TopicID:            topicID,
		Score:              score,
		AverageScore:       average,
		PreviousDifficulty: prevDifficulty,
		CurrentDifficulty:  difficulty,
	}
}

// CertificationEarnedEvent is emitted exactly once per user, on the
// NotCertified -> Certified transition.
type CertificationEarnedEvent struct {
	BaseEvent
	CertifiedAt      time.Time `json:"certified_at"`
	LessonsCompleted int       `json:"lessons_completed"`
	TotalScore       float64   `json:"total_score"`
}

// Payload implements Event interface.
func (e CertificationEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"certified_at":      e.CertifiedAt.Format(time.RFC3339),
		"lessons_completed": e.LessonsCompleted,
		"total_score":       e.TotalScore,
	}
}

// NewCertificationEarnedEvent creates a new CertificationEarnedEvent.
func NewCertificationEarnedEvent(userID string, at time.Time, lessons int, totalScore float64) CertificationEarnedEvent {
	return CertificationEarnedEvent{
		BaseEvent:        NewBaseEvent(EventCertificationEarned, userID),
		CertifiedAt:      at,
		LessonsCompleted: lessons,
		TotalScore:       totalScore,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
