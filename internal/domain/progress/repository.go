package progress

import (
	"context"

	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// A missing progress row is never an error: reads and updates create the
// default record first. Updates are atomic per row.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores aggregate course progress.
type Repository interface {
	// Create inserts the default record at registration. Inserting a record
	// that already exists is a no-op.
	Create(ctx context.Context, r *Record) error

	// GetOrCreate returns the record, creating the default one if absent.
	GetOrCreate(ctx context.Context, userID shared.UserID) (*Record, error)

	// Update locks the record (creating it if absent), applies fn and
	// persists the result. If fn returns an error nothing is written.
	Update(ctx context.Context, userID shared.UserID, fn func(r *Record) error) (*Record, error)
}

// TopicRepository stores per-topic progress.
type TopicRepository interface {
	// ListByUser returns every stored topic record of the user.
	ListByUser(ctx context.Context, userID shared.UserID) ([]*TopicProgress, error)

	// GetOrDefault returns the stored record or an unsaved default one.
	GetOrDefault(ctx context.Context, userID shared.UserID, topicID catalog.TopicID) (*TopicProgress, error)

	// Update locks the (user, topic) row, creating the default one if absent,
	// applies fn and persists the result.
	Update(ctx context.Context, userID shared.UserID, topicID catalog.TopicID, fn func(t *TopicProgress) error) (*TopicProgress, error)
}

// Cache holds recently read aggregate records. Implementations are best
// effort: a failing cache reports a miss and never an error.
type Cache interface {
	Get(ctx context.Context, userID shared.UserID) (*Record, bool)

	// Set stores r unless the cache already holds a record of the same user
	// with a later UpdatedAt.
	Set(ctx context.Context, r *Record)

	Invalidate(ctx context.Context, userID shared.UserID)
}
