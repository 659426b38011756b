package user

import (
	"context"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence. When the context
// carries a transaction (see shared.Transactor) they join it.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores users.
type Repository interface {
	// Create inserts a new user.
	// Returns shared.ErrUsernameTaken if the username is already registered.
	Create(ctx context.Context, u *User) error

	// GetByID returns a user by ID.
	// Returns shared.ErrUserNotFound if there is no such user.
	GetByID(ctx context.Context, id shared.UserID) (*User, error)

	// GetByUsername returns a user by exact username.
	// Returns shared.ErrUserNotFound if there is no such user.
	GetByUsername(ctx context.Context, username shared.Username) (*User, error)
}

// ProfileRepository stores gamification profiles.
type ProfileRepository interface {
	// Create inserts the default profile of a new user.
	Create(ctx context.Context, p *Profile) error

	// GetByUserID returns the profile of a user.
	// Returns shared.ErrProfileNotFound if the profile does not exist.
	GetByUserID(ctx context.Context, userID shared.UserID) (*Profile, error)

	// Update locks the profile row, applies fn and persists the result.
	// Returns shared.ErrProfileNotFound if the profile does not exist.
	Update(ctx context.Context, userID shared.UserID, fn func(p *Profile) error) (*Profile, error)
}
