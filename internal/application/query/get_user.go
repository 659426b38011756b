package query

import (
	"context"
	"fmt"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/domain/user"
)

// GetUserQuery identifies the user.
type GetUserQuery struct {
	UserID shared.UserID
}

// UserDTO is the public view of a user and its profile.
type UserDTO struct {
	ID        string       `json:"id"`
	Username  string       `json:"username"`
	Email     string       `json:"email"`
	FirstName string       `json:"first_name"`
	CreatedAt time.Time    `json:"created_at"`
	Stats     UserStatsDTO `json:"stats"`
}

// NewUserDTO builds the view. Password hashes never leave the domain.
func NewUserDTO(u *user.User, p *user.Profile) UserDTO {
	return UserDTO{
		ID:        u.ID.String(),
		Username:  u.Username.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		CreatedAt: u.CreatedAt,
		Stats:     NewUserStatsDTO(p),
	}
}

// GetUserHandler handles GetUserQuery.
type GetUserHandler struct {
	users    user.Repository
	profiles user.ProfileRepository
}

// NewGetUserHandler creates a new GetUserHandler.
func NewGetUserHandler(users user.Repository, profiles user.ProfileRepository) *GetUserHandler {
	return &GetUserHandler{users: users, profiles: profiles}
}

// Handle loads the user and its profile.
func (h *GetUserHandler) Handle(ctx context.Context, q GetUserQuery) (*UserDTO, error) {
	u, err := h.users.GetByID(ctx, q.UserID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get_user: %w", err)
	}
	p, err := h.profiles.GetByUserID(ctx, q.UserID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get_user: %w", err)
	}
	dto := NewUserDTO(u, p)
	return &dto, nil
}
