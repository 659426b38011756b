package user

import (
	"net/mail"
	"strings"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER
// ══════════════════════════════════════════════════════════════════════════════

// User is a registered learner.
type User struct {
	// ID - UUID assigned at registration.
	ID shared.UserID

	// Username - unique login name.
	Username shared.Username

	// Email - optional contact address.
	Email string

	// FirstName - optional display name.
	FirstName string

	// PasswordHash - bcrypt hash of the password. Never serialized.
	PasswordHash string

	// CreatedAt - registration time.
	CreatedAt time.Time

	// UpdatedAt - time of the last change.
	UpdatedAt time.Time
}

// NewUserParams contains the validated input of a registration.
type NewUserParams struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	PasswordHash string
	Now          time.Time
}

// NewUser creates a user after validating every field.
func NewUser(params NewUserParams) (*User, error) {
	id, err := shared.NewUserID(params.ID)
	if err != nil {
		return nil, err
	}

	username, err := shared.NewUsername(params.Username)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(params.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, shared.NewDomainError("user", "Validate", shared.ErrInvalidFormat, "email is not a valid address")
		}
	}

	if params.PasswordHash == "" {
		return nil, shared.NewDomainError("user", "Validate", shared.ErrEmptyValue, "password hash is required")
	}

	now := params.Now.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		FirstName:    strings.TrimSpace(params.FirstName),
		PasswordHash: params.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AccessToken is a signed session token issued at login.
type AccessToken struct {
	// Value - the encoded token presented by clients.
	Value string

	// ID - unique token id, the handle used for revocation.
	ID string

	// ExpiresAt - end of validity, second precision.
	ExpiresAt time.Time
}
