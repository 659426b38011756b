package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/domain/user"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGIN / LOGOUT COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// LoginUserCommand contains the login form.
type LoginUserCommand struct {
	Username string
	Password string
}

// Validate validates the command.
func (c LoginUserCommand) Validate() error {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return shared.NewDomainError("user", "Login", shared.ErrEmptyValue, "username and password required")
	}
	return nil
}

// LoginUserResult contains the issued token and a snapshot of the user.
type LoginUserResult struct {
	Token    user.AccessToken
	User     *user.User
	Profile  *user.Profile
	Progress *progress.Record
}

// LoginUserHandler handles LoginUserCommand.
type LoginUserHandler struct {
	users    user.Repository
	profiles user.ProfileRepository
	records  progress.Repository
	hasher   PasswordHasher
	tokens   TokenIssuer
	log      *logger.Logger
}

// NewLoginUserHandler creates a new LoginUserHandler.
func NewLoginUserHandler(
	users user.Repository,
	profiles user.ProfileRepository,
	records progress.Repository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	log *logger.Logger,
) *LoginUserHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LoginUserHandler{
		users:    users,
		profiles: profiles,
		records:  records,
		hasher:   hasher,
		tokens:   tokens,
		log:      log.With(logger.Component("login_user")),
	}
}

// Handle checks the credentials and issues a token. Unknown users and wrong
// passwords produce the same error after the same amount of work.
func (h *LoginUserHandler) Handle(ctx context.Context, cmd LoginUserCommand) (*LoginUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	u, err := h.users.GetByUsername(ctx, shared.Username(strings.TrimSpace(cmd.Username)))
	switch {
	case errors.Is(err, shared.ErrUserNotFound):
		h.hasher.VerifyNothing(cmd.Password)
		return nil, shared.ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("login_user: %w", err)
	}

	if !h.hasher.Verify(u.PasswordHash, cmd.Password) {
		h.log.Debug("password mismatch", logger.UserID(u.ID.String()))
		return nil, shared.ErrInvalidCredentials
	}

	profile, err := h.profiles.GetByUserID(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("login_user: %w", err)
	}
	record, err := h.records.GetOrCreate(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("login_user: %w", err)
	}

	token, err := h.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, fmt.Errorf("login_user: %w", err)
	}

	h.log.Info("user logged in", logger.UserID(u.ID.String()))
	return &LoginUserResult{Token: token, User: u, Profile: profile, Progress: record}, nil
}

// LogoutUserCommand identifies the token to revoke.
type LogoutUserCommand struct {
	UserID    shared.UserID
	TokenID   string
	ExpiresAt time.Time
}

// LogoutUserHandler handles LogoutUserCommand.
type LogoutUserHandler struct {
	revoker TokenRevoker
	log     *logger.Logger
}

// NewLogoutUserHandler creates a new LogoutUserHandler.
func NewLogoutUserHandler(revoker TokenRevoker, log *logger.Logger) *LogoutUserHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LogoutUserHandler{revoker: revoker, log: log.With(logger.Component("logout_user"))}
}

// Handle revokes the token until it would have expired anyway.
func (h *LogoutUserHandler) Handle(ctx context.Context, cmd LogoutUserCommand) error {
	if cmd.TokenID == "" {
		return shared.NewDomainError("user", "Logout", shared.ErrEmptyValue, "token id is required")
	}
	if err := h.revoker.Revoke(ctx, cmd.TokenID, cmd.ExpiresAt); err != nil {
		return fmt.Errorf("logout_user: %w", err)
	}
	h.log.Info("user logged out", logger.UserID(cmd.UserID.String()))
	return nil
}
