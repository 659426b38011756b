package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/domain/user"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
	"github.com/ai-literacy/literacy-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// Creates the user, the default profile and the empty progress record in a
// single transaction. Either all three exist afterwards or none does.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand contains the registration form.
type RegisterUserCommand struct {
	Username  string
	Password  string
	Email     string
	FirstName string
}

// Validate checks the credentials before any hashing work is done.
func (c RegisterUserCommand) Validate() error {
	if _, err := shared.NewUsername(c.Username); err != nil {
		return err
	}
	return shared.ValidatePassword(c.Password)
}

// RegisterUserResult contains the identity of the new user.
type RegisterUserResult struct {
	UserID   shared.UserID
	Username shared.Username
}

// RegisterUserHandler handles RegisterUserCommand.
type RegisterUserHandler struct {
	tx       shared.Transactor
	users    user.Repository
	profiles user.ProfileRepository
	records  progress.Repository
	hasher   PasswordHasher
	events   shared.EventPublisher
	clock    timeutil.Clock
	log      *logger.Logger
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(
	tx shared.Transactor,
	users user.Repository,
	profiles user.ProfileRepository,
	records progress.Repository,
	hasher PasswordHasher,
	events shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
) *RegisterUserHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RegisterUserHandler{
		tx:       tx,
		users:    users,
		profiles: profiles,
		records:  records,
		hasher:   hasher,
		events:   events,
		clock:    clock,
		log:      log.With(logger.Component("register_user")),
	}
}

// Handle registers the user.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	now := h.clock.Now()
	u, err := user.NewUser(user.NewUserParams{
		ID:           uuid.NewString(),
		Username:     cmd.Username,
		Email:        cmd.Email,
		FirstName:    cmd.FirstName,
		PasswordHash: hash,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}

	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := h.users.Create(ctx, u); err != nil {
			return err
		}
		if err := h.profiles.Create(ctx, user.NewProfile(u.ID, now)); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		if err := h.records.Create(ctx, progress.NewRecord(u.ID, now)); err != nil {
			return fmt.Errorf("create progress record: %w", err)
		}
		return nil
	})
	if err != nil {
		if shared.IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("register_user: %w", err)
	}

	h.log.Info("user registered", logger.UserID(u.ID.String()), logger.Username(u.Username.String()))
	publishAll(h.events, []shared.Event{
		shared.NewUserRegisteredEvent(u.ID.String(), u.Username.String(), u.Email),
	})

	return &RegisterUserResult{UserID: u.ID, Username: u.Username}, nil
}
