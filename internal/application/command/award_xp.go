package command

import (
	"context"
	"fmt"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/domain/user"
	"github.com/ai-literacy/literacy-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD XP COMMAND
// Cross-entity step of both progress updates: adds XP to the profile and
// advances the daily streak. It joins the caller's transaction through ctx
// and returns its events instead of publishing them, so nothing is
// announced before the caller commits.
// ══════════════════════════════════════════════════════════════════════════════

// XP sources.
const (
	XPSourceLesson = "lesson"
	XPSourceTopic  = "topic"
)

// AwardXPCommand adds XP to one user.
type AwardXPCommand struct {
	UserID shared.UserID
	Amount int
	Source string

	// At is the activity time used for the streak. Zero means now.
	At time.Time
}

// Validate validates the command.
func (c AwardXPCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.NewDomainError("user", "AwardXP", shared.ErrInvalidID, "user id is invalid")
	}
	if c.Amount < 0 {
		return shared.NewDomainError("user", "AwardXP", shared.ErrValueOutOfRange, "xp amount cannot be negative")
	}
	return nil
}

// AwardXPResult contains the outcome of an award.
type AwardXPResult struct {
	user.XPResult

	CurrentStreak int
	Profile       *user.Profile

	// Events to publish once the surrounding transaction commits.
	Events []shared.Event
}

// AwardXPHandler handles AwardXPCommand.
type AwardXPHandler struct {
	profiles user.ProfileRepository
	clock    timeutil.Clock
}

// NewAwardXPHandler creates a new AwardXPHandler.
func NewAwardXPHandler(profiles user.ProfileRepository, clock timeutil.Clock) *AwardXPHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &AwardXPHandler{profiles: profiles, clock: clock}
}

// Handle locks the profile, applies the award and persists it.
func (h *AwardXPHandler) Handle(ctx context.Context, cmd AwardXPCommand) (*AwardXPResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	at := cmd.At
	if at.IsZero() {
		at = h.clock.Now()
	}

	var xp user.XPResult
	profile, err := h.profiles.Update(ctx, cmd.UserID, func(p *user.Profile) error {
		xp = p.AddXP(cmd.Amount, at)
		p.RecordActivity(at)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("award_xp: %w", err)
	}

	uid := cmd.UserID.String()
	events := []shared.Event{
		shared.NewXPAwardedEvent(uid, xp.Gained, xp.TotalXP.Int(), cmd.Source),
	}
	if xp.LeveledUp {
		events = append(events, shared.NewLevelUpEvent(uid, xp.OldLevel.Int(), xp.NewLevel.Int(), xp.TotalXP.Int()))
	}

	return &AwardXPResult{
		XPResult:      xp,
		CurrentStreak: profile.CurrentStreak,
		Profile:       profile,
		Events:        events,
	}, nil
}
