package user

import (
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// Profile holds the gamification state of a user.
type Profile struct {
	// UserID - owner of the profile (one profile per user).
	UserID shared.UserID

	// TotalXP - accumulated experience points.
	TotalXP shared.XP

	// Level - derived from TotalXP by AddXP.
	Level shared.Level

	// CurrentStreak - consecutive UTC days with at least one completion.
	CurrentStreak int

	// BestStreak - longest streak ever reached.
	BestStreak int

	// LastActivityDate - day of the last completion, zero if none.
	LastActivityDate time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProfile returns the default profile created at registration.
func NewProfile(userID shared.UserID, now time.Time) *Profile {
	now = now.UTC()
	return &Profile{
		UserID:    userID,
		TotalXP:   0,
		Level:     shared.MinLevel,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// XPResult describes the outcome of one AddXP call.
type XPResult struct {
	Gained    int
	TotalXP   shared.XP
	OldLevel  shared.Level
	NewLevel  shared.Level
	LeveledUp bool
}

// AddXP adds amount to the total and recomputes the level.
// Negative amounts are ignored; the total never decreases through this path.
func (p *Profile) AddXP(amount int, now time.Time) XPResult {
	if amount < 0 {
		amount = 0
	}

	old := p.Level
	if !old.IsValid() {
		old = p.TotalXP.Level()
	}

	p.TotalXP = p.TotalXP.Add(amount)
	p.Level = p.TotalXP.Level()
	p.UpdatedAt = now.UTC()

	return XPResult{
		Gained:    amount,
		TotalXP:   p.TotalXP,
		OldLevel:  old,
		NewLevel:  p.Level,
		LeveledUp: p.Level > old,
	}
}

// RecordActivity advances the daily streak.
func (p *Profile) RecordActivity(at time.Time) {
	day := timeutil.StartOfDay(at)

	if p.LastActivityDate.IsZero() {
		p.CurrentStreak = 1
		if p.BestStreak < 1 {
			p.BestStreak = 1
		}
		p.LastActivityDate = day
		p.UpdatedAt = at.UTC()
		return
	}

	switch diff := timeutil.DaysBetween(p.LastActivityDate, day); {
	case diff <= 0:
		// Same day, or a clock that went backwards.
		return
	case diff == 1:
		p.CurrentStreak++
	default:
		p.CurrentStreak = 1
	}

	if p.CurrentStreak > p.BestStreak {
		p.BestStreak = p.CurrentStreak
	}
	p.LastActivityDate = day
	p.UpdatedAt = at.UTC()
}

// ReadyForCertification reports whether the XP total reached the
// certification-readiness threshold shown on the dashboard.
func (p *Profile) ReadyForCertification() bool {
	return p.TotalXP >= CertificationReadyXP
}

// CertificationReadyXP is the total XP at which a learner is shown as ready
// for certification.
const CertificationReadyXP shared.XP = 500
