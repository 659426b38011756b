// Package user contains the identity side of the learning platform.
//
// The package defines:
//
//   - Entities: User (credentials and contact data) and Profile (XP, level, streaks)
//   - Repository interfaces implemented in infrastructure/persistence
//
// # Profile as the XP owner
//
// Progress rules never touch XP fields directly. They issue an "award XP"
// command that lands in Profile.AddXP, which is the single place where the
// total and the level change:
//
//	profile := NewProfile(userID, now)
//	res := profile.AddXP(shared.XPForScore(score), now)
//	if res.LeveledUp {
//	    // publish LevelUpEvent
//	}
//
// Levels follow shared.XP.Level: level 1 at 0 XP, and going from level L
// to L+1 costs 100*L XP.
package user
