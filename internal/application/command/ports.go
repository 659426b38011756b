// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// Narrow views of the infrastructure the commands depend on.
// ══════════════════════════════════════════════════════════════════════════════

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool

	// VerifyNothing spends the same time as a failed Verify.
	VerifyNothing(password string)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID shared.UserID, username shared.Username) (user.AccessToken, error)
}

// TokenRevoker invalidates access tokens before they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}

// LessonOrderPolicy reports whether lesson order is enforced for a user.
type LessonOrderPolicy func(userID shared.UserID) bool

// publishAll publishes events in order. Publication failures do not undo
// the committed change, so they are only logged by the bus.
func publishAll(p shared.EventPublisher, events []shared.Event) {
	if p == nil {
		return
	}
	for _, e := range events {
		_ = p.Publish(e)
	}
}
