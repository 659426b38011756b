package redis

import (
	"context"
	"fmt"
	"time"
)

// RevocationList stores revoked token ids in Redis until the token would
// have expired anyway.
type RevocationList struct {
	cache *Cache
	now   func() time.Time
}

// NewRevocationList creates a new RevocationList.
func NewRevocationList(cache *Cache) *RevocationList {
	return &RevocationList{cache: cache, now: time.Now}
}

// Revoke marks jti as revoked until expiresAt. Tokens that already expired
// are not stored.
func (l *RevocationList) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	if _, err := l.cache.SetNX(ctx, RevokedTokenKey(jti), "1", ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti was revoked.
func (l *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ok, err := l.cache.Exists(ctx, RevokedTokenKey(jti))
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return ok, nil
}
