package security

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/domain/user"
	"github.com/ai-literacy/literacy-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCESS TOKENS
// ══════════════════════════════════════════════════════════════════════════════

// Claims are the JWT claims of an access token. Subject is the user id and
// ID (jti) identifies the token for revocation.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  timeutil.Clock
}

// NewTokenManager creates a token manager.
func NewTokenManager(secret, issuer string, ttl time.Duration, clock timeutil.Clock) *TokenManager {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl, clock: clock}
}

// TTL returns the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new token for the user.
func (m *TokenManager) Issue(userID shared.UserID, username shared.Username) (user.AccessToken, error) {
	now := m.clock.Now().UTC()
	expires := now.Add(m.ttl)
	jti := uuid.NewString()

	claims := Claims{
		Username: username.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        jti,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return user.AccessToken{}, fmt.Errorf("failed to sign token: %w", err)
	}

	// NumericDate has second precision.
	return user.AccessToken{Value: signed, ID: jti, ExpiresAt: expires.Truncate(time.Second)}, nil
}

// Parse verifies the signature, issuer and time claims of a token.
// Any failure is reported as shared.ErrInvalidToken.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, shared.WrapError("user", "Authenticate", shared.ErrUnauthorized, "invalid or expired token", err)
	}

	if _, err := shared.NewUserID(claims.Subject); err != nil || claims.ID == "" {
		return nil, shared.ErrInvalidToken
	}
	return claims, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REVOCATION
// ══════════════════════════════════════════════════════════════════════════════

// RevocationList remembers revoked token ids until the tokens expire.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationList is the in-process RevocationList used without Redis.
type MemoryRevocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	clock   timeutil.Clock
}

// NewMemoryRevocationList creates an empty list.
func NewMemoryRevocationList(clock timeutil.Clock) *MemoryRevocationList {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &MemoryRevocationList{revoked: make(map[string]time.Time), clock: clock}
}

// Revoke marks jti as revoked until expiresAt and drops expired entries.
func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return errors.New("security: empty token id")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for id, exp := range l.revoked {
		if !exp.After(now) {
			delete(l.revoked, id)
		}
	}
	if expiresAt.After(now) {
		l.revoked[jti] = expiresAt
	}
	return nil
}

// IsRevoked reports whether jti is revoked and not yet expired.
func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	exp, ok := l.revoked[jti]
	return ok && exp.After(l.clock.Now()), nil
}
