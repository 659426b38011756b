package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/infrastructure/security"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

// Context keys set by the middleware.
const (
	ContextKeyRequestID = "request_id"
	ContextKeyPrincipal = "principal"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST ID MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RequestID accepts a well-formed incoming X-Request-ID or generates one, and
// puts a request-scoped logger into the request context.
func RequestID(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)

		ctx := logger.WithContext(c.Request.Context(), log.WithRequestID(id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestIDFrom returns the id assigned by RequestID.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGGING MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RequestLogger logs one line per request once the handlers have run.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.Int("status", status),
			logger.Latency(time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
			logger.String("request_id", RequestIDFrom(c)),
		}
		if p, ok := CurrentPrincipal(c); ok {
			fields = append(fields, logger.UserID(p.UserID.String()))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Recovery turns a handler panic into a 500 envelope.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			logger.Any("panic", recovered),
			logger.String("path", c.Request.URL.Path),
			logger.String("request_id", RequestIDFrom(c)),
		)
		Fail(c, http.StatusInternalServerError, CodeInternal, http.StatusText(http.StatusInternalServerError))
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// CORS MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// CORS allows the browser front-end to call the API with credentials.
func CORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", HeaderRequestID},
		ExposeHeaders:    []string{HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SECURITY HEADERS MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// SecurityHeaders adds security-related headers.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}

// NoCache prevents caching of per-user responses.
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST SIZE LIMIT MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// BodyLimit limits the size of request bodies.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			Fail(c, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// TokenParser verifies access tokens.
type TokenParser interface {
	Parse(token string) (*security.Claims, error)
}

// RevocationChecker reports revoked token ids.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    shared.UserID
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

// Authenticator resolves the caller from a bearer token or the session cookie.
type Authenticator struct {
	tokens     TokenParser
	revoked    RevocationChecker
	cookieName string
	log        *logger.Logger
}

// NewAuthenticator creates a new Authenticator. A nil revocation checker
// accepts every validly signed token.
func NewAuthenticator(tokens TokenParser, revoked RevocationChecker, cookieName string, log *logger.Logger) *Authenticator {
	if log == nil {
		log = logger.Nop()
	}
	return &Authenticator{
		tokens:     tokens,
		revoked:    revoked,
		cookieName: cookieName,
		log:        log.With(logger.Component("auth")),
	}
}

// RequireAuth rejects requests without a valid, unrevoked token.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := a.extractToken(c)
		if raw == "" {
			Fail(c, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
			return
		}

		claims, err := a.tokens.Parse(raw)
		if err != nil {
			Fail(c, http.StatusUnauthorized, CodeUnauthorized, PublicMessage(err))
			return
		}

		if a.revoked != nil {
			revoked, err := a.revoked.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				a.log.Error("revocation check failed", logger.Err(err), logger.String("request_id", RequestIDFrom(c)))
				Fail(c, http.StatusServiceUnavailable, CodeUnavailable, "authentication temporarily unavailable")
				return
			}
			if revoked {
				Fail(c, http.StatusUnauthorized, CodeUnauthorized, shared.ErrTokenRevoked.Message)
				return
			}
		}

		p := Principal{
			UserID:   shared.UserID(claims.Subject),
			Username: claims.Username,
			TokenID:  claims.ID,
		}
		if claims.ExpiresAt != nil {
			p.ExpiresAt = claims.ExpiresAt.Time
		}
		c.Set(ContextKeyPrincipal, p)
		c.Next()
	}
}

// extractToken prefers the Authorization header over the session cookie.
func (a *Authenticator) extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if a.cookieName != "" {
		if v, err := c.Cookie(a.cookieName); err == nil {
			return v
		}
	}
	return ""
}

// CurrentPrincipal returns the caller set by RequireAuth.
func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(ContextKeyPrincipal)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
