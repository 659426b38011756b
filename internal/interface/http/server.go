// Package http implements the REST API of literacy-hub on top of gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ai-literacy/literacy-hub/config"
	"github.com/ai-literacy/literacy-hub/internal/application/command"
	"github.com/ai-literacy/literacy-hub/internal/application/query"
	"github.com/ai-literacy/literacy-hub/internal/interface/http/handlers"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8000).
	Port int

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	WriteTimeout time.Duration

	// IdleTimeout - maximum duration for idle connections.
	IdleTimeout time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// MaxBodyBytes - maximum size of request bodies.
	MaxBodyBytes int64

	// AllowedOrigins - origins allowed to call the API with credentials.
	AllowedOrigins []string

	// Session cookie written on login and read by the authenticator.
	CookieName   string
	CookieSecure bool
	CookieDomain string

	// Version - reported by the health endpoint.
	Version string

	// Debug - run gin in debug mode.
	Debug bool
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8000,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
		MaxBodyBytes:   64 << 10,
		AllowedOrigins: []string{"http://localhost:5173"},
		CookieName:     "literacy_session",
		Version:        "dev",
	}
}

// ConfigFrom builds the server configuration from application settings.
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	c.Host = cfg.HTTP.Host
	c.Port = cfg.HTTP.Port
	c.ReadTimeout = cfg.HTTP.ReadTimeout
	c.WriteTimeout = cfg.HTTP.WriteTimeout
	c.IdleTimeout = cfg.HTTP.IdleTimeout
	c.AllowedOrigins = cfg.HTTP.AllowedOrigins
	c.CookieName = cfg.HTTP.CookieName
	c.CookieSecure = cfg.HTTP.CookieSecure
	c.CookieDomain = cfg.HTTP.CookieDomain
	c.Version = cfg.App.Version
	c.Debug = cfg.App.Debug
	return c
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	RegisterUser        *command.RegisterUserHandler
	LoginUser           *command.LoginUserHandler
	LogoutUser          *command.LogoutUserHandler
	CompleteLesson      *command.CompleteLessonHandler
	CompleteTopicLesson *command.CompleteTopicLessonHandler
	PrepareLesson       *command.PrepareLessonHandler

	// Query Handlers (CQRS Read Side)
	GetProgress  *query.GetProgressHandler
	GetDashboard *query.GetDashboardHandler
	GetUser      *query.GetUserHandler
	Catalog      *query.CatalogHandler

	// Authentication
	Tokens      handlers.TokenParser
	Revocations handlers.RevocationChecker

	// Feature flags; defaults when nil.
	Features *config.FeatureFlags

	// Health Check Dependencies
	HealthChecker handlers.HealthChecker

	// Logger
	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	auth       *handlers.Authenticator
	logger     *logger.Logger

	// Server state
	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(cfg Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.Features == nil {
		deps.Features = config.NewFeatureFlags()
	}
	if deps.HealthChecker == nil {
		deps.HealthChecker = handlers.NewCompositeHealthChecker(cfg.Version)
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config: cfg,
		deps:   deps,
		engine: gin.New(),
		logger: deps.Logger.With(logger.Component("http")),
	}
	s.auth = handlers.NewAuthenticator(deps.Tokens, deps.Revocations, cfg.CookieName, s.logger)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           cfg.Address(),
		Handler:        s.engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes configures middleware and all HTTP routes.
func (s *Server) setupRoutes() {
	r := s.engine
	r.Use(
		handlers.RequestID(s.logger),
		handlers.RequestLogger(s.logger),
		handlers.Recovery(s.logger),
		handlers.CORS(s.config.AllowedOrigins),
		handlers.SecurityHeaders(),
		handlers.BodyLimit(s.config.MaxBodyBytes),
	)
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.CodeNotFound, "route not found")
	})

	// Health checks (no envelope; consumed by orchestrators)
	r.GET("/health", handlers.Health(s.deps.HealthChecker))
	r.GET("/ready", handlers.Ready(s.deps.HealthChecker))
	r.GET("/live", handlers.Live())

	api := r.Group("/api")

	// Public
	api.GET("/status", s.handleStatus)
	api.POST("/register", s.handleRegister)
	api.POST("/login", s.handleLogin)
	api.GET("/topics", s.handleListTopics)
	api.GET("/topics/:slug", s.handleGetTopic)
	api.GET("/lessons", s.handleListLessons)

	// Authenticated
	private := api.Group("", s.auth.RequireAuth(), handlers.NoCache())
	private.POST("/logout", s.handleLogout)
	private.GET("/me", s.handleMe)
	private.GET("/progress", s.handleGetProgress)
	private.POST("/update-progress", s.handleUpdateProgress)
	private.GET("/dashboard", s.handleDashboard)
	private.POST("/topic-progress", s.handleTopicProgress)
	private.POST("/generate-lesson", s.handleGenerateLesson)
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server. Called before Start, it makes
// Start return immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}
