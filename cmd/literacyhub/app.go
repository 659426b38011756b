package main

import (
	"context"
	"fmt"

	"github.com/ai-literacy/literacy-hub/config"
	"github.com/ai-literacy/literacy-hub/internal/application/command"
	"github.com/ai-literacy/literacy-hub/internal/application/eventhandler"
	"github.com/ai-literacy/literacy-hub/internal/application/query"
	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/domain/user"
	"github.com/ai-literacy/literacy-hub/internal/infrastructure/messaging"
	"github.com/ai-literacy/literacy-hub/internal/infrastructure/persistence/memory"
	"github.com/ai-literacy/literacy-hub/internal/infrastructure/persistence/postgres"
	"github.com/ai-literacy/literacy-hub/internal/infrastructure/persistence/redis"
	"github.com/ai-literacy/literacy-hub/internal/infrastructure/security"
	"github.com/ai-literacy/literacy-hub/internal/infrastructure/seed"
	httpserver "github.com/ai-literacy/literacy-hub/internal/interface/http"
	"github.com/ai-literacy/literacy-hub/internal/interface/http/handlers"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
	"github.com/ai-literacy/literacy-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE
// ══════════════════════════════════════════════════════════════════════════════

// storage is one backend for every repository.
type storage struct {
	tx        shared.Transactor
	users     user.Repository
	profiles  user.ProfileRepository
	records   progress.Repository
	topics    progress.TopicRepository
	catalog   catalog.Repository
	seeder    catalog.Seeder
	generated catalog.GeneratedLessonRepository

	// pinger is nil for the in-memory backend.
	pinger handlers.Pinger
	close  func()
}

func memoryStorage(clock timeutil.Clock) *storage {
	s := memory.NewStore(clock)
	return &storage{
		tx:        s,
		users:     s.Users(),
		profiles:  s.Profiles(),
		records:   s.Progress(),
		topics:    s.TopicProgress(),
		catalog:   s.Catalog(),
		seeder:    s.Catalog(),
		generated: s.GeneratedLessons(),
		close:     func() {},
	}
}

func postgresStorage(conn *postgres.Connection, log *logger.Logger) *storage {
	cat := postgres.NewCatalogRepository(conn)
	return &storage{
		tx:        conn,
		users:     postgres.NewUserRepository(conn),
		profiles:  postgres.NewProfileRepository(conn),
		records:   postgres.NewProgressRepository(conn, log),
		topics:    postgres.NewTopicProgressRepository(conn),
		catalog:   cat,
		seeder:    cat,
		generated: postgres.NewGeneratedLessonRepository(conn),
		pinger:    conn,
		close:     conn.Close,
	}
}

// openPostgres connects and, when enabled, applies pending migrations.
func openPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*postgres.Connection, error) {
	conn, err := postgres.NewConnection(ctx, cfg.Database.Postgres())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if !cfg.Database.AutoMigrate {
		return conn, nil
	}
	applied, err := postgres.NewMigrator(conn).Migrate(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("migrations applied", logger.Int("count", applied))
	return conn, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION
// ══════════════════════════════════════════════════════════════════════════════

// app is the fully wired service.
type app struct {
	server *httpserver.Server
	bus    *messaging.InMemoryEventBus
	store  *storage
	cache  *redis.Cache
	log    *logger.Logger
}

// Close releases every resource in reverse order of acquisition.
func (a *app) Close() {
	if err := a.bus.Close(); err != nil {
		a.log.Warn("event bus close failed", logger.Err(err))
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("redis close failed", logger.Err(err))
		}
	}
	a.store.close()
}

// buildApp wires configuration into a runnable service. The in-memory store
// is used when no DATABASE_URL is configured (never in production, which
// Validate rejects).
func buildApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	clock := timeutil.SystemClock{}
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// Storage
	// ─────────────────────────────────────────────────────────────────────────
	var store *storage
	if cfg.UsesMemoryStore() {
		log.Warn("DATABASE_URL is not set, using the in-memory store")
		store = memoryStorage(clock)
	} else {
		conn, err := openPostgres(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		store = postgresStorage(conn, log)
		health.AddCheck("database", handlers.NewPingCheck(store.pinger))
	}

	if cfg.Learning.SeedCatalogOnStart {
		s, err := seed.Load(cfg.Learning.CatalogFile)
		if err == nil {
			err = seed.Apply(ctx, store.seeder, s, log)
		}
		if err != nil {
			store.close()
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Redis (optional): progress cache and token revocations
	// ─────────────────────────────────────────────────────────────────────────
	var (
		cache         *redis.Cache
		progressCache progress.Cache
		revocations   security.RevocationList = security.NewMemoryRevocationList(clock)
	)
	if cfg.Redis.Enabled {
		c, err := redis.NewCache(ctx, cfg.Redis.Redis())
		if err != nil {
			log.Warn("redis unavailable, running without cache", logger.Err(err))
		} else {
			cache = c
			revocations = redis.NewRevocationList(cache)
			if cfg.Features.IsEnabled(config.FeatureProgressCache, nil) {
				progressCache = redis.NewProgressCache(cache, cfg.Learning.ProgressCacheTTL, log)
			}
			health.AddOptionalCheck("redis", handlers.NewPingCheck(cache))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Events
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)

	a := &app{bus: bus, store: store, cache: cache, log: log}

	if progressCache != nil {
		if err := eventhandler.NewOnProgressChangedHandler(store.records, progressCache, log).Register(bus); err != nil {
			a.Close()
			return nil, fmt.Errorf("register progress handler: %w", err)
		}
	}
	if err := eventhandler.NewOnMilestoneHandler(log).Register(bus); err != nil {
		a.Close()
		return nil, fmt.Errorf("register milestone handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Application layer
	// ─────────────────────────────────────────────────────────────────────────
	hasher := security.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, clock)
	award := command.NewAwardXPHandler(store.profiles, clock)

	deps := httpserver.Dependencies{
		RegisterUser: command.NewRegisterUserHandler(store.tx, store.users, store.profiles, store.records,
			hasher, bus, clock, log),
		LoginUser:  command.NewLoginUserHandler(store.users, store.profiles, store.records, hasher, tokens, log),
		LogoutUser: command.NewLogoutUserHandler(revocations, log),
		CompleteLesson: command.NewCompleteLessonHandler(store.tx, store.records, award, bus,
			cfg.Features.EnforceLessonOrder, clock, log),
		CompleteTopicLesson: command.NewCompleteTopicLessonHandler(store.tx, store.topics, award, bus, clock, log),
		PrepareLesson: command.NewPrepareLessonHandler(store.catalog, store.topics, store.generated,
			cfg.Learning.DefaultTopic, clock, log),

		GetProgress:  query.NewGetProgressHandler(store.records, progressCache, log),
		GetDashboard: query.NewGetDashboardHandler(store.profiles, store.topics, store.catalog),
		GetUser:      query.NewGetUserHandler(store.users, store.profiles),
		Catalog:      query.NewCatalogHandler(store.catalog),

		Tokens:        tokens,
		Revocations:   revocations,
		Features:      cfg.Features,
		HealthChecker: health,
		Logger:        log,
	}

	a.server = httpserver.NewServer(httpserver.ConfigFrom(cfg), deps)
	return a, nil
}
