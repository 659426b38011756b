// Package config loads literacy-hub settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ai-literacy/literacy-hub/internal/infrastructure/persistence/postgres"
	"github.com/ai-literacy/literacy-hub/internal/infrastructure/persistence/redis"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// DefaultJWTSecret is the development signing key. It is rejected in production.
const DefaultJWTSecret = "literacy-hub-development-secret-change-me"

// MinJWTSecretLength is the minimum production signing key size in bytes.
const MinJWTSecretLength = 32

// Config holds all application configuration.
type Config struct {
	// Application
	App AppConfig

	// HTTP server
	HTTP HTTPConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Authentication
	Auth AuthConfig

	// Learning content and progress
	Learning LearningConfig

	// Feature Flags
	Features *FeatureFlags

	// Observability
	Observability ObservabilityConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Debug       bool
	Version     string

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Origins allowed to call the API with credentials.
	AllowedOrigins []string

	// Session cookie set on login.
	CookieName   string
	CookieSecure bool
	CookieDomain string
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL settings.
// An empty URL selects the in-memory store outside production.
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
	TxMaxAttempts   int
	AutoMigrate     bool
}

// Postgres converts the settings into a pool configuration.
func (c DatabaseConfig) Postgres() postgres.Config {
	cfg := postgres.DefaultConfig()
	cfg.URL = c.URL
	cfg.MaxConns = int32(c.MaxConns)
	cfg.MinConns = int32(c.MinConns)
	cfg.MaxConnLifetime = c.MaxConnLifetime
	cfg.MaxConnIdleTime = c.MaxConnIdleTime
	cfg.ConnectTimeout = c.ConnectTimeout
	cfg.TxMaxAttempts = c.TxMaxAttempts
	return cfg
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	Enabled      bool
	URL          string
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Redis converts the settings into a client configuration.
func (c RedisConfig) Redis() redis.Config {
	cfg := redis.DefaultConfig()
	cfg.URL = c.URL
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.Password = c.Password
	cfg.DB = c.DB
	cfg.PoolSize = c.PoolSize
	cfg.MinIdleConns = c.MinIdleConns
	cfg.DialTimeout = c.DialTimeout
	cfg.ReadTimeout = c.ReadTimeout
	cfg.WriteTimeout = c.WriteTimeout
	return cfg
}

// AuthConfig holds token and password hashing settings.
type AuthConfig struct {
	JWTSecret  string
	Issuer     string
	TokenTTL   time.Duration
	BcryptCost int
}

// LearningConfig holds catalog and progress settings.
type LearningConfig struct {
	// Topic used when a lesson request names none.
	DefaultTopic string

	// Seed the embedded catalog at startup.
	SeedCatalogOnStart bool

	// Optional YAML file replacing the embedded catalog.
	CatalogFile string

	// How long a progress record stays in the cache.
	ProgressCacheTTL time.Duration
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // "json" or "console"
}

// LoggerOptions builds pkg/logger options from the settings.
func (c ObservabilityConfig) LoggerOptions() logger.Options {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(c.LogLevel)
	opts.Format = c.LogFormat
	return opts
}

// Load reads configuration from the environment.
// Variables from envFiles (".env" when none are given) are applied first
// without overriding what is already set. A missing file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		App:           loadAppConfig(),
		HTTP:          loadHTTPConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		Learning:      loadLearningConfig(),
		Observability: loadObservabilityConfig(),
	}

	features, err := LoadFeatureFlags()
	if err != nil {
		return nil, fmt.Errorf("failed to load feature flags: %w", err)
	}
	cfg.Features = features

	if cfg.IsDevelopment() && os.Getenv("LOG_FORMAT") == "" {
		cfg.Observability.LogFormat = "console"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadAppConfig() AppConfig {
	return AppConfig{
		Name:            getEnv("APP_NAME", "literacy-hub"),
		Environment:     Environment(getEnv("APP_ENV", string(EnvDevelopment))),
		Debug:           getEnvBool("APP_DEBUG", false),
		Version:         getEnv("APP_VERSION", "dev"),
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

func loadHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Host:         getEnv("HTTP_HOST", "0.0.0.0"),
		Port:         getEnvInt("HTTP_PORT", 8000),
		ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		AllowedOrigins: getEnvStringSlice("HTTP_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		CookieName:   getEnv("HTTP_COOKIE_NAME", "literacy_session"),
		CookieSecure: getEnvBool("HTTP_COOKIE_SECURE", false),
		CookieDomain: getEnv("HTTP_COOKIE_DOMAIN", ""),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("DATABASE_URL", ""),
		MaxConns:        getEnvInt("DATABASE_MAX_CONNS", 10),
		MinConns:        getEnvInt("DATABASE_MIN_CONNS", 1),
		MaxConnLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", time.Hour),
		MaxConnIdleTime: getEnvDuration("DATABASE_CONN_MAX_IDLE_TIME", 30*time.Minute),
		ConnectTimeout:  getEnvDuration("DATABASE_CONNECT_TIMEOUT", 10*time.Second),
		TxMaxAttempts:   getEnvInt("DATABASE_TX_MAX_ATTEMPTS", 3),
		AutoMigrate:     getEnvBool("DATABASE_AUTO_MIGRATE", true),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      getEnvBool("REDIS_ENABLED", false),
		URL:          getEnv("REDIS_URL", ""),
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnvInt("REDIS_PORT", 6379),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvInt("REDIS_DB", 0),
		PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 1),
		DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 3*time.Second),
		ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", time.Second),
		WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", time.Second),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:  getEnv("AUTH_JWT_SECRET", DefaultJWTSecret),
		Issuer:     getEnv("AUTH_ISSUER", "literacy-hub"),
		TokenTTL:   getEnvDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		BcryptCost: getEnvInt("AUTH_BCRYPT_COST", 12),
	}
}

func loadLearningConfig() LearningConfig {
	return LearningConfig{
		DefaultTopic:       getEnv("LEARNING_DEFAULT_TOPIC", "context-is-key"),
		SeedCatalogOnStart: getEnvBool("LEARNING_SEED_CATALOG", true),
		CatalogFile:        getEnv("LEARNING_CATALOG_FILE", ""),
		ProgressCacheTTL:   getEnvDuration("LEARNING_PROGRESS_CACHE_TTL", 5*time.Minute),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errs []string

	switch c.App.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		errs = append(errs, fmt.Sprintf("APP_ENV must be development, staging or production (got %q)", c.App.Environment))
	}

	if c.App.Environment == EnvProduction {
		if c.Database.URL == "" {
			errs = append(errs, "DATABASE_URL is required in production")
		}
		if c.Auth.JWTSecret == DefaultJWTSecret {
			errs = append(errs, "AUTH_JWT_SECRET must be set in production")
		}
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, "AUTH_JWT_SECRET must not be empty")
	} else if c.App.Environment == EnvProduction && len(c.Auth.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Sprintf("AUTH_JWT_SECRET must be at least %d bytes", MinJWTSecretLength))
	}

	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, "AUTH_TOKEN_TTL must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, "AUTH_BCRYPT_COST must be 4-31")
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, "HTTP_PORT must be 1-65535")
	}

	if c.Database.TxMaxAttempts < 1 {
		errs = append(errs, "DATABASE_TX_MAX_ATTEMPTS must be at least 1")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, "DATABASE_MIN_CONNS must not exceed DATABASE_MAX_CONNS")
	}

	if c.Redis.DB < 0 || c.Redis.DB > 15 {
		errs = append(errs, "REDIS_DB must be 0-15")
	}

	if strings.TrimSpace(c.Learning.DefaultTopic) == "" {
		errs = append(errs, "LEARNING_DEFAULT_TOPIC must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// UsesMemoryStore reports whether the process keeps its state in memory.
func (c *Config) UsesMemoryStore() bool {
	return c.Database.URL == ""
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		result = append(result, p)
	}
	return result
}
