package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.Equal(t, "0.0.0.0:8000", cfg.HTTP.Addr())
	assert.True(t, cfg.UsesMemoryStore())
	assert.Equal(t, "context-is-key", cfg.Learning.DefaultTopic)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "console", cfg.Observability.LogFormat)
	assert.False(t, cfg.Features.EnforceLessonOrder(shared.UserID("u-1")))

	pg := cfg.Database.Postgres()
	assert.Equal(t, int32(10), pg.MaxConns)
	assert.Equal(t, 3, pg.TxMaxAttempts)

	rc := cfg.Redis.Redis()
	assert.Equal(t, "localhost:6379", rc.Addr)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT=9090\nLEARNING_DEFAULT_TOPIC=ai-ethics\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("HTTP_PORT")
		os.Unsetenv("LEARNING_DEFAULT_TOPIC")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "ai-ethics", cfg.Learning.DefaultTopic)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT=9090\n"), 0o600))
	t.Setenv("HTTP_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTP.Port)
}

func TestLoad_ProductionRequirements(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load(filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "DATABASE_URL is required in production")
	assert.Contains(t, msg, "AUTH_JWT_SECRET must be set in production")

	t.Setenv("DATABASE_URL", "postgres://app@db/literacy")
	t.Setenv("AUTH_JWT_SECRET", "short")
	_, err = Load(filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")

	t.Setenv("AUTH_JWT_SECRET", strings.Repeat("k", MinJWTSecretLength))
	cfg, err := Load(filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.UsesMemoryStore())
	assert.Equal(t, "json", cfg.Observability.LogFormat)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		App:      AppConfig{Environment: "qa"},
		HTTP:     HTTPConfig{Port: 0},
		Database: DatabaseConfig{TxMaxAttempts: 0, MinConns: 5, MaxConns: 1},
		Redis:    RedisConfig{DB: 16},
		Auth:     AuthConfig{JWTSecret: "x", TokenTTL: 0, BcryptCost: 2},
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"APP_ENV", "HTTP_PORT", "DATABASE_TX_MAX_ATTEMPTS", "DATABASE_MIN_CONNS",
		"REDIS_DB", "AUTH_TOKEN_TTL", "AUTH_BCRYPT_COST", "LEARNING_DEFAULT_TOPIC",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestFeatureFlags_EnvOverrides(t *testing.T) {
	t.Setenv("FEATURE_PROGRESS_ENFORCE_LESSON_ORDER", "true")
	t.Setenv("FEATURE_AUTH_SESSION_COOKIE", "false")

	ff, err := LoadFeatureFlags()
	require.NoError(t, err)
	assert.True(t, ff.EnforceLessonOrder(shared.UserID("anyone")))
	assert.False(t, ff.IsEnabled(FeatureSessionCookie, nil))
	assert.True(t, ff.IsEnabled(FeatureProgressCache, nil))
}

func TestFeatureFlags_InvalidEnvValue(t *testing.T) {
	t.Setenv("FEATURE_PROGRESS_CACHE", "150")

	_, err := LoadFeatureFlags()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FEATURE_PROGRESS_CACHE")
}

func TestFeatureFlags_RolloutIsDeterministic(t *testing.T) {
	ff := NewFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureEnforceLessonOrder, 50))

	enabled := 0
	for i := 0; i < 1000; i++ {
		id := shared.UserID(fmt.Sprintf("user-%d", i))
		first := ff.EnforceLessonOrder(id)
		assert.Equal(t, first, ff.EnforceLessonOrder(id))
		if first {
			enabled++
		}
	}
	assert.Greater(t, enabled, 0)
	assert.Less(t, enabled, 1000)

	// Without a user there is no bucket to place the request in.
	assert.False(t, ff.IsEnabled(FeatureEnforceLessonOrder, nil))
}

func TestFeatureFlags_OverridesAndWindow(t *testing.T) {
	ff := NewFeatureFlags()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ff.now = func() time.Time { return now }

	ff.SetUserOverride("u-1", FeatureEnforceLessonOrder, true)
	assert.True(t, ff.IsEnabled(FeatureEnforceLessonOrder, ForUser("u-1")))
	assert.False(t, ff.IsEnabled(FeatureEnforceLessonOrder, ForUser("u-2")))
	ff.ClearUserOverrides("u-1")
	assert.False(t, ff.IsEnabled(FeatureEnforceLessonOrder, ForUser("u-1")))

	assert.True(t, ff.IsEnabled(FeatureEnforceLessonOrder, &FeatureContext{IsAdmin: true}))

	later := now.Add(time.Hour)
	require.NoError(t, ff.SetWindow(FeatureLessonPreparation, &later, nil))
	assert.False(t, ff.IsEnabled(FeatureLessonPreparation, nil))
	require.NoError(t, ff.SetWindow(FeatureLessonPreparation, nil, nil))
	assert.True(t, ff.IsEnabled(FeatureLessonPreparation, nil))

	assert.ErrorIs(t, ff.SetRolloutPercent("missing", 10), ErrFeatureNotFound)
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureLessonPreparation, 101), ErrInvalidRolloutPercent)
	require.NoError(t, ff.DisableFeature(FeatureLessonPreparation))
	assert.False(t, ff.GetAllFeatures()[FeatureLessonPreparation].Enabled)
}
