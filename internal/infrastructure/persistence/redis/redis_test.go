package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

func TestConfig_URLOverridesAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "redis://:pw@cache.internal:6380/2"

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, cfg.PoolSize, opts.PoolSize)

	cfg.URL = "http://nope"
	_, err = cfg.Options()
	assert.Error(t, err)
}

func TestCachedRecordRoundTrip(t *testing.T) {
	now := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	rec := progress.NewRecord("6ba7b810-9dad-11d1-80b4-00c04fd430c8", now)
	for i, s := range []float64{80, 90, 70, 100} {
		rec.CompleteLesson(progress.LessonID(i+1), shared.Score(s), now)
	}

	cached, err := toCached(rec)
	require.NoError(t, err)
	back, err := cached.toRecord()
	require.NoError(t, err)

	assert.Equal(t, rec.CompletedLessons, back.CompletedLessons)
	assert.Equal(t, rec.Details, back.Details)
	assert.Equal(t, 340.0, back.TotalScore)
	assert.True(t, back.CertificationEarned)
	require.NotNil(t, back.CertificationDate)
	assert.True(t, rec.CertificationDate.Equal(*back.CertificationDate))
}

func TestCachedRecord_CountersFollowLessons(t *testing.T) {
	now := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	rec := progress.NewRecord("6ba7b810-9dad-11d1-80b4-00c04fd430c8", now)
	rec.CompleteLesson(1, 80, now)

	cached, err := toCached(rec)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMicro(), cached.Version)

	cached.LessonsCompleted = 3
	cached.CompletedLessons = []byte(`["x"]`)
	back, err := cached.toRecord()
	require.Error(t, err)
	assert.Nil(t, back)

	cached.CompletedLessons = []byte(`[]`)
	back, err = cached.toRecord()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, back.CompletedLessons.Ints())
	assert.Equal(t, 1, back.LessonsCompleted)
}

// ══════════════════════════════════════════════════════════════════════════════
// INTEGRATION (TEST_REDIS_ADDR)
// ══════════════════════════════════════════════════════════════════════════════

func testCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	cfg := DefaultConfig()
	cfg.Addr = addr
	c, err := NewCache(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestIntegration_ProgressCache(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	pc := NewProgressCache(c, time.Minute, logger.Nop())
	uid := shared.UserID(uuid.NewString())

	_, hit := pc.Get(ctx, uid)
	assert.False(t, hit)

	rec := progress.NewRecord(uid, time.Now())
	rec.CompleteLesson(2, 75, time.Now())
	pc.Set(ctx, rec)

	got, hit := pc.Get(ctx, uid)
	require.True(t, hit)
	assert.Equal(t, []int{2}, got.CompletedLessons.Ints())

	pc.Invalidate(ctx, uid)
	_, hit = pc.Get(ctx, uid)
	assert.False(t, hit)
}

func TestIntegration_ProgressCacheKeepsNewerRecord(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	pc := NewProgressCache(c, time.Minute, logger.Nop())
	uid := shared.UserID(uuid.NewString())
	t.Cleanup(func() { pc.Invalidate(ctx, uid) })

	start := time.Now()
	stale := progress.NewRecord(uid, start)
	stale.CompleteLesson(1, 80, start)

	fresh := progress.NewRecord(uid, start)
	fresh.CompleteLesson(1, 80, start)
	fresh.CompleteLesson(2, 90, start.Add(time.Second))

	pc.Set(ctx, fresh)
	pc.Set(ctx, stale)

	got, hit := pc.Get(ctx, uid)
	require.True(t, hit)
	assert.Equal(t, []int{1, 2}, got.CompletedLessons.Ints())
	assert.Equal(t, 2, got.LessonsCompleted)

	fresh.CompleteLesson(3, 70, start.Add(2*time.Second))
	pc.Set(ctx, fresh)
	got, hit = pc.Get(ctx, uid)
	require.True(t, hit)
	assert.Equal(t, []int{1, 2, 3}, got.CompletedLessons.Ints())
}

func TestIntegration_SetIfNewer(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { _ = c.Delete(ctx, key) })

	type doc struct {
		Version int64  `json:"version"`
		Value   string `json:"value"`
	}

	written, err := c.SetIfNewer(ctx, key, doc{Version: 5, Value: "five"}, 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = c.SetIfNewer(ctx, key, doc{Version: 4, Value: "four"}, 4, time.Minute)
	require.NoError(t, err)
	assert.False(t, written)

	var got doc
	require.NoError(t, c.Get(ctx, key, &got))
	assert.Equal(t, "five", got.Value)

	written, err = c.SetIfNewer(ctx, key, doc{Version: 5, Value: "again"}, 5, 0)
	require.NoError(t, err)
	assert.True(t, written)

	_, err = c.SetIfNewer(ctx, "", doc{}, 1, time.Minute)
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)
	_, err = c.SetIfNewer(ctx, key, doc{}, 1, -time.Second)
	assert.ErrorIs(t, err, ErrCacheInvalidTTL)
}

func TestIntegration_RevocationList(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	list := NewRevocationList(c)
	jti := uuid.NewString()

	revoked, err := list.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, jti, time.Now().Add(time.Minute)))
	revoked, err = list.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	expired := uuid.NewString()
	require.NoError(t, list.Revoke(ctx, expired, time.Now().Add(-time.Minute)))
	revoked, err = list.IsRevoked(ctx, expired)
	require.NoError(t, err)
	assert.False(t, revoked)
}
