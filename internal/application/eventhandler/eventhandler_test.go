package eventhandler

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/infrastructure/messaging"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

const uid = shared.UserID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

type spyCache struct {
	set         []*progress.Record
	invalidated []shared.UserID
}

func (c *spyCache) Get(context.Context, shared.UserID) (*progress.Record, bool) { return nil, false }
func (c *spyCache) Set(_ context.Context, r *progress.Record)                   { c.set = append(c.set, r) }
func (c *spyCache) Invalidate(_ context.Context, id shared.UserID) {
	c.invalidated = append(c.invalidated, id)
}

type stubRecords struct {
	rec *progress.Record
	err error
}

func (s *stubRecords) Create(context.Context, *progress.Record) error { return nil }
func (s *stubRecords) GetOrCreate(context.Context, shared.UserID) (*progress.Record, error) {
	return s.rec, s.err
}
func (s *stubRecords) Update(context.Context, shared.UserID, func(*progress.Record) error) (*progress.Record, error) {
	return nil, errors.New("not used")
}

func TestOnProgressChanged_CachesCommittedRecord(t *testing.T) {
	bus := messaging.NewInMemoryEventBus(messaging.DefaultInMemoryEventBusConfig())
	defer bus.Close()

	rec := progress.NewRecord(uid, time.Now())
	rec.CompleteLesson(1, 90, time.Now())
	cache := &spyCache{}
	require.NoError(t, NewOnProgressChangedHandler(&stubRecords{rec: rec}, cache, nil).Register(bus))

	require.NoError(t, bus.Publish(shared.NewLessonCompletedEvent(uid.String(), 1, 90, true, 1)))
	require.NoError(t, bus.Publish(shared.NewXPAwardedEvent(uid.String(), 10, 10, "lesson")))
	require.NoError(t, bus.Publish(shared.NewLessonCompletedEvent("not-a-uuid", 1, 90, true, 1)))

	require.Len(t, cache.set, 1)
	assert.Same(t, rec, cache.set[0])
	assert.Empty(t, cache.invalidated)
}

func TestOnProgressChanged_InvalidatesWhenReloadFails(t *testing.T) {
	bus := messaging.NewInMemoryEventBus(messaging.DefaultInMemoryEventBusConfig())
	defer bus.Close()

	cache := &spyCache{}
	records := &stubRecords{err: errors.New("connection reset")}
	require.NoError(t, NewOnProgressChangedHandler(records, cache, nil).Register(bus))

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, bus.Publish(shared.NewCertificationEarnedEvent(uid.String(), at, 4, 340)))

	assert.Empty(t, cache.set)
	assert.Equal(t, []shared.UserID{uid}, cache.invalidated)
}

func TestOnMilestone_LogsCertification(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Output: &buf, Level: logger.LevelInfo, Format: "json"})

	bus := messaging.NewInMemoryEventBus(messaging.DefaultInMemoryEventBusConfig())
	defer bus.Close()
	require.NoError(t, NewOnMilestoneHandler(log).Register(bus))

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, bus.Publish(shared.NewCertificationEarnedEvent(uid.String(), at, 4, 340)))
	require.NoError(t, bus.Publish(shared.NewLessonCompletedEvent(uid.String(), 1, 90, true, 1)))

	out := buf.String()
	assert.Contains(t, out, "certification earned")
	assert.Contains(t, out, uid.String())
	assert.NotContains(t, out, "lesson_id")
}
