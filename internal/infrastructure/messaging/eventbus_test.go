package messaging

import (
	"bytes"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSyncBus_DeliversToTypedAndGlobalHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	var typed, global []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventLessonCompleted, func(e shared.Event) error {
		typed = append(typed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		global = append(global, e.EventType())
		return nil
	}))

	uid := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	require.NoError(t, bus.Publish(shared.NewLessonCompletedEvent(uid, 1, 80, true, 1)))
	require.NoError(t, bus.Publish(shared.NewXPAwardedEvent(uid, 10, 10, "lesson")))

	assert.Equal(t, []shared.EventType{shared.EventLessonCompleted}, typed)
	assert.Equal(t, []shared.EventType{shared.EventLessonCompleted, shared.EventXPAwarded}, global)
}

func TestSyncBus_HandlerFailuresAreContained(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultInMemoryEventBusConfig()
	cfg.Logger = logger.New(logger.Options{Output: &buf, Level: logger.LevelInfo, Format: "json"})
	bus := NewInMemoryEventBus(cfg)
	defer bus.Close()

	reached := false
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("nope") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { reached = true; return nil }))

	err := bus.Publish(shared.NewLevelUpEvent("u", 1, 2, 100))
	assert.NoError(t, err)
	assert.True(t, reached)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(3), snap.TotalHandlerExecs)
	assert.Equal(t, int64(2), snap.HandlerFailures)

	out := buf.String()
	assert.Contains(t, out, "handler error")
	assert.Contains(t, out, `"payload":{`)
	assert.Contains(t, out, `"new_level":2`)
	assert.NotContains(t, out, "event published")
}

func TestAsyncBus_CloseWaitsForHandlers(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = true
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)

	var done int32
	require.NoError(t, bus.Subscribe(shared.EventCertificationEarned, func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&done, 1)
		return nil
	}))

	for i := 0; i < 2; i++ {
		require.NoError(t, bus.Publish(shared.NewCertificationEarnedEvent("u", time.Now(), 4, 340)))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, int32(2), atomic.LoadInt32(&done))
	assert.ErrorIs(t, bus.Publish(shared.NewLevelUpEvent("u", 1, 2, 100)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { return nil }), ErrEventBusClosed)
}
