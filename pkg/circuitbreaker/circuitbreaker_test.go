package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errRedisDown = errors.New("dial tcp: connection refused")

func failing(context.Context) error { return errRedisDown }
func ok(context.Context) error      { return nil }

func TestBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var transitions []string

	b := New(Settings{
		Name:     "test",
		Trip:     2,
		Cooldown: 10 * time.Second,
		Now:      func() time.Time { return now },
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	assert.ErrorIs(t, b.Do(ctx, failing), errRedisDown)
	assert.ErrorIs(t, b.Do(ctx, failing), errRedisDown)
	assert.Equal(t, Open, b.State())

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.True(t, Rejected(err))
	assert.False(t, called)

	now = now.Add(11 * time.Second)
	assert.NoError(t, b.Do(ctx, ok))
	assert.Equal(t, Closed, b.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New(Settings{Trip: 1, Cooldown: time.Second, Now: func() time.Time { return now }})
	ctx := context.Background()

	_ = b.Do(ctx, failing)
	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, b.Do(ctx, failing), errRedisDown)
	assert.Equal(t, Open, b.State())
	assert.ErrorIs(t, b.Do(ctx, ok), ErrOpen)
}

func TestBreaker_SingleProbe(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New(Settings{Trip: 1, Cooldown: time.Second, Now: func() time.Time { return now }})
	ctx := context.Background()

	_ = b.Do(ctx, failing)
	now = now.Add(2 * time.Second)

	err := b.Do(ctx, func(ctx context.Context) error {
		assert.ErrorIs(t, b.Do(ctx, ok), ErrProbeInFlight)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, Closed, b.State())
}

func TestForCache_IgnoresCancellation(t *testing.T) {
	b := ForCache(nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_ = b.Do(ctx, func(context.Context) error { return context.Canceled })
	}
	assert.Equal(t, Closed, b.State())

	for i := 0; i < 3; i++ {
		_ = b.Do(ctx, failing)
	}
	assert.Equal(t, Open, b.State())
}
