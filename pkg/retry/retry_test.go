package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSerialization = errors.New("could not serialize access")

func isSerialization(err error) bool { return errors.Is(err, errSerialization) }

func fast() Policy {
	p := Transactions(isSerialization)
	p.BaseDelay = time.Millisecond
	p.MaxDelay = 2 * time.Millisecond
	p.Jitter = 0
	return p
}

func TestRun_ReplaysTransientFailures(t *testing.T) {
	var retried []int
	p := fast()
	p.OnRetry = func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }

	calls := 0
	err := p.Run(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errSerialization
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRun_GivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := fast().WithAttempts(4).Run(context.Background(), func(ctx context.Context) error {
		calls++
		return errSerialization
	})

	assert.Equal(t, errSerialization, err)
	assert.Equal(t, 4, calls)
}

func TestRun_OtherErrorsRunOnce(t *testing.T) {
	unique := errors.New("duplicate key value")
	calls := 0
	err := fast().Run(context.Background(), func(ctx context.Context) error {
		calls++
		return unique
	})

	assert.Equal(t, unique, err)
	assert.Equal(t, 1, calls)
}

func TestRun_StopEndsTheLoop(t *testing.T) {
	calls := 0
	err := fast().Run(context.Background(), func(ctx context.Context) error {
		calls++
		return Stop(errSerialization)
	})

	assert.Equal(t, errSerialization, err)
	assert.Equal(t, 1, calls)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := fast().Run(ctx, func(ctx context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRunValue(t *testing.T) {
	n := 0
	got, err := RunValue(context.Background(), fast(), func(ctx context.Context) (int, error) {
		n++
		if n == 1 {
			return 0, errSerialization
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestBackoff_DoublesUpToMax(t *testing.T) {
	p := Policy{BaseDelay: 10 * time.Millisecond, MaxDelay: 35 * time.Millisecond}

	assert.Equal(t, 10*time.Millisecond, p.backoff(1))
	assert.Equal(t, 20*time.Millisecond, p.backoff(2))
	assert.Equal(t, 35*time.Millisecond, p.backoff(3))
	assert.Equal(t, 35*time.Millisecond, p.backoff(40))
}
