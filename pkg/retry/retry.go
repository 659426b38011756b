// Package retry re-runs short operations that failed for a transient reason.
// literacy-hub uses it to replay progress transactions that PostgreSQL
// aborted with a serialization failure or a deadlock.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy describes how often and how patiently an operation is retried.
type Policy struct {
	// Attempts is the total number of runs, the first one included.
	Attempts int

	// BaseDelay is the pause before the second run. Every following pause
	// doubles, up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter spreads each pause by ±Jitter of its length (0..1).
	Jitter float64

	// Transient reports errors worth another run. Nil retries nothing.
	Transient func(error) bool

	// OnRetry is called before each pause.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Transactions is the policy for database transactions: three runs within
// well under a second.
func Transactions(transient func(error) bool) Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: 20 * time.Millisecond,
		MaxDelay:  500 * time.Millisecond,
		Jitter:    0.2,
		Transient: transient,
	}
}

// WithAttempts returns a copy of p with n runs. n < 1 is ignored.
func (p Policy) WithAttempts(n int) Policy {
	if n >= 1 {
		p.Attempts = n
	}
	return p
}

// stop marks an error that must end the loop even if Transient matches it.
type stop struct{ err error }

func (s stop) Error() string { return s.err.Error() }
func (s stop) Unwrap() error { return s.err }

// Stop wraps err so that Run returns it without another attempt.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return stop{err}
}

// Run calls fn until it succeeds, fails permanently, the attempts are used
// up or ctx ends. The last error of fn is returned as is.
func (p Policy) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)

	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}

		var s stop
		if errors.As(err, &s) {
			return s.err
		}
		if attempt >= attempts || p.Transient == nil || !p.Transient(err) {
			return err
		}

		delay := p.backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}

// RunValue is Run for operations that produce a value.
func RunValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Run(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}

// backoff is the pause after the given failed attempt.
func (p Policy) backoff(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if d <= 0 || (p.MaxDelay > 0 && d > p.MaxDelay) {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter * (rand.Float64()*2 - 1)
		d += time.Duration(spread)
	}
	return max(d, 0)
}
