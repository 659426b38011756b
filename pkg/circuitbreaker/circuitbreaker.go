// Package circuitbreaker stops calling a dependency that keeps failing.
// literacy-hub wraps Redis cache calls with it: when the cache is down the
// breaker opens and reads go straight to PostgreSQL without waiting on
// Redis timeouts.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of a breaker.
type State int

const (
	// Closed lets every call through.
	Closed State = iota
	// Open rejects every call until the cooldown has passed.
	Open
	// HalfOpen lets a single probe through.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

var (
	// ErrOpen is returned for calls rejected while the breaker is open.
	ErrOpen = errors.New("circuit breaker is open")
	// ErrProbeInFlight is returned for calls rejected while a half-open probe runs.
	ErrProbeInFlight = errors.New("circuit breaker probe in flight")
)

// Rejected reports errors produced by the breaker itself, without the
// dependency being called.
func Rejected(err error) bool {
	return errors.Is(err, ErrOpen) || errors.Is(err, ErrProbeInFlight)
}

// Settings configure a breaker.
type Settings struct {
	Name string

	// Trip is the number of consecutive failures that opens the breaker.
	Trip int

	// Cooldown is how long an open breaker rejects calls before it probes.
	Cooldown time.Duration

	// IsFailure decides which errors count against the dependency. Nil
	// counts every error.
	IsFailure func(error) bool

	// OnStateChange is called with the breaker lock held; keep it short.
	OnStateChange func(name string, from, to State)

	// Now defaults to time.Now.
	Now func() time.Time
}

// Breaker is safe for concurrent use.
type Breaker struct {
	s Settings

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New creates a closed breaker.
func New(s Settings) *Breaker {
	if s.Trip <= 0 {
		s.Trip = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return &Breaker{s: s}
}

// ForCache returns the breaker used around Redis. Cancellation by the
// caller is not held against Redis.
func ForCache(onStateChange func(name string, from, to State)) *Breaker {
	return New(Settings{
		Name:     "redis-cache",
		Trip:     3,
		Cooldown: 15 * time.Second,
		IsFailure: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
		OnStateChange: onStateChange,
	})
}

// Do runs fn unless the breaker rejects the call.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}
	err = fn(ctx)
	b.record(probe, err)
	return err
}

func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.s.Now().Sub(b.openedAt) < b.s.Cooldown {
			return false, ErrOpen
		}
		b.transition(HalfOpen)
		b.probing = true
		return true, nil
	case HalfOpen:
		if b.probing {
			return false, ErrProbeInFlight
		}
		b.probing = true
		return true, nil
	}
	return false, nil
}

func (b *Breaker) record(probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing = false
	}

	failed := err != nil && (b.s.IsFailure == nil || b.s.IsFailure(err))
	if !failed {
		b.failures = 0
		if b.state == HalfOpen {
			b.transition(Closed)
		}
		return
	}

	b.failures++
	if b.state == HalfOpen || b.failures >= b.s.Trip {
		b.openedAt = b.s.Now()
		b.transition(Open)
	}
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.failures = 0
	if b.s.OnStateChange != nil {
		b.s.OnStateChange(b.s.Name, from, to)
	}
}

// State returns the current state without advancing an expired cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name of the breaker.
func (b *Breaker) Name() string { return b.s.Name }
