package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/pkg/circuitbreaker"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

// ProgressCache caches progress records by user. Failures are logged and
// reported as misses; a breaker stops calling Redis while it is down.
type ProgressCache struct {
	cache   *Cache
	breaker *circuitbreaker.Breaker
	ttl     time.Duration
	log     *logger.Logger
}

var _ progress.Cache = (*ProgressCache)(nil)

// NewProgressCache creates a new ProgressCache.
func NewProgressCache(cache *Cache, ttl time.Duration, log *logger.Logger) *ProgressCache {
	if ttl <= 0 {
		ttl = TTLProgressCache
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("progress_cache"))

	breaker := circuitbreaker.ForCache(func(name string, from, to circuitbreaker.State) {
		log.Warn("cache breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()))
	})

	return &ProgressCache{cache: cache, breaker: breaker, ttl: ttl, log: log}
}

type cachedRecord struct {
	// Version orders writes of the same user: UpdatedAt in microseconds.
	Version             int64           `json:"version"`
	UserID              string          `json:"user_id"`
	LessonsCompleted    int             `json:"lessons_completed"`
	TotalScore          float64         `json:"total_score"`
	CompletedLessons    json.RawMessage `json:"completed_lessons"`
	LessonDetails       json.RawMessage `json:"lesson_details"`
	CertificationEarned bool            `json:"certification_earned"`
	CertificationDate   *time.Time      `json:"certification_date,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func toCached(r *progress.Record) (*cachedRecord, error) {
	set, err := progress.EncodeLessonSet(r.CompletedLessons)
	if err != nil {
		return nil, err
	}
	details, err := progress.EncodeLessonDetails(r.Details)
	if err != nil {
		return nil, err
	}
	return &cachedRecord{
		Version:             r.UpdatedAt.UnixMicro(),
		UserID:              r.UserID.String(),
		LessonsCompleted:    r.LessonsCompleted,
		TotalScore:          r.TotalScore,
		CompletedLessons:    set,
		LessonDetails:       details,
		CertificationEarned: r.CertificationEarned,
		CertificationDate:   r.CertificationDate,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}, nil
}

func (c *cachedRecord) toRecord() (*progress.Record, error) {
	set, err := progress.DecodeLessonSet(c.CompletedLessons)
	if err != nil {
		return nil, err
	}
	details, err := progress.DecodeLessonDetails(c.LessonDetails)
	if err != nil {
		return nil, err
	}
	rec := &progress.Record{
		UserID:              shared.UserID(c.UserID),
		LessonsCompleted:    c.LessonsCompleted,
		TotalScore:          c.TotalScore,
		CompletedLessons:    set,
		Details:             details,
		CertificationEarned: c.CertificationEarned,
		CertificationDate:   c.CertificationDate,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
	rec.Reconcile()
	return rec, nil
}

// Get returns the cached record of a user, if any.
func (p *ProgressCache) Get(ctx context.Context, userID shared.UserID) (*progress.Record, bool) {
	var (
		cached cachedRecord
		hit    bool
	)
	err := p.breaker.Do(ctx, func(ctx context.Context) error {
		err := p.cache.Get(ctx, ProgressKey(userID.String()), &cached)
		switch {
		case err == nil:
			hit = true
			return nil
		case errors.Is(err, ErrCacheMiss), errors.Is(err, ErrCacheSerialization):
			// A miss says nothing about Redis health.
			return nil
		default:
			return err
		}
	})
	if err != nil {
		if !circuitbreaker.Rejected(err) {
			p.log.Warn("progress cache read failed", logger.UserID(userID.String()), logger.Err(err))
		}
		return nil, false
	}
	if !hit {
		return nil, false
	}

	rec, err := cached.toRecord()
	if err != nil {
		p.log.Warn("dropping corrupt cached progress", logger.UserID(userID.String()), logger.Err(err))
		p.Invalidate(ctx, userID)
		return nil, false
	}
	return rec, true
}

// Set caches a record unless a newer one of the same user is already cached.
func (p *ProgressCache) Set(ctx context.Context, r *progress.Record) {
	if r == nil {
		return
	}
	cached, err := toCached(r)
	if err != nil {
		p.log.Warn("progress cache encode failed", logger.UserID(r.UserID.String()), logger.Err(err))
		return
	}

	var written bool
	err = p.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		written, err = p.cache.SetIfNewer(ctx, ProgressKey(r.UserID.String()), cached, cached.Version, p.ttl)
		return err
	})
	switch {
	case err != nil && !circuitbreaker.Rejected(err):
		p.log.Warn("progress cache write failed", logger.UserID(r.UserID.String()), logger.Err(err))
	case err == nil && !written:
		p.log.Debug("newer progress already cached", logger.UserID(r.UserID.String()))
	}
}

// Invalidate drops the cached record of a user.
func (p *ProgressCache) Invalidate(ctx context.Context, userID shared.UserID) {
	err := p.breaker.Do(ctx, func(ctx context.Context) error {
		return p.cache.Delete(ctx, ProgressKey(userID.String()))
	})
	if err != nil && !circuitbreaker.Rejected(err) {
		p.log.Warn("progress cache invalidate failed", logger.UserID(userID.String()), logger.Err(err))
	}
}
