package ratelimit

import (
	"context"
	"time"
)

// WindowCounter increments a key that expires after window and reports the
// time left on it. *cache.RedisCache implements it.
type WindowCounter interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisStore shares counters across API instances. Keys expire with their window,
// so no sweep is needed.
type RedisStore struct {
	counter WindowCounter
	limit   int
	window  time.Duration
	prefix  string
	now     func() time.Time
}

func NewRedisStore(counter WindowCounter, limit int, window time.Duration) *RedisStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisStore{
		counter: counter,
		limit:   limit,
		window:  window,
		prefix:  "ratelimit:",
		now:     time.Now,
	}
}

func (s *RedisStore) Limit() int {
	return s.limit
}

func (s *RedisStore) Take(ctx context.Context, key string) (Result, error) {
	count, ttl, err := s.counter.IncrementWindow(ctx, s.prefix+key, s.window)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Allowed:   count <= int64(s.limit),
		Limit:     s.limit,
		Remaining: remaining(s.limit, int(count)),
		ResetAt:   s.now().Add(ttl),
	}, nil
}
