// Package ratelimit implements fixed-window request counters keyed by client.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultLimit  = 60
	DefaultWindow = time.Minute
)

// Result is the outcome of counting one request
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Store counts requests per key within a fixed window
type Store interface {
	Take(ctx context.Context, key string) (Result, error)
	Limit() int
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
