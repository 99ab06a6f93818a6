package ratelimit

import (
	"context"
	"time"
)

// RateLimitConfig caps requests per sliding window. Zero disables a window.
type RateLimitConfig struct {
	RequestsPerMinute int
	RequestsPerHour   int
}

func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerMinute > 0 || c.RequestsPerHour > 0
}

// Decision reports whether a request may proceed. RetryAfter is set only
// when it may not.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, config RateLimitConfig) (Decision, error)
	Reset(ctx context.Context, key string) error
}
