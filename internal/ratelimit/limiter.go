package ratelimit

import (
	"context"
	"errors"
	"time"
)

var ErrLimited = errors.New("rate limit exceeded")

// Result describes the outcome of a single Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter caps the number of calls per key inside a sliding window.
// A rejected call is not recorded.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type Config struct {
	Limit  int
	Window time.Duration
	Prefix string
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
