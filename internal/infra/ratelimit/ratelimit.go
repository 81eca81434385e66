// Package ratelimit throttles callers by identity (user id or client ip).
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// Limiter admits or rejects one request for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Config is shared by the limiter implementations.
type Config struct {
	Scope   string // namespace, e.g. "chat"
	Limit   int    // requests per window
	Window  time.Duration
	IdleTTL time.Duration // memory limiter eviction age
}

func (c Config) normalized() Config {
	if c.Limit <= 0 {
		c.Limit = 30
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 10 * time.Minute
	}
	if c.Scope == "" {
		c.Scope = "default"
	}
	return c
}
