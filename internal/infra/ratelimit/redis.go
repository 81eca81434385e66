package ratelimit

import (
	"context"
	"time"
)

// WindowCounter is the subset of the redis client the limiter needs.
type WindowCounter interface {
	IncrWindow(ctx context.Context, scope, key string, window time.Duration, now time.Time) (int64, time.Duration, error)
}

// Redis is a fixed-window limiter shared across processes.
type Redis struct {
	cfg     Config
	counter WindowCounter
	now     func() time.Time
}

// NewRedis creates a limiter backed by counter.
func NewRedis(counter WindowCounter, cfg Config) *Redis {
	return &Redis{cfg: cfg.normalized(), counter: counter, now: time.Now}
}

// Allow counts one hit for key in the current window.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	n, left, err := r.counter.IncrWindow(ctx, r.cfg.Scope, key, r.cfg.Window, r.now())
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Limit: r.cfg.Limit}
	if n > int64(r.cfg.Limit) {
		d.RetryAfter = left
		return d, nil
	}
	d.Allowed = true
	d.Remaining = r.cfg.Limit - int(n)
	return d, nil
}
