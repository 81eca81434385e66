package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory is a per-process token bucket limiter. Each key refills at
// Limit/Window with a burst of Limit. Idle keys are evicted by Run.
type Memory struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemory creates an in-process limiter.
func NewMemory(cfg Config) *Memory {
	return &Memory{
		cfg:     cfg.normalized(),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow takes one token for key.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	b, ok := m.buckets[key]
	if !ok {
		every := m.cfg.Window / time.Duration(m.cfg.Limit)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), m.cfg.Limit)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	m.mu.Unlock()

	d := Decision{Limit: m.cfg.Limit}
	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		d.RetryAfter = delay
		return d, nil
	}
	d.Allowed = true
	d.Remaining = int(math.Floor(b.limiter.TokensAt(now)))
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d, nil
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// Sweep drops keys idle for longer than IdleTTL and returns how many went.
func (m *Memory) Sweep() int {
	cutoff := m.now().Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, k)
			n++
		}
	}
	return n
}

// Run sweeps idle keys every IdleTTL/2 until ctx is done.
func (m *Memory) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.IdleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("rate limiter evicted idle keys", "scope", m.cfg.Scope, "count", n)
			}
		}
	}
}
