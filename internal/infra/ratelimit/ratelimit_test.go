package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ============================================================================
// Memory limiter
// ============================================================================

func TestMemory_BurstThenReject(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := NewMemory(Config{Scope: "chat", Limit: 3, Window: time.Minute})
	m.now = clock.Now
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := m.Allow(ctx, "user-1")
		if err != nil || !d.Allowed {
			t.Fatalf("request %d rejected: %+v %v", i, d, err)
		}
	}
	d, _ := m.Allow(ctx, "user-1")
	if d.Allowed {
		t.Fatal("4th request should be rejected")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > 20*time.Second {
		t.Errorf("unexpected retry after %v", d.RetryAfter)
	}

	// other identities have their own bucket
	if d, _ := m.Allow(ctx, "user-2"); !d.Allowed {
		t.Error("independent key was throttled")
	}

	// one token refills every window/limit
	clock.Advance(20 * time.Second)
	if d, _ := m.Allow(ctx, "user-1"); !d.Allowed {
		t.Error("expected refill after 20s")
	}
}

func TestMemory_SweepEvictsIdle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := NewMemory(Config{Limit: 5, Window: time.Minute, IdleTTL: time.Minute})
	m.now = clock.Now
	ctx := context.Background()

	_, _ = m.Allow(ctx, "a")
	clock.Advance(45 * time.Second)
	_, _ = m.Allow(ctx, "b")
	clock.Advance(30 * time.Second)

	if n := m.Sweep(); n != 1 {
		t.Errorf("evicted %d, want 1", n)
	}
	if m.Len() != 1 {
		t.Errorf("len = %d, want 1", m.Len())
	}
}

func TestMemory_RunStopsOnCancel(t *testing.T) {
	m := NewMemory(Config{IdleTTL: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// ============================================================================
// Redis limiter
// ============================================================================

type mockCounter struct {
	counts map[string]int64
	err    error
}

func (m *mockCounter) IncrWindow(_ context.Context, scope, key string, window time.Duration, now time.Time) (int64, time.Duration, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	m.counts[scope+key]++
	return m.counts[scope+key], 42 * time.Second, nil
}

func TestRedis_FixedWindow(t *testing.T) {
	counter := &mockCounter{counts: map[string]int64{}}
	r := NewRedis(counter, Config{Scope: "chat", Limit: 2, Window: time.Minute})
	ctx := context.Background()

	d1, _ := r.Allow(ctx, "ip-1")
	d2, _ := r.Allow(ctx, "ip-1")
	d3, _ := r.Allow(ctx, "ip-1")

	if !d1.Allowed || d1.Remaining != 1 || !d2.Allowed || d2.Remaining != 0 {
		t.Errorf("unexpected decisions %+v %+v", d1, d2)
	}
	if d3.Allowed || d3.RetryAfter != 42*time.Second {
		t.Errorf("third request should be rejected with window remainder: %+v", d3)
	}
}

func TestRedis_Error(t *testing.T) {
	r := NewRedis(&mockCounter{err: errors.New("conn refused")}, Config{})
	if _, err := r.Allow(context.Background(), "k"); err == nil {
		t.Error("expected error to propagate")
	}
}
