package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// These tests need a live Redis; set PACKUP_TEST_REDIS_URL to run them.
func testClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("PACKUP_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PACKUP_TEST_REDIS_URL not set")
	}
	c, err := NewClient(Config{URL: url, KeyPrefix: "packup-test-" + uuid.NewString()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConfigEnabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Error("empty config should be disabled")
	}
	if !(Config{URL: "redis://localhost:6379"}).Enabled() {
		t.Error("config with url should be enabled")
	}
}

func TestNewClient_BadURL(t *testing.T) {
	if _, err := NewClient(Config{URL: "::not-a-url"}); err == nil {
		t.Error("expected parse error")
	}
}

func TestRateKey_FixedWindows(t *testing.T) {
	c := &Client{prefix: "p"}
	base := time.UnixMilli(60_000 * 10)

	a := c.rateKey("chat", "u1", time.Minute, base)
	b := c.rateKey("chat", "u1", time.Minute, base.Add(59*time.Second))
	next := c.rateKey("chat", "u1", time.Minute, base.Add(time.Minute))

	if a != b {
		t.Errorf("same window produced different keys: %s vs %s", a, b)
	}
	if a == next {
		t.Errorf("next window reused key %s", a)
	}
	if a != "p:ratelimit:chat:u1:10" {
		t.Errorf("unexpected key %s", a)
	}
}

func TestIncrWindow(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	now := time.Now()

	for i := int64(1); i <= 3; i++ {
		n, left, err := c.IncrWindow(ctx, "chat", "user-1", time.Minute, now)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if n != i {
			t.Errorf("count = %d, want %d", n, i)
		}
		if left <= 0 || left > time.Minute {
			t.Errorf("unexpected remaining %v", left)
		}
	}
}

func TestBytesRoundTrip(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	if _, found, err := c.GetBytes(ctx, "missing"); err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}
	if err := c.SetBytes(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, found, err := c.GetBytes(ctx, "k")
	if err != nil || !found || string(b) != "v" {
		t.Fatalf("unexpected get: %q %v %v", b, found, err)
	}
	_ = c.Delete(ctx, "k")
}
