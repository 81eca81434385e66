package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis operations used by the rate limiter and the offer
// cache.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Config holds Redis connection configuration. An empty URL disables Redis.
type Config struct {
	URL       string `yaml:"url"`
	Password  string `yaml:"password"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Enabled reports whether a Redis URL is configured.
func (c Config) Enabled() bool { return c.URL != "" }

// NewClient creates a new Redis client and checks the connection.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "packup"
	}
	return &Client{rdb: rdb, prefix: prefix}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key helpers
func (c *Client) rateKey(scope, key string, window time.Duration, now time.Time) string {
	slot := now.UnixMilli() / window.Milliseconds()
	return fmt.Sprintf("%s:ratelimit:%s:%s:%d", c.prefix, scope, key, slot)
}

func (c *Client) cacheKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// IncrWindow counts one hit for key in the fixed window containing now and
// returns the running count and the time left in the window.
func (c *Client) IncrWindow(
	ctx context.Context,
	scope, key string,
	window time.Duration,
	now time.Time,
) (int64, time.Duration, error) {
	if window < time.Millisecond {
		return 0, 0, fmt.Errorf("window too small: %v", window)
	}
	k := c.rateKey(scope, key, window, now)

	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("incr window failed: %w", err)
	}

	elapsed := time.Duration(now.UnixMilli()%window.Milliseconds()) * time.Millisecond
	return incr.Val(), window - elapsed, nil
}

// GetBytes returns the cached value for key. found is false on a miss.
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, c.cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get failed: %w", err)
	}
	return b, true, nil
}

// SetBytes stores value under key for ttl.
func (c *Client) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.cacheKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// Delete removes a cached value.
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.cacheKey(key)).Err()
}
