// Package cache keeps recent travel search results keyed by
// SearchRequest.Key.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/vietddude/packup/internal/core/domain"
)

// OfferCache stores offer sets by search key. Get reports found=false on a
// miss; implementations never return stale entries past their TTL.
type OfferCache interface {
	Get(ctx context.Context, key string) (*domain.OfferSet, bool, error)
	Set(ctx context.Context, key string, set *domain.OfferSet) error
}

// Memory is an in-process cache.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a memory cache; expired items are purged every ttl.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Memory{c: gocache.New(ttl, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) (*domain.OfferSet, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	set := v.(domain.OfferSet)
	set.Offers = append([]domain.Offer(nil), set.Offers...)
	return &set, true, nil
}

func (m *Memory) Set(_ context.Context, key string, set *domain.OfferSet) error {
	cp := *set
	cp.Offers = append([]domain.Offer(nil), set.Offers...)
	m.c.SetDefault(key, cp)
	return nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (*domain.OfferSet, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, *domain.OfferSet) error         { return nil }
