package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vietddude/packup/internal/core/domain"
)

// ByteStore is the subset of the redis client the cache needs.
type ByteStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Redis stores msgpack-encoded offer sets in a shared store.
type Redis struct {
	store ByteStore
	ttl   time.Duration
}

// NewRedis creates a cache over store.
func NewRedis(store ByteStore, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Redis{store: store, ttl: ttl}
}

func offerKey(key string) string { return "offers:" + key }

func (r *Redis) Get(ctx context.Context, key string) (*domain.OfferSet, bool, error) {
	b, found, err := r.store.GetBytes(ctx, offerKey(key))
	if err != nil || !found {
		return nil, false, err
	}
	var set domain.OfferSet
	if err := msgpack.Unmarshal(b, &set); err != nil {
		return nil, false, fmt.Errorf("decode cached offers: %w", err)
	}
	return &set, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, set *domain.OfferSet) error {
	b, err := msgpack.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode offers: %w", err)
	}
	return r.store.SetBytes(ctx, offerKey(key), b, r.ttl)
}
