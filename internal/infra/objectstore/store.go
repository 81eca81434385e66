// Package objectstore abstracts the bucket persisted assets are written to.
//
// Implementations:
//   - Supabase: Supabase Storage REST API
//   - S3: any S3-compatible bucket via aws-sdk-go-v2
//   - Memory: in-process map for tests and local runs
package objectstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrExists is returned by Put when the key is already taken.
	ErrExists = errors.New("object already exists")
	// ErrNotFound is returned when a key has no object.
	ErrNotFound = errors.New("object not found")
)

// Store is a write-once object bucket.
type Store interface {
	// Put uploads data under key. It never overwrites: an existing key
	// yields ErrExists.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// PublicURL returns the unauthenticated URL for key.
	PublicURL(key string) string

	// SignedURL returns a time-bounded URL for key.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Public reports whether the bucket serves objects without signing.
	Public() bool
}
