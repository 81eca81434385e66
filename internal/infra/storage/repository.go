package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
)

var (
	// ErrNotFound is returned when a row doesn't exist
	ErrNotFound = errors.New("not found")
)

// TripRepository handles saved itineraries
type TripRepository interface {
	// Create inserts a trip, filling ID and CreatedAt when empty
	Create(ctx context.Context, trip *domain.Trip) error

	// Get retrieves a trip owned by userID
	Get(ctx context.Context, userID, id string) (*domain.Trip, error)

	// ListByUser returns the newest trips first
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Trip, error)
}

// EventRepository handles the audit event log
type EventRepository interface {
	// Add appends an event, filling ID and CreatedAt when empty
	Add(ctx context.Context, event *domain.Event) error

	// Latest returns the most recent events, newest first
	Latest(ctx context.Context, limit int) ([]domain.Event, error)

	// DeleteOlderThan removes events created before the cutoff
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// SearchRepository records travel searches
type SearchRepository interface {
	Record(ctx context.Context, rec *domain.SearchRecord) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// PrivacyRepository serves data-subject export and erasure
type PrivacyRepository interface {
	// Export collects every row held for userID
	Export(ctx context.Context, userID string) (*domain.UserExport, error)

	// Delete removes cart items, order items (via orders), orders, trips and
	// recorded offer searches, then anonymises the user row. Counts are per table.
	Delete(ctx context.Context, userID string) (domain.DeleteCounts, error)
}

// Store bundles the repositories of one backend.
type Store interface {
	Trips() TripRepository
	Events() EventRepository
	Searches() SearchRepository
	Privacy() PrivacyRepository
	Ping(ctx context.Context) error
	Close() error
}

// Table names reported in DeleteCounts.
const (
	TableCartItems  = "cart_items"
	TableOrderItems = "order_items"
	TableOrders     = "orders"
	TableTrips      = "trips"
	TableSearches   = "offer_searches"
)

// AnonymisedEmail is written over a deleted user's email.
func AnonymisedEmail(userID string) string {
	return "deleted_" + userID + "@deleted.packup"
}

// AnonymisedName is written over a deleted user's display name.
const AnonymisedName = "deleted_user"
