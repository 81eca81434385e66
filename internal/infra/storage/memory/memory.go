package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/storage"
)

// MemoryStorage keeps every table in process. Used when no database URL is
// configured and in tests.
type MemoryStorage struct {
	users      map[string]*domain.User
	trips      []domain.Trip
	events     []domain.Event
	searches   []domain.SearchRecord
	orders     []domain.Order
	orderItems []domain.OrderItem
	cartItems  []domain.CartItem
	mu         sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{users: make(map[string]*domain.User)}
}

func (s *MemoryStorage) Trips() storage.TripRepository      { return &TripRepo{store: s} }
func (s *MemoryStorage) Events() storage.EventRepository    { return &EventRepo{store: s} }
func (s *MemoryStorage) Searches() storage.SearchRepository { return &SearchRepo{store: s} }
func (s *MemoryStorage) Privacy() storage.PrivacyRepository { return &PrivacyRepo{store: s} }
func (s *MemoryStorage) Ping(context.Context) error         { return nil }
func (s *MemoryStorage) Close() error                       { return nil }

// Seed helpers for dev mode and tests.

func (s *MemoryStorage) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

func (s *MemoryStorage) PutOrder(o domain.Order, items ...domain.OrderItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	s.orderItems = append(s.orderItems, items...)
}

func (s *MemoryStorage) PutCartItem(c domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartItems = append(s.cartItems, c)
}

// SearchCount returns how many searches were recorded.
func (s *MemoryStorage) SearchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.searches)
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

// -----------------------------------------------------------------------------
// Trip Repository
// -----------------------------------------------------------------------------

type TripRepo struct {
	store *MemoryStorage
}

func (r *TripRepo) Create(ctx context.Context, trip *domain.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = time.Now().UTC()
	}
	cp := *trip
	cp.Payload = cloneRaw(trip.Payload)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.trips = append(r.store.trips, cp)
	return nil
}

func (r *TripRepo) Get(ctx context.Context, userID, id string) (*domain.Trip, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, t := range r.store.trips {
		if t.ID == id && t.UserID == userID {
			t.Payload = cloneRaw(t.Payload)
			return &t, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *TripRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Trip, error) {
	if limit <= 0 {
		limit = 20
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []domain.Trip
	for _, t := range r.store.trips {
		if t.UserID == userID {
			t.Payload = cloneRaw(t.Payload)
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Event Repository
// -----------------------------------------------------------------------------

type EventRepo struct {
	store *MemoryStorage
}

func (r *EventRepo) Add(ctx context.Context, event *domain.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	cp := *event
	cp.Payload = cloneRaw(event.Payload)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.events = append(r.store.events, cp)
	return nil
}

func (r *EventRepo) Latest(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 5
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]domain.Event, 0, limit)
	for i := len(r.store.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.store.events[i]
		e.Payload = cloneRaw(e.Payload)
		out = append(out, e)
	}
	return out, nil
}

func (r *EventRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.events[:0]
	for _, e := range r.store.events {
		if !e.CreatedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	n := int64(len(r.store.events) - len(kept))
	r.store.events = kept
	return n, nil
}

// -----------------------------------------------------------------------------
// Search Repository
// -----------------------------------------------------------------------------

type SearchRepo struct {
	store *MemoryStorage
}

func (r *SearchRepo) Record(ctx context.Context, rec *domain.SearchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.searches = append(r.store.searches, *rec)
	return nil
}

func (r *SearchRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.searches[:0]
	for _, rec := range r.store.searches {
		if !rec.CreatedAt.Before(before) {
			kept = append(kept, rec)
		}
	}
	n := int64(len(r.store.searches) - len(kept))
	r.store.searches = kept
	return n, nil
}

// -----------------------------------------------------------------------------
// Privacy Repository
// -----------------------------------------------------------------------------

type PrivacyRepo struct {
	store *MemoryStorage
}

func (r *PrivacyRepo) Export(ctx context.Context, userID string) (*domain.UserExport, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := &domain.UserExport{
		Trips:      []domain.Trip{},
		Orders:     []domain.Order{},
		OrderItems: []domain.OrderItem{},
		CartItems:  []domain.CartItem{},
		Searches:   []domain.SearchRecord{},
	}
	if u, ok := r.store.users[userID]; ok {
		cp := *u
		out.User = &cp
	}
	for _, t := range r.store.trips {
		if t.UserID == userID {
			t.Payload = cloneRaw(t.Payload)
			out.Trips = append(out.Trips, t)
		}
	}
	for _, o := range r.store.orders {
		if o.UserID == userID {
			out.Orders = append(out.Orders, o)
		}
	}
	for _, it := range r.store.orderItems {
		if it.UserID == userID {
			it.Payload = cloneRaw(it.Payload)
			out.OrderItems = append(out.OrderItems, it)
		}
	}
	for _, c := range r.store.cartItems {
		if c.UserID == userID {
			c.Payload = cloneRaw(c.Payload)
			out.CartItems = append(out.CartItems, c)
		}
	}
	for i := len(r.store.searches) - 1; i >= 0; i-- {
		if rec := r.store.searches[i]; rec.UserID == userID {
			out.Searches = append(out.Searches, rec)
		}
	}
	return out, nil
}

func (r *PrivacyRepo) Delete(ctx context.Context, userID string) (domain.DeleteCounts, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	counts := domain.DeleteCounts{
		storage.TableCartItems:  0,
		storage.TableOrderItems: 0,
		storage.TableOrders:     0,
		storage.TableTrips:      0,
		storage.TableSearches:   0,
	}

	cart := r.store.cartItems[:0]
	for _, c := range r.store.cartItems {
		if c.UserID == userID {
			counts[storage.TableCartItems]++
			continue
		}
		cart = append(cart, c)
	}
	r.store.cartItems = cart

	// order items go by order, not by their own user column
	orderIDs := make(map[string]bool)
	for _, o := range r.store.orders {
		if o.UserID == userID {
			orderIDs[o.ID] = true
		}
	}
	if len(orderIDs) > 0 {
		items := r.store.orderItems[:0]
		for _, it := range r.store.orderItems {
			if orderIDs[it.OrderID] {
				counts[storage.TableOrderItems]++
				continue
			}
			items = append(items, it)
		}
		r.store.orderItems = items

		orders := r.store.orders[:0]
		for _, o := range r.store.orders {
			if o.UserID == userID {
				counts[storage.TableOrders]++
				continue
			}
			orders = append(orders, o)
		}
		r.store.orders = orders
	}

	trips := r.store.trips[:0]
	for _, t := range r.store.trips {
		if t.UserID == userID {
			counts[storage.TableTrips]++
			continue
		}
		trips = append(trips, t)
	}
	r.store.trips = trips

	searches := r.store.searches[:0]
	for _, rec := range r.store.searches {
		if rec.UserID == userID {
			counts[storage.TableSearches]++
			continue
		}
		searches = append(searches, rec)
	}
	r.store.searches = searches

	if u, ok := r.store.users[userID]; ok {
		u.Email = storage.AnonymisedEmail(userID)
		u.DisplayName = storage.AnonymisedName
	}
	return counts, nil
}
