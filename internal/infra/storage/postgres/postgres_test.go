package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/storage"
)

var _ storage.Store = (*Store)(nil)

// Set PACKUP_TEST_DATABASE_URL to run these against a scratch database.
func setupDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("PACKUP_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PACKUP_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := NewDB(ctx, Config{URL: url})
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected embedded migrations, got %v %v", entries, err)
	}
}

func TestTripRepo_Live(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewTripRepo(db)
	user := "test-" + uuid.NewString()

	trip := &domain.Trip{UserID: user, Title: "Leh", Payload: json.RawMessage(`{"title":"Leh","days":[]}`)}
	if err := repo.Create(ctx, trip); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.Get(ctx, user, trip.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Leh" || len(got.Payload) == 0 {
		t.Errorf("unexpected trip %+v", got)
	}
	if _, err := repo.Get(ctx, "someone-else", trip.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Get(ctx, user, "not-a-uuid"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestPrivacyRepo_Live(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	user := "test-" + uuid.NewString()
	orderID := uuid.NewString()

	mustExec := func(q string, args ...any) {
		t.Helper()
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	mustExec(`INSERT INTO users (id, email, display_name) VALUES ($1, 'a@b.c', 'Asha')`, user)
	mustExec(`INSERT INTO orders (id, user_id, total) VALUES ($1, $2, 4500)`, orderID, user)
	mustExec(`INSERT INTO order_items (id, order_id, user_id) VALUES ($1, $2, $3)`, uuid.NewString(), orderID, user)
	mustExec(`INSERT INTO cart_items (id, user_id) VALUES ($1, $2)`, uuid.NewString(), user)
	if err := NewTripRepo(db).Create(ctx, &domain.Trip{UserID: user, Title: "Leh"}); err != nil {
		t.Fatalf("seed trip: %v", err)
	}

	if err := NewSearchRepo(db).Record(ctx, &domain.SearchRecord{UserID: user, Kind: domain.OfferFlight, Key: "flight|DEL|IXL"}); err != nil {
		t.Fatalf("seed search: %v", err)
	}

	repo := NewPrivacyRepo(db)
	exp, err := repo.Export(ctx, user)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exp.User == nil || len(exp.Orders) != 1 || exp.Orders[0].Total != 4500 || len(exp.OrderItems) != 1 || len(exp.CartItems) != 1 || len(exp.Trips) != 1 || len(exp.Searches) != 1 {
		t.Errorf("unexpected export %+v", exp)
	}

	counts, err := repo.Delete(ctx, user)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, table := range []string{"cart_items", "order_items", "orders", "trips", "offer_searches"} {
		if counts[table] != 1 {
			t.Errorf("%s = %d, want 1", table, counts[table])
		}
	}
	after, _ := repo.Export(ctx, user)
	if after.User.Email != storage.AnonymisedEmail(user) {
		t.Errorf("user not anonymised: %+v", after.User)
	}
}
