package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/storage"
)

// TripRepo implements storage.TripRepository using PostgreSQL.
type TripRepo struct {
	db *DB
}

// NewTripRepo creates a new PostgreSQL trip repository.
func NewTripRepo(db *DB) *TripRepo {
	return &TripRepo{db: db}
}

type tripRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	Payload   []byte    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *tripRow) toDomain() domain.Trip {
	return domain.Trip{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Payload:   json.RawMessage(r.Payload),
		CreatedAt: r.CreatedAt,
	}
}

// jsonParam passes raw JSON as text so the server casts it to jsonb.
func jsonParam(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

const tripColumns = `id::text AS id, user_id, title, payload, created_at`

// Create inserts a trip.
func (r *TripRepo) Create(ctx context.Context, trip *domain.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO trips (id, user_id, title, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, trip.ID, trip.UserID, trip.Title, jsonParam(trip.Payload), trip.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// Get retrieves a trip owned by userID.
func (r *TripRepo) Get(ctx context.Context, userID, id string) (*domain.Trip, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, storage.ErrNotFound
	}
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 AND user_id = $2`

	var row tripRow
	err := r.db.GetContext(ctx, &row, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	t := row.toDomain()
	return &t, nil
}

// ListByUser returns the newest trips first.
func (r *TripRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Trip, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + tripColumns + ` FROM trips WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	var rows []tripRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	trips := make([]domain.Trip, 0, len(rows))
	for i := range rows {
		trips = append(trips, rows[i].toDomain())
	}
	return trips, nil
}
