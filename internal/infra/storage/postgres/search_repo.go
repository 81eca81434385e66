package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/packup/internal/core/domain"
)

// SearchRepo implements storage.SearchRepository using PostgreSQL.
type SearchRepo struct {
	db *DB
}

// NewSearchRepo creates a new PostgreSQL search repository.
func NewSearchRepo(db *DB) *SearchRepo {
	return &SearchRepo{db: db}
}

// Record stores one search.
func (r *SearchRepo) Record(ctx context.Context, rec *domain.SearchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO offer_searches (id, user_id, kind, search_key, provider, source, results, created_at)
		VALUES (:id, :user_id, :kind, :search_key, :provider, :source, :results, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// DeleteOlderThan removes searches recorded before the cutoff.
func (r *SearchRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM offer_searches WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune searches: %w", err)
	}
	return res.RowsAffected()
}
