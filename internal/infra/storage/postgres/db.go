package postgres

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"

	"github.com/vietddude/packup/internal/infra/storage"
	"github.com/vietddude/packup/internal/metrics"
)

// Config holds PostgreSQL connection configuration. An empty URL selects the
// in-memory store.
type Config struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
	Migrate  bool   `yaml:"migrate"` // run migrations at start-up
}

// DB wraps the PostgreSQL connection.
type DB struct {
	*sqlx.DB
}

// NewDB creates a new database connection.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	db, err := sqlx.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	} else {
		db.SetMaxOpenConns(10)
	}

	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	} else {
		db.SetMaxIdleConns(2)
	}

	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// StartMetricsCollector starts a background goroutine to collect DB metrics.
func (db *DB) StartMetricsCollector(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := db.Stats()
				// MaxOpenConnections is 0 when unlimited.
				if stats.MaxOpenConnections > 0 {
					usage := float64(stats.OpenConnections) / float64(stats.MaxOpenConnections) * 100
					metrics.DBConnectionPoolUsage.Set(usage)
				}
			}
		}
	}()
}

// Health checks if the database is healthy.
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// inTx runs fn in a transaction, rolling back on error.
func (db *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Store is the PostgreSQL implementation of storage.Store.
type Store struct {
	db       *DB
	trips    *TripRepo
	events   *EventRepo
	searches *SearchRepo
	privacy  *PrivacyRepo
}

// NewStore builds every repository over db.
func NewStore(db *DB) *Store {
	return &Store{
		db:       db,
		trips:    NewTripRepo(db),
		events:   NewEventRepo(db),
		searches: NewSearchRepo(db),
		privacy:  NewPrivacyRepo(db),
	}
}

func (s *Store) Trips() storage.TripRepository      { return s.trips }
func (s *Store) Events() storage.EventRepository    { return s.events }
func (s *Store) Searches() storage.SearchRepository { return s.searches }
func (s *Store) Privacy() storage.PrivacyRepository { return s.privacy }
func (s *Store) Ping(ctx context.Context) error     { return s.db.Health(ctx) }
func (s *Store) Close() error                       { return s.db.Close() }
