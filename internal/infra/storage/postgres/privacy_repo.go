package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/storage"
)

// PrivacyRepo implements storage.PrivacyRepository using PostgreSQL.
type PrivacyRepo struct {
	db *DB
}

// NewPrivacyRepo creates a new PostgreSQL privacy repository.
func NewPrivacyRepo(db *DB) *PrivacyRepo {
	return &PrivacyRepo{db: db}
}

type orderItemRow struct {
	ID       string `db:"id"`
	OrderID  string `db:"order_id"`
	UserID   string `db:"user_id"`
	Payload  []byte `db:"payload"`
	Quantity int    `db:"quantity"`
}

type cartItemRow struct {
	ID        string       `db:"id"`
	UserID    string       `db:"user_id"`
	Payload   []byte       `db:"payload"`
	CreatedAt sql.NullTime `db:"created_at"`
}

// Export collects every row held for userID.
func (r *PrivacyRepo) Export(ctx context.Context, userID string) (*domain.UserExport, error) {
	out := &domain.UserExport{
		Trips:      []domain.Trip{},
		Orders:     []domain.Order{},
		OrderItems: []domain.OrderItem{},
		CartItems:  []domain.CartItem{},
		Searches:   []domain.SearchRecord{},
	}

	var user domain.User
	err := r.db.GetContext(ctx, &user, `SELECT id, email, display_name, created_at FROM users WHERE id = $1`, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to export user: %w", err)
	default:
		out.User = &user
	}

	var trips []tripRow
	if err := r.db.SelectContext(ctx, &trips, `SELECT `+tripColumns+` FROM trips WHERE user_id = $1 ORDER BY created_at DESC`, userID); err != nil {
		return nil, fmt.Errorf("failed to export trips: %w", err)
	}
	for i := range trips {
		out.Trips = append(out.Trips, trips[i].toDomain())
	}

	if err := r.db.SelectContext(ctx, &out.Orders, `
		SELECT id::text AS id, user_id, total::float8 AS total, currency, status, created_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID); err != nil {
		return nil, fmt.Errorf("failed to export orders: %w", err)
	}

	var items []orderItemRow
	if err := r.db.SelectContext(ctx, &items, `
		SELECT id::text AS id, order_id::text AS order_id, user_id, payload, quantity
		FROM order_items WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("failed to export order items: %w", err)
	}
	for _, it := range items {
		out.OrderItems = append(out.OrderItems, domain.OrderItem{
			ID: it.ID, OrderID: it.OrderID, UserID: it.UserID, Payload: it.Payload, Quantity: it.Quantity,
		})
	}

	var cart []cartItemRow
	if err := r.db.SelectContext(ctx, &cart, `
		SELECT id::text AS id, user_id, payload, created_at
		FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("failed to export cart items: %w", err)
	}
	for _, c := range cart {
		out.CartItems = append(out.CartItems, domain.CartItem{
			ID: c.ID, UserID: c.UserID, Payload: c.Payload, CreatedAt: c.CreatedAt.Time,
		})
	}

	if err := r.db.SelectContext(ctx, &out.Searches, `
		SELECT id::text AS id, user_id, kind, search_key, provider, source, results, created_at
		FROM offer_searches WHERE user_id = $1 ORDER BY created_at DESC`, userID); err != nil {
		return nil, fmt.Errorf("failed to export searches: %w", err)
	}

	return out, nil
}

// Delete erases the user's rows in one transaction and anonymises the user.
func (r *PrivacyRepo) Delete(ctx context.Context, userID string) (domain.DeleteCounts, error) {
	counts := domain.DeleteCounts{
		storage.TableCartItems:  0,
		storage.TableOrderItems: 0,
		storage.TableOrders:     0,
		storage.TableTrips:      0,
		storage.TableSearches:   0,
	}

	err := r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		n, err := execCount(ctx, tx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("failed to delete cart items: %w", err)
		}
		counts[storage.TableCartItems] = n

		var orderIDs []string
		if err := tx.SelectContext(ctx, &orderIDs, `SELECT id::text FROM orders WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		if len(orderIDs) > 0 {
			n, err = execCount(ctx, tx, `DELETE FROM order_items WHERE order_id = ANY($1::uuid[])`, pq.Array(orderIDs))
			if err != nil {
				return fmt.Errorf("failed to delete order items: %w", err)
			}
			counts[storage.TableOrderItems] = n

			n, err = execCount(ctx, tx, `DELETE FROM orders WHERE user_id = $1`, userID)
			if err != nil {
				return fmt.Errorf("failed to delete orders: %w", err)
			}
			counts[storage.TableOrders] = n
		}

		n, err = execCount(ctx, tx, `DELETE FROM trips WHERE user_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("failed to delete trips: %w", err)
		}
		counts[storage.TableTrips] = n

		n, err = execCount(ctx, tx, `DELETE FROM offer_searches WHERE user_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("failed to delete searches: %w", err)
		}
		counts[storage.TableSearches] = n

		_, err = tx.ExecContext(ctx, `UPDATE users SET email = $1, display_name = $2 WHERE id = $3`,
			storage.AnonymisedEmail(userID), storage.AnonymisedName, userID)
		if err != nil {
			return fmt.Errorf("failed to anonymise user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func execCount(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
