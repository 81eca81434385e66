package domain

import (
	"encoding/json"
	"time"
)

// Trip is a saved itinerary owned by a user.
type Trip struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Title     string          `json:"title" db:"title"`
	Payload   json.RawMessage `json:"payload,omitempty" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// User is the profile row kept for privacy export/anonymisation.
type User struct {
	ID          string    `json:"id" db:"id"`
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"display_name" db:"display_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Order struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Total     float64   `json:"total" db:"total"`
	Currency  string    `json:"currency" db:"currency"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type OrderItem struct {
	ID       string          `json:"id" db:"id"`
	OrderID  string          `json:"order_id" db:"order_id"`
	UserID   string          `json:"user_id" db:"user_id"`
	Payload  json.RawMessage `json:"payload,omitempty" db:"payload"`
	Quantity int             `json:"quantity" db:"quantity"`
}

type CartItem struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Payload   json.RawMessage `json:"payload,omitempty" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// UserExport is everything held for one user.
type UserExport struct {
	User       *User          `json:"user"`
	Trips      []Trip         `json:"trips"`
	Orders     []Order        `json:"orders"`
	OrderItems []OrderItem    `json:"order_items"`
	CartItems  []CartItem     `json:"cart_items"`
	Searches   []SearchRecord `json:"offer_searches"`
}

// DeleteCounts reports rows removed per table by a privacy delete.
type DeleteCounts map[string]int64
