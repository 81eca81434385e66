package domain

import (
	"strings"
	"time"
)

type OfferKind string

const (
	OfferFlight   OfferKind = "flight"
	OfferHotel    OfferKind = "hotel"
	OfferActivity OfferKind = "activity"
)

// SearchRequest is a structured travel search.
type SearchRequest struct {
	Kind        OfferKind `json:"kind"`
	Origin      string    `json:"origin,omitempty"`
	Destination string    `json:"destination,omitempty"`
	City        string    `json:"city,omitempty"`
	DepartDate  string    `json:"depart_date,omitempty"`
	ReturnDate  string    `json:"return_date,omitempty"`
	CheckIn     string    `json:"check_in,omitempty"`
	CheckOut    string    `json:"check_out,omitempty"`
	Date        string    `json:"date,omitempty"`
	UserID      string    `json:"-"`
}

// Key flattens the request into a stable string used for caching and logs.
func (r SearchRequest) Key() string {
	parts := []string{
		string(r.Kind),
		strings.ToUpper(r.Origin),
		strings.ToUpper(r.Destination),
		strings.ToLower(r.City),
		r.DepartDate, r.ReturnDate, r.CheckIn, r.CheckOut, r.Date,
	}
	return strings.Join(parts, ":")
}

// Offer is one normalized travel offer.
type Offer struct {
	Provider string    `json:"provider"`
	Kind     OfferKind `json:"kind"`
	Title    string    `json:"title"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	City     string    `json:"city,omitempty"`
	DepartAt string    `json:"depart_at,omitempty"`
	ReturnAt string    `json:"return_at,omitempty"`
	CheckIn  string    `json:"check_in,omitempty"`
	CheckOut string    `json:"check_out,omitempty"`
	Date     string    `json:"date,omitempty"`
	Airline  string    `json:"airline,omitempty"`
	Price    float64   `json:"price"`
	Currency string    `json:"currency"`
	DeepLink string    `json:"deep_link"`
}

// OfferSet is the candidate produced by a travel provider.
type OfferSet struct {
	Provider string  `json:"provider"`
	Source   string  `json:"source"` // live, mock
	Offers   []Offer `json:"offers"`
}

// SearchRecord is the audit row kept for every travel search.
type SearchRecord struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Kind      OfferKind `json:"kind" db:"kind"`
	Key       string    `json:"search_key" db:"search_key"`
	Provider  string    `json:"provider" db:"provider"`
	Source    string    `json:"source" db:"source"`
	Results   int       `json:"results" db:"results"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
