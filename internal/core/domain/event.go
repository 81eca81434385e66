package domain

import (
	"encoding/json"
	"time"
)

// Event is an audit record written alongside user-visible operations.
type Event struct {
	ID        string          `json:"id" db:"id"`
	Type      EventType       `json:"type" db:"type"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeItineraryGenerated EventType = "itinerary_generated"
	EventTypePrivacyDelete      EventType = "privacy_delete"
	EventTypeOfferSearch        EventType = "offer_search"
	EventTypePing               EventType = "ping"
)

// NewEvent marshals payload into an Event. Payload marshal errors are
// returned so callers can decide whether the audit write is fatal.
func NewEvent(t EventType, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{Type: t, Payload: raw, CreatedAt: time.Now().UTC()}, nil
}
