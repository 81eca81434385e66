// Package chat answers free-text travel questions through the configured
// language model.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/vietddude/packup/internal/infra/llm"
	"github.com/vietddude/packup/internal/infra/ratelimit"
	"github.com/vietddude/packup/internal/infra/storage"
	"github.com/vietddude/packup/internal/metrics"
)

const recentTrips = 5

var (
	ErrEmptyMessage = errors.New("message required")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

var (
	emailPattern = regexp.MustCompile(`([a-zA-Z0-9._%+-]+)@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	phonePattern = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?(\(?\d{3,4}\)?[-.\s]?)?\d{3,4}[-.\s]?\d{3,4}`)
)

// ScrubPII redacts email addresses and phone-like digit runs.
func ScrubPII(text string) string {
	text = emailPattern.ReplaceAllString(text, "[email_redacted]")
	return phonePattern.ReplaceAllString(text, "[phone_redacted]")
}

// Replier is the language model side of a chat.
type Replier interface {
	Chat(ctx context.Context, message, contextNote string) (string, error)
	Source() string
	Model() string
}

// Request is one chat turn. Key identifies the caller for rate limiting
// (user id when signed in, client ip otherwise).
type Request struct {
	Message string
	UserID  string
	Key     string
}

type Reply struct {
	Source string `json:"source"`
	Reply  string `json:"reply"`
	Model  string `json:"model,omitempty"`
}

// RateLimitError carries the limiter decision for Retry-After headers.
type RateLimitError struct {
	Decision ratelimit.Decision
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.Decision.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

type Service struct {
	replier Replier
	limiter ratelimit.Limiter
	trips   storage.TripRepository
}

// New creates the service. limiter and trips are optional.
func New(replier Replier, limiter ratelimit.Limiter, trips storage.TripRepository) *Service {
	return &Service{replier: replier, limiter: limiter, trips: trips}
}

func (s *Service) Reply(ctx context.Context, req Request, op string) (*Reply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	log := slog.With("op", op)

	if s.limiter != nil {
		d, err := s.limiter.Allow(ctx, req.Key)
		if err != nil {
			// fail open, a broken limiter should not take chat down
			log.Warn("rate limiter unavailable", "error", err)
		} else if !d.Allowed {
			metrics.RateLimitRejections.WithLabelValues("chat").Inc()
			return nil, &RateLimitError{Decision: d}
		}
	}

	message := ScrubPII(req.Message)
	note := s.tripsContext(ctx, req.UserID, log)

	text, err := s.replier.Chat(ctx, message, note)
	if err != nil {
		return nil, fmt.Errorf("chat reply: %w", err)
	}
	return &Reply{Source: s.replier.Source(), Reply: text, Model: s.replier.Model()}, nil
}

// tripsContext summarises the caller's latest trips. Any failure yields an
// empty note.
func (s *Service) tripsContext(ctx context.Context, userID string, log *slog.Logger) string {
	if s.trips == nil || userID == "" {
		return ""
	}
	trips, err := s.trips.ListByUser(ctx, userID, recentTrips)
	if err != nil {
		log.Warn("recent trips lookup failed", "error", err)
		return ""
	}
	if len(trips) == 0 {
		return ""
	}
	type summary struct {
		ID      string          `json:"id"`
		Title   string          `json:"title"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}
	out := make([]summary, 0, len(trips))
	for _, t := range trips {
		out = append(out, summary{ID: t.ID, Title: t.Title, Payload: t.Payload})
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return ""
	}
	return "User recent trips: " + strings.TrimRight(buf.String(), "\n")
}

var _ Replier = (*llm.Drafter)(nil)
