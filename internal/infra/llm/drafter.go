package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/fetch/routing"
)

const itinerarySystemPrompt = `You are PackUp itinerary generator. Output STRICT JSON only matching this schema:
{
  "title":"<title>",
  "days":[
    {
      "day": 1,
      "theme":"Day title",
      "places":["Place A","Place B"],
      "details":"2-4 sentence narrative",
      "images":[{"query":"Pangong Tso winter blue lake","caption":"short caption","reason":"why this image"}]
    }
  ]
}
Do not include any commentary. Output only valid JSON. Use localised names and short captions. Ensure number of days matches the user's dates if provided.`

const chatSystemPrompt = "You are PackUp AI, an expert travel planner who writes clear, structured itineraries for users. " +
	"Return an itinerary with a title, a day-by-day plan with times, suggested hotels and activities, and approximate price estimates in INR if local to India. " +
	"Use bullet lists and short sentences. Do not include any user PII. " +
	"If you have the user's recent trips as context, integrate similar items into suggestions where relevant."

// Options tunes drafter calls.
type Options struct {
	Temperature     float32
	MaxTokens       int
	ChatTemperature float32
	ChatMaxTokens   int
	Retry           routing.RetryConfig
}

// Drafter produces itineraries and chat replies. A nil completer means mock
// mode: Draft returns the static Leh itinerary and Chat a canned reply.
type Drafter struct {
	completer Completer
	opts      Options
}

// NewDrafter creates a drafter over c, which may be nil.
func NewDrafter(c Completer, opts Options) *Drafter {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2000
	}
	if opts.ChatTemperature == 0 {
		opts.ChatTemperature = 0.7
	}
	if opts.ChatMaxTokens <= 0 {
		opts.ChatMaxTokens = 1200
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = routing.RetryConfig{
			MaxAttempts:     3,
			InitialDelay:    300 * time.Millisecond,
			MaxDelay:        2 * time.Second,
			BackoffMultiple: 2,
		}
	}
	return &Drafter{completer: c, opts: opts}
}

// Mock reports whether the drafter has no live backend.
func (d *Drafter) Mock() bool { return d.completer == nil }

// Source names the backend for responses: "mock" or the completer name.
func (d *Drafter) Source() string {
	if d.completer == nil {
		return "mock"
	}
	return d.completer.Name()
}

// Model returns the configured model, or "" in mock mode.
func (d *Drafter) Model() string {
	if d.completer == nil {
		return ""
	}
	return d.completer.Model()
}

// Draft asks the model for an itinerary and validates the result.
func (d *Drafter) Draft(ctx context.Context, prompt, op string) (*domain.Itinerary, error) {
	if d.completer == nil {
		return StaticLehItinerary(), nil
	}

	text, err := d.complete(ctx, Request{
		Messages: []Message{
			{Role: RoleSystem, Content: itinerarySystemPrompt},
			{Role: RoleUser, Content: prompt},
		},
		JSON:        true,
		Temperature: d.opts.Temperature,
		MaxTokens:   d.opts.MaxTokens,
		OperationID: op,
	})
	if err != nil {
		return nil, fmt.Errorf("draft itinerary: %w", err)
	}

	it, err := ParseItinerary(text)
	if err != nil {
		slog.Warn("model produced unusable itinerary", "op", op, "backend", d.completer.Name(), "error", err)
		return nil, err
	}
	return it, nil
}

// Chat returns a free-text reply. contextNote, when set, is sent as an
// extra system message.
func (d *Drafter) Chat(ctx context.Context, message, contextNote string) (string, error) {
	if d.completer == nil {
		return MockChatReply(message), nil
	}

	msgs := []Message{{Role: RoleSystem, Content: chatSystemPrompt}}
	if strings.TrimSpace(contextNote) != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: "Context: " + contextNote})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: message})

	return d.complete(ctx, Request{
		Messages:    msgs,
		Temperature: d.opts.ChatTemperature,
		MaxTokens:   d.opts.ChatMaxTokens,
	})
}

func (d *Drafter) complete(ctx context.Context, req Request) (string, error) {
	name := d.completer.Name()
	out, err := routing.WithRetry(ctx, name, d.opts.Retry, func(ctx context.Context) (*string, error) {
		text, err := d.completer.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		return &text, nil
	}, func(r domain.AttemptRecord) {
		if !r.OK {
			slog.Debug("llm attempt failed", "op", req.OperationID, "provider", name, "attempt", r.Attempt, "error", r.Error)
		}
	})
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", ErrNoContent
	}
	return *out, nil
}

// MockChatReply is the deterministic reply used without a live backend.
func MockChatReply(message string) string {
	return fmt.Sprintf("Mock itinerary for: %s\n\nDay 1: Arrival & rest\nDay 2: City highlights\nDay 3: Activities\n\n(Configure an llm api key to enable live replies.)", message)
}
