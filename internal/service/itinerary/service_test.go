package itinerary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/llm"
	"github.com/vietddude/packup/internal/infra/storage/memory"
	"github.com/vietddude/packup/internal/pipeline"
)

type stubDrafter struct {
	it     *domain.Itinerary
	err    error
	prompt string
}

func (s *stubDrafter) Draft(ctx context.Context, prompt, op string) (*domain.Itinerary, error) {
	s.prompt = prompt
	return s.it, s.err
}

// stubRunner fails for queries listed in fail and tracks concurrency.
type stubRunner struct {
	fail     map[string]bool
	delay    time.Duration
	inFlight int32
	peak     int32

	mu   sync.Mutex
	opts []pipeline.Options
}

func (s *stubRunner) Run(ctx context.Context, query string, opts pipeline.Options) (*domain.PersistedAsset, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		p := atomic.LoadInt32(&s.peak)
		if n <= p || atomic.CompareAndSwapInt32(&s.peak, p, n) {
			break
		}
	}
	s.mu.Lock()
	s.opts = append(s.opts, opts)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.fail[query] {
		return nil, &pipeline.ExhaustedError{OperationID: opts.OperationID, Query: query}
	}
	return &domain.PersistedAsset{
		Provider:    "wikimedia",
		URL:         "https://cdn.test/" + strings.ReplaceAll(query, " ", "_") + ".jpg",
		Path:        "itineraries/" + query,
		OriginalURL: "https://upload.wikimedia.org/" + query,
		Author:      "Someone",
		License:     "CC BY-SA 4.0",
	}, nil
}

func newService(d Drafter, r ImageRunner, concurrency int) (*Service, *memory.MemoryStorage) {
	store := memory.NewMemoryStorage()
	return New(d, r, store.Trips(), store.Events(), Config{Concurrency: concurrency}), store
}

func TestGenerate_MockItinerary(t *testing.T) {
	runner := &stubRunner{delay: 5 * time.Millisecond}
	drafter := &stubDrafter{it: llm.StaticLehItinerary()}
	svc, store := newService(drafter, runner, 2)

	res, err := svc.Generate(context.Background(), "user-1", Request{Destination: "Leh", StartDate: "2025-06-01", EndDate: "2025-06-05", Days: 5}, "op-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(drafter.prompt, "Destination: Leh") || !strings.Contains(drafter.prompt, "Days: 5") {
		t.Errorf("unexpected prompt %q", drafter.prompt)
	}
	for _, d := range res.Itinerary.Days {
		for _, img := range d.Images {
			if img.PublicURL == "" || img.Provider != "wikimedia" || img.StoragePath == "" || img.License == "" {
				t.Errorf("image not attached: %+v", img)
			}
		}
	}
	if len(runner.opts) != 8 {
		t.Errorf("expected 8 pipeline runs, got %d", len(runner.opts))
	}
	for _, o := range runner.opts {
		if o.OperationID != "op-1" || !strings.HasPrefix(o.KeyPrefix, "day") {
			t.Errorf("unexpected options %+v", o)
		}
	}
	if peak := atomic.LoadInt32(&runner.peak); peak > 2 {
		t.Errorf("concurrency limit exceeded: %d", peak)
	}

	if !strings.HasPrefix(res.Markdown, "# Leh & Pangong Tso") || !strings.Contains(res.Markdown, "## Day 4: Pangong Tso Arrival") {
		t.Errorf("unexpected markdown:\n%s", res.Markdown)
	}

	trips, _ := store.Trips().ListByUser(context.Background(), "user-1", 10)
	if len(trips) != 1 || trips[0].ID != res.TripID {
		t.Fatalf("trip not stored: %+v", trips)
	}
	var saved domain.Itinerary
	if err := json.Unmarshal(trips[0].Payload, &saved); err != nil || saved.Days[0].Images[0].PublicURL == "" {
		t.Errorf("stored payload missing image urls: %v", err)
	}

	events, _ := store.Events().Latest(context.Background(), 1)
	if len(events) != 1 || events[0].Type != domain.EventTypeItineraryGenerated || !bytes.Contains(events[0].Payload, []byte(`"operationId":"op-1"`)) {
		t.Errorf("unexpected event %+v", events)
	}
}

func TestGenerate_ImageFailureAborts(t *testing.T) {
	runner := &stubRunner{fail: map[string]bool{"Pangong Tso turquoise lake sunrise": true}}
	svc, store := newService(&stubDrafter{it: llm.StaticLehItinerary()}, runner, 4)

	_, err := svc.Generate(context.Background(), "user-1", Request{Destination: "Leh"}, "op-2")
	var ie *ImageError
	if !errors.As(err, &ie) {
		t.Fatalf("expected ImageError, got %v", err)
	}
	if ie.Query != "Pangong Tso turquoise lake sunrise" || ie.Day != 4 {
		t.Errorf("unexpected failure %+v", ie)
	}
	if !errors.Is(err, pipeline.ErrExhausted) {
		t.Errorf("expected exhausted cause")
	}
	if trips, _ := store.Trips().ListByUser(context.Background(), "user-1", 10); len(trips) != 0 {
		t.Errorf("no trip should be stored on failure")
	}
}

func TestGenerate_DraftError(t *testing.T) {
	svc, _ := newService(&stubDrafter{err: &llm.OutputError{Reason: llm.ReasonDaysMissing}}, &stubRunner{}, 1)
	_, err := svc.Generate(context.Background(), "u", Request{Destination: "Goa"}, "op")
	if !errors.Is(err, llm.ErrInvalidOutput) {
		t.Errorf("expected invalid output, got %v", err)
	}
}

func TestGenerate_EmptyDestination(t *testing.T) {
	svc, _ := newService(&stubDrafter{}, &stubRunner{}, 1)
	if _, err := svc.Generate(context.Background(), "u", Request{}, "op"); !errors.Is(err, ErrEmptyDestination) {
		t.Errorf("expected ErrEmptyDestination, got %v", err)
	}
}

func TestMarkdown_AuthorFallback(t *testing.T) {
	md := Markdown(&domain.Itinerary{
		Title: "T",
		Days: []domain.ItineraryDay{{
			Day: 1, Theme: "Arrive", Details: "Rest.", Places: []string{"A", "B"},
			Images: []domain.ImageRequest{{Caption: "Cap", PublicURL: "https://x/y.jpg"}},
		}},
	})
	for _, want := range []string{"# T\n", "## Day 1: Arrive", "**Top places:** A, B", "![Cap](https://x/y.jpg)", "*Cap - source*"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRenderPDF(t *testing.T) {
	payload, _ := json.Marshal(llm.StaticLehItinerary())
	out, err := RenderPDF(&domain.Trip{ID: "t1", Title: "Leh", Payload: payload, CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Errorf("output is not a pdf")
	}

	if _, err := RenderPDF(&domain.Trip{Payload: json.RawMessage(`not json`)}); err == nil {
		t.Error("expected payload decode error")
	}
}
