// Package itinerary drafts a trip plan, attaches a persisted image to every
// image request and stores the result.
package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/storage"
	"github.com/vietddude/packup/internal/pipeline"
)

// Drafter produces the itinerary skeleton.
type Drafter interface {
	Draft(ctx context.Context, prompt, op string) (*domain.Itinerary, error)
}

// ImageRunner resolves one image query.
type ImageRunner interface {
	Run(ctx context.Context, query string, opts pipeline.Options) (*domain.PersistedAsset, error)
}

// Request is the caller's trip description.
type Request struct {
	Destination string `json:"destination"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Origin      string `json:"origin,omitempty"`
	Days        int    `json:"days,omitempty"`
	Travelers   int    `json:"travelers,omitempty"`
	Style       string `json:"style,omitempty"`
}

// Prompt renders the request for the drafter.
func (r Request) Prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Destination: %s\nStart: %s\nEnd: %s\nOrigin: %s\n", r.Destination, r.StartDate, r.EndDate, r.Origin)
	fmt.Fprintf(&b, "Days: %s\nTravelers: %s\nStyle: %s\n\n", optInt(r.Days), optInt(r.Travelers), r.Style)
	b.WriteString("Produce ONLY the exact strict JSON itinerary schema required.")
	return b.String()
}

func optInt(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprint(n)
}

// Result is a generated itinerary.
type Result struct {
	Itinerary   *domain.Itinerary
	Markdown    string
	OperationID string
	TripID      string // empty when the trip insert failed
}

// ImageError reports the image query that could not be satisfied.
type ImageError struct {
	Query string
	Day   int
	Err   error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image fetch failed for query %q: %v", e.Query, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// ErrEmptyDestination is returned for requests without a destination.
var ErrEmptyDestination = errors.New("destination is required")

// Config tunes the service.
type Config struct {
	Concurrency  int // image runs in flight per itinerary
	ImageTimeout time.Duration
}

// Service generates itineraries.
type Service struct {
	drafter Drafter
	images  ImageRunner
	trips   storage.TripRepository
	events  storage.EventRepository
	cfg     Config
	tracer  trace.Tracer
}

// New creates the itinerary service.
func New(drafter Drafter, images ImageRunner, trips storage.TripRepository, events storage.EventRepository, cfg Config) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Service{
		drafter: drafter,
		images:  images,
		trips:   trips,
		events:  events,
		cfg:     cfg,
		tracer:  otel.Tracer("packup/itinerary"),
	}
}

// Generate drafts the itinerary, persists one image per image request, then
// records the trip and an audit event. The trip and event writes are not
// fatal. Any image failure aborts generation with an *ImageError.
func (s *Service) Generate(ctx context.Context, userID string, req Request, op string) (*Result, error) {
	if strings.TrimSpace(req.Destination) == "" {
		return nil, ErrEmptyDestination
	}

	ctx, span := s.tracer.Start(ctx, "itinerary.Generate", trace.WithAttributes(
		attribute.String("op.id", op),
		attribute.String("destination", req.Destination),
	))
	defer span.End()
	log := slog.With("op", op)

	it, err := s.drafter.Draft(ctx, req.Prompt(), op)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "draft failed")
		return nil, err
	}
	log.Info("itinerary drafted", "days", len(it.Days), "images", it.ImageCount())

	if err := s.attachImages(ctx, it, op); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "image fetch failed")
		return nil, err
	}

	res := &Result{Itinerary: it, Markdown: Markdown(it), OperationID: op}

	title := it.Title
	if title == "" {
		title = "Trip to " + req.Destination
	}
	if payload, err := json.Marshal(it); err != nil {
		log.Warn("trip payload marshal failed", "error", err)
	} else {
		trip := &domain.Trip{UserID: userID, Title: title, Payload: payload}
		if err := s.trips.Create(ctx, trip); err != nil {
			log.Warn("trip insert failed", "error", err)
		} else {
			res.TripID = trip.ID
		}
	}

	ev, err := domain.NewEvent(domain.EventTypeItineraryGenerated, map[string]string{
		"user_id":     userID,
		"destination": req.Destination,
		"startDate":   req.StartDate,
		"endDate":     req.EndDate,
		"operationId": op,
	})
	if err == nil {
		err = s.events.Add(ctx, ev)
	}
	if err != nil {
		log.Warn("event write failed", "error", err)
	}

	span.SetAttributes(attribute.String("trip.id", res.TripID))
	return res, nil
}

// attachImages runs the pipeline for every image request with bounded
// concurrency. The first failure cancels the remaining runs.
func (s *Service) attachImages(ctx context.Context, it *domain.Itinerary, op string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for di := range it.Days {
		day := &it.Days[di]
		for ii := range day.Images {
			img := &day.Images[ii]
			g.Go(func() error {
				asset, err := s.images.Run(gctx, img.Query, pipeline.Options{
					OperationID: op,
					Timeout:     s.cfg.ImageTimeout,
					KeyPrefix:   fmt.Sprintf("day%d_%s", day.Day, img.Query),
				})
				if err != nil {
					return &ImageError{Query: img.Query, Day: day.Day, Err: err}
				}
				img.PublicURL = asset.URL
				img.Provider = asset.Provider
				img.OriginalURL = asset.OriginalURL
				img.Author = asset.Author
				img.License = asset.License
				img.StoragePath = asset.Path
				return nil
			})
		}
	}
	return g.Wait()
}

// Markdown renders a human-readable summary of it.
func Markdown(it *domain.Itinerary) string {
	var lines []string
	lines = append(lines, "# "+it.Title+"\n")
	for _, d := range it.Days {
		lines = append(lines, fmt.Sprintf("## Day %d: %s", d.Day, d.Theme))
		lines = append(lines, d.Details+"\n")
		if len(d.Places) > 0 {
			lines = append(lines, "**Top places:** "+strings.Join(d.Places, ", "))
		}
		for _, img := range d.Images {
			author := img.Author
			if author == "" {
				author = "source"
			}
			lines = append(lines, fmt.Sprintf("![%s](%s)", img.Caption, img.PublicURL))
			lines = append(lines, fmt.Sprintf("*%s - %s*", img.Caption, author))
		}
		lines = append(lines, "\n---\n")
	}
	return strings.Join(lines, "\n")
}
