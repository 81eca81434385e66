// Package travel serves flight, hotel and activity searches with live to
// mock fallback, caching and a search audit trail.
package travel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/cache"
	"github.com/vietddude/packup/internal/infra/fetch/routing"
	travelsrc "github.com/vietddude/packup/internal/infra/fetch/travel"
	"github.com/vietddude/packup/internal/infra/storage"
	"github.com/vietddude/packup/internal/metrics"
)

var (
	// ErrInvalidRequest wraps missing or malformed search parameters.
	ErrInvalidRequest = errors.New("invalid search request")
	// ErrNoOffers is returned when every source failed, including the mock.
	ErrNoOffers = errors.New("no offers available")
)

type Router = routing.Router[domain.SearchRequest, domain.OfferSet]

// Result is one search response.
type Result struct {
	*domain.OfferSet
	Cached      bool               `json:"cached"`
	Diagnostics domain.Diagnostics `json:"diagnostics,omitempty"`
}

// Service searches offers.
type Service struct {
	routers  map[domain.OfferKind]*Router
	retry    routing.RetryConfig
	cache    cache.OfferCache
	searches storage.SearchRepository
	links    *travelsrc.Linker
}

// New creates the service. routers must hold one router per offer kind.
func New(
	routers map[domain.OfferKind]*Router,
	retry routing.RetryConfig,
	offerCache cache.OfferCache,
	searches storage.SearchRepository,
	links *travelsrc.Linker,
) *Service {
	if offerCache == nil {
		offerCache = cache.Nop{}
	}
	return &Service{routers: routers, retry: retry, cache: offerCache, searches: searches, links: links}
}

// NewRouters builds one router per kind from the configured adapters.
func NewRouters(build func(kind domain.OfferKind) []travelsrc.Registered) (map[domain.OfferKind]*Router, error) {
	out := make(map[domain.OfferKind]*Router)
	for _, kind := range []domain.OfferKind{domain.OfferFlight, domain.OfferHotel, domain.OfferActivity} {
		r := routing.NewRouter[domain.SearchRequest, domain.OfferSet]()
		for _, reg := range build(kind) {
			if err := r.AddProvider(reg.Spec, reg.Adapter); err != nil {
				return nil, err
			}
		}
		out[kind] = r
	}
	return out, nil
}

// Validate checks the parameters each kind needs.
func Validate(req domain.SearchRequest) error {
	var missing []string
	need := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	switch req.Kind {
	case domain.OfferFlight:
		need("origin", req.Origin)
		need("destination", req.Destination)
		need("depart_date", req.DepartDate)
	case domain.OfferHotel:
		need("city", req.City)
		need("check_in", req.CheckIn)
		need("check_out", req.CheckOut)
	case domain.OfferActivity:
		need("city", req.City)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, req.Kind)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// Search returns offers for req, from cache when possible.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest, op string) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	log := slog.With("op", op, "kind", req.Kind)
	key := req.Key()

	if set, found, err := s.cache.Get(ctx, key); err != nil {
		log.Warn("offer cache read failed", "error", err)
	} else if found {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		for i := range set.Offers {
			set.Offers[i].DeepLink = s.links.Restamp(set.Offers[i].DeepLink, req.UserID, map[string]string{
				"kind":     string(req.Kind),
				"provider": set.Offers[i].Provider,
			})
		}
		s.record(ctx, req, set, log)
		return &Result{OfferSet: set, Cached: true}, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	router, ok := s.routers[req.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: no sources for %q", ErrInvalidRequest, req.Kind)
	}

	start := time.Now()
	orch := routing.NewOrchestrator(router, s.retry,
		routing.WithAttemptHook[domain.SearchRequest, domain.OfferSet](func(r domain.AttemptRecord) {
			metrics.ProviderAttempts.WithLabelValues(r.Provider, string(r.Outcome)).Inc()
			metrics.ProviderLatency.WithLabelValues(r.Provider).Observe(r.Latency.Seconds())
		}),
		routing.WithLogger[domain.SearchRequest, domain.OfferSet](log),
	)
	res, err := orch.Resolve(ctx, req, routing.ResolveOptions{OperationID: op})
	metrics.PipelineDuration.WithLabelValues(string(req.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PipelineRuns.WithLabelValues(string(req.Kind), "exhausted").Inc()
		return nil, err
	}
	if res.Value == nil {
		metrics.PipelineRuns.WithLabelValues(string(req.Kind), "exhausted").Inc()
		if res.LastErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoOffers, res.LastErr)
		}
		return nil, ErrNoOffers
	}
	metrics.PipelineRuns.WithLabelValues(string(req.Kind), "success").Inc()

	set := res.Value
	if set.Source == "live" {
		if err := s.cache.Set(ctx, key, set); err != nil {
			log.Warn("offer cache write failed", "error", err)
		}
	}
	s.record(ctx, req, set, log)
	log.Info("search served", "provider", set.Provider, "source", set.Source, "offers", len(set.Offers))
	return &Result{OfferSet: set, Diagnostics: res.Diagnostics}, nil
}

func (s *Service) record(ctx context.Context, req domain.SearchRequest, set *domain.OfferSet, log *slog.Logger) {
	if s.searches == nil {
		return
	}
	err := s.searches.Record(ctx, &domain.SearchRecord{
		UserID:   req.UserID,
		Kind:     req.Kind,
		Key:      req.Key(),
		Provider: set.Provider,
		Source:   set.Source,
		Results:  len(set.Offers),
	})
	if err != nil {
		log.Warn("search record failed", "error", err)
	}
}

// Health returns router health for every kind.
func (s *Service) Health() map[domain.OfferKind][]routing.ProviderHealth {
	out := make(map[domain.OfferKind][]routing.ProviderHealth, len(s.routers))
	for k, r := range s.routers {
		out[k] = r.Health()
	}
	return out
}
