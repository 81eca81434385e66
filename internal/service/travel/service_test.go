package travel

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/cache"
	"github.com/vietddude/packup/internal/infra/fetch/provider"
	"github.com/vietddude/packup/internal/infra/fetch/routing"
	travelsrc "github.com/vietddude/packup/internal/infra/fetch/travel"
	"github.com/vietddude/packup/internal/infra/storage/memory"
)

// ============================================================================
// Helpers
// ============================================================================

type liveStub struct {
	links *travelsrc.Linker
	err   error
	calls atomic.Int32
}

func (s *liveStub) Name() string { return "stub_live" }

func (s *liveStub) Attempt(_ context.Context, req domain.SearchRequest) (*domain.OfferSet, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.OfferSet{
		Provider: s.Name(),
		Source:   "live",
		Offers: []domain.Offer{{
			Provider: s.Name(),
			Kind:     req.Kind,
			Title:    "DEL → IXL",
			Price:    7420,
			Currency: "INR",
			DeepLink: s.links.Attach("https://www.aviasales.com/search/DEL1506IXL1", req.UserID, nil),
		}},
	}, nil
}

var fastRetry = routing.RetryConfig{
	MaxAttempts:     1,
	InitialDelay:    time.Millisecond,
	MaxDelay:        time.Millisecond,
	BackoffMultiple: 2,
}

func newService(t *testing.T, live *liveStub) (*Service, *memory.MemoryStorage) {
	t.Helper()
	links := travelsrc.NewLinker("mk1", "")
	live.links = links
	routers, err := NewRouters(func(kind domain.OfferKind) []travelsrc.Registered {
		return []travelsrc.Registered{
			{Spec: domain.ProviderSpec{Name: live.Name(), Priority: 1}, Adapter: live},
			{Spec: domain.ProviderSpec{Name: "mock", Priority: 100}, Adapter: travelsrc.NewMock("INR", links)},
		}
	})
	if err != nil {
		t.Fatalf("NewRouters: %v", err)
	}
	store := memory.NewMemoryStorage()
	return New(routers, fastRetry, cache.NewMemory(time.Minute), store.Searches(), links), store
}

func flightReq(user string) domain.SearchRequest {
	return domain.SearchRequest{
		Kind:        domain.OfferFlight,
		Origin:      "DEL",
		Destination: "IXL",
		DepartDate:  "2025-06-15",
		UserID:      user,
	}
}

func clickID(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse %q: %v", link, err)
	}
	return u.Query().Get("click_id")
}

// ============================================================================
// Validation
// ============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  domain.SearchRequest
		ok   bool
	}{
		{"flight ok", flightReq(""), true},
		{"flight missing date", domain.SearchRequest{Kind: domain.OfferFlight, Origin: "DEL", Destination: "IXL"}, false},
		{"hotel ok", domain.SearchRequest{Kind: domain.OfferHotel, City: "Leh", CheckIn: "2025-06-15", CheckOut: "2025-06-18"}, true},
		{"hotel missing checkout", domain.SearchRequest{Kind: domain.OfferHotel, City: "Leh", CheckIn: "2025-06-15"}, false},
		{"activity ok", domain.SearchRequest{Kind: domain.OfferActivity, City: "Leh"}, true},
		{"activity blank city", domain.SearchRequest{Kind: domain.OfferActivity, City: "  "}, false},
		{"unknown kind", domain.SearchRequest{Kind: "train"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

// ============================================================================
// Search
// ============================================================================

func TestSearch_LiveResultIsCachedAndRestamped(t *testing.T) {
	live := &liveStub{}
	svc, store := newService(t, live)
	ctx := context.Background()

	first, err := svc.Search(ctx, flightReq("alice"), "op-1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if first.Cached || first.Source != "live" || first.Provider != "stub_live" {
		t.Fatalf("unexpected first result: cached=%v source=%s provider=%s", first.Cached, first.Source, first.Provider)
	}
	if id := clickID(t, first.Offers[0].DeepLink); !strings.HasPrefix(id, "dev-alice-") {
		t.Fatalf("expected alice click id, got %q", id)
	}

	second, err := svc.Search(ctx, flightReq("bob"), "op-2")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !second.Cached {
		t.Fatal("second search should be served from cache")
	}
	if live.calls.Load() != 1 {
		t.Fatalf("live adapter called %d times, want 1", live.calls.Load())
	}
	if id := clickID(t, second.Offers[0].DeepLink); !strings.HasPrefix(id, "dev-bob-") {
		t.Fatalf("cached link not restamped for bob: %q", id)
	}
	if store.SearchCount() != 2 {
		t.Fatalf("expected 2 search records, got %d", store.SearchCount())
	}
}

func TestSearch_FallsBackToMock(t *testing.T) {
	live := &liveStub{err: provider.Permanent("stub_live", errors.New("401 unauthorized"))}
	svc, _ := newService(t, live)
	ctx := context.Background()

	req := domain.SearchRequest{Kind: domain.OfferHotel, City: "Leh", CheckIn: "2025-06-15", CheckOut: "2025-06-18", UserID: "alice"}
	res, err := svc.Search(ctx, req, "op-3")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Source != "mock" || res.Provider != "mock" {
		t.Fatalf("expected mock fallback, got %s/%s", res.Provider, res.Source)
	}
	if len(res.Diagnostics) != 2 || res.Diagnostics[0].Outcome != domain.OutcomePermanent {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}

	// mock results are not cached
	again, err := svc.Search(ctx, req, "op-4")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if again.Cached {
		t.Fatal("mock result must not be cached")
	}
	if live.calls.Load() != 2 {
		t.Fatalf("live adapter called %d times, want 2", live.calls.Load())
	}
}

func TestSearch_InvalidRequestSkipsProviders(t *testing.T) {
	live := &liveStub{}
	svc, store := newService(t, live)

	_, err := svc.Search(context.Background(), domain.SearchRequest{Kind: domain.OfferActivity}, "op-5")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if live.calls.Load() != 0 || store.SearchCount() != 0 {
		t.Fatal("invalid request must not reach providers or storage")
	}
}

func TestSearch_NoSourcesLeft(t *testing.T) {
	routers, err := NewRouters(func(domain.OfferKind) []travelsrc.Registered { return nil })
	if err != nil {
		t.Fatalf("NewRouters: %v", err)
	}
	svc := New(routers, fastRetry, nil, nil, travelsrc.NewLinker("", ""))

	_, err = svc.Search(context.Background(), domain.SearchRequest{Kind: domain.OfferActivity, City: "Leh"}, "op-6")
	if !errors.Is(err, ErrNoOffers) || !errors.Is(err, routing.ErrNoProviders) {
		t.Fatalf("expected ErrNoOffers wrapping ErrNoProviders, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	svc, _ := newService(t, &liveStub{})
	h := svc.Health()
	if len(h) != 3 || len(h[domain.OfferFlight]) != 2 {
		t.Fatalf("unexpected health: %+v", h)
	}
}
