package travel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/packup/internal/core/config"
	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/fetch/provider"
)

func fixedLinker(secret string) *Linker {
	l := NewLinker("mk1", secret)
	l.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return l
}

func TestClickID(t *testing.T) {
	dev := fixedLinker("")
	if got := dev.ClickID("u1", nil); got != "dev-u1-1700000000000" {
		t.Errorf("unexpected dev click id %q", got)
	}

	l := fixedLinker("s3cret")
	a := l.ClickID("u1", map[string]string{"city": "leh"})
	b := l.ClickID("u1", map[string]string{"city": "leh"})
	c := l.ClickID("u2", map[string]string{"city": "leh"})
	if a != b {
		t.Errorf("click id should be deterministic for same input and time")
	}
	if a == c {
		t.Errorf("different users should differ")
	}
	if len(a) != 64 || strings.Contains(a, "u1") {
		t.Errorf("expected 64 hex chars without user id, got %q", a)
	}
}

func TestAttach(t *testing.T) {
	l := fixedLinker("s")
	got := l.Attach("https://example.com/tour?lang=en", "u1", nil)
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("bad url: %v", err)
	}
	q := u.Query()
	if q.Get("marker") != "mk1" || q.Get("click_id") == "" || q.Get("lang") != "en" {
		t.Errorf("unexpected query %v", q)
	}

	if got := l.Attach("not a url", "u1", nil); got != "not a url" {
		t.Errorf("unparseable url should be returned unchanged, got %q", got)
	}
}

func TestFlights_Attempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Access-Token") != "tok" {
			t.Errorf("missing access token header")
		}
		q := r.URL.Query()
		if q.Get("origin") != "DEL" || q.Get("destination") != "IXL" || q.Get("limit") != "5" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[{"origin":"DEL","destination":"IXL","depart_date":"2025-07-01","value":6123,"gate":"Indigo"}]}`))
	}))
	defer server.Close()

	f := NewFlights("tok", "INR", server.URL, fixedLinker("s"), time.Second)
	set, err := f.Attempt(context.Background(), domain.SearchRequest{Kind: domain.OfferFlight, Origin: "del", Destination: "ixl", DepartDate: "2025-07-01", UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set == nil || len(set.Offers) != 1 {
		t.Fatalf("expected one offer, got %+v", set)
	}
	o := set.Offers[0]
	if o.Price != 6123 || o.Currency != "INR" || o.Airline != "Indigo" || set.Source != "live" {
		t.Errorf("unexpected offer %+v", o)
	}
	if !strings.HasPrefix(o.DeepLink, aviasalesBase) || !strings.Contains(o.DeepLink, "marker=mk1") {
		t.Errorf("unexpected deep link %s", o.DeepLink)
	}
}

func TestFlights_EmptyIsNoResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer server.Close()

	set, err := NewFlights("tok", "INR", server.URL, fixedLinker(""), time.Second).
		Attempt(context.Background(), domain.SearchRequest{Kind: domain.OfferFlight, Origin: "DEL", Destination: "IXL"})
	if err != nil || set != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", set, err)
	}
}

func TestHotels_Attempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tok" || r.URL.Query().Get("currency") != "inr" {
			t.Errorf("unexpected query %v", r.URL.Query())
		}
		_, _ = w.Write([]byte(`[{"hotelName":"Grand Dragon","priceFrom":7800},{"hotelName":"Lchang Nang","priceFrom":5400}]`))
	}))
	defer server.Close()

	set, err := NewHotels("tok", "INR", server.URL, fixedLinker("s"), time.Second).
		Attempt(context.Background(), domain.SearchRequest{Kind: domain.OfferHotel, City: "Leh", CheckIn: "2025-07-01", CheckOut: "2025-07-04"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Offers) != 2 || set.Offers[0].Title != "Grand Dragon" || set.Offers[1].Price != 5400 {
		t.Errorf("unexpected offers %+v", set.Offers)
	}
	if !strings.HasPrefix(set.Offers[0].DeepLink, hotellookBase+"Leh") {
		t.Errorf("unexpected deep link %s", set.Offers[0].DeepLink)
	}
}

func TestActivities_Attempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"title":"Monastery walk","url":"https://tours.example/1","price":{"amount":900,"currency":"inr"}},{"price":{"amount":100}}]}`))
	}))
	defer server.Close()

	set, err := NewActivities("tok", "INR", server.URL, fixedLinker("s"), time.Second).
		Attempt(context.Background(), domain.SearchRequest{Kind: domain.OfferActivity, City: "Leh", Date: "2025-07-02"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Offers[0].Title != "Monastery walk" || set.Offers[0].Currency != "INR" {
		t.Errorf("unexpected offer %+v", set.Offers[0])
	}
	if !strings.HasPrefix(set.Offers[0].DeepLink, "https://tours.example/1?") {
		t.Errorf("expected provider url as deep link base, got %s", set.Offers[0].DeepLink)
	}
	if set.Offers[1].Title != "Unknown Activity" {
		t.Errorf("expected fallback title, got %q", set.Offers[1].Title)
	}
}

func TestWrongKindIsPermanent(t *testing.T) {
	f := NewFlights("tok", "INR", "http://127.0.0.1:1", fixedLinker(""), time.Second)
	_, err := f.Attempt(context.Background(), domain.SearchRequest{Kind: domain.OfferHotel})
	if !provider.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestMock(t *testing.T) {
	m := NewMock("inr", fixedLinker(""))
	tests := []struct {
		req   domain.SearchRequest
		title string
		price float64
	}{
		{domain.SearchRequest{Kind: domain.OfferFlight, Origin: "DEL", Destination: "IXL"}, "DEL → IXL", 5999},
		{domain.SearchRequest{Kind: domain.OfferHotel, City: "Leh"}, "Mock Palace", 4500},
		{domain.SearchRequest{Kind: domain.OfferActivity, City: "Leh"}, "Mock City Tour", 1200},
	}
	for _, tt := range tests {
		set, err := m.Attempt(context.Background(), tt.req)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.req.Kind, err)
		}
		o := set.Offers[0]
		if set.Source != "mock" || o.Title != tt.title || o.Price != tt.price || o.Currency != "INR" {
			t.Errorf("%s: unexpected offer %+v", tt.req.Kind, o)
		}
	}
}

func TestBuild(t *testing.T) {
	links := fixedLinker("")
	live := Build(config.TravelConfig{Token: "t", Currency: "INR", Timeout: time.Second}, domain.OfferHotel, links)
	if len(live) != 2 || live[0].Spec.Name != "hotellook" || live[1].Spec.Name != "mock" {
		t.Errorf("unexpected live registry %+v", live)
	}

	mock := Build(config.TravelConfig{Token: "t", Mock: true}, domain.OfferFlight, links)
	if len(mock) != 1 || mock[0].Spec.Name != "mock" {
		t.Errorf("mock mode should only register the mock, got %+v", mock)
	}

	noToken := Build(config.TravelConfig{}, domain.OfferActivity, links)
	if len(noToken) != 1 {
		t.Errorf("missing token should only register the mock, got %d", len(noToken))
	}
}

func TestRestamp(t *testing.T) {
	l := NewLinker("m1", "s3cret")
	link := l.HotelLink("Leh", "2025-06-01", "2025-06-03", "", "user-a")

	b := l.Restamp(link, "user-b", map[string]string{"kind": "hotel"})
	ub, _ := url.Parse(b)
	ua, _ := url.Parse(link)
	if ub.Query().Get("click_id") == "" || ub.Query().Get("click_id") == ua.Query().Get("click_id") {
		t.Errorf("click id not replaced: %s", b)
	}
	if ub.Query().Get("marker") != "m1" || ub.Query().Get("checkIn") != "2025-06-01" {
		t.Errorf("restamp lost parameters: %s", b)
	}

	anon, _ := url.Parse(l.Restamp(link, "", nil))
	if anon.Query().Has("click_id") {
		t.Errorf("anonymous restamp kept click id: %s", anon)
	}
}
