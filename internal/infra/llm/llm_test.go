package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/vietddude/packup/internal/core/config"
	"github.com/vietddude/packup/internal/infra/fetch/provider"
	"github.com/vietddude/packup/internal/infra/fetch/routing"
)

// ============================================================================
// Parsing
// ============================================================================

func TestParseItinerary(t *testing.T) {
	valid := `{"title":"T","days":[{"day":1,"theme":"a","places":["x"],"details":"d","images":[{"query":"q"}]}]}`

	tests := []struct {
		name   string
		text   string
		reason string
	}{
		{"strict", valid, ""},
		{"wrapped in prose", "Sure! Here it is:\n" + valid + "\nEnjoy.", ""},
		{"garbage", "no json here", ReasonUnparseable},
		{"array", `[1,2]`, ReasonNotObject},
		{"no days", `{"title":"T"}`, ReasonDaysMissing},
		{"day not number", `{"days":[{"day":"1","places":[],"images":[]}]}`, ReasonDayNumberMissing},
		{"no places", `{"days":[{"day":1,"images":[]}]}`, ReasonPlacesMissing},
		{"no images", `{"days":[{"day":1,"places":[]}]}`, ReasonImagesMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := ParseItinerary(tt.text)
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if it.Title != "T" || len(it.Days) != 1 || it.Days[0].Images[0].Query != "q" {
					t.Errorf("unexpected itinerary %+v", it)
				}
				return
			}
			var oe *OutputError
			if !errors.As(err, &oe) || oe.Reason != tt.reason {
				t.Fatalf("expected reason %s, got %v", tt.reason, err)
			}
			if !errors.Is(err, ErrInvalidOutput) {
				t.Errorf("expected ErrInvalidOutput match")
			}
		})
	}
}

// ============================================================================
// Drafter
// ============================================================================

type stubCompleter struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	reqs    []Request
}

func (s *stubCompleter) Name() string  { return "stub" }
func (s *stubCompleter) Model() string { return "stub-1" }

func (s *stubCompleter) Complete(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.reqs)
	s.reqs = append(s.reqs, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return s.replies[len(s.replies)-1], nil
}

var fastRetry = routing.RetryConfig{MaxAttempts: 3, BackoffMultiple: 2}

func TestDrafter_MockMode(t *testing.T) {
	d := NewDrafter(nil, Options{})
	if !d.Mock() || d.Source() != "mock" {
		t.Fatalf("expected mock drafter")
	}
	it, err := d.Draft(context.Background(), "anything", "op")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(it.Days) != 5 || it.ImageCount() != 8 {
		t.Errorf("unexpected static itinerary: %d days, %d images", len(it.Days), it.ImageCount())
	}

	reply, _ := d.Chat(context.Background(), "3 days in Goa", "")
	if !strings.HasPrefix(reply, "Mock itinerary for: 3 days in Goa") {
		t.Errorf("unexpected mock reply %q", reply)
	}
}

func TestDrafter_RetriesTransientThenParses(t *testing.T) {
	c := &stubCompleter{
		errs:    []error{provider.Transient("stub", errors.New("503"))},
		replies: []string{"", `{"title":"Goa","days":[{"day":1,"places":[],"images":[]}]}`},
	}
	d := NewDrafter(c, Options{Retry: fastRetry})

	it, err := d.Draft(context.Background(), "Goa", "op-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Title != "Goa" || len(c.reqs) != 2 {
		t.Errorf("title=%s calls=%d", it.Title, len(c.reqs))
	}
	if !c.reqs[0].JSON || c.reqs[0].OperationID != "op-1" || c.reqs[0].Messages[0].Role != RoleSystem {
		t.Errorf("unexpected request %+v", c.reqs[0])
	}
}

func TestDrafter_InvalidOutput(t *testing.T) {
	c := &stubCompleter{replies: []string{`{"title":"x"}`}}
	d := NewDrafter(c, Options{Retry: fastRetry})

	_, err := d.Draft(context.Background(), "Goa", "op")
	if !errors.Is(err, ErrInvalidOutput) {
		t.Fatalf("expected ErrInvalidOutput, got %v", err)
	}
}

func TestDrafter_PermanentNotRetried(t *testing.T) {
	c := &stubCompleter{errs: []error{provider.Permanent("stub", errors.New("401"))}, replies: []string{"{}"}}
	d := NewDrafter(c, Options{Retry: fastRetry})

	if _, err := d.Chat(context.Background(), "hi", "trips: none"); err == nil {
		t.Fatal("expected error")
	}
	if len(c.reqs) != 1 {
		t.Errorf("expected 1 call, got %d", len(c.reqs))
	}
	if len(c.reqs[0].Messages) != 3 || c.reqs[0].Messages[1].Content != "Context: trips: none" {
		t.Errorf("context note not sent: %+v", c.reqs[0].Messages)
	}
}

// ============================================================================
// OpenAI backend
// ============================================================================

func TestOpenAI_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing auth header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := o.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleSystem, Content: "s"}, {Role: RoleUser, Content: "u"}},
		JSON:     true,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"ok":true}` {
		t.Errorf("unexpected content %q", out)
	}
	if got["model"] != defaultOpenAIModel {
		t.Errorf("unexpected model %v", got["model"])
	}
	if rf, ok := got["response_format"].(map[string]any); !ok || rf["type"] != "json_object" {
		t.Errorf("json response format not requested: %v", got["response_format"])
	}
}

func TestOpenAI_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"x"}}`))
		}))
		o, _ := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
		_, err := o.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "u"}}})
		srv.Close()

		if provider.IsTransient(err) != tt.transient {
			t.Errorf("status %d: transient=%v, err=%v", tt.status, provider.IsTransient(err), err)
		}
	}
}

func TestNewCompleter(t *testing.T) {
	c, err := NewCompleter(context.Background(), config.LLMConfig{Backend: "openai"})
	if err != nil || c != nil {
		t.Errorf("missing key should select mock mode, got %v %v", c, err)
	}
	c, err = NewCompleter(context.Background(), config.LLMConfig{Backend: "openai", APIKey: "k", Model: "gpt-x"})
	if err != nil || c == nil || c.Model() != "gpt-x" {
		t.Errorf("expected openai completer, got %v %v", c, err)
	}
	if _, err := NewCompleter(context.Background(), config.LLMConfig{Backend: "llama", APIKey: "k"}); err == nil {
		t.Errorf("expected unknown backend error")
	}
}
