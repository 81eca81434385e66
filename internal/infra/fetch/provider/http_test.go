package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Client-ID k" {
			t.Errorf("expected auth header, got %q", got)
		}
		_, _ = w.Write([]byte(`{"results":[{"id":"a"}]}`))
	}))
	defer server.Close()

	base := NewBaseProvider("unsplash")
	c := NewHTTPClient(base, 2*time.Second)

	var out struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	err := c.GetJSON(context.Background(), server.URL, map[string]string{"Authorization": "Client-ID k"}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].ID != "a" {
		t.Errorf("unexpected decode: %+v", out)
	}
	if h := base.GetHealth(); h.ErrorRate != 0 || !h.Available {
		t.Errorf("expected healthy provider, got %+v", h)
	}
}

func TestHTTPClient_Classification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"server error", http.StatusBadGateway, "oops", true},
		{"rate limited", http.StatusTooManyRequests, "slow down", true},
		{"unauthorized", http.StatusUnauthorized, "bad key", false},
		{"forbidden", http.StatusForbidden, "nope", false},
		{"bad request", http.StatusBadRequest, "bad", false},
		{"malformed body", http.StatusOK, "{not json", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status == http.StatusTooManyRequests {
					w.Header().Set("Retry-After", "7")
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			base := NewBaseProvider("p")
			c := NewHTTPClient(base, time.Second)
			var out map[string]any
			err := c.GetJSON(context.Background(), server.URL, nil, &out)
			if err == nil {
				t.Fatal("expected error")
			}
			if IsTransient(err) != tt.transient {
				t.Errorf("transient = %v, want %v (err=%v)", IsTransient(err), tt.transient, err)
			}
			if IsPermanent(err) == tt.transient {
				t.Errorf("permanent = %v, want %v", IsPermanent(err), !tt.transient)
			}
			if base.GetHealth().ErrorRate != 1 {
				t.Errorf("expected failure recorded")
			}
		})
	}
}

func TestHTTPClient_RetryAfterRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	base := NewBaseProvider("p")
	c := NewHTTPClient(base, time.Second)
	err := c.GetJSON(context.Background(), server.URL, nil, &struct{}{})

	var te *TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransientError, got %v", err)
	}
	if te.RetryAfter != 30*time.Second {
		t.Errorf("expected retry-after 30s, got %v", te.RetryAfter)
	}
	if ra := base.Monitor.GetRetryAfter(); ra <= 0 || ra > 30*time.Second {
		t.Errorf("monitor retry-after out of range: %v", ra)
	}
}

func TestHTTPClient_AttemptTimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := NewHTTPClient(NewBaseProvider("slow"), 50*time.Millisecond)
	err := c.GetJSON(context.Background(), server.URL, nil, &struct{}{})
	if !IsTransient(err) {
		t.Fatalf("expected transient timeout, got %v", err)
	}
}
