package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer   abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		tok, ok := BearerToken(tt.header)
		if tok != tt.token || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q,%v want %q,%v", tt.header, tok, ok, tt.token, tt.ok)
		}
	}
}

func TestStatic(t *testing.T) {
	r := Static{User: "dev-user"}
	if id, err := r.UserID(context.Background(), "anything"); err != nil || id != "dev-user" {
		t.Errorf("unexpected %q %v", id, err)
	}
	if _, err := r.UserID(context.Background(), ""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}

func TestSupabase_UserID(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/auth/v1/user" || r.Header.Get("apikey") != "anon" {
			t.Errorf("unexpected request %s apikey=%q", r.URL.Path, r.Header.Get("apikey"))
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"id":"5b8f-user","email":"a@b.c"}`))
		case "Bearer flaky":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
		}
	}))
	defer srv.Close()

	s := NewSupabase(srv.URL+"/", "anon", 0).WithHTTPClient(srv.Client())
	ctx := context.Background()

	id, err := s.UserID(ctx, "good")
	if err != nil || id != "5b8f-user" {
		t.Fatalf("unexpected %q %v", id, err)
	}
	if _, err := s.UserID(ctx, "good"); err != nil {
		t.Fatalf("cached lookup failed: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected cached second lookup, got %d hits", n)
	}

	if _, err := s.UserID(ctx, "bad"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := s.UserID(ctx, "flaky"); err == nil || errors.Is(err, ErrInvalidToken) {
		t.Errorf("upstream failure must not look like a bad token: %v", err)
	}
	if _, err := s.UserID(ctx, " "); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}
