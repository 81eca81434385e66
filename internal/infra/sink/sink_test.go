package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/objectstore"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), uint8(x ^ y), 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func imageServer(t *testing.T, body []byte, contentType string, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig() Config {
	return Config{KeyPrefix: "itineraries", MinBytes: 64, MinWidth: 360, Attempts: 3}
}

func TestPersist_PublicBucket(t *testing.T) {
	data := pngBytes(t, 400, 300)
	server := imageServer(t, data, "image/png", nil)
	store := objectstore.NewMemory("https://cdn.test", true)
	s := New(store, testConfig())

	c := &domain.Candidate{Kind: domain.ResourceImage, Provider: "pexels", URL: server.URL + "/photos/lake.png", Author: "Raj", License: "pexels"}
	asset, err := s.Persist(context.Background(), "op-1", c, "Pangong Tso sunrise")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	keyRe := regexp.MustCompile(`^itineraries/Pangong_Tso_sunrise_[0-9a-f-]{36}\.png$`)
	if !keyRe.MatchString(asset.Path) {
		t.Errorf("unexpected key %s", asset.Path)
	}
	if asset.URL != "https://cdn.test/"+asset.Path || asset.Signed {
		t.Errorf("expected public url, got %s (signed=%v)", asset.URL, asset.Signed)
	}
	if asset.Width != 400 || asset.Height != 300 || asset.Bytes != int64(len(data)) {
		t.Errorf("unexpected metadata %+v", asset)
	}
	if asset.Author != "Raj" || asset.OriginalURL != c.URL || asset.OperationID != "op-1" {
		t.Errorf("candidate metadata not carried: %+v", asset)
	}
	stored, ct, err := store.Get(asset.Path)
	if err != nil || !bytes.Equal(stored, data) || ct != "image/png" {
		t.Errorf("stored object mismatch (ct=%s err=%v)", ct, err)
	}
}

func TestPersist_PrivateBucketSigns(t *testing.T) {
	server := imageServer(t, pngBytes(t, 400, 300), "image/png", nil)
	s := New(objectstore.NewMemory("https://private.test", false), testConfig())

	asset, err := s.Persist(context.Background(), "op", &domain.Candidate{Provider: "p", URL: server.URL + "/x"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !asset.Signed || asset.ExpiresAt == nil || !strings.Contains(asset.URL, "expires=") {
		t.Errorf("expected signed url, got %+v", asset)
	}
}

func TestPersist_BelowFloor(t *testing.T) {
	server := imageServer(t, pngBytes(t, 400, 300), "image/png", nil)
	cfg := testConfig()
	cfg.MinBytes = 10 << 20
	store := objectstore.NewMemory("", true)

	_, err := New(store, cfg).Persist(context.Background(), "op", &domain.Candidate{URL: server.URL}, "x")
	if !errors.Is(err, ErrBelowFloor) {
		t.Fatalf("expected ErrBelowFloor, got %v", err)
	}
	var pe *PersistError
	if !errors.As(err, &pe) || pe.Stage != "inspect" {
		t.Errorf("expected inspect stage PersistError, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("nothing should be uploaded")
	}
}

func TestPersist_RejectsNarrowAndNonImage(t *testing.T) {
	narrow := imageServer(t, pngBytes(t, 100, 100), "image/png", nil)
	_, err := New(objectstore.NewMemory("", true), testConfig()).Persist(context.Background(), "op", &domain.Candidate{URL: narrow.URL}, "")
	if !errors.Is(err, ErrTooNarrow) {
		t.Errorf("expected ErrTooNarrow, got %v", err)
	}

	html := imageServer(t, []byte(strings.Repeat("<html>nope</html>", 20)), "text/html; charset=utf-8", nil)
	_, err = New(objectstore.NewMemory("", true), testConfig()).Persist(context.Background(), "op", &domain.Candidate{URL: html.URL}, "")
	if !errors.Is(err, ErrNotImage) {
		t.Errorf("expected ErrNotImage, got %v", err)
	}
}

func TestPersist_DownloadRetry(t *testing.T) {
	data := pngBytes(t, 400, 300)
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	if _, err := New(objectstore.NewMemory("", true), testConfig()).Persist(context.Background(), "op", &domain.Candidate{URL: server.URL}, ""); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("expected 2 downloads, got %d", hits)
	}
}

func TestPersist_NotFoundIsNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(objectstore.NewMemory("", true), testConfig()).Persist(context.Background(), "op", &domain.Candidate{URL: server.URL}, "")
	var pe *PersistError
	if !errors.As(err, &pe) || pe.Stage != "download" {
		t.Fatalf("expected download PersistError, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("404 should not be retried, got %d hits", hits)
	}
}

func TestPersist_KeyCollisionRegenerates(t *testing.T) {
	server := imageServer(t, pngBytes(t, 400, 300), "image/png", nil)
	store := objectstore.NewMemory("", true)
	s := New(store, testConfig())

	ids := []string{"same", "same", "fresh"}
	var n int
	s.newID = func() string { id := ids[n]; n++; return id }

	if _, err := s.Persist(context.Background(), "op", &domain.Candidate{URL: server.URL + "/a.jpg"}, "k"); err != nil {
		t.Fatalf("first persist: %v", err)
	}
	asset, err := s.Persist(context.Background(), "op", &domain.Candidate{URL: server.URL + "/a.jpg"}, "k")
	if err != nil {
		t.Fatalf("second persist: %v", err)
	}
	if asset.Path != "itineraries/k_fresh.jpg" {
		t.Errorf("expected regenerated key, got %s", asset.Path)
	}
}

// Concurrent persists never share a key.
func TestPersist_UniqueKeys(t *testing.T) {
	server := imageServer(t, pngBytes(t, 400, 300), "image/png", nil)
	store := objectstore.NewMemory("", true)
	s := New(store, testConfig())

	const n = 32
	var wg sync.WaitGroup
	paths := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			asset, err := s.Persist(context.Background(), fmt.Sprintf("op-%d", i), &domain.Candidate{URL: server.URL + "/p.png"}, "same hint")
			errs[i] = err
			if asset != nil {
				paths[i] = asset.Path
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, p := range paths {
		if errs[i] != nil {
			t.Fatalf("persist %d: %v", i, errs[i])
		}
		if seen[p] {
			t.Fatalf("duplicate key %s", p)
		}
		seen[p] = true
	}
	if store.Len() != n {
		t.Errorf("expected %d objects, got %d", n, store.Len())
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		url, ct, want string
	}{
		{"https://x/a/photo.JPEG", "", ".jpeg"},
		{"https://x/a/photo.png?w=1200", "image/jpeg", ".png"},
		{"https://images.unsplash.com/photo-123?ixid=abc", "image/webp", ".webp"},
		{"https://x/a/noext", "application/octet-stream", ".jpg"},
		{"::bad", "image/gif", ".gif"},
	}
	for _, tt := range tests {
		if got := Extension(tt.url, tt.ct); got != tt.want {
			t.Errorf("Extension(%q, %q) = %q, want %q", tt.url, tt.ct, got, tt.want)
		}
	}
}
