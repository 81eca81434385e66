// Package sink downloads an accepted candidate and writes it to the object
// store under a fresh, collision-free key.
package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/fetch/provider"
	"github.com/vietddude/packup/internal/infra/fetch/routing"
	"github.com/vietddude/packup/internal/infra/objectstore"
)

var (
	ErrBelowFloor = errors.New("downloaded object below byte floor")
	ErrTooLarge   = errors.New("downloaded object above size limit")
	ErrNotImage   = errors.New("downloaded object is not an image")
	ErrTooNarrow  = errors.New("decoded image narrower than minimum width")
)

// PersistError is the single fault type returned by Persist.
type PersistError struct {
	Stage string // download, inspect, upload, locate
	Err   error
}

func (e *PersistError) Error() string { return "persist " + e.Stage + ": " + e.Err.Error() }
func (e *PersistError) Unwrap() error { return e.Err }

// Config tunes the sink.
type Config struct {
	KeyPrefix    string
	MinBytes     int64
	MaxBytes     int64
	MinWidth     int
	Timeout      time.Duration // per download attempt
	Attempts     int
	InitialDelay time.Duration
	SignedTTL    time.Duration
}

// Sink persists candidates into a Store.
type Sink struct {
	store      objectstore.Store
	cfg        Config
	httpClient *http.Client
	newID      func() string
}

// Option configures a Sink.
type Option func(*Sink)

// WithHTTPClient overrides the download client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sink) { s.httpClient = c }
}

// New creates a sink writing to store.
func New(store objectstore.Store, cfg Config, opts ...Option) *Sink {
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = 5 * 1024
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 20 << 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.SignedTTL <= 0 {
		cfg.SignedTTL = time.Hour
	}
	s := &Sink{
		store:      store,
		cfg:        cfg,
		httpClient: &http.Client{},
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type download struct {
	data        []byte
	contentType string
}

// Persist downloads c, checks it, uploads it and returns the asset.
func (s *Sink) Persist(ctx context.Context, op string, c *domain.Candidate, keyHint string) (*domain.PersistedAsset, error) {
	log := slog.With("op", op, "provider", c.Provider)

	retry := routing.RetryConfig{
		MaxAttempts:     s.cfg.Attempts,
		InitialDelay:    s.cfg.InitialDelay,
		MaxDelay:        2 * time.Second,
		BackoffMultiple: 2,
	}
	dl, err := routing.WithRetry(ctx, "download", retry, func(ctx context.Context) (*download, error) {
		return s.fetch(ctx, c.URL)
	}, func(r domain.AttemptRecord) {
		if !r.OK {
			log.Debug("download attempt failed", "attempt", r.Attempt, "error", r.Error)
		}
	})
	if err != nil {
		return nil, &PersistError{Stage: "download", Err: err}
	}

	if int64(len(dl.data)) < s.cfg.MinBytes {
		return nil, &PersistError{Stage: "inspect", Err: fmt.Errorf("%w: %d < %d bytes", ErrBelowFloor, len(dl.data), s.cfg.MinBytes)}
	}

	contentType := dl.contentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(dl.data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, &PersistError{Stage: "inspect", Err: fmt.Errorf("%w: %s", ErrNotImage, contentType)}
	}

	width, height := c.Width, c.Height
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(dl.data)); err == nil {
		width, height = cfg.Width, cfg.Height
		if s.cfg.MinWidth > 0 && width < s.cfg.MinWidth {
			return nil, &PersistError{Stage: "inspect", Err: fmt.Errorf("%w: %d < %d", ErrTooNarrow, width, s.cfg.MinWidth)}
		}
	}

	ext := Extension(c.URL, contentType)
	var key string
	for i := 0; i < 3; i++ {
		key = s.Key(keyHint, ext)
		err = s.store.Put(ctx, key, dl.data, contentType)
		if !errors.Is(err, objectstore.ErrExists) {
			break
		}
		log.Warn("storage key collision, regenerating", "key", key)
	}
	if err != nil {
		return nil, &PersistError{Stage: "upload", Err: err}
	}

	asset := &domain.PersistedAsset{
		OperationID: op,
		Provider:    c.Provider,
		Path:        key,
		OriginalURL: c.URL,
		Author:      c.Author,
		License:     c.License,
		Width:       width,
		Height:      height,
		Bytes:       int64(len(dl.data)),
		ContentType: contentType,
	}

	if s.store.Public() {
		asset.URL = s.store.PublicURL(key)
	} else {
		signed, err := s.store.SignedURL(ctx, key, s.cfg.SignedTTL)
		if err != nil {
			return nil, &PersistError{Stage: "locate", Err: err}
		}
		expires := time.Now().Add(s.cfg.SignedTTL).UTC()
		asset.URL = signed
		asset.Signed = true
		asset.ExpiresAt = &expires
	}

	log.Info("asset persisted", "key", key, "bytes", asset.Bytes, "content_type", contentType)
	return asset, nil
}

func (s *Sink) fetch(ctx context.Context, rawURL string) (*download, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, provider.Permanent("download", err)
	}
	req.Header.Set("User-Agent", "packup/1.0 (image fetch)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, provider.Transient("download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, provider.ClassifyStatus("download", resp.StatusCode, resp.Header, body)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, provider.Transient("download", fmt.Errorf("read body: %w", err))
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		return nil, provider.Permanent("download", ErrTooLarge)
	}

	ct := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	return &download{data: data, contentType: ct}, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)

// Key builds prefix/hint_<uuid><ext>. The random component makes keys
// unique per call.
func (s *Sink) Key(hint, ext string) string {
	hint = unsafeChars.ReplaceAllString(strings.TrimSpace(hint), "_")
	if len(hint) > 80 {
		hint = hint[:80]
	}
	name := s.newID() + ext
	if hint != "" {
		name = hint + "_" + name
	}
	if s.cfg.KeyPrefix == "" {
		return name
	}
	return path.Join(s.cfg.KeyPrefix, name)
}

var imageExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp|gif|bmp|tiff|svg)$`)

var contentTypeExt = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/webp":    ".webp",
	"image/gif":     ".gif",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/svg+xml": ".svg",
}

// Extension infers a file extension from the locator path, then the
// content type, falling back to .jpg.
func Extension(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if m := imageExt.FindString(u.Path); m != "" {
			return strings.ToLower(m)
		}
	}
	if ext, ok := contentTypeExt[contentType]; ok {
		return ext
	}
	return ".jpg"
}
