package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Supabase talks to the Supabase Storage REST API with a service key.
type Supabase struct {
	baseURL    string
	bucket     string
	serviceKey string
	public     bool
	httpClient *http.Client
}

// NewSupabase creates a store for bucket at projectURL
// (e.g. https://xyz.supabase.co).
func NewSupabase(projectURL, serviceKey, bucket string, public bool) *Supabase {
	return &Supabase{
		baseURL:    strings.TrimRight(projectURL, "/"),
		bucket:     bucket,
		serviceKey: serviceKey,
		public:     public,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Supabase) objectPath(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return url.PathEscape(s.bucket) + "/" + strings.Join(parts, "/")
}

func (s *Supabase) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+"/storage/v1"+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	return req, nil
}

func (s *Supabase) Put(ctx context.Context, key string, data []byte, contentType string) error {
	req, err := s.newRequest(ctx, http.MethodPost, "/object/"+s.objectPath(key), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusConflict || bytes.Contains(bytes.ToLower(body), []byte("duplicate")) {
		return fmt.Errorf("%s: %w", key, ErrExists)
	}
	return fmt.Errorf("upload %s: http %d: %s", key, resp.StatusCode, string(body))
}

func (s *Supabase) PublicURL(key string) string {
	return s.baseURL + "/storage/v1/object/public/" + s.objectPath(key)
}

func (s *Supabase) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	payload, _ := json.Marshal(map[string]int{"expiresIn": int(ttl.Seconds())})
	req, err := s.newRequest(ctx, http.MethodPost, "/object/sign/"+s.objectPath(key), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("sign %s: http %d: %s", key, resp.StatusCode, string(body))
	}

	var out struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.SignedURL == "" {
		return "", fmt.Errorf("sign %s: unexpected response: %s", key, string(body))
	}
	return s.baseURL + "/storage/v1" + out.SignedURL, nil
}

func (s *Supabase) Public() bool { return s.public }
