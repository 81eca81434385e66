// Package identity resolves bearer tokens to user ids.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/vietddude/packup/internal/infra/fetch/provider"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Resolver maps a bearer token to the caller's user id.
type Resolver interface {
	UserID(ctx context.Context, bearer string) (string, error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}

// Static resolves every non-empty token to the same user. Used in dev mode
// and tests.
type Static struct {
	User string
}

func (s Static) UserID(_ context.Context, bearer string) (string, error) {
	if strings.TrimSpace(bearer) == "" {
		return "", ErrMissingToken
	}
	return s.User, nil
}

// Supabase validates tokens against the auth server's /auth/v1/user
// endpoint. Successful lookups are cached briefly.
type Supabase struct {
	baseURL string
	anonKey string
	http    *provider.HTTPClient
	cache   *gocache.Cache
}

// NewSupabase creates a resolver for the project at baseURL.
func NewSupabase(baseURL, anonKey string, timeout time.Duration) *Supabase {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	base := provider.NewBaseProvider("supabase_auth")
	return &Supabase{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    provider.NewHTTPClient(base, timeout),
		cache:   gocache.New(time.Minute, 5*time.Minute),
	}
}

// WithHTTPClient swaps the transport (tests).
func (s *Supabase) WithHTTPClient(hc *http.Client) *Supabase {
	s.http.WithHTTPClient(hc)
	return s
}

type authUser struct {
	ID string `json:"id"`
}

func (s *Supabase) UserID(ctx context.Context, bearer string) (string, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return "", ErrMissingToken
	}
	sum := sha256.Sum256([]byte(bearer))
	ck := hex.EncodeToString(sum[:])
	if v, ok := s.cache.Get(ck); ok {
		return v.(string), nil
	}

	var u authUser
	err := s.http.GetJSON(ctx, s.baseURL+"/auth/v1/user", map[string]string{
		"apikey":        s.anonKey,
		"Authorization": "Bearer " + bearer,
	}, &u)
	if err != nil {
		var pe *provider.PermanentError
		if errors.As(err, &pe) && (pe.Status == http.StatusUnauthorized || pe.Status == http.StatusForbidden) {
			return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return "", fmt.Errorf("resolve user: %w", err)
	}
	if u.ID == "" {
		return "", ErrInvalidToken
	}
	s.cache.SetDefault(ck, u.ID)
	return u.ID, nil
}
