package images

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/vietddude/packup/internal/core/config"
	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/fetch/provider"
)

// DefaultOrder is the priority used when no providers are configured.
var DefaultOrder = []string{"unsplash", "pexels", "bing", "google", "wikimedia"}

// Registered is a built adapter with its spec.
type Registered struct {
	Spec    domain.ProviderSpec
	Adapter provider.Adapter[string, domain.Candidate]
}

// Build constructs adapters for the enabled provider configs, sorted by
// priority. Providers missing credentials are skipped with a warning.
// An empty cfgs falls back to keyless Wikimedia only.
func Build(cfgs []config.ImageProviderConfig, timeout time.Duration) ([]Registered, error) {
	if len(cfgs) == 0 {
		cfgs = []config.ImageProviderConfig{{Name: "wikimedia", Priority: len(DefaultOrder)}}
	}

	var out []Registered
	for _, c := range cfgs {
		if !c.IsEnabled() {
			slog.Debug("image provider disabled", "provider", c.Name)
			continue
		}

		a, err := newAdapter(c, timeout)
		if err != nil {
			return nil, err
		}
		if a == nil {
			slog.Warn("image provider skipped: missing credentials", "provider", c.Name)
			continue
		}

		spec := domain.ProviderSpec{
			Name:         c.Name,
			Priority:     c.Priority,
			Capabilities: []domain.Capability{domain.CapabilityImages},
		}
		for _, capName := range c.Capabilities {
			spec.Capabilities = append(spec.Capabilities, domain.Capability(capName))
		}
		out = append(out, Registered{Spec: spec, Adapter: a})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Spec.Priority < out[j].Spec.Priority })
	return out, nil
}

// newAdapter returns nil without error when credentials are missing.
func newAdapter(c config.ImageProviderConfig, timeout time.Duration) (provider.Adapter[string, domain.Candidate], error) {
	switch c.Name {
	case "unsplash":
		if c.APIKey == "" {
			return nil, nil
		}
		return NewUnsplash(c.APIKey, c.Endpoint, timeout), nil
	case "pexels":
		if c.APIKey == "" {
			return nil, nil
		}
		return NewPexels(c.APIKey, c.Endpoint, timeout), nil
	case "bing":
		if c.APIKey == "" || c.Endpoint == "" {
			return nil, nil
		}
		return NewBing(c.APIKey, c.Endpoint, timeout), nil
	case "google":
		if c.APIKey == "" || c.CX == "" {
			return nil, nil
		}
		return NewGoogle(c.APIKey, c.CX, c.Endpoint, timeout), nil
	case "wikimedia":
		return NewWikimedia(c.Endpoint, timeout), nil
	default:
		return nil, fmt.Errorf("unknown image provider %q", c.Name)
	}
}
