// Package images implements the image search adapters: Unsplash, Pexels,
// Bing, Google Custom Search and Wikimedia Commons.
package images

import (
	"time"

	"github.com/vietddude/packup/internal/infra/fetch/provider"
)

// source is the shared plumbing embedded by every adapter.
type source struct {
	*provider.BaseProvider
	http     *provider.HTTPClient
	endpoint string
}

func newSource(name, endpoint string, timeout time.Duration) source {
	base := provider.NewBaseProvider(name)
	return source{
		BaseProvider: base,
		http:         provider.NewHTTPClient(base, timeout),
		endpoint:     endpoint,
	}
}

func (s source) Name() string { return s.BaseProvider.Name }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
