// Package travel implements the affiliate travel adapters (flights, hotels,
// activities) and the static mock used when live data is unavailable.
package travel

import (
	"time"

	"github.com/vietddude/packup/internal/infra/fetch/provider"
)

type source struct {
	*provider.BaseProvider
	http     *provider.HTTPClient
	endpoint string
	token    string
	currency string
	links    *Linker
}

func newSource(name, endpoint, token, currency string, links *Linker, timeout time.Duration) source {
	base := provider.NewBaseProvider(name)
	return source{
		BaseProvider: base,
		http:         provider.NewHTTPClient(base, timeout),
		endpoint:     endpoint,
		token:        token,
		currency:     currency,
		links:        links,
	}
}

func (s source) Name() string { return s.BaseProvider.Name }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
