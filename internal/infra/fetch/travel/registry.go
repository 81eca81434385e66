package travel

import (
	"github.com/vietddude/packup/internal/core/config"
	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/fetch/provider"
)

// Registered is a built adapter with its spec.
type Registered struct {
	Spec    domain.ProviderSpec
	Adapter provider.Adapter[domain.SearchRequest, domain.OfferSet]
}

const mockPriority = 100

// Build returns the adapters serving kind: the live source first (unless
// mock mode is on or no token is configured) followed by the mock.
func Build(cfg config.TravelConfig, kind domain.OfferKind, links *Linker) []Registered {
	var out []Registered

	if !cfg.Mock && cfg.Token != "" {
		var (
			a          provider.Adapter[domain.SearchRequest, domain.OfferSet]
			capability domain.Capability
		)
		switch kind {
		case domain.OfferFlight:
			a, capability = NewFlights(cfg.Token, cfg.Currency, "", links, cfg.Timeout), domain.CapabilityFlights
		case domain.OfferHotel:
			a, capability = NewHotels(cfg.Token, cfg.Currency, "", links, cfg.Timeout), domain.CapabilityHotels
		case domain.OfferActivity:
			a, capability = NewActivities(cfg.Token, cfg.Currency, "", links, cfg.Timeout), domain.CapabilityActivities
		}
		if a != nil {
			out = append(out, Registered{
				Spec:    domain.ProviderSpec{Name: a.Name(), Priority: 1, Capabilities: []domain.Capability{capability}},
				Adapter: a,
			})
		}
	}

	m := NewMock(cfg.Currency, links)
	out = append(out, Registered{
		Spec: domain.ProviderSpec{
			Name:         m.Name(),
			Priority:     mockPriority,
			Capabilities: []domain.Capability{domain.CapabilityFlights, domain.CapabilityHotels, domain.CapabilityActivities},
		},
		Adapter: m,
	})
	return out
}
