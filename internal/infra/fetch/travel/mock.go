package travel

import (
	"context"
	"fmt"
	"strings"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/fetch/provider"
)

// Mock returns one fixed offer per kind. It is the last-resort provider and
// the only one in mock mode.
type Mock struct {
	*provider.BaseProvider
	currency string
	links    *Linker
}

func NewMock(currency string, links *Linker) *Mock {
	return &Mock{
		BaseProvider: provider.NewBaseProvider("mock"),
		currency:     strings.ToUpper(orDefault(currency, "INR")),
		links:        links,
	}
}

func (m *Mock) Name() string { return m.BaseProvider.Name }

func (m *Mock) Attempt(ctx context.Context, req domain.SearchRequest) (*domain.OfferSet, error) {
	var offer domain.Offer
	switch req.Kind {
	case domain.OfferFlight:
		offer = domain.Offer{
			Kind:     domain.OfferFlight,
			Title:    fmt.Sprintf("%s → %s", req.Origin, req.Destination),
			From:     req.Origin,
			To:       req.Destination,
			DepartAt: req.DepartDate,
			ReturnAt: req.ReturnDate,
			Airline:  "MockAir",
			Price:    5999,
			DeepLink: m.links.FlightLink(req.Origin, req.Destination, req.DepartDate, req.ReturnDate, req.UserID),
		}
	case domain.OfferHotel:
		offer = domain.Offer{
			Kind:     domain.OfferHotel,
			Title:    "Mock Palace",
			City:     req.City,
			CheckIn:  req.CheckIn,
			CheckOut: req.CheckOut,
			Price:    4500,
			DeepLink: m.links.HotelLink(req.City, req.CheckIn, req.CheckOut, "", req.UserID),
		}
	case domain.OfferActivity:
		offer = domain.Offer{
			Kind:     domain.OfferActivity,
			Title:    "Mock City Tour",
			City:     req.City,
			Date:     req.Date,
			Price:    1200,
			DeepLink: m.links.ActivityLink("", req.City, req.Date, req.UserID),
		}
	default:
		return nil, provider.Permanent(m.Name(), fmt.Errorf("unsupported kind %q", req.Kind))
	}

	offer.Provider = m.Name()
	offer.Currency = m.currency
	m.RecordSuccess(0)
	return &domain.OfferSet{Provider: m.Name(), Source: "mock", Offers: []domain.Offer{offer}}, nil
}
