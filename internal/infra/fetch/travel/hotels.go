package travel

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/fetch/provider"
)

const hotelsEndpoint = "https://engine.hotellook.com/api/v2/cache.json"

// Hotels queries the Hotellook price cache.
type Hotels struct {
	source
}

func NewHotels(token, currency, endpoint string, links *Linker, timeout time.Duration) *Hotels {
	return &Hotels{source: newSource("hotellook", orDefault(endpoint, hotelsEndpoint), token, currency, links, timeout)}
}

type hotelResult struct {
	HotelName string  `json:"hotelName"`
	PriceFrom float64 `json:"priceFrom"`
	Stars     int     `json:"stars"`
}

func (h *Hotels) Attempt(ctx context.Context, req domain.SearchRequest) (*domain.OfferSet, error) {
	if req.Kind != domain.OfferHotel {
		return nil, provider.Permanent(h.Name(), fmt.Errorf("unsupported kind %q", req.Kind))
	}

	params := url.Values{}
	params.Set("city", req.City)
	params.Set("checkIn", req.CheckIn)
	params.Set("checkOut", req.CheckOut)
	params.Set("limit", "5")
	params.Set("currency", strings.ToLower(h.currency))
	params.Set("token", h.token)

	var resp []hotelResult
	if err := h.http.GetJSON(ctx, h.endpoint+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, nil
	}

	set := &domain.OfferSet{Provider: h.Name(), Source: "live"}
	for _, r := range resp {
		set.Offers = append(set.Offers, domain.Offer{
			Provider: h.Name(),
			Kind:     domain.OfferHotel,
			Title:    r.HotelName,
			City:     req.City,
			CheckIn:  req.CheckIn,
			CheckOut: req.CheckOut,
			Price:    r.PriceFrom,
			Currency: strings.ToUpper(h.currency),
			DeepLink: h.links.HotelLink(req.City, req.CheckIn, req.CheckOut, r.HotelName, req.UserID),
		})
	}
	return set, nil
}
