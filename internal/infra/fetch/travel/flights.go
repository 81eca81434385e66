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

const flightsEndpoint = "https://api.travelpayouts.com/v2/prices/latest"

// Flights queries Travelpayouts cached flight prices.
type Flights struct {
	source
}

func NewFlights(token, currency, endpoint string, links *Linker, timeout time.Duration) *Flights {
	return &Flights{source: newSource("travelpayouts_flights", orDefault(endpoint, flightsEndpoint), token, currency, links, timeout)}
}

type flightsResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		Origin      string  `json:"origin"`
		Destination string  `json:"destination"`
		DepartDate  string  `json:"depart_date"`
		ReturnDate  string  `json:"return_date"`
		Value       float64 `json:"value"`
		Currency    string  `json:"currency"`
		Airline     string  `json:"airline"`
		Gate        string  `json:"gate"`
	} `json:"data"`
}

func (f *Flights) Attempt(ctx context.Context, req domain.SearchRequest) (*domain.OfferSet, error) {
	if req.Kind != domain.OfferFlight {
		return nil, provider.Permanent(f.Name(), fmt.Errorf("unsupported kind %q", req.Kind))
	}

	params := url.Values{}
	params.Set("origin", strings.ToUpper(req.Origin))
	params.Set("destination", strings.ToUpper(req.Destination))
	if req.DepartDate != "" {
		params.Set("depart_date", req.DepartDate)
	}
	if req.ReturnDate != "" {
		params.Set("return_date", req.ReturnDate)
	}
	params.Set("currency", f.currency)
	params.Set("limit", "5")

	var resp flightsResponse
	if err := f.http.GetJSON(ctx, f.endpoint+"?"+params.Encode(), map[string]string{
		"X-Access-Token": f.token,
	}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}

	set := &domain.OfferSet{Provider: f.Name(), Source: "live"}
	for _, d := range resp.Data {
		title := fmt.Sprintf("%s → %s", d.Origin, d.Destination)
		set.Offers = append(set.Offers, domain.Offer{
			Provider: f.Name(),
			Kind:     domain.OfferFlight,
			Title:    title,
			From:     d.Origin,
			To:       d.Destination,
			DepartAt: d.DepartDate,
			ReturnAt: d.ReturnDate,
			Airline:  orDefault(d.Airline, d.Gate),
			Price:    d.Value,
			Currency: strings.ToUpper(orDefault(d.Currency, f.currency)),
			DeepLink: f.links.FlightLink(d.Origin, d.Destination, d.DepartDate, d.ReturnDate, req.UserID),
		})
	}
	return set, nil
}
