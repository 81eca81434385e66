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

const activitiesEndpoint = "https://activities-api.travelpayouts.com/v2/prices.json"

// Activities queries Travelpayouts activity prices.
type Activities struct {
	source
}

func NewActivities(token, currency, endpoint string, links *Linker, timeout time.Duration) *Activities {
	return &Activities{source: newSource("travelpayouts_activities", orDefault(endpoint, activitiesEndpoint), token, currency, links, timeout)}
}

type activitiesResponse struct {
	Data []struct {
		Title        string `json:"title"`
		ActivityName string `json:"activity_name"`
		URL          string `json:"url"`
		Price        struct {
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
		} `json:"price"`
	} `json:"data"`
}

func (a *Activities) Attempt(ctx context.Context, req domain.SearchRequest) (*domain.OfferSet, error) {
	if req.Kind != domain.OfferActivity {
		return nil, provider.Permanent(a.Name(), fmt.Errorf("unsupported kind %q", req.Kind))
	}

	params := url.Values{}
	params.Set("city", req.City)
	params.Set("date", req.Date)
	params.Set("currency", strings.ToLower(a.currency))
	params.Set("marker", a.links.Marker)
	params.Set("token", a.token)

	var resp activitiesResponse
	if err := a.http.GetJSON(ctx, a.endpoint+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}

	set := &domain.OfferSet{Provider: a.Name(), Source: "live"}
	for i, d := range resp.Data {
		if i == 5 {
			break
		}
		set.Offers = append(set.Offers, domain.Offer{
			Provider: a.Name(),
			Kind:     domain.OfferActivity,
			Title:    orDefault(orDefault(d.Title, d.ActivityName), "Unknown Activity"),
			City:     req.City,
			Date:     req.Date,
			Price:    d.Price.Amount,
			Currency: strings.ToUpper(orDefault(d.Price.Currency, a.currency)),
			DeepLink: a.links.ActivityLink(d.URL, req.City, req.Date, req.UserID),
		})
	}
	return set, nil
}
