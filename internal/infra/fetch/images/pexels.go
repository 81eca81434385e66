package images

import (
	"context"
	"net/url"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
)

const pexelsEndpoint = "https://api.pexels.com/v1/search"

// Pexels searches api.pexels.com.
type Pexels struct {
	source
	apiKey string
}

func NewPexels(apiKey, endpoint string, timeout time.Duration) *Pexels {
	return &Pexels{
		source: newSource("pexels", firstNonEmpty(endpoint, pexelsEndpoint), timeout),
		apiKey: apiKey,
	}
}

type pexelsResponse struct {
	Photos []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		Photographer string `json:"photographer"`
		Src          struct {
			Original string `json:"original"`
			Large    string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

func (p *Pexels) Attempt(ctx context.Context, query string) (*domain.Candidate, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "3")

	var resp pexelsResponse
	if err := p.http.GetJSON(ctx, p.endpoint+"?"+params.Encode(), map[string]string{
		"Authorization": p.apiKey,
	}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Photos) == 0 {
		return nil, nil
	}
	first := resp.Photos[0]
	link := firstNonEmpty(first.Src.Original, first.Src.Large)
	if link == "" {
		return nil, nil
	}
	return &domain.Candidate{
		Kind:     domain.ResourceImage,
		Provider: p.Name(),
		URL:      link,
		Author:   first.Photographer,
		License:  "pexels",
		Width:    first.Width,
		Height:   first.Height,
	}, nil
}
