package images

import (
	"context"
	"net/url"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
)

const googleEndpoint = "https://www.googleapis.com/customsearch/v1"

// Google queries a Custom Search Engine in image mode.
type Google struct {
	source
	apiKey string
	cx     string
}

func NewGoogle(apiKey, cx, endpoint string, timeout time.Duration) *Google {
	return &Google{
		source: newSource("google", firstNonEmpty(endpoint, googleEndpoint), timeout),
		apiKey: apiKey,
		cx:     cx,
	}
}

type googleResponse struct {
	Items []struct {
		Link        string `json:"link"`
		DisplayLink string `json:"displayLink"`
		Image       struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"image"`
	} `json:"items"`
}

func (g *Google) Attempt(ctx context.Context, query string) (*domain.Candidate, error) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.cx)
	params.Set("searchType", "image")
	params.Set("q", query)
	params.Set("num", "3")

	var resp googleResponse
	if err := g.http.GetJSON(ctx, g.endpoint+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	if len(resp.Items) == 0 || resp.Items[0].Link == "" {
		return nil, nil
	}
	first := resp.Items[0]
	return &domain.Candidate{
		Kind:     domain.ResourceImage,
		Provider: g.Name(),
		URL:      first.Link,
		Author:   first.DisplayLink,
		Width:    first.Image.Width,
		Height:   first.Image.Height,
	}, nil
}
