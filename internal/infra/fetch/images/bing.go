package images

import (
	"context"
	"net/url"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
)

// Bing calls the Bing Image Search API. It has no public default endpoint;
// one must be configured.
type Bing struct {
	source
	apiKey string
}

func NewBing(apiKey, endpoint string, timeout time.Duration) *Bing {
	return &Bing{
		source: newSource("bing", endpoint, timeout),
		apiKey: apiKey,
	}
}

type bingResponse struct {
	Value []struct {
		ContentURL         string `json:"contentUrl"`
		HostPageDisplayURL string `json:"hostPageDisplayUrl"`
		Width              int    `json:"width"`
		Height             int    `json:"height"`
	} `json:"value"`
}

func (b *Bing) Attempt(ctx context.Context, query string) (*domain.Candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", "3")

	var resp bingResponse
	if err := b.http.GetJSON(ctx, b.endpoint+"?"+params.Encode(), map[string]string{
		"Ocp-Apim-Subscription-Key": b.apiKey,
	}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Value) == 0 || resp.Value[0].ContentURL == "" {
		return nil, nil
	}
	first := resp.Value[0]
	return &domain.Candidate{
		Kind:     domain.ResourceImage,
		Provider: b.Name(),
		URL:      first.ContentURL,
		Author:   first.HostPageDisplayURL,
		Width:    first.Width,
		Height:   first.Height,
	}, nil
}
