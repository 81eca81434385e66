package images

import (
	"context"
	"net/url"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
)

const unsplashEndpoint = "https://api.unsplash.com/search/photos"

// Unsplash searches api.unsplash.com.
type Unsplash struct {
	source
	accessKey string
}

func NewUnsplash(accessKey, endpoint string, timeout time.Duration) *Unsplash {
	return &Unsplash{
		source:    newSource("unsplash", firstNonEmpty(endpoint, unsplashEndpoint), timeout),
		accessKey: accessKey,
	}
}

type unsplashResponse struct {
	Results []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
		URLs   struct {
			Full    string `json:"full"`
			Raw     string `json:"raw"`
			Regular string `json:"regular"`
		} `json:"urls"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"results"`
}

func (u *Unsplash) Attempt(ctx context.Context, query string) (*domain.Candidate, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "3")

	var resp unsplashResponse
	err := u.http.GetJSON(ctx, u.endpoint+"?"+params.Encode(), map[string]string{
		"Authorization":  "Client-ID " + u.accessKey,
		"Accept-Version": "v1",
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return nil, nil
	}
	first := resp.Results[0]
	link := firstNonEmpty(first.URLs.Full, first.URLs.Raw, first.URLs.Regular)
	if link == "" {
		return nil, nil
	}
	return &domain.Candidate{
		Kind:     domain.ResourceImage,
		Provider: u.Name(),
		URL:      link,
		Author:   first.User.Name,
		License:  "unsplash",
		Width:    first.Width,
		Height:   first.Height,
	}, nil
}
