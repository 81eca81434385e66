package images

import (
	"context"
	"net/url"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
)

const wikimediaEndpoint = "https://commons.wikimedia.org/w/api.php"

// Wikimedia searches Wikimedia Commons. It needs no credentials.
type Wikimedia struct {
	source
}

func NewWikimedia(endpoint string, timeout time.Duration) *Wikimedia {
	return &Wikimedia{source: newSource("wikimedia", firstNonEmpty(endpoint, wikimediaEndpoint), timeout)}
}

type wikimediaResponse struct {
	Query struct {
		Pages map[string]struct {
			Index     int `json:"index"`
			ImageInfo []struct {
				URL         string `json:"url"`
				User        string `json:"user"`
				Width       int    `json:"width"`
				Height      int    `json:"height"`
				ExtMetadata struct {
					LicenseShortName struct {
						Value string `json:"value"`
					} `json:"LicenseShortName"`
				} `json:"extmetadata"`
			} `json:"imageinfo"`
		} `json:"pages"`
	} `json:"query"`
}

func (w *Wikimedia) Attempt(ctx context.Context, query string) (*domain.Candidate, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("prop", "imageinfo")
	params.Set("iiprop", "url|size|user|extmetadata")
	params.Set("generator", "search")
	params.Set("gsrsearch", query)
	params.Set("gsrnamespace", "6")
	params.Set("gsrlimit", "3")

	var resp wikimediaResponse
	if err := w.http.GetJSON(ctx, w.endpoint+"?"+params.Encode(), map[string]string{
		"User-Agent": "packup/1.0 (image fetch)",
	}, &resp); err != nil {
		return nil, err
	}

	// Page map keys are page ids; the search rank lives in index.
	best := -1
	var cand *domain.Candidate
	for _, page := range resp.Query.Pages {
		if len(page.ImageInfo) == 0 || page.ImageInfo[0].URL == "" {
			continue
		}
		if best != -1 && page.Index >= best {
			continue
		}
		info := page.ImageInfo[0]
		best = page.Index
		cand = &domain.Candidate{
			Kind:     domain.ResourceImage,
			Provider: w.Name(),
			URL:      info.URL,
			Author:   info.User,
			License:  info.ExtMetadata.LicenseShortName.Value,
			Width:    info.Width,
			Height:   info.Height,
		}
	}
	return cand, nil
}
