package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBody caps how much of a provider response we read.
const maxBody = 4 << 20

// HTTPClient performs JSON GETs on behalf of one adapter and turns every
// failure into a classified fault. It records health on its BaseProvider.
type HTTPClient struct {
	base       *BaseProvider
	httpClient *http.Client
	timeout    time.Duration
}

// NewHTTPClient creates a client bound to base. timeout bounds a single
// attempt and is applied on top of the caller's context.
func NewHTTPClient(base *BaseProvider, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		base:    base,
		timeout: timeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithHTTPClient swaps the underlying client (tests use httptest clients).
func (c *HTTPClient) WithHTTPClient(hc *http.Client) *HTTPClient {
	c.httpClient = hc
	return c
}

// GetJSON fetches url and decodes the body into out.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	name := c.base.Name
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Permanent(name, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.base.RecordFailure()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return Transient(name, fmt.Errorf("attempt timeout: %w", err))
		}
		return Transient(name, fmt.Errorf("request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		c.base.RecordFailure()
		return Transient(name, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.base.RecordFailure()
		fault := ClassifyStatus(name, resp.StatusCode, resp.Header, body)
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			var te *TransientError
			if errors.As(fault, &te) {
				c.base.Monitor.RecordThrottle(resp.StatusCode, te.RetryAfter)
			}
		case http.StatusForbidden:
			c.base.Monitor.RecordThrottle(resp.StatusCode, 0)
		}
		return fault
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.base.RecordFailure()
		return &PermanentError{Provider: name, Status: resp.StatusCode, Err: fmt.Errorf("parse response: %w", err)}
	}

	c.base.RecordSuccess(time.Since(start))
	return nil
}
