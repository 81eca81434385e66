package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// TransientError is a fault worth retrying: 5xx, 408, 429, connection
// failures and per-attempt timeouts.
type TransientError struct {
	Provider   string
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: transient (http %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: transient: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a fault retrying cannot fix: malformed bodies, auth
// failures and non-retryable 4xx responses.
type PermanentError struct {
	Provider string
	Status   int
	Err      error
}

func (e *PermanentError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: permanent (http %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: permanent: %v", e.Provider, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// ErrMissingCredentials is wrapped in a PermanentError by adapters built
// without their API key.
var ErrMissingCredentials = errors.New("missing credentials")

// Transient wraps err as a TransientError.
func Transient(provider string, err error) error {
	return &TransientError{Provider: provider, Err: err}
}

// Permanent wraps err as a PermanentError.
func Permanent(provider string, err error) error {
	return &PermanentError{Provider: provider, Err: err}
}

// IsTransient reports whether err (or anything it wraps) is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err (or anything it wraps) is a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ClassifyStatus maps a non-2xx HTTP status to a fault. body is included in
// the message truncated to 200 bytes.
func ClassifyStatus(provider string, status int, header http.Header, body []byte) error {
	if len(body) > 200 {
		body = body[:200]
	}
	cause := fmt.Errorf("%s: %s", http.StatusText(status), string(body))

	switch {
	case status >= 500, status == http.StatusRequestTimeout:
		return &TransientError{Provider: provider, Status: status, Err: cause}
	case status == http.StatusTooManyRequests:
		return &TransientError{
			Provider:   provider,
			Status:     status,
			RetryAfter: parseRetryAfter(header.Get("Retry-After")),
			Err:        cause,
		}
	default:
		return &PermanentError{Provider: provider, Status: status, Err: cause}
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
