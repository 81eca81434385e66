package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/fetch/provider"
)

// RetryConfig defines retry behavior for a single provider.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64

	// NullRetries is how many times an empty result is retried before the
	// provider is abandoned. Still bounded by MaxAttempts.
	NullRetries int
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     2,
	InitialDelay:    200 * time.Millisecond,
	MaxDelay:        5 * time.Second,
	BackoffMultiple: 2.0,
	NullRetries:     1,
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.BackoffMultiple <= 0 {
		c.BackoffMultiple = 2.0
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultRetryConfig.MaxDelay
	}
	if c.NullRetries < 0 {
		c.NullRetries = 0
	}
	return c
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry    ErrorAction = iota // transient: try the same provider again
	ActionFailover                    // permanent: move to the next provider
	ActionAbort                       // caller deadline or cancellation: stop everything
)

func (a ErrorAction) String() string {
	switch a {
	case ActionFailover:
		return "failover"
	case ActionAbort:
		return "abort"
	default:
		return "retry"
	}
}

// ClassifyError determines the action for a given error. Unclassified
// errors are retried.
func ClassifyError(ctx context.Context, err error) ErrorAction {
	if ctx.Err() != nil {
		return ActionAbort
	}
	if errors.Is(err, context.Canceled) {
		return ActionAbort
	}
	if provider.IsPermanent(err) {
		return ActionFailover
	}
	return ActionRetry
}

func outcomeFor(action ErrorAction) domain.Outcome {
	switch action {
	case ActionFailover:
		return domain.OutcomePermanent
	case ActionAbort:
		return domain.OutcomeCanceled
	default:
		return domain.OutcomeTransient
	}
}

// AttemptFunc performs one attempt. A nil result with nil error means the
// source had nothing.
type AttemptFunc[T any] func(ctx context.Context) (*T, error)

// WithRetry calls fn up to config.MaxAttempts times with exponential
// backoff between attempts. Every attempt is reported to record in order.
//
// It returns the first non-nil result, (nil, nil) when the provider only
// produced empty results, or the last fault once attempts run out. A
// permanent fault stops immediately; cancellation of ctx returns ctx.Err().
func WithRetry[T any](
	ctx context.Context,
	name string,
	config RetryConfig,
	fn AttemptFunc[T],
	record func(domain.AttemptRecord),
) (*T, error) {
	config = config.normalized()

	var lastErr error
	nulls := 0

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt-1, config)
			var te *provider.TransientError
			if errors.As(lastErr, &te) && te.RetryAfter > delay && te.RetryAfter <= config.MaxDelay {
				delay = te.RetryAfter
			}
			select {
			case <-ctx.Done():
				record(domain.AttemptRecord{
					Provider: name,
					Attempt:  attempt + 1,
					Outcome:  domain.OutcomeCanceled,
					Error:    ctx.Err().Error(),
				})
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		start := time.Now()
		result, err := fn(ctx)
		latency := time.Since(start)

		rec := domain.AttemptRecord{Provider: name, Attempt: attempt + 1, Latency: latency}

		if err == nil && result != nil {
			rec.OK = true
			rec.Outcome = domain.OutcomeSuccess
			record(rec)
			return result, nil
		}

		if err == nil {
			rec.Outcome = domain.OutcomeNoResult
			record(rec)
			lastErr = nil
			nulls++
			if nulls > config.NullRetries {
				return nil, nil
			}
			continue
		}

		lastErr = err
		action := ClassifyError(ctx, err)
		rec.Outcome = outcomeFor(action)
		rec.Error = err.Error()
		record(rec)

		switch action {
		case ActionAbort:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		case ActionFailover:
			return nil, err
		}
	}

	if lastErr == nil {
		return nil, nil
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
