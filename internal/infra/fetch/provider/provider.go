// Package provider defines the adapter contract shared by every upstream
// source the fetch pipeline can call.
//
// This package contains:
//   - Adapter: narrow per-source interface returning a common result type
//   - TransientError / PermanentError: the two fault classes adapters raise
//   - BaseProvider: health tracking embedded by concrete adapters
//   - ProviderMonitor: throttle and latency tracking
//   - HTTPClient: JSON GET helper that classifies transport failures
package provider

import (
	"context"
	"time"
)

// Adapter is a single upstream source. Attempt returns (nil, nil) when the
// source legitimately has nothing for the query; any error must be a
// *TransientError or *PermanentError (unclassified errors are treated as
// transient by the router).
type Adapter[Q, T any] interface {
	// Name returns the provider identifier (e.g., "unsplash", "pexels")
	Name() string

	// Attempt performs one call for the query.
	Attempt(ctx context.Context, q Q) (*T, error)
}

// HealthReporter is implemented by adapters that embed BaseProvider.
type HealthReporter interface {
	GetHealth() HealthStatus
	RecordSuccess(latency time.Duration)
	RecordFailure()
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency_ns"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at,omitempty"`
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}
