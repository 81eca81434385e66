// Package routing handles provider ordering, retry and fallback for the
// fetch pipeline.
//
// This package contains:
//   - Router: priority ordering with caller overrides and health tracking
//   - WithRetry: per-provider retry with exponential backoff
//   - Orchestrator: sequential fallback across providers with validation
//     and a commit step
package routing

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/fetch/provider"
)

// Entry pairs a provider spec with its adapter.
type Entry[Q, T any] struct {
	Spec    domain.ProviderSpec
	Adapter provider.Adapter[Q, T]
}

type providerMetrics struct {
	successCount     int
	failureCount     int
	totalLatency     time.Duration
	lastSuccessAt    time.Time
	lastFailureAt    time.Time
	lastError        string
	consecutiveFails int
}

// ProviderHealth is a read-only snapshot of router-side counters.
type ProviderHealth struct {
	Name             string                 `json:"name"`
	Priority         int                    `json:"priority"`
	Successes        int                    `json:"successes"`
	Failures         int                    `json:"failures"`
	ConsecutiveFails int                    `json:"consecutive_failures"`
	AverageLatency   time.Duration          `json:"average_latency_ns"`
	LastSuccessAt    time.Time              `json:"last_success_at,omitempty"`
	LastFailureAt    time.Time              `json:"last_failure_at,omitempty"`
	LastError        string                 `json:"last_error,omitempty"`
	Adapter          *provider.HealthStatus `json:"adapter,omitempty"`
}

// Router keeps the configured providers for one resource kind.
// The order it hands out never depends on health.
type Router[Q, T any] struct {
	mu      sync.RWMutex
	entries []Entry[Q, T]
	health  map[string]*providerMetrics
}

// NewRouter creates an empty router.
func NewRouter[Q, T any]() *Router[Q, T] {
	return &Router[Q, T]{health: make(map[string]*providerMetrics)}
}

// AddProvider registers an adapter. Names must be unique.
func (r *Router[Q, T]) AddProvider(spec domain.ProviderSpec, a provider.Adapter[Q, T]) error {
	if spec.Name == "" {
		spec.Name = a.Name()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.health[spec.Name]; ok {
		return fmt.Errorf("provider %q already registered", spec.Name)
	}
	r.entries = append(r.entries, Entry[Q, T]{Spec: spec, Adapter: a})
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].Spec.Priority < r.entries[j].Spec.Priority
	})
	r.health[spec.Name] = &providerMetrics{}
	return nil
}

// Len returns the number of registered providers.
func (r *Router[Q, T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Order returns the providers to try. Names in preferred come first in the
// given order; unknown names are ignored. The rest follow by ascending
// priority, ties kept in registration order.
func (r *Router[Q, T]) Order(preferred []string) []Entry[Q, T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry[Q, T], 0, len(r.entries))
	used := make(map[string]bool, len(preferred))
	for _, name := range preferred {
		if used[name] {
			continue
		}
		for _, e := range r.entries {
			if e.Spec.Name == name {
				out = append(out, e)
				used[name] = true
				break
			}
		}
	}
	for _, e := range r.entries {
		if !used[e.Spec.Name] {
			out = append(out, e)
		}
	}
	return out
}

// RecordSuccess records a provider that produced an accepted result.
func (r *Router[Q, T]) RecordSuccess(name string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.health[name]
	if !ok {
		return
	}
	m.successCount++
	m.totalLatency += latency
	m.lastSuccessAt = time.Now()
	m.consecutiveFails = 0
}

// RecordFailure records a provider that was abandoned.
func (r *Router[Q, T]) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.health[name]
	if !ok {
		return
	}
	m.failureCount++
	m.consecutiveFails++
	m.lastFailureAt = time.Now()
	if err != nil {
		m.lastError = err.Error()
	}
}

// Health returns a snapshot for every provider in priority order.
func (r *Router[Q, T]) Health() []ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(r.entries))
	for _, e := range r.entries {
		m := r.health[e.Spec.Name]
		h := ProviderHealth{
			Name:             e.Spec.Name,
			Priority:         e.Spec.Priority,
			Successes:        m.successCount,
			Failures:         m.failureCount,
			ConsecutiveFails: m.consecutiveFails,
			LastSuccessAt:    m.lastSuccessAt,
			LastFailureAt:    m.lastFailureAt,
			LastError:        m.lastError,
		}
		if m.successCount > 0 {
			h.AverageLatency = m.totalLatency / time.Duration(m.successCount)
		}
		if hr, ok := e.Adapter.(provider.HealthReporter); ok {
			status := hr.GetHealth()
			h.Adapter = &status
		}
		out = append(out, h)
	}
	return out
}
