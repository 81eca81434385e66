package provider

import (
	"net/http"
	"sync"
	"time"
)

// ProviderStatus represents the throttle state of a provider.
type ProviderStatus int

const (
	StatusHealthy   ProviderStatus = iota // Provider is working normally
	StatusDegraded                        // Provider is slow but working
	StatusThrottled                       // Provider returned repeated 429s
	StatusBlocked                         // Provider rejected our credentials (403)
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	default:
		return "healthy"
	}
}

// MonitorStats holds monitoring statistics for a provider.
type MonitorStats struct {
	Status            string        `json:"status"`
	AverageLatency    time.Duration `json:"average_latency_ns"`
	ThrottleCount429  int           `json:"throttle_429"`
	ThrottleCount403  int           `json:"throttle_403"`
	RequestsLast1Hour int           `json:"requests_last_hour"`
	RetryAfter        time.Duration `json:"retry_after_ns,omitempty"`
}

// ProviderMonitor tracks throttling and latency for one provider.
type ProviderMonitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	status429Count   int
	status403Count   int
	lastThrottleTime time.Time
	retryAfter       time.Duration

	requestTimestamps []time.Time
	windowDuration    time.Duration

	slowResponseThreshold time.Duration
	throttleThreshold     int
}

// NewProviderMonitor creates a new monitor with default settings.
func NewProviderMonitor() *ProviderMonitor {
	return &ProviderMonitor{
		recentLatencies:       make([]time.Duration, 0, 50),
		maxLatencyWindow:      50,
		windowDuration:        time.Hour,
		slowResponseThreshold: 3 * time.Second,
		throttleThreshold:     3,
	}
}

// RecordRequest records a successful request with its latency.
func (pm *ProviderMonitor) RecordRequest(latency time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	now := time.Now()

	pm.recentLatencies = append(pm.recentLatencies, latency)
	if len(pm.recentLatencies) > pm.maxLatencyWindow {
		pm.recentLatencies = pm.recentLatencies[1:]
	}

	pm.requestTimestamps = append(pm.requestTimestamps, now)
	cutoff := now.Add(-pm.windowDuration)
	i := 0
	for i < len(pm.requestTimestamps) && !pm.requestTimestamps[i].After(cutoff) {
		i++
	}
	pm.requestTimestamps = pm.requestTimestamps[i:]
}

// RecordThrottle records a 429 or 403 response. retryAfter of zero keeps
// the defaults: one minute for 429, ten minutes for 403.
func (pm *ProviderMonitor) RecordThrottle(statusCode int, retryAfter time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.lastThrottleTime = time.Now()

	switch statusCode {
	case http.StatusTooManyRequests:
		pm.status429Count++
		if retryAfter <= 0 {
			retryAfter = time.Minute
		}
		pm.retryAfter = retryAfter
	case http.StatusForbidden:
		pm.status403Count++
		pm.retryAfter = 10 * time.Minute
	}
}

// CheckProviderStatus returns the current status of the provider.
func (pm *ProviderMonitor) CheckProviderStatus() ProviderStatus {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.statusLocked()
}

func (pm *ProviderMonitor) statusLocked() ProviderStatus {
	cooling := time.Since(pm.lastThrottleTime) < pm.retryAfter

	if pm.status403Count > 0 && cooling {
		return StatusBlocked
	}
	if pm.status429Count >= pm.throttleThreshold && cooling {
		return StatusThrottled
	}
	if len(pm.recentLatencies) > 10 && pm.averageLocked() > pm.slowResponseThreshold {
		return StatusDegraded
	}
	return StatusHealthy
}

func (pm *ProviderMonitor) averageLocked() time.Duration {
	if len(pm.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range pm.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(pm.recentLatencies))
}

// GetRetryAfter returns remaining time before the provider should be retried.
func (pm *ProviderMonitor) GetRetryAfter() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if remaining := pm.retryAfter - time.Since(pm.lastThrottleTime); remaining > 0 {
		return remaining
	}
	return 0
}

// GetStats returns current monitoring statistics.
func (pm *ProviderMonitor) GetStats() MonitorStats {
	retryAfter := pm.GetRetryAfter()

	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return MonitorStats{
		Status:            pm.statusLocked().String(),
		AverageLatency:    pm.averageLocked(),
		ThrottleCount429:  pm.status429Count,
		ThrottleCount403:  pm.status403Count,
		RequestsLast1Hour: len(pm.requestTimestamps),
		RetryAfter:        retryAfter,
	}
}
