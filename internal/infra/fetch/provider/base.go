package provider

import (
	"sync"
	"time"
)

// BaseProvider implements health tracking shared by adapters.
// Health is observational: it feeds /health/providers and metrics, it never
// reorders or skips providers inside a pipeline run.
type BaseProvider struct {
	Name string

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int

	Monitor *ProviderMonitor
}

// NewBaseProvider creates a new BaseProvider.
func NewBaseProvider(name string) *BaseProvider {
	return &BaseProvider{
		Name: name,
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewProviderMonitor(),
	}
}

// GetHealth returns the provider's health status. Available folds in the
// monitor's throttle state.
func (p *BaseProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	h := p.health
	p.mu.RUnlock()

	stats := p.Monitor.GetStats()
	h.MonitorStats = &stats
	h.Available = p.IsAvailable()
	return h
}

// IsAvailable reports whether the provider is neither blocked nor throttled
// and its error rate is at most one half.
func (p *BaseProvider) IsAvailable() bool {
	status := p.Monitor.CheckProviderStatus()
	if status == StatusThrottled || status == StatusBlocked {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health.Available
}

func (p *BaseProvider) RecordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount++
	p.requestCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true
	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	p.health.Latency = p.totalLatency / time.Duration(p.successCount)

	p.Monitor.RecordRequest(latency)
}

func (p *BaseProvider) RecordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()
	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)

	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}
