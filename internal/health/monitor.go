package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/packup/internal/infra/fetch/routing"
)

// A provider is considered failing once it has this many consecutive
// failed attempts.
const failingStreak = 3

// Pinger is implemented by storage and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

type pingCheck struct {
	name     string
	pinger   Pinger
	required bool
}

type providerCheck struct {
	name string
	list func() []routing.ProviderHealth
}

// Monitor aggregates health status from various system components.
type Monitor struct {
	pings     []pingCheck
	providers []providerCheck
	interval  time.Duration
	timeout   time.Duration

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport *Report
}

// NewMonitor creates a monitor that reuses a report for interval.
func NewMonitor(interval time.Duration) *Monitor {
	return &Monitor{interval: interval, timeout: 2 * time.Second}
}

// AddPinger registers a dependency. A failing required dependency makes the
// system critical; an optional one only degrades it.
func (m *Monitor) AddPinger(name string, p Pinger, required bool) {
	m.pings = append(m.pings, pingCheck{name: name, pinger: p, required: required})
}

// AddProviders registers a provider group such as "images" or "flights".
func (m *Monitor) AddProviders(name string, list func() []routing.ProviderHealth) {
	m.providers = append(m.providers, providerCheck{name: name, list: list})
}

// CheckHealth returns the current report.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	// reuse the last report so probes don't hammer the database
	if m.lastReport != nil && time.Since(m.lastCheck) < m.interval {
		return *m.lastReport
	}

	report := Report{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth),
		CheckedAt:    time.Now().UTC(),
	}

	for _, c := range m.pings {
		h := ComponentHealth{Name: c.name, Status: StatusHealthy}
		pctx, cancel := context.WithTimeout(ctx, m.timeout)
		err := c.pinger.Ping(pctx)
		cancel()
		if err != nil {
			h.Error = err.Error()
			h.Status = StatusDegraded
			if c.required {
				h.Status = StatusCritical
			}
		}
		report.Components[c.name] = h
		report.SystemStatus = worst(report.SystemStatus, h.Status)
	}

	for _, c := range m.providers {
		h := ComponentHealth{Name: c.name, Providers: c.list()}
		h.Status = groupStatus(h.Providers)
		report.Components[c.name] = h
		// a dead provider group degrades the service, the rest still works
		report.SystemStatus = worst(report.SystemStatus, capDegraded(h.Status))
	}

	m.lastCheck = time.Now()
	m.lastReport = &report
	return report
}

// groupStatus is critical when every provider is failing and degraded when
// some are. A provider is failing after a streak of errors or while its
// adapter reports itself unavailable (throttled, blocked, high error rate).
func groupStatus(list []routing.ProviderHealth) SystemStatus {
	if len(list) == 0 {
		return StatusCritical
	}
	failing := 0
	for _, p := range list {
		if p.ConsecutiveFails >= failingStreak || (p.Adapter != nil && !p.Adapter.Available) {
			failing++
		}
	}
	switch {
	case failing == len(list):
		return StatusCritical
	case failing > 0:
		return StatusDegraded
	}
	return StatusHealthy
}

func capDegraded(s SystemStatus) SystemStatus {
	if s == StatusCritical {
		return StatusDegraded
	}
	return s
}
