// Package health provides system health monitoring and status reporting.
package health

import (
	"time"

	"github.com/vietddude/packup/internal/infra/fetch/routing"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ComponentHealth is the state of one dependency or provider group.
type ComponentHealth struct {
	Name      string                   `json:"name"`
	Status    SystemStatus             `json:"status"`
	Error     string                   `json:"error,omitempty"`
	Providers []routing.ProviderHealth `json:"providers,omitempty"`
}

// Report contains the full system health report.
type Report struct {
	SystemStatus SystemStatus               `json:"system_status"`
	Components   map[string]ComponentHealth `json:"components"`
	CheckedAt    time.Time                  `json:"checked_at"`
}

func worst(a, b SystemStatus) SystemStatus {
	rank := map[SystemStatus]int{StatusHealthy: 0, StatusDegraded: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
