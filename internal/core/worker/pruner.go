package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/packup/internal/core/config"
	"github.com/vietddude/packup/internal/infra/storage"
)

// Pruner deletes old audit events and search records based on retention policy.
type Pruner struct {
	cfg      config.RetentionConfig
	events   storage.EventRepository
	searches storage.SearchRepository
	now      func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(
	cfg config.RetentionConfig,
	events storage.EventRepository,
	searches storage.SearchRepository,
) *Pruner {
	return &Pruner{
		cfg:      cfg,
		events:   events,
		searches: searches,
		now:      time.Now,
	}
}

// Enabled reports whether any retention period is set.
func (p *Pruner) Enabled() bool {
	return p.cfg.Events > 0 || p.cfg.Searches > 0
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if !p.Enabled() {
		return
	}

	ticker := time.NewTicker(p.interval())
	defer ticker.Stop()

	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// interval is 10% of the shortest retention period, clamped to [1m, 1h].
func (p *Pruner) interval() time.Duration {
	shortest := p.cfg.Events
	if shortest <= 0 || (p.cfg.Searches > 0 && p.cfg.Searches < shortest) {
		shortest = p.cfg.Searches
	}
	interval := min(shortest/10, time.Hour)
	return max(interval, time.Minute)
}

// Prune runs one deletion pass.
func (p *Pruner) Prune(ctx context.Context) {
	now := p.now()

	if p.cfg.Events > 0 {
		n, err := p.events.DeleteOlderThan(ctx, now.Add(-p.cfg.Events))
		if err != nil {
			slog.Error("Failed to prune events", "error", err)
		} else if n > 0 {
			slog.Info("Pruned events", "rows", n)
		}
	}

	if p.cfg.Searches > 0 {
		n, err := p.searches.DeleteOlderThan(ctx, now.Add(-p.cfg.Searches))
		if err != nil {
			slog.Error("Failed to prune searches", "error", err)
		} else if n > 0 {
			slog.Info("Pruned searches", "rows", n)
		}
	}
}
