// Package pipeline is the facade callers use to turn a free-text query into
// a persisted image: it resolves a candidate across providers in priority
// order, validates it, persists it, and reports every attempt.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/fetch/routing"
	"github.com/vietddude/packup/internal/metrics"
)

var (
	// ErrExhausted matches every *ExhaustedError via errors.Is.
	ErrExhausted = errors.New("pipeline exhausted")
	// ErrEmptyQuery is returned for blank queries.
	ErrEmptyQuery = errors.New("empty query")
)

// ExhaustedError is the only failure Run surfaces for a valid query.
type ExhaustedError struct {
	OperationID string
	Query       string
	Diagnostics domain.Diagnostics
	Cause       error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("no provider produced a usable result for %q after %d attempts", e.Query, len(e.Diagnostics))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }
func (e *ExhaustedError) Unwrap() error        { return e.Cause }

// Validator accepts or rejects a candidate.
type Validator interface {
	Accept(c *domain.Candidate) error
}

// Persister stores an accepted candidate.
type Persister interface {
	Persist(ctx context.Context, op string, c *domain.Candidate, keyHint string) (*domain.PersistedAsset, error)
}

// Options are per-run overrides. Zero values use the pipeline defaults.
type Options struct {
	Timeout        time.Duration
	MaxAttempts    int
	PreferredOrder []string
	OperationID    string
	KeyPrefix      string // key hint; defaults to the query
}

// Config holds pipeline defaults.
type Config struct {
	Timeout time.Duration
	Retry   routing.RetryConfig
}

// Pipeline runs image queries. It holds no per-run state.
type Pipeline struct {
	router    *routing.Router[string, domain.Candidate]
	validator Validator
	sink      Persister
	cfg       Config
	tracer    trace.Tracer
}

// New creates a pipeline over router.
func New(router *routing.Router[string, domain.Candidate], validator Validator, sink Persister, cfg Config) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Pipeline{
		router:    router,
		validator: validator,
		sink:      sink,
		cfg:       cfg,
		tracer:    otel.Tracer("packup/pipeline"),
	}
}

// Providers returns router-side health for every configured provider.
func (p *Pipeline) Providers() []routing.ProviderHealth {
	return p.router.Health()
}

// Run resolves query into a persisted asset. Failures other than
// ErrEmptyQuery are *ExhaustedError carrying every attempt record.
func (p *Pipeline) Run(ctx context.Context, query string, opts Options) (*domain.PersistedAsset, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	op := opts.OperationID
	if op == "" {
		op = uuid.New().String()
	}
	timeout := p.cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	keyHint := opts.KeyPrefix
	if keyHint == "" {
		keyHint = query
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := p.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("op.id", op),
		attribute.String("query", query),
	))
	defer span.End()

	log := slog.With("op", op)
	log.Info("pipeline run started", "query", query, "timeout", timeout)
	start := time.Now()

	var asset *domain.PersistedAsset
	orch := routing.NewOrchestrator(p.router, p.cfg.Retry,
		routing.WithValidator[string, domain.Candidate](func(c *domain.Candidate) error {
			if p.validator == nil {
				return nil
			}
			return p.validator.Accept(c)
		}),
		routing.WithCommitter[string, domain.Candidate](func(ctx context.Context, name string, c *domain.Candidate) error {
			a, err := p.sink.Persist(ctx, op, c, keyHint)
			if err != nil {
				return err
			}
			asset = a
			return nil
		}),
		routing.WithAttemptHook[string, domain.Candidate](func(r domain.AttemptRecord) {
			metrics.ProviderAttempts.WithLabelValues(r.Provider, string(r.Outcome)).Inc()
			metrics.ProviderLatency.WithLabelValues(r.Provider).Observe(r.Latency.Seconds())
		}),
		routing.WithLogger[string, domain.Candidate](log),
	)

	res, err := orch.Resolve(ctx, query, routing.ResolveOptions{
		OperationID:    op,
		PreferredOrder: opts.PreferredOrder,
		MaxAttempts:    opts.MaxAttempts,
	})
	metrics.PipelineDuration.WithLabelValues(string(domain.ResourceImage)).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("attempts", len(res.Diagnostics)))

	if err == nil && res.Value != nil && asset != nil {
		asset.OperationID = op
		asset.Diagnostics = res.Diagnostics
		metrics.PipelineRuns.WithLabelValues(string(domain.ResourceImage), "success").Inc()
		metrics.PersistedBytes.WithLabelValues(asset.Provider).Add(float64(asset.Bytes))
		span.SetAttributes(attribute.String("provider", res.Provider))
		log.Info("pipeline run succeeded", "provider", res.Provider, "url", asset.URL, "elapsed", time.Since(start))
		return asset, nil
	}

	cause := err
	if cause == nil {
		cause = res.LastErr
	}
	exhausted := &ExhaustedError{
		OperationID: op,
		Query:       query,
		Diagnostics: res.Diagnostics,
		Cause:       cause,
	}
	metrics.PipelineRuns.WithLabelValues(string(domain.ResourceImage), "exhausted").Inc()
	span.RecordError(exhausted)
	span.SetStatus(codes.Error, "exhausted")
	log.Warn("pipeline run exhausted", "attempts", len(res.Diagnostics), "providers", res.Diagnostics.Providers(), "error", cause)
	return nil, exhausted
}
