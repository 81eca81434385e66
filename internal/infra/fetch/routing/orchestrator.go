package routing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/packup/internal/core/domain"
)

// ErrNoProviders is returned when the router has nothing registered.
var ErrNoProviders = errors.New("no providers configured")

// Validator decides whether a candidate is acceptable. A non-nil error is
// the rejection reason.
type Validator[T any] func(candidate *T) error

// Committer finalises an accepted candidate (e.g. persists it). A failure
// abandons the provider and the orchestrator moves on.
type Committer[T any] func(ctx context.Context, providerName string, candidate *T) error

// ResolveOptions are per-call overrides.
type ResolveOptions struct {
	OperationID    string
	PreferredOrder []string
	MaxAttempts    int
}

// Resolution is the outcome of one Resolve call. Value is nil when every
// provider was exhausted.
type Resolution[T any] struct {
	Provider    string
	Value       *T
	Diagnostics domain.Diagnostics
	LastErr     error
}

// Orchestrator tries providers one at a time in order until one yields an
// accepted and committed candidate.
type Orchestrator[Q, T any] struct {
	router    *Router[Q, T]
	retry     RetryConfig
	validate  Validator[T]
	commit    Committer[T]
	onAttempt func(domain.AttemptRecord)
	logger    *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption[Q, T any] func(*Orchestrator[Q, T])

// WithValidator sets the candidate validator.
func WithValidator[Q, T any](v Validator[T]) OrchestratorOption[Q, T] {
	return func(o *Orchestrator[Q, T]) { o.validate = v }
}

// WithCommitter sets the commit step run after validation.
func WithCommitter[Q, T any](c Committer[T]) OrchestratorOption[Q, T] {
	return func(o *Orchestrator[Q, T]) { o.commit = c }
}

// WithAttemptHook is called for every finalised attempt record.
func WithAttemptHook[Q, T any](fn func(domain.AttemptRecord)) OrchestratorOption[Q, T] {
	return func(o *Orchestrator[Q, T]) { o.onAttempt = fn }
}

// WithLogger overrides slog.Default().
func WithLogger[Q, T any](l *slog.Logger) OrchestratorOption[Q, T] {
	return func(o *Orchestrator[Q, T]) { o.logger = l }
}

// NewOrchestrator creates an orchestrator over router.
func NewOrchestrator[Q, T any](router *Router[Q, T], retry RetryConfig, opts ...OrchestratorOption[Q, T]) *Orchestrator[Q, T] {
	o := &Orchestrator[Q, T]{
		router: router,
		retry:  retry,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Router returns the underlying router.
func (o *Orchestrator[Q, T]) Router() *Router[Q, T] {
	return o.router
}

// Resolve walks the providers sequentially. It returns a non-nil
// Resolution in every case; the error is only set when ctx ended first.
func (o *Orchestrator[Q, T]) Resolve(ctx context.Context, q Q, opts ResolveOptions) (*Resolution[T], error) {
	res := &Resolution[T]{}
	entries := o.router.Order(opts.PreferredOrder)
	if len(entries) == 0 {
		res.LastErr = ErrNoProviders
		return res, nil
	}

	cfg := o.retry
	if opts.MaxAttempts > 0 {
		cfg.MaxAttempts = opts.MaxAttempts
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		name := e.Spec.Name
		log := o.logger.With("op", opts.OperationID, "provider", name)

		var pending []domain.AttemptRecord
		start := time.Now()
		candidate, err := WithRetry(ctx, name, cfg, func(ctx context.Context) (*T, error) {
			return e.Adapter.Attempt(ctx, q)
		}, func(r domain.AttemptRecord) {
			pending = append(pending, r)
			if !r.OK {
				log.Debug("attempt failed", "attempt", r.Attempt, "outcome", r.Outcome, "error", r.Error, "latency", r.Latency)
			}
		})

		if err != nil {
			o.flush(res, pending)
			res.LastErr = err
			if ctxErr := ctx.Err(); ctxErr != nil {
				log.Warn("resolve aborted", "error", ctxErr)
				return res, ctxErr
			}
			o.router.RecordFailure(name, err)
			log.Info("provider failed, moving on", "error", err)
			continue
		}

		if candidate == nil {
			o.flush(res, pending)
			log.Info("provider returned no result, moving on")
			continue
		}

		if o.validate != nil {
			if verr := o.validate(candidate); verr != nil {
				markLast(pending, domain.OutcomeRejected, verr)
				o.flush(res, pending)
				res.LastErr = verr
				o.router.RecordFailure(name, verr)
				log.Info("candidate rejected", "reason", verr)
				continue
			}
		}

		if o.commit != nil {
			if cerr := o.commit(ctx, name, candidate); cerr != nil {
				markLast(pending, domain.OutcomePersistFailed, cerr)
				o.flush(res, pending)
				res.LastErr = cerr
				if ctxErr := ctx.Err(); ctxErr != nil {
					return res, ctxErr
				}
				o.router.RecordFailure(name, cerr)
				log.Warn("commit failed, moving on", "error", cerr)
				continue
			}
		}

		o.flush(res, pending)
		o.router.RecordSuccess(name, time.Since(start))
		res.Provider = name
		res.Value = candidate
		res.LastErr = nil
		log.Info("provider resolved", "attempts", len(pending), "elapsed", time.Since(start))
		return res, nil
	}

	return res, nil
}

func (o *Orchestrator[Q, T]) flush(res *Resolution[T], pending []domain.AttemptRecord) {
	res.Diagnostics = append(res.Diagnostics, pending...)
	if o.onAttempt != nil {
		for _, r := range pending {
			o.onAttempt(r)
		}
	}
}

// markLast downgrades the final (successful) attempt of a provider once a
// later stage refused its candidate.
func markLast(pending []domain.AttemptRecord, outcome domain.Outcome, err error) {
	if len(pending) == 0 {
		return
	}
	last := &pending[len(pending)-1]
	last.OK = false
	last.Outcome = outcome
	last.Error = err.Error()
}
