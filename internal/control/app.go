// Package control wires configuration into a running packup server.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/packup/internal/api"
	"github.com/vietddude/packup/internal/core/config"
	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/core/worker"
	"github.com/vietddude/packup/internal/health"
	"github.com/vietddude/packup/internal/infra/cache"
	"github.com/vietddude/packup/internal/infra/fetch/images"
	"github.com/vietddude/packup/internal/infra/fetch/routing"
	travelsrc "github.com/vietddude/packup/internal/infra/fetch/travel"
	"github.com/vietddude/packup/internal/infra/fetch/validate"
	"github.com/vietddude/packup/internal/infra/identity"
	"github.com/vietddude/packup/internal/infra/llm"
	"github.com/vietddude/packup/internal/infra/objectstore"
	"github.com/vietddude/packup/internal/infra/ratelimit"
	redisclient "github.com/vietddude/packup/internal/infra/redis"
	"github.com/vietddude/packup/internal/infra/sink"
	"github.com/vietddude/packup/internal/infra/storage"
	"github.com/vietddude/packup/internal/infra/storage/memory"
	"github.com/vietddude/packup/internal/infra/storage/postgres"
	"github.com/vietddude/packup/internal/pipeline"
	"github.com/vietddude/packup/internal/service/chat"
	"github.com/vietddude/packup/internal/service/itinerary"
	"github.com/vietddude/packup/internal/service/logs"
	"github.com/vietddude/packup/internal/service/privacy"
	"github.com/vietddude/packup/internal/service/travel"
)

// App is the main application struct that manages the server lifecycle.
type App struct {
	cfg         *config.AppConfig
	server      *api.Server
	store       storage.Store
	db          *postgres.DB
	redisClient *redisclient.Client
	limiter     *ratelimit.Memory // nil with the redis limiter
	pipeline    *pipeline.Pipeline
	log         *slog.Logger
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{cfg: cfg, log: slog.Default()}

	// 1. Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if cfg.Database.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		a.db = db
		a.store = postgres.NewStore(db)
		a.log.Info("Using PostgreSQL storage")
	} else {
		a.store = memory.NewMemoryStorage()
		a.log.Info("Using Memory storage")
	}

	// 2. Redis
	if cfg.Redis.Enabled() {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			if cfg.RateLimit.Backend == "redis" || cfg.Cache.Backend == "redis" {
				a.close()
				return nil, fmt.Errorf("failed to connect to redis: %w", err)
			}
			a.log.Warn("Failed to connect to Redis, continuing without it", "error", err)
		} else {
			a.redisClient = client
		}
	}

	// 3. Image pipeline
	p, err := NewPipeline(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.pipeline = p

	// 4. Travel
	links := travelsrc.NewLinker(cfg.Travel.Marker, cfg.Travel.ClickSecret)
	routers, err := travel.NewRouters(func(kind domain.OfferKind) []travelsrc.Registered {
		return travelsrc.Build(cfg.Travel, kind, links)
	})
	if err != nil {
		a.close()
		return nil, err
	}
	travelRetry := pipelineRetry(cfg.Pipeline)
	travelRetry.MaxAttempts = cfg.Travel.MaxAttempts
	travelSvc := travel.New(routers, travelRetry, a.offerCache(), a.store.Searches(), links)

	// 5. LLM
	completer, err := llm.NewCompleter(ctx, cfg.LLM)
	if err != nil {
		a.close()
		return nil, err
	}
	drafter := llm.NewDrafter(completer, llm.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Retry: routing.RetryConfig{
			MaxAttempts:     cfg.LLM.MaxAttempts,
			InitialDelay:    300 * time.Millisecond,
			MaxDelay:        2 * time.Second,
			BackoffMultiple: 2,
		},
	})
	a.log.Info("LLM configured", "source", drafter.Source(), "model", drafter.Model())

	// 6. Logs bucket
	logStore, err := newLogStore(ctx, cfg.Logs)
	if err != nil {
		a.close()
		return nil, err
	}

	// 7. Services and API
	chatLimiter := a.newLimiter()
	healthMon := health.NewMonitor(10 * time.Second)
	healthMon.AddPinger("database", a.store, true)
	if a.redisClient != nil {
		healthMon.AddPinger("redis", a.redisClient, false)
	}
	healthMon.AddProviders("images", p.Providers)
	for kind, r := range routers {
		healthMon.AddProviders(string(kind), r.Health)
	}

	a.server = api.NewServer(cfg.Server, api.Deps{
		Identity: newResolver(cfg.Identity),
		Itineraries: itinerary.New(drafter, p, a.store.Trips(), a.store.Events(), itinerary.Config{
			Concurrency:  cfg.Pipeline.Concurrency,
			ImageTimeout: cfg.Pipeline.Timeout,
		}),
		Travel:  travelSvc,
		Chat:    chat.New(drafter, chatLimiter, a.store.Trips()),
		Privacy: privacy.New(a.store.Privacy(), a.store.Events()),
		Logs:    logs.New(logStore, cfg.Logs.Prefix),
		Images:  p,
		Trips:   a.store.Trips(),
		Events:  a.store.Events(),
		Health:  healthMon,
	})

	return a, nil
}

// NewPipeline builds the image pipeline from configuration.
func NewPipeline(ctx context.Context, cfg *config.AppConfig) (*pipeline.Pipeline, error) {
	registered, err := images.Build(cfg.Providers, cfg.Pipeline.AttemptTimeout)
	if err != nil {
		return nil, err
	}
	router := routing.NewRouter[string, domain.Candidate]()
	for _, r := range registered {
		if err := router.AddProvider(r.Spec, r.Adapter); err != nil {
			return nil, err
		}
	}

	store, err := newImageStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	s := sink.New(store, sink.Config{
		KeyPrefix:    cfg.Pipeline.KeyPrefix,
		MinBytes:     cfg.Pipeline.MinBytes,
		MinWidth:     cfg.Pipeline.MinWidth,
		Timeout:      cfg.Pipeline.DownloadTimeout,
		Attempts:     cfg.Pipeline.DownloadAttempts,
		InitialDelay: cfg.Pipeline.InitialDelay,
		SignedTTL:    cfg.Storage.SignedTTL,
	})

	return pipeline.New(router, validate.New(cfg.Pipeline.MinWidth), s, pipeline.Config{
		Timeout: cfg.Pipeline.Timeout,
		Retry:   pipelineRetry(cfg.Pipeline),
	}), nil
}

func pipelineRetry(p config.PipelineConfig) routing.RetryConfig {
	nullRetries := routing.DefaultRetryConfig.NullRetries
	if p.NullRetries != nil {
		nullRetries = *p.NullRetries
	}
	return routing.RetryConfig{
		MaxAttempts:     p.MaxAttempts,
		InitialDelay:    p.InitialDelay,
		MaxDelay:        p.MaxDelay,
		BackoffMultiple: 2,
		NullRetries:     nullRetries,
	}
}

func newImageStore(ctx context.Context, cfg config.StorageConfig) (objectstore.Store, error) {
	switch cfg.Backend {
	case "supabase":
		return objectstore.NewSupabase(cfg.SupabaseURL, cfg.ServiceKey, cfg.Bucket, cfg.Public), nil
	case "s3":
		return objectstore.NewS3(ctx, objectstore.S3Options{
			Bucket:        cfg.Bucket,
			Region:        cfg.S3.Region,
			Endpoint:      cfg.S3.Endpoint,
			PublicBaseURL: cfg.S3.PublicBaseURL,
			UsePathStyle:  cfg.S3.UsePathStyle,
			Public:        cfg.Public,
		})
	default:
		return objectstore.NewMemory("memory://"+cfg.Bucket, cfg.Public), nil
	}
}

// memoryLogCap bounds ingested logs kept in process when no bucket is set.
const memoryLogCap = 32 << 20

func newLogStore(ctx context.Context, cfg config.LogsConfig) (objectstore.Store, error) {
	if cfg.Backend != "s3" {
		return objectstore.NewMemory("memory://logs", false).WithMaxBytes(memoryLogCap), nil
	}
	return objectstore.NewS3(ctx, objectstore.S3Options{
		Bucket:       cfg.Bucket,
		Region:       cfg.S3.Region,
		Endpoint:     cfg.S3.Endpoint,
		UsePathStyle: cfg.S3.UsePathStyle,
	})
}

func newResolver(cfg config.IdentityConfig) identity.Resolver {
	if cfg.SupabaseURL == "" {
		return identity.Static{User: cfg.DevUserID}
	}
	return identity.NewSupabase(cfg.SupabaseURL, cfg.AnonKey, 5*time.Second)
}

func (a *App) offerCache() cache.OfferCache {
	switch a.cfg.Cache.Backend {
	case "none":
		return cache.Nop{}
	case "redis":
		if a.redisClient != nil {
			return cache.NewRedis(a.redisClient, a.cfg.Cache.TTL)
		}
	}
	return cache.NewMemory(a.cfg.Cache.TTL)
}

func (a *App) newLimiter() ratelimit.Limiter {
	rl := ratelimit.Config{
		Scope:   "chat",
		Limit:   a.cfg.RateLimit.Limit,
		Window:  a.cfg.RateLimit.Window,
		IdleTTL: a.cfg.RateLimit.IdleTTL,
	}
	if a.cfg.RateLimit.Backend == "redis" && a.redisClient != nil {
		return ratelimit.NewRedis(a.redisClient, rl)
	}
	a.limiter = ratelimit.NewMemory(rl)
	return a.limiter
}

// Pipeline returns the image pipeline.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Handler returns the API handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Start starts the server and background tasks. It does not block.
func (a *App) Start(ctx context.Context) error {
	go func() {
		a.log.Info("API server listening", "port", a.cfg.Server.Port)
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("API server failed", "error", err)
		}
	}()

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	if a.limiter != nil {
		go a.limiter.Run(ctx)
	}

	pruner := worker.NewPruner(a.cfg.Retention, a.store.Events(), a.store.Searches())
	if pruner.Enabled() {
		go pruner.Start(ctx)
	}

	return nil
}

// Stop drains the server and closes connections.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping packup...")
	err := a.server.Stop(ctx)
	a.close()
	return err
}

func (a *App) close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("Failed to close storage", "error", err)
		}
	}
}
