package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineRuns tracks pipeline invocations by resource and result
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packup_pipeline_runs_total",
			Help: "Total number of fetch pipeline runs",
		},
		[]string{"resource", "result"},
	)

	// PipelineDuration tracks end-to-end pipeline latency
	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "packup_pipeline_duration_seconds",
			Help:    "Fetch pipeline run duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"resource"},
	)

	// ProviderAttempts tracks every provider attempt by outcome
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packup_provider_attempts_total",
			Help: "Total number of provider attempts",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderLatency tracks single attempt latency
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "packup_provider_latency_seconds",
			Help:    "Provider attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// PersistedBytes tracks bytes written to object storage
	PersistedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packup_persisted_bytes_total",
			Help: "Total bytes written to object storage",
		},
		[]string{"provider"},
	)

	// RateLimitRejections tracks requests refused by the rate limiter
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packup_ratelimit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)

	// CacheLookups tracks offer cache hits and misses
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packup_cache_lookups_total",
			Help: "Offer cache lookups by result",
		},
		[]string{"result"},
	)

	// HTTPRequests tracks API requests by route and status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packup_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPDuration tracks API latency
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "packup_http_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// DBConnectionPoolUsage tracks the database connection pool usage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "packup_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
