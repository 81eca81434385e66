package config

import (
	"time"

	redisclient "github.com/vietddude/packup/internal/infra/redis"
	"github.com/vietddude/packup/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig          `yaml:"server"`
	Logging   LoggingConfig         `yaml:"logging"`
	Database  postgres.Config       `yaml:"database"`
	Redis     redisclient.Config    `yaml:"redis"`
	Pipeline  PipelineConfig        `yaml:"pipeline"`
	Providers []ImageProviderConfig `yaml:"providers"`
	Travel    TravelConfig          `yaml:"travel"`
	Storage   StorageConfig         `yaml:"storage"`
	Logs      LogsConfig            `yaml:"logs"`
	LLM       LLMConfig             `yaml:"llm"`
	Identity  IdentityConfig        `yaml:"identity"`
	RateLimit RateLimitConfig       `yaml:"ratelimit"`
	Cache     CacheConfig           `yaml:"cache"`
	Retention RetentionConfig       `yaml:"retention"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"` // browser origins allowed on /api
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// PipelineConfig tunes the image fetch pipeline.
type PipelineConfig struct {
	Timeout          time.Duration `yaml:"timeout"`         // overall deadline per run
	AttemptTimeout   time.Duration `yaml:"attempt_timeout"` // per provider call
	MaxAttempts      int           `yaml:"max_attempts"`    // per provider
	InitialDelay     time.Duration `yaml:"initial_delay"`   // backoff base
	MaxDelay         time.Duration `yaml:"max_delay"`
	NullRetries      *int          `yaml:"null_retries"` // nil = 1; 0 fails over on the first empty result
	MinWidth         int           `yaml:"min_width"`
	MinBytes         int64         `yaml:"min_bytes"`
	KeyPrefix        string        `yaml:"key_prefix"`
	DownloadTimeout  time.Duration `yaml:"download_timeout"`
	DownloadAttempts int           `yaml:"download_attempts"`
	Concurrency      int           `yaml:"concurrency"` // image runs in flight per itinerary
}

// ImageProviderConfig holds settings for one image source.
type ImageProviderConfig struct {
	Name         string   `yaml:"name"`
	Priority     int      `yaml:"priority"`
	Enabled      *bool    `yaml:"enabled"` // nil = enabled
	APIKey       string   `yaml:"api_key"`
	Endpoint     string   `yaml:"endpoint"` // overrides the public API base
	CX           string   `yaml:"cx"`       // google custom search engine id
	Capabilities []string `yaml:"capabilities"`
}

// IsEnabled reports whether the provider should be built.
func (p ImageProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// TravelConfig holds affiliate API settings.
type TravelConfig struct {
	Token       string        `yaml:"token"`
	Marker      string        `yaml:"marker"`
	Mock        bool          `yaml:"mock"`
	ClickSecret string        `yaml:"click_secret"`
	Currency    string        `yaml:"currency"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// StorageConfig selects the object store for persisted images.
type StorageConfig struct {
	Backend     string        `yaml:"backend"` // supabase, s3, memory
	Bucket      string        `yaml:"bucket"`
	Public      bool          `yaml:"public"`
	SignedTTL   time.Duration `yaml:"signed_ttl"`
	SupabaseURL string        `yaml:"supabase_url"`
	ServiceKey  string        `yaml:"service_key"`
	S3          S3Config      `yaml:"s3"`
}

// S3Config holds S3-compatible endpoint settings.
type S3Config struct {
	Region        string `yaml:"region"`
	Endpoint      string `yaml:"endpoint"`
	PublicBaseURL string `yaml:"public_base_url"`
	UsePathStyle  bool   `yaml:"use_path_style"`
}

// LogsConfig selects where ingested client logs are written.
type LogsConfig struct {
	Backend string   `yaml:"backend"` // s3, memory
	Bucket  string   `yaml:"bucket"`
	Prefix  string   `yaml:"prefix"`
	S3      S3Config `yaml:"s3"`
}

// LLMConfig selects the itinerary drafting backend.
type LLMConfig struct {
	Backend     string        `yaml:"backend"` // openai, gemini, mock
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// IdentityConfig configures bearer token resolution.
type IdentityConfig struct {
	SupabaseURL string `yaml:"supabase_url"`
	AnonKey     string `yaml:"anon_key"`
	DevUserID   string `yaml:"dev_user_id"` // static identity when supabase_url is empty
}

// RateLimitConfig configures the chat rate limiter.
type RateLimitConfig struct {
	Backend string        `yaml:"backend"` // memory, redis
	Limit   int           `yaml:"limit"`
	Window  time.Duration `yaml:"window"`
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// CacheConfig configures the travel offer cache.
type CacheConfig struct {
	Backend string        `yaml:"backend"` // memory, redis, none
	TTL     time.Duration `yaml:"ttl"`
}

// RetentionConfig bounds how long audit events and search records are kept.
// Zero keeps rows forever.
type RetentionConfig struct {
	Events   time.Duration `yaml:"events"`
	Searches time.Duration `yaml:"searches"`
}
