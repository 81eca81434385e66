package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse expands ${ENV} references, decodes YAML and applies defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied and no
// providers, suitable for mock mode.
func Default() *AppConfig {
	var cfg AppConfig
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills zero values.
func (cfg *AppConfig) ApplyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	p := &cfg.Pipeline
	if p.Timeout == 0 {
		p.Timeout = 20 * time.Second
	}
	if p.AttemptTimeout == 0 {
		p.AttemptTimeout = 5 * time.Second
	}
	if p.AttemptTimeout > p.Timeout {
		p.AttemptTimeout = p.Timeout
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 2
	}
	if p.InitialDelay == 0 {
		p.InitialDelay = 200 * time.Millisecond
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.NullRetries == nil {
		one := 1
		p.NullRetries = &one
	}
	if p.MinWidth == 0 {
		p.MinWidth = 360
	}
	if p.MinBytes == 0 {
		p.MinBytes = 5 * 1024
	}
	if p.KeyPrefix == "" {
		p.KeyPrefix = "itineraries"
	}
	if p.DownloadTimeout == 0 {
		p.DownloadTimeout = 5 * time.Second
	}
	if p.DownloadAttempts == 0 {
		p.DownloadAttempts = 3
	}
	if p.Concurrency == 0 {
		p.Concurrency = 4
	}

	for i := range cfg.Providers {
		cfg.Providers[i].Name = strings.ToLower(strings.TrimSpace(cfg.Providers[i].Name))
		if cfg.Providers[i].Priority == 0 {
			cfg.Providers[i].Priority = i + 1
		}
	}

	if cfg.Travel.Currency == "" {
		cfg.Travel.Currency = "INR"
	}
	if cfg.Travel.Timeout == 0 {
		cfg.Travel.Timeout = 8 * time.Second
	}
	if cfg.Travel.MaxAttempts == 0 {
		cfg.Travel.MaxAttempts = 2
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "images"
	}
	if cfg.Storage.SignedTTL == 0 {
		cfg.Storage.SignedTTL = time.Hour
	}

	if cfg.Logs.Backend == "" {
		cfg.Logs.Backend = "memory"
	}
	if cfg.Logs.Prefix == "" {
		cfg.Logs.Prefix = "app"
	}

	if cfg.LLM.Backend == "" {
		cfg.LLM.Backend = "mock"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Backend {
		case "gemini":
			cfg.LLM.Model = "gemini-2.0-flash"
		default:
			cfg.LLM.Model = "gpt-4o-mini"
		}
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2000
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.LLM.MaxAttempts == 0 {
		cfg.LLM.MaxAttempts = 2
	}

	if cfg.Identity.SupabaseURL == "" && cfg.Identity.DevUserID == "" {
		cfg.Identity.DevUserID = "dev-user"
	}

	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "memory"
	}
	if cfg.RateLimit.Limit == 0 {
		cfg.RateLimit.Limit = 30
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.RateLimit.IdleTTL == 0 {
		cfg.RateLimit.IdleTTL = 10 * time.Minute
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 10 * time.Minute
	}
}

// Validate rejects configurations that cannot start.
func (cfg *AppConfig) Validate() error {
	seen := make(map[string]bool, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider without name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider %q", p.Name)
		}
		seen[p.Name] = true
	}

	switch cfg.Storage.Backend {
	case "memory":
	case "supabase":
		if cfg.Storage.SupabaseURL == "" || cfg.Storage.ServiceKey == "" {
			return fmt.Errorf("storage: supabase backend needs supabase_url and service_key")
		}
	case "s3":
		if cfg.Storage.Bucket == "" {
			return fmt.Errorf("storage: s3 backend needs bucket")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}

	switch cfg.LLM.Backend {
	case "mock", "openai", "gemini":
	default:
		return fmt.Errorf("llm: unknown backend %q", cfg.LLM.Backend)
	}

	switch cfg.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("ratelimit: unknown backend %q", cfg.RateLimit.Backend)
	}
	if cfg.RateLimit.Backend == "redis" && cfg.Redis.URL == "" {
		return fmt.Errorf("ratelimit: redis backend needs redis.url")
	}
	if cfg.Cache.Backend == "redis" && cfg.Redis.URL == "" {
		return fmt.Errorf("cache: redis backend needs redis.url")
	}
	return nil
}
