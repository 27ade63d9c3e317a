package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
)

// EnvPrefix is prepended to every variable, e.g. PULSO_SEARCH_HTTP_PORT.
const EnvPrefix = "PULSO_SEARCH"

// Config holds the configuration for the search service.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`
	Version     string      `envconfig:"VERSION" default:"1.0.0"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Video platform. An empty key runs the video surface on demo data.
	YouTubeAPIKey    string `envconfig:"YOUTUBE_API_KEY" default:""`
	YouTubeBaseURL   string `envconfig:"YOUTUBE_BASE_URL" default:"https://youtube.googleapis.com/"`
	YouTubeRegion    string `envconfig:"YOUTUBE_REGION" default:"CO"`
	YouTubeLanguage  string `envconfig:"YOUTUBE_LANGUAGE" default:"es"`
	YouTubeCategory  string `envconfig:"YOUTUBE_CATEGORY" default:"25"`
	SearchWindowDays int    `envconfig:"SEARCH_WINDOW_DAYS" default:"7"`

	VideoMaxResults   int `envconfig:"VIDEO_MAX_RESULTS" default:"24"`
	VideoDefaultLimit int `envconfig:"VIDEO_DEFAULT_LIMIT" default:"12"`

	// Web search API
	WebSearchAPIKey   string `envconfig:"WEB_SEARCH_API_KEY" default:""`
	WebSearchBaseURL  string `envconfig:"WEB_SEARCH_BASE_URL" default:"https://newsapi.org"`
	WebSearchLanguage string `envconfig:"WEB_SEARCH_LANGUAGE" default:"es"`
	WebMaxResults     int    `envconfig:"WEB_MAX_RESULTS" default:"50"`
	DefaultPageSize   int    `envconfig:"DEFAULT_PAGE_SIZE" default:"10"`

	EnableFallback  bool          `envconfig:"ENABLE_FALLBACK" default:"true"`
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`

	// Cache backend: memory, redis or sqlite
	CacheBackend       string `envconfig:"CACHE_BACKEND" default:"memory"`
	RedisAddr          string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword      string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB            int    `envconfig:"REDIS_DB" default:"0"`
	SQLitePath         string `envconfig:"SQLITE_PATH" default:"pulso-cache.db"`
	CacheSweepSchedule string `envconfig:"CACHE_SWEEP_SCHEDULE" default:"@every 1m"`

	// Circuit breaker per upstream
	BreakerFailures uint32        `envconfig:"BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration `envconfig:"BREAKER_COOLDOWN" default:"30s"`

	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
}

// ResolveDefaults validates enumerations and clamps values that would break
// the pipeline.
func (c *Config) ResolveDefaults() error {
	switch c.Environment {
	case EnvDevelopment, EnvTesting, EnvProduction:
	default:
		return fmt.Errorf("unsupported ENVIRONMENT: %s", c.Environment)
	}

	c.CacheBackend = strings.ToLower(strings.TrimSpace(c.CacheBackend))
	if c.CacheBackend == "" {
		c.CacheBackend = CacheMemory
	}
	switch c.CacheBackend {
	case CacheMemory, CacheRedis, CacheSQLite:
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND: %s", c.CacheBackend)
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	if c.VideoMaxResults < 1 || c.VideoMaxResults > videoResultsCeiling {
		c.VideoMaxResults = videoResultsCeiling
	}
	if c.VideoDefaultLimit < 1 || c.VideoDefaultLimit > c.VideoMaxResults {
		c.VideoDefaultLimit = min(12, c.VideoMaxResults)
	}
	if c.WebMaxResults < 1 || c.WebMaxResults > webResultsCeiling {
		c.WebMaxResults = webResultsCeiling
	}
	if c.DefaultPageSize < 1 {
		c.DefaultPageSize = 10
	}
	if c.SearchWindowDays < 1 {
		c.SearchWindowDays = 7
	}
	return nil
}

// Upper bounds the upstreams accept per call.
const (
	videoResultsCeiling = 24
	webResultsCeiling   = 50
)

// New creates a new Config by parsing environment variables prefixed with
// PULSO_SEARCH_, e.g. PULSO_SEARCH_YOUTUBE_API_KEY.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Bool("youtube_key_present", cfg.YouTubeAPIKey != "").
		Str("youtube_region", cfg.YouTubeRegion).
		Bool("web_search_key_present", cfg.WebSearchAPIKey != "").
		Str("web_search_base_url", cfg.WebSearchBaseURL).
		Bool("fallback", cfg.EnableFallback).
		Dur("cache_ttl", cfg.CacheTTL).
		Str("cache_backend", cfg.CacheBackend).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:               EnvTesting,
		LogLevel:                  "debug",
		Version:                   "test",
		HTTPPort:                  8080,
		YouTubeBaseURL:            "https://youtube.googleapis.com/",
		YouTubeRegion:             "CO",
		YouTubeLanguage:           "es",
		YouTubeCategory:           "25",
		SearchWindowDays:          7,
		VideoMaxResults:           24,
		VideoDefaultLimit:         12,
		WebSearchBaseURL:          "https://newsapi.org",
		WebSearchLanguage:         "es",
		WebMaxResults:             50,
		DefaultPageSize:           10,
		EnableFallback:            true,
		CacheTTL:                  5 * time.Minute,
		UpstreamTimeout:           2 * time.Second,
		CacheBackend:              CacheMemory,
		CacheSweepSchedule:        "@every 1m",
		BreakerFailures:           5,
		BreakerCooldown:           30 * time.Second,
		HealthIntervalSeconds:     30,
		HealthProbeTimeoutSeconds: 2,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
