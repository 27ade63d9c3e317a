package searchservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nuestro-pulso/pulso-search/internal/api"
	"github.com/nuestro-pulso/pulso-search/internal/cache"
	"github.com/nuestro-pulso/pulso-search/internal/clock"
	"github.com/nuestro-pulso/pulso-search/internal/config"
	"github.com/nuestro-pulso/pulso-search/internal/health"
	"github.com/nuestro-pulso/pulso-search/internal/metrics"
	"github.com/nuestro-pulso/pulso-search/internal/source/websearch"
	"github.com/nuestro-pulso/pulso-search/internal/source/youtube"
	"github.com/nuestro-pulso/pulso-search/internal/universal"
)

// dependencies are the long-lived components shared by both surfaces.
type dependencies struct {
	videoCache  cache.Cache
	searchCache cache.Cache
	youtube     *youtube.Adapter
	web         *websearch.Adapter
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	closers     []func() error
}

// initDependencies constructs the cache backend and upstream adapters.
// Missing upstream credentials are not an error; the surfaces degrade.
func initDependencies(ctx context.Context, cfg *config.Config, clk clock.Clock, log zerolog.Logger) (*dependencies, error) {
	d := &dependencies{registry: prometheus.NewRegistry()}
	d.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	d.metrics = metrics.New(d.registry)

	if err := d.openCaches(ctx, cfg, clk, log); err != nil {
		log.Error().Stack().Err(err).Str("backend", cfg.CacheBackend).Msg("Cache backend unavailable")
		_ = d.Close()
		return nil, err
	}

	yt, err := youtube.New(ctx, youtube.Config{
		APIKey:     cfg.YouTubeAPIKey,
		BaseURL:    cfg.YouTubeBaseURL,
		RegionCode: cfg.YouTubeRegion,
		Language:   cfg.YouTubeLanguage,
		CategoryID: cfg.YouTubeCategory,
		WindowDays: cfg.SearchWindowDays,
		Timeout:    cfg.UpstreamTimeout,
	}, clk, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("YouTube client unavailable")
		_ = d.Close()
		return nil, err
	}
	d.youtube = yt

	d.web = websearch.New(websearch.Config{
		APIKey:   cfg.WebSearchAPIKey,
		BaseURL:  cfg.WebSearchBaseURL,
		Language: cfg.WebSearchLanguage,
		Timeout:  cfg.UpstreamTimeout,
	}, log)

	if !yt.Configured() {
		log.Warn().Msg("YOUTUBE_API_KEY not set; video surface serves demo data")
	}
	if !d.web.Configured() {
		log.Warn().Msg("WEB_SEARCH_API_KEY not set; universal search serves the bundled corpus")
	}
	return d, nil
}

func (d *dependencies) openCaches(ctx context.Context, cfg *config.Config, clk clock.Clock, log zerolog.Logger) error {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		client, err := cache.OpenRedis(ctx, cache.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, log)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, client.Close)
		d.videoCache = cache.NewRedis(client, "pulso:"+api.VideoNamespace, cfg.CacheTTL, clk, log)
		d.searchCache = cache.NewRedis(client, "pulso:"+universal.Namespace, cfg.CacheTTL, clk, log)
	case config.CacheSQLite:
		db, err := cache.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, db.Close)
		if d.videoCache, err = cache.NewSQLite(ctx, db, api.VideoNamespace, cfg.CacheTTL, clk, log); err != nil {
			return err
		}
		if d.searchCache, err = cache.NewSQLite(ctx, db, universal.Namespace, cfg.CacheTTL, clk, log); err != nil {
			return err
		}
	case config.CacheMemory:
		d.videoCache = cache.NewMemory(cfg.CacheTTL, clk)
		d.searchCache = cache.NewMemory(cfg.CacheTTL, clk)
	default:
		return fmt.Errorf("unsupported cache backend %q", cfg.CacheBackend)
	}
	return nil
}

// startSweeper schedules expiry sweeps for backends that keep expired rows.
// It returns nil when no backend needs one.
func (d *dependencies) startSweeper(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*cron.Cron, error) {
	var targets []cache.Sweeper
	for _, c := range []cache.Cache{d.videoCache, d.searchCache} {
		if s, ok := c.(cache.Sweeper); ok {
			targets = append(targets, s)
		}
	}
	if len(targets) == 0 || cfg.CacheSweepSchedule == "" {
		return nil, nil
	}
	return cache.StartSweeper(ctx, cfg.CacheSweepSchedule, log, targets...)
}

func (d *dependencies) healthCheckers(log zerolog.Logger, probeTimeout time.Duration) []health.HealthChecker {
	return []health.HealthChecker{
		cache.NewHealthChecker("video-cache", d.videoCache, log, probeTimeout),
		cache.NewHealthChecker("search-cache", d.searchCache, log, probeTimeout),
	}
}

// Close releases backend connections in reverse order of opening.
func (d *dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
