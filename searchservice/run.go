package searchservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nuestro-pulso/pulso-search/internal/aggregate"
	"github.com/nuestro-pulso/pulso-search/internal/api"
	"github.com/nuestro-pulso/pulso-search/internal/clock"
	"github.com/nuestro-pulso/pulso-search/internal/config"
	"github.com/nuestro-pulso/pulso-search/internal/fallback"
	"github.com/nuestro-pulso/pulso-search/internal/health"
	"github.com/nuestro-pulso/pulso-search/internal/logger"
	"github.com/nuestro-pulso/pulso-search/internal/source"
	"github.com/nuestro-pulso/pulso-search/internal/universal"
)

// Run starts the search service HTTP server and blocks until shutdown or error.
func Run() error {
	cfg, err := config.New()
	if err != nil {
		log := logger.New("pulso-search", "info")
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	log := logger.New("pulso-search", cfg.LogLevel)

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("http_port", cfg.HTTPPort).
		Str("cache_backend", cfg.CacheBackend).
		Bool("youtube_configured", cfg.YouTubeAPIKey != "").
		Bool("web_search_configured", cfg.WebSearchAPIKey != "").
		Bool("fallback", cfg.EnableFallback).
		Msg("Search service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	deps, err := initDependencies(ctx, cfg, clock.System(), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.Warn().Err(err).Msg("closing dependencies")
		}
	}()

	sweeper, err := deps.startSweeper(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("cache sweeper not started")
		return err
	}
	if sweeper != nil {
		defer sweeper.Stop()
	}

	// Start health checkers and block startup until the cache backends answer
	svcHealth := startHealthCheckers(ctx, cfg, log, deps)
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	router := buildRouter(cfg, deps, svcHealth, clock.System(), log)

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// buildRouter assembles both surfaces on top of the shared dependencies.
func buildRouter(cfg *config.Config, deps *dependencies, svcHealth api.ServiceHealth, clk clock.Clock, log zerolog.Logger) *mux.Router {
	breaker := source.BreakerSettings{ConsecutiveFailures: cfg.BreakerFailures, Cooldown: cfg.BreakerCooldown}

	videoAgg := aggregate.New(
		deps.videoCache,
		[]source.Adapter{source.NewBreaker(deps.youtube, breaker, log)},
		fallback.NewGenerator(clk, uint64(clk.Now().UnixNano())),
		clk, deps.metrics, log,
		aggregate.Options{Surface: api.VideoNamespace, EnableFallback: cfg.EnableFallback},
	)
	searchAgg := aggregate.New(
		deps.searchCache,
		[]source.Adapter{source.NewBreaker(deps.web, breaker, log)},
		fallback.NewCorpus(clk, fallback.DefaultArticles),
		clk, deps.metrics, log,
		aggregate.Options{Surface: universal.Namespace, EnableFallback: cfg.EnableFallback, AlwaysIncludeFallback: true},
	)
	searchSvc := universal.NewService(searchAgg, deps.web, cfg.WebMaxResults, cfg.DefaultPageSize, log)

	return api.NewRouter(api.Handlers{
		Videos: api.NewVideoHandler(videoAgg, deps.youtube, api.VideoOptions{
			MaxLimit:     cfg.VideoMaxResults,
			DefaultLimit: cfg.VideoDefaultLimit,
			Version:      cfg.Version,
			Production:   cfg.IsProduction(),
		}, clk),
		Search: api.NewSearchHandler(searchSvc, api.SearchOptions{
			DefaultPageSize: cfg.DefaultPageSize,
			MaxPageSize:     cfg.WebMaxResults,
			Version:         cfg.Version,
			Production:      cfg.IsProduction(),
		}, clk),
		Health:  api.NewHealthHandler(svcHealth, cfg.Version, clk),
		Metrics: promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{}),
	}, log)
}

// startHealthCheckers starts component checkers and the service-level aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, deps *dependencies) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := healthInterval(cfg)

	checkers := deps.healthCheckers(log, probeTimeout)
	for _, c := range checkers {
		go c.Start(ctx, interval)
	}

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func healthInterval(cfg *config.Config) time.Duration {
	if cfg.HealthIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.HealthIntervalSeconds) * time.Second
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	// Upstream calls may take the full upstream timeout before the response is written.
	writeTimeout := max(15*time.Second, cfg.UpstreamTimeout+5*time.Second)
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
