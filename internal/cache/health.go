package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/nuestro-pulso/pulso-search/internal/health"
)

// HealthChecker probes a cache backend that implements health.HealthPinger.
// Backends without a ping (the in-memory cache) are always healthy.
type HealthChecker struct {
	name         string
	cache        Cache
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewHealthChecker creates a checker for c.
func NewHealthChecker(name string, c Cache, log zerolog.Logger, probeTimeout time.Duration) *HealthChecker {
	hc := &HealthChecker{name: name, cache: c, log: log, probeTimeout: probeTimeout}
	hc.healthy.Store(0) // start unhealthy until first successful probe
	return hc
}

func (hc *HealthChecker) Name() string    { return hc.name }
func (hc *HealthChecker) IsHealthy() bool { return hc.healthy.Load() == 1 }

// Start begins periodic health checking.
func (hc *HealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	hc.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.check(ctx)
		}
	}
}

func (hc *HealthChecker) check(ctx context.Context) {
	p, ok := hc.cache.(health.HealthPinger)
	if !ok {
		hc.healthy.Store(1)
		return
	}
	to := hc.probeTimeout
	if to <= 0 {
		to = 2 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, to)
	defer cancel()
	if err := p.HealthPing(checkCtx); err != nil {
		hc.healthy.Store(0)
		hc.log.Error().Stack().Str("checker", hc.Name()).Err(err).Msg("cache health check failed")
		return
	}
	hc.healthy.Store(1)
}
