// Package aggregate turns a query into a cached, deduplicated, ranked result
// set using upstream adapters and a fallback source.
package aggregate

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/nuestro-pulso/pulso-search/internal/cache"
	"github.com/nuestro-pulso/pulso-search/internal/clock"
	"github.com/nuestro-pulso/pulso-search/internal/fallback"
	"github.com/nuestro-pulso/pulso-search/internal/metrics"
	"github.com/nuestro-pulso/pulso-search/internal/model"
	"github.com/nuestro-pulso/pulso-search/internal/source"
)

// Options tune one aggregator instance.
type Options struct {
	// Surface labels logs and metrics ("videos", "search").
	Surface        string
	EnableFallback bool
	// AlwaysIncludeFallback appends fallback records to every fresh set, not
	// only when upstreams fail.
	AlwaysIncludeFallback bool
}

// Aggregator runs the miss path once per cache key at a time.
type Aggregator struct {
	cache    cache.Cache
	adapters []source.Adapter
	fallback fallback.Source
	clk      clock.Clock
	metrics  *metrics.Metrics
	log      zerolog.Logger

	surface        string
	alwaysFallback bool
	enableFallback atomic.Bool

	group singleflight.Group

	// gen is bumped by Invalidate. Builds started under an older generation
	// still answer their callers but never write to the cache.
	genMu sync.RWMutex
	gen   atomic.Uint64
}

// New builds an aggregator. Adapters are consulted in order; earlier adapters
// win dedup ties.
func New(c cache.Cache, adapters []source.Adapter, fb fallback.Source, clk clock.Clock, m *metrics.Metrics, log zerolog.Logger, opts Options) *Aggregator {
	a := &Aggregator{
		cache:          c,
		adapters:       adapters,
		fallback:       fb,
		clk:            clk,
		metrics:        m,
		log:            log.With().Str("surface", opts.Surface).Logger(),
		surface:        opts.Surface,
		alwaysFallback: opts.AlwaysIncludeFallback,
	}
	a.enableFallback.Store(opts.EnableFallback)
	return a
}

// SetFallbackEnabled toggles degradation to fallback data at runtime.
func (a *Aggregator) SetFallbackEnabled(v bool) { a.enableFallback.Store(v) }

func (a *Aggregator) FallbackEnabled() bool { return a.enableFallback.Load() }

func (a *Aggregator) Cache() cache.Cache { return a.cache }

// Invalidate clears the cache and detaches builds already in flight from it,
// so callers arriving afterwards start a fresh build.
func (a *Aggregator) Invalidate(ctx context.Context) {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	a.gen.Add(1)
	a.cache.Clear(ctx)
}

// Get answers q from cache or builds, caches and returns a fresh set.
// Concurrent misses for the same key share one build; the build is not
// cancelled when the first caller goes away.
func (a *Aggregator) Get(ctx context.Context, q model.Query) (model.ResultSet, error) {
	key := q.CacheKey()
	if rs, ok := a.cache.Get(ctx, key); ok {
		a.metrics.CacheHit(a.surface)
		rs.Origin = model.SetOriginCache
		return rs, nil
	}
	a.metrics.CacheMiss(a.surface)

	detached := context.WithoutCancel(ctx)
	gen := a.gen.Load()
	ch := a.group.DoChan(strconv.FormatUint(gen, 10)+"|"+key, func() (any, error) {
		return a.build(detached, q, gen)
	})
	select {
	case <-ctx.Done():
		return model.ResultSet{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.ResultSet{}, res.Err
		}
		return res.Val.(model.ResultSet).Clone(), nil
	}
}

func (a *Aggregator) build(ctx context.Context, q model.Query, gen uint64) (model.ResultSet, error) {
	fallbackOn := a.enableFallback.Load()

	var (
		records   []model.ResultRecord
		succeeded bool
	)
	for _, ad := range a.adapters {
		if !ad.Configured() {
			a.log.Debug().Str("upstream", ad.Name()).Msg("upstream not configured, skipping")
			continue
		}
		start := time.Now()
		recs, err := ad.Fetch(ctx, q)
		a.metrics.ObserveUpstream(ad.Name(), time.Since(start))
		if err != nil {
			kind, _ := model.KindOf(err)
			if errors.Is(err, model.ErrNotConfigured) {
				continue
			}
			a.metrics.UpstreamError(ad.Name(), kind.String())
			if fallbackOn && model.Degradable(err) {
				a.log.Warn().Err(err).Str("upstream", ad.Name()).Str("kind", kind.String()).Msg("upstream failed, degrading to fallback")
				continue
			}
			return model.ResultSet{}, err
		}
		succeeded = true
		records = append(records, recs...)
	}

	degraded := fallbackOn && (!succeeded || len(records) == 0)
	switch {
	case a.alwaysFallback, degraded:
		records = append(records, a.fallback.Generate(q, q.Limit)...)
		if degraded {
			a.metrics.Fallback(a.surface)
		}
	case !succeeded:
		return model.ResultSet{}, model.ErrNotConfigured
	}

	records = Dedup(records)
	Rank(records)

	origin := model.SetOriginFallback
	if succeeded {
		origin = model.SetOriginLive
	}
	rs := model.ResultSet{
		Records:      records,
		TotalResults: len(records),
		Query:        q,
		GeneratedAt:  a.clk.Now(),
		Origin:       origin,
	}
	a.store(ctx, q.CacheKey(), rs, gen)
	a.log.Debug().Str("query", q.Term).Str("mode", string(q.Mode)).Int("results", len(records)).Str("origin", string(origin)).Msg("result set built")
	return rs, nil
}

func (a *Aggregator) store(ctx context.Context, key string, rs model.ResultSet, gen uint64) {
	a.genMu.RLock()
	defer a.genMu.RUnlock()
	if a.gen.Load() != gen {
		a.log.Debug().Str("key", key).Msg("cache invalidated during build, result not stored")
		return
	}
	a.cache.Set(ctx, key, rs)
}
