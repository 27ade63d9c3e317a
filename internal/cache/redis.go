package cache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nuestro-pulso/pulso-search/internal/clock"
	"github.com/nuestro-pulso/pulso-search/internal/model"
)

// Redis shares cached result sets between instances. Keys carry a Redis TTL so
// the server evicts them, and the insertion time is still checked on read.
type Redis struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
	clock     clock.Clock
	log       zerolog.Logger
}

// NewRedis wraps a connected client. namespace separates the two services.
func NewRedis(client redis.UniversalClient, namespace string, ttl time.Duration, clk clock.Clock, log zerolog.Logger) *Redis {
	if clk == nil {
		clk = clock.System()
	}
	return &Redis{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		clock:     clk,
		log:       log.With().Str("cache", "redis").Str("namespace", namespace).Logger(),
	}
}

func (r *Redis) redisKey(key string) string { return r.namespace + ":" + key }

func (r *Redis) Get(ctx context.Context, key string) (model.ResultSet, bool) {
	data, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return model.ResultSet{}, false
	}
	e, err := decodeEntry(data)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("cache entry undecodable")
		return model.ResultSet{}, false
	}
	if expired(r.clock.Now(), e.InsertedAt, r.ttl) {
		return model.ResultSet{}, false
	}
	return e.Payload, true
}

func (r *Redis) Set(ctx context.Context, key string, rs model.ResultSet) {
	data, err := encodeEntry(rs, r.clock.Now())
	if err != nil {
		r.log.Error().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := r.client.Set(ctx, r.redisKey(key), data, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func (r *Redis) Clear(ctx context.Context) {
	keys, err := r.scan(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.log.Warn().Err(err).Msg("cache clear failed")
	}
}

func (r *Redis) Stats(ctx context.Context) Stats {
	keys, err := r.scan(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("cache scan failed")
		return newStats(nil, r.ttl)
	}
	prefix := r.namespace + ":"
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, prefix))
	}
	sort.Strings(out)
	return newStats(out, r.ttl)
}

// HealthPing lets the cache health checker probe the server.
func (r *Redis) HealthPing(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) scan(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.namespace+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}
