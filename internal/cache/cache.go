// Package cache stores ranked result sets under canonical query keys with a
// read-time TTL check. Entries past their TTL are reported absent even if a
// backend still holds them.
package cache

import (
	"context"
	"time"

	"github.com/nuestro-pulso/pulso-search/internal/model"
)

// Cache is implemented by every backend. It cannot fail: backend errors are
// logged and surface as a miss.
type Cache interface {
	Get(ctx context.Context, key string) (model.ResultSet, bool)
	Set(ctx context.Context, key string, rs model.ResultSet)
	Clear(ctx context.Context)
	Stats(ctx context.Context) Stats
}

// Sweeper physically removes expired entries.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// Stats describes cache occupancy.
type Stats struct {
	Size  int           `json:"size"`
	Keys  []string      `json:"keys"`
	TTL   time.Duration `json:"-"`
	TTLMs int64         `json:"ttlMs"`
}

func newStats(keys []string, ttl time.Duration) Stats {
	if keys == nil {
		keys = []string{}
	}
	return Stats{Size: len(keys), Keys: keys, TTL: ttl, TTLMs: ttl.Milliseconds()}
}

func expired(now, insertedAt time.Time, ttl time.Duration) bool {
	return now.Sub(insertedAt) >= ttl
}
