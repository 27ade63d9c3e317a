package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nuestro-pulso/pulso-search/internal/clock"
	"github.com/nuestro-pulso/pulso-search/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS result_cache (
    namespace   TEXT    NOT NULL,
    cache_key   TEXT    NOT NULL,
    payload     BLOB    NOT NULL,
    inserted_at INTEGER NOT NULL,
    PRIMARY KEY (namespace, cache_key)
);`

// SQLite keeps cached result sets across restarts of a single instance.
type SQLite struct {
	db        *sql.DB
	namespace string
	ttl       time.Duration
	clock     clock.Clock
	log       zerolog.Logger
}

// NewSQLite creates the cache table if needed.
func NewSQLite(ctx context.Context, db *sql.DB, namespace string, ttl time.Duration, clk clock.Clock, log zerolog.Logger) (*SQLite, error) {
	if clk == nil {
		clk = clock.System()
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &SQLite{
		db:        db,
		namespace: namespace,
		ttl:       ttl,
		clock:     clk,
		log:       log.With().Str("cache", "sqlite").Str("namespace", namespace).Logger(),
	}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (model.ResultSet, bool) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM result_cache WHERE namespace = ? AND cache_key = ?`,
		s.namespace, key).Scan(&data)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return model.ResultSet{}, false
	}
	e, err := decodeEntry(data)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache entry undecodable")
		return model.ResultSet{}, false
	}
	if expired(s.clock.Now(), e.InsertedAt, s.ttl) {
		return model.ResultSet{}, false
	}
	return e.Payload, true
}

func (s *SQLite) Set(ctx context.Context, key string, rs model.ResultSet) {
	now := s.clock.Now()
	data, err := encodeEntry(rs, now)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO result_cache (namespace, cache_key, payload, inserted_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, cache_key) DO UPDATE SET payload = excluded.payload, inserted_at = excluded.inserted_at`,
		s.namespace, key, data, now.UnixMilli())
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func (s *SQLite) Clear(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM result_cache WHERE namespace = ?`, s.namespace); err != nil {
		s.log.Warn().Err(err).Msg("cache clear failed")
	}
}

func (s *SQLite) Stats(ctx context.Context) Stats {
	cutoff := s.clock.Now().Add(-s.ttl).UnixMilli()
	rows, err := s.db.QueryContext(ctx,
		`SELECT cache_key FROM result_cache WHERE namespace = ? AND inserted_at > ? ORDER BY cache_key`,
		s.namespace, cutoff)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache stats failed")
		return newStats(nil, s.ttl)
	}
	defer func() { _ = rows.Close() }()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			s.log.Warn().Err(err).Msg("cache stats scan failed")
			break
		}
		keys = append(keys, k)
	}
	return newStats(keys, s.ttl)
}

func (s *SQLite) Sweep(ctx context.Context) int {
	cutoff := s.clock.Now().Add(-s.ttl).UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM result_cache WHERE namespace = ? AND inserted_at <= ?`, s.namespace, cutoff)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache sweep failed")
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// HealthPing lets the cache health checker probe the database.
func (s *SQLite) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
