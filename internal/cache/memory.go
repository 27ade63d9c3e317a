package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nuestro-pulso/pulso-search/internal/clock"
	"github.com/nuestro-pulso/pulso-search/internal/model"
)

type memEntry struct {
	payload    model.ResultSet
	insertedAt time.Time
}

// Memory is a process-local cache guarded by a RWMutex.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	ttl     time.Duration
	clock   clock.Clock
}

// NewMemory returns an empty process-local cache.
func NewMemory(ttl time.Duration, clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.System()
	}
	return &Memory{entries: make(map[string]memEntry), ttl: ttl, clock: clk}
}

func (m *Memory) Get(_ context.Context, key string) (model.ResultSet, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || expired(m.clock.Now(), e.insertedAt, m.ttl) {
		return model.ResultSet{}, false
	}
	return e.payload.Clone(), true
}

func (m *Memory) Set(_ context.Context, key string, rs model.ResultSet) {
	e := memEntry{payload: rs.Clone(), insertedAt: m.clock.Now()}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
}

func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	m.entries = make(map[string]memEntry)
	m.mu.Unlock()
}

// Stats reports only live entries.
func (m *Memory) Stats(_ context.Context) Stats {
	now := m.clock.Now()
	m.mu.RLock()
	keys := make([]string, 0, len(m.entries))
	for k, e := range m.entries {
		if !expired(now, e.insertedAt, m.ttl) {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return newStats(keys, m.ttl)
}

// Sweep deletes expired entries and returns how many were removed.
func (m *Memory) Sweep(_ context.Context) int {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if expired(now, e.insertedAt, m.ttl) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}
