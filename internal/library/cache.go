package library

import (
	"sync"
	"time"

	"photomedit/internal/metrics"
)

// Cache holds unfiltered folder scan results for a short time so rapid
// navigation does not rescan the NAS on every request. Filters are applied
// after retrieval, so one cached scan serves every filter.
type Cache interface {
	Get(key string) ([]Entry, bool)
	Set(key string, entries []Entry)
	Invalidate(key string)
}

// TTLCache is an in-memory Cache with a fixed max age per entry.
type TTLCache struct {
	mu     sync.Mutex
	maxAge time.Duration
	data   map[string]ttlRecord
}

type ttlRecord struct {
	entries []Entry
	stored  time.Time
}

// NewTTLCache builds a cache whose entries expire after maxAge.
func NewTTLCache(maxAge time.Duration) *TTLCache {
	return &TTLCache{
		maxAge: maxAge,
		data:   make(map[string]ttlRecord),
	}
}

func (c *TTLCache) Get(key string) ([]Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.data[key]
	if !ok || time.Since(rec.stored) > c.maxAge {
		if ok {
			delete(c.data, key)
		}
		metrics.ScanCacheMissesTotal.Inc()
		return nil, false
	}
	metrics.ScanCacheHitsTotal.Inc()
	out := make([]Entry, len(rec.entries))
	copy(out, rec.entries)
	return out, true
}

func (c *TTLCache) Set(key string, entries []Entry) {
	stored := make([]Entry, len(entries))
	copy(stored, entries)
	c.mu.Lock()
	c.data[key] = ttlRecord{entries: stored, stored: time.Now()}
	c.mu.Unlock()
}

func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

// NoopCache disables caching; every listing rescans.
type NoopCache struct{}

func (NoopCache) Get(string) ([]Entry, bool) { return nil, false }
func (NoopCache) Set(string, []Entry)        {}
func (NoopCache) Invalidate(string)          {}
