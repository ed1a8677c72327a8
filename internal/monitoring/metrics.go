// Package monitoring provides query and cache metrics collection for
// virtual dataframe operations.
package monitoring

import (
	"sync"
	"time"
)

// QueryMetrics represents one executed statement.
type QueryMetrics struct {
	Duration  time.Duration `json:"duration"`
	SQL       string        `json:"sql"`
	Operation string        `json:"operation"`
	Failed    bool          `json:"failed"`
}

// Collector collects query metrics and cache hit counters.
type Collector struct {
	mu       sync.RWMutex
	queries  []QueryMetrics
	hits     int64
	misses   int64
	enabled  bool
}

// NewCollector creates a new metrics collector.
func NewCollector(enabled bool) *Collector {
	return &Collector{enabled: enabled}
}

// IsEnabled returns whether metrics collection is enabled.
func (c *Collector) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// RecordQuery records one executed statement.
func (c *Collector) RecordQuery(m QueryMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.queries = append(c.queries, m)
}

// RecordCacheHit increments the catalog hit counter.
func (c *Collector) RecordCacheHit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.hits++
}

// RecordCacheMiss increments the catalog miss counter.
func (c *Collector) RecordCacheMiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.misses++
}

// Queries returns a copy of the recorded query metrics.
func (c *Collector) Queries() []QueryMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]QueryMetrics, len(c.queries))
	copy(out, c.queries)
	return out
}

// CacheCounters returns the catalog hit and miss counters.
func (c *Collector) CacheCounters() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Reset clears all recorded metrics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = nil
	c.hits = 0
	c.misses = 0
}
