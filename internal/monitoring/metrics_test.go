package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsQueries(t *testing.T) {
	c := NewCollector(true)

	c.RecordQuery(QueryMetrics{SQL: "SELECT 1", Operation: "shape", Duration: time.Millisecond})
	c.RecordQuery(QueryMetrics{SQL: "SELECT 2", Operation: "agg", Failed: true})

	queries := c.Queries()
	require.Len(t, queries, 2)
	assert.Equal(t, "shape", queries[0].Operation)
	assert.True(t, queries[1].Failed)
}

func TestCollectorCacheCounters(t *testing.T) {
	c := NewCollector(true)

	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordCacheMiss()

	hits, misses := c.CacheCounters()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCollectorDisabled(t *testing.T) {
	c := NewCollector(false)

	c.RecordQuery(QueryMetrics{SQL: "SELECT 1"})
	c.RecordCacheHit()
	c.RecordCacheMiss()

	assert.Empty(t, c.Queries())
	hits, misses := c.CacheCounters()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
	assert.False(t, c.IsEnabled())
}

func TestCollectorReset(t *testing.T) {
	c := NewCollector(true)
	c.RecordQuery(QueryMetrics{SQL: "SELECT 1"})
	c.RecordCacheHit()

	c.Reset()

	assert.Empty(t, c.Queries())
	hits, _ := c.CacheCounters()
	assert.Zero(t, hits)
}
