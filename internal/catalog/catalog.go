// Package catalog provides the per-column memo of previously computed
// aggregate statistics. Materializations consult it before issuing a query;
// any row-affecting mutation must invalidate the affected columns. The cache
// is owned by a single frame and is not safe for concurrent mutation.
package catalog

import (
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/maps"

	"github.com/sqlframe/sqlframe/internal/expr"
)

// pairEntry records a matrix statistic (correlation, covariance, ...) for an
// ordered column pair.
type pairEntry struct {
	colA  string
	colB  string
	kind  string
	value interface{}
}

// Cache memoizes scalar aggregates per column plus pairwise matrix entries.
// The enabled hook reads the session cache toggle; when it reports false the
// cache degrades to always-recompute without special-casing call sites.
type Cache struct {
	enabled func() bool
	stats   map[string]map[string]interface{}
	pairs   map[uint64]pairEntry
}

// New creates an empty cache. A nil enabled hook means always enabled.
func New(enabled func() bool) *Cache {
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &Cache{
		enabled: enabled,
		stats:   make(map[string]map[string]interface{}),
		pairs:   make(map[uint64]pairEntry),
	}
}

func normalizeColumn(column string) string {
	return strings.ToLower(expr.CleanIdent(column))
}

func normalizeStat(stat string) string {
	return strings.ToLower(strings.TrimSpace(stat))
}

func pairKey(colA, colB, kind string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(normalizeColumn(colA))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(normalizeColumn(colB))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(normalizeStat(kind))
	return h.Sum64()
}

// Lookup returns the cached value for a column statistic, or reports "not
// computed" when absent or caching is disabled.
func (c *Cache) Lookup(column, stat string) (interface{}, bool) {
	if !c.enabled() {
		return nil, false
	}
	byStat, ok := c.stats[normalizeColumn(column)]
	if !ok {
		return nil, false
	}
	v, ok := byStat[normalizeStat(stat)]
	return v, ok
}

// LookupPair returns the cached matrix value for an ordered column pair.
func (c *Cache) LookupPair(colA, colB, kind string) (interface{}, bool) {
	if !c.enabled() {
		return nil, false
	}
	e, ok := c.pairs[pairKey(colA, colB, kind)]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// nullLegitimate reports statistics for which a null answer is a usable
// cache hit rather than a failed computation.
func nullLegitimate(stat string) bool {
	switch normalizeStat(stat) {
	case "top", "mode":
		return true
	}
	return false
}

// Store records a scalar for a column statistic. NaN values are treated as
// absent rather than usable hits, except for mode-class statistics where
// null is a legitimate answer.
func (c *Cache) Store(column, stat string, value interface{}) {
	if !c.enabled() {
		return
	}
	col := normalizeColumn(column)
	st := normalizeStat(stat)
	if f, ok := value.(float64); ok && math.IsNaN(f) && !nullLegitimate(st) {
		if byStat, exists := c.stats[col]; exists {
			delete(byStat, st)
		}
		return
	}
	if value == nil && !nullLegitimate(st) {
		if byStat, exists := c.stats[col]; exists {
			delete(byStat, st)
		}
		return
	}
	byStat, exists := c.stats[col]
	if !exists {
		byStat = make(map[string]interface{})
		c.stats[col] = byStat
	}
	byStat[st] = value
}

// StorePair records a matrix statistic for an ordered column pair.
func (c *Cache) StorePair(colA, colB, kind string, value interface{}) {
	if !c.enabled() {
		return
	}
	if f, ok := value.(float64); ok && math.IsNaN(f) {
		delete(c.pairs, pairKey(colA, colB, kind))
		return
	}
	c.pairs[pairKey(colA, colB, kind)] = pairEntry{
		colA:  normalizeColumn(colA),
		colB:  normalizeColumn(colB),
		kind:  normalizeStat(kind),
		value: value,
	}
}

// Invalidate clears entries for the given columns, or the whole cache when
// called without arguments. Pair entries involving any affected column are
// cleared as well. Call sites must invalidate conservatively: anything that
// can change which rows exist or which values a column holds.
func (c *Cache) Invalidate(columns ...string) {
	if len(columns) == 0 {
		maps.Clear(c.stats)
		maps.Clear(c.pairs)
		return
	}
	affected := make(map[string]bool, len(columns))
	for _, col := range columns {
		norm := normalizeColumn(col)
		affected[norm] = true
		delete(c.stats, norm)
	}
	for key, e := range c.pairs {
		if affected[e.colA] || affected[e.colB] {
			delete(c.pairs, key)
		}
	}
}

// Empty reports whether no statistic is cached for the column.
func (c *Cache) Empty(column string) bool {
	byStat, ok := c.stats[normalizeColumn(column)]
	return !ok || len(byStat) == 0
}

// Clone deep-copies the cache; the clone shares the enabled hook.
func (c *Cache) Clone() *Cache {
	return c.CloneWith(c.enabled)
}

// CloneWith deep-copies the cache, rebinding the enabled hook. Used when the
// owning frame is cloned so the copy reads its own session options.
func (c *Cache) CloneWith(enabled func() bool) *Cache {
	clone := New(enabled)
	for col, byStat := range c.stats {
		clone.stats[col] = maps.Clone(byStat)
	}
	clone.pairs = maps.Clone(c.pairs)
	return clone
}
