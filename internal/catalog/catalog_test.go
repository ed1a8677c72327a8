package catalog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupMissReportsNotComputed(t *testing.T) {
	c := New(nil)

	_, ok := c.Lookup("age", "min")
	assert.False(t, ok)
}

func TestStoreAndLookup(t *testing.T) {
	c := New(nil)

	c.Store("age", "min", 18.0)
	c.Store("age", "max", 95.0)

	v, ok := c.Lookup("age", "min")
	require.True(t, ok)
	assert.Equal(t, 18.0, v)

	v, ok = c.Lookup("age", "max")
	require.True(t, ok)
	assert.Equal(t, 95.0, v)
}

func TestLookupNormalizesQuotingAndCase(t *testing.T) {
	c := New(nil)

	c.Store(`"Age"`, "MIN", 18.0)

	_, ok := c.Lookup("age", "min")
	assert.True(t, ok)
}

func TestNaNTreatedAsAbsent(t *testing.T) {
	c := New(nil)

	c.Store("amt", "avg", 10.0)
	c.Store("amt", "avg", math.NaN())

	_, ok := c.Lookup("amt", "avg")
	assert.False(t, ok, "NaN must not be a usable cache hit")
}

func TestNullLegitimateForMode(t *testing.T) {
	c := New(nil)

	c.Store("amt", "top", nil)

	v, ok := c.Lookup("amt", "top")
	require.True(t, ok, "null is a legitimate answer for top/mode")
	assert.Nil(t, v)
}

func TestPairStatistics(t *testing.T) {
	c := New(nil)

	c.StorePair("a", "b", "corr", 0.87)

	v, ok := c.LookupPair("a", "b", "corr")
	require.True(t, ok)
	assert.Equal(t, 0.87, v)

	// Pair order matters for the key
	_, ok = c.LookupPair("b", "a", "corr")
	assert.False(t, ok)
}

func TestInvalidateSingleColumn(t *testing.T) {
	c := New(nil)

	c.Store("a", "min", 1.0)
	c.Store("b", "min", 2.0)
	c.StorePair("a", "b", "corr", 0.5)
	c.StorePair("b", "c", "corr", 0.6)

	c.Invalidate("a")

	_, ok := c.Lookup("a", "min")
	assert.False(t, ok)
	_, ok = c.Lookup("b", "min")
	assert.True(t, ok)

	// Pair entries involving the invalidated column are gone too
	_, ok = c.LookupPair("a", "b", "corr")
	assert.False(t, ok)
	_, ok = c.LookupPair("b", "c", "corr")
	assert.True(t, ok)
}

func TestInvalidateAll(t *testing.T) {
	c := New(nil)

	c.Store("a", "min", 1.0)
	c.Store("b", "max", 2.0)
	c.StorePair("a", "b", "corr", 0.5)

	c.Invalidate()

	assert.True(t, c.Empty("a"))
	assert.True(t, c.Empty("b"))
	_, ok := c.LookupPair("a", "b", "corr")
	assert.False(t, ok)
}

func TestDisabledCacheDegradesToRecompute(t *testing.T) {
	enabled := true
	c := New(func() bool { return enabled })

	c.Store("a", "min", 1.0)
	_, ok := c.Lookup("a", "min")
	require.True(t, ok)

	enabled = false

	_, ok = c.Lookup("a", "min")
	assert.False(t, ok, "disabled cache always reports not computed")

	c.Store("a", "max", 2.0)
	enabled = true
	_, ok = c.Lookup("a", "max")
	assert.False(t, ok, "store is a no-op while disabled")
}

func TestClone(t *testing.T) {
	c := New(nil)
	c.Store("a", "min", 1.0)
	c.StorePair("a", "b", "corr", 0.5)

	clone := c.Clone()
	clone.Store("a", "min", 99.0)
	clone.Invalidate("b")

	v, ok := c.Lookup("a", "min")
	require.True(t, ok)
	assert.Equal(t, 1.0, v, "clone mutations must not leak into the original")
	_, ok = c.LookupPair("a", "b", "corr")
	assert.True(t, ok)
}
