package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessIndexedPreservesOrder(t *testing.T) {
	wp := NewWorkerPool(4)
	defer wp.Close()

	items := make([]int, 40)
	for i := range items {
		items[i] = i
	}

	results, err := ProcessIndexed(wp, items, func(_ int, v int) (int, error) {
		return v * 2, nil
	})
	require.NoError(t, err)
	require.Len(t, results, 40)
	for i, r := range results {
		assert.Equal(t, i*2, r)
	}
}

func TestProcessIndexedEmpty(t *testing.T) {
	wp := NewWorkerPool(2)
	defer wp.Close()

	results, err := ProcessIndexed(wp, nil, func(_ int, v int) (int, error) {
		return v, nil
	})
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestProcessIndexedFailAll(t *testing.T) {
	wp := NewWorkerPool(4)
	defer wp.Close()

	boom := errors.New("worker failed")
	items := []int{0, 1, 2, 3, 4, 5, 6, 7}

	results, err := ProcessIndexed(wp, items, func(_ int, v int) (int, error) {
		if v == 3 {
			return 0, boom
		}
		return v, nil
	})

	require.ErrorIs(t, err, boom)
	assert.Nil(t, results, "partial results are discarded on failure")
}

func TestProcessIndexedSingleWorker(t *testing.T) {
	wp := NewWorkerPool(1)
	defer wp.Close()

	var calls atomic.Int32
	results, err := ProcessIndexed(wp, []string{"a", "b", "c"}, func(i int, s string) (string, error) {
		calls.Add(1)
		return s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, results)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNewWorkerPoolAutoDetect(t *testing.T) {
	wp := NewWorkerPool(0)
	defer wp.Close()

	assert.Positive(t, wp.numWorkers)
}
