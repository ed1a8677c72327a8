package series

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlframe/sqlframe/internal/expr"
)

func TestFromValuesInt(t *testing.T) {
	mem := memory.NewGoAllocator()

	col, err := FromValues("id", expr.CatInt, []interface{}{int64(1), int64(2), nil, 4}, mem)
	require.NoError(t, err)
	defer col.Release()

	assert.Equal(t, "id", col.Name())
	assert.Equal(t, expr.CatInt, col.Category())
	assert.Equal(t, 4, col.Len())

	arr, ok := col.Array().(*array.Int64)
	require.True(t, ok)
	assert.Equal(t, int64(1), arr.Value(0))
	assert.Equal(t, int64(2), arr.Value(1))
	assert.True(t, col.IsNull(2))
	assert.Equal(t, int64(4), arr.Value(3))
}

func TestFromValuesFloat(t *testing.T) {
	mem := memory.NewGoAllocator()

	col, err := FromValues("amt", expr.CatFloat, []interface{}{10.0, nil, int64(30)}, mem)
	require.NoError(t, err)
	defer col.Release()

	arr, ok := col.Array().(*array.Float64)
	require.True(t, ok)
	assert.InDelta(t, 10.0, arr.Value(0), 1e-9)
	assert.True(t, col.IsNull(1))
	assert.InDelta(t, 30.0, arr.Value(2), 1e-9)
}

func TestFromValuesBool(t *testing.T) {
	mem := memory.NewGoAllocator()

	col, err := FromValues("flag", expr.CatBool, []interface{}{true, false, nil}, mem)
	require.NoError(t, err)
	defer col.Release()

	arr, ok := col.Array().(*array.Boolean)
	require.True(t, ok)
	assert.True(t, arr.Value(0))
	assert.False(t, arr.Value(1))
	assert.True(t, col.IsNull(2))
}

func TestFromValuesTextFallback(t *testing.T) {
	mem := memory.NewGoAllocator()

	col, err := FromValues("name", expr.CatText, []interface{}{"alice", nil, 42}, mem)
	require.NoError(t, err)
	defer col.Release()

	arr, ok := col.Array().(*array.String)
	require.True(t, ok)
	assert.Equal(t, "alice", arr.Value(0))
	assert.True(t, col.IsNull(1))
	assert.Equal(t, "42", arr.Value(2))
}

func TestFieldNullable(t *testing.T) {
	col, err := FromValues("x", expr.CatInt, []interface{}{int64(1)}, nil)
	require.NoError(t, err)
	defer col.Release()

	field := col.Field()
	assert.Equal(t, "x", field.Name)
	assert.True(t, field.Nullable)
}

func TestIsNullOutOfBounds(t *testing.T) {
	col, err := FromValues("x", expr.CatInt, []interface{}{int64(1)}, nil)
	require.NoError(t, err)
	defer col.Release()

	assert.True(t, col.IsNull(-1))
	assert.True(t, col.IsNull(5))
}
