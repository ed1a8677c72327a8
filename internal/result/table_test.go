package result

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/sqlframe/sqlframe/internal/errors"
	"github.com/sqlframe/sqlframe/internal/sqlbridge"
)

func scriptedTable() *sqlbridge.ScriptedExecutor {
	return sqlbridge.NewScriptedExecutor(sqlbridge.Script{
		Contains: []string{"FROM"},
		Columns:  []string{"id", "amt"},
		Types:    []string{"INT", "NUMERIC"},
		Rows: [][]interface{}{
			{int64(1), "10.5"},
			{int64(2), nil},
			{int64(3), "30.25"},
		},
	})
}

func TestFetchMaterializesRows(t *testing.T) {
	ex := scriptedTable()

	table, err := Fetch(context.Background(), ex, `SELECT * FROM "sales"`)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "amt"}, table.Columns())
	assert.Equal(t, 3, table.NumRows())

	ids, ok := table.Values("id")
	require.True(t, ok)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, ids)
}

func TestFetchNormalizesDecimals(t *testing.T) {
	ex := scriptedTable()

	table, err := Fetch(context.Background(), ex, `SELECT * FROM "sales"`)
	require.NoError(t, err)

	amts, ok := table.Values("amt")
	require.True(t, ok)
	assert.InDelta(t, 10.5, amts[0].(float64), 1e-9)
	assert.Nil(t, amts[1])
	assert.InDelta(t, 30.25, amts[2].(float64), 1e-9)
}

func TestFetchPropagatesQueryError(t *testing.T) {
	ex := sqlbridge.NewScriptedExecutor()

	_, err := Fetch(context.Background(), ex, "SELECT broken")
	require.Error(t, err)
	assert.True(t, ferrors.IsQueryError(err))
}

func TestFetchScalar(t *testing.T) {
	ex := sqlbridge.NewScriptedExecutor(sqlbridge.Script{
		Contains: []string{"COUNT(*)"},
		Columns:  []string{"count"},
		Types:    []string{"BIGINT"},
		Rows:     [][]interface{}{{int64(42)}},
	})

	v, err := FetchScalar(context.Background(), ex, `SELECT COUNT(*) FROM (SELECT 1) AS t`)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestFetchScalarEmptyResult(t *testing.T) {
	ex := sqlbridge.NewScriptedExecutor(sqlbridge.Script{
		Contains: []string{"SELECT"},
		Columns:  []string{"v"},
	})

	v, err := FetchScalar(context.Background(), ex, "SELECT 1 WHERE FALSE")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestNormalize(t *testing.T) {
	d := decimal.NewFromFloat(12.75)
	assert.InDelta(t, 12.75, Normalize(d, "NUMERIC").(float64), 1e-9)
	assert.InDelta(t, 1.5, Normalize("1.5", "DECIMAL(10,2)").(float64), 1e-9)
	assert.Equal(t, "abc", Normalize("abc", "VARCHAR"))
	assert.Equal(t, int64(3), Normalize(int64(3), "INT"))
	assert.Nil(t, Normalize(nil, "INT"))
}

func TestToFloat(t *testing.T) {
	f, ok := ToFloat(int64(4))
	require.True(t, ok)
	assert.InDelta(t, 4.0, f, 1e-9)

	f, ok = ToFloat("2.5")
	require.True(t, ok)
	assert.InDelta(t, 2.5, f, 1e-9)

	_, ok = ToFloat("not a number")
	assert.False(t, ok)

	_, ok = ToFloat(nil)
	assert.False(t, ok)
}

func TestToRecord(t *testing.T) {
	ex := scriptedTable()

	table, err := Fetch(context.Background(), ex, `SELECT * FROM "sales"`)
	require.NoError(t, err)

	rec, err := table.ToRecord(nil)
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, int64(3), rec.NumRows())
	assert.Equal(t, int64(2), rec.NumCols())

	ids, ok := rec.Column(0).(*array.Int64)
	require.True(t, ok)
	assert.Equal(t, int64(1), ids.Value(0))

	amts, ok := rec.Column(1).(*array.Float64)
	require.True(t, ok)
	assert.InDelta(t, 10.5, amts.Value(0), 1e-9)
	assert.True(t, amts.IsNull(1))
}

func TestTableString(t *testing.T) {
	ex := scriptedTable()

	table, err := Fetch(context.Background(), ex, `SELECT * FROM "sales"`)
	require.NoError(t, err)

	out := table.String()
	assert.Contains(t, out, "id")
	assert.Contains(t, out, "amt")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "30.25")
}
