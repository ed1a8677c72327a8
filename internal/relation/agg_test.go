package relation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlframe/sqlframe/internal/config"
	ferrors "github.com/sqlframe/sqlframe/internal/errors"
	"github.com/sqlframe/sqlframe/internal/sqlbridge"
)

func TestNormalizeAggFunc(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"min", "min", true},
		{"MAX", "max", true},
		{"mean", "avg", true},
		{"average", "avg", true},
		{"stddev", "std", true},
		{"variance", "var", true},
		{"countdistinct", "unique", true},
		{" median ", "median", true},
		{"quantile", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeAggFunc(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestAggregateSingleStatement(t *testing.T) {
	ex := sqlbridge.NewScriptedExecutor(sqlbridge.Script{
		Contains: []string{"MIN(", "MAX("},
		Columns:  []string{"agg_0", "agg_1", "agg_2", "agg_3"},
		Rows:     [][]interface{}{{int64(1), int64(3), 10.0, 30.0}},
	})
	f := newSalesFrame(t, WithExecutor(ex))
	ctx := context.Background()

	table, err := f.Aggregate(ctx, []string{"min", "max"}, []string{"id", "amt"})
	require.NoError(t, err)

	require.Len(t, ex.Executed, 1)
	assert.Equal(t,
		`SELECT MIN("id") AS "agg_0", MAX("id") AS "agg_1", MIN("amt") AS "agg_2", MAX("amt") AS "agg_3" FROM sales`,
		ex.Executed[0])

	assert.Equal(t, []string{"column", "min", "max"}, table.Columns())
	assert.Equal(t, []interface{}{"id", int64(1), int64(3)}, table.Row(0))
	assert.Equal(t, []interface{}{"amt", 10.0, 30.0}, table.Row(1))

	// Every cell landed in the catalog; a second call runs no SQL.
	table, err = f.Aggregate(ctx, []string{"min", "max"}, []string{"id", "amt"})
	require.NoError(t, err)
	assert.Len(t, ex.Executed, 1)
	assert.Equal(t, []interface{}{"amt", 10.0, 30.0}, table.Row(1))
}

func TestAggregatePartialCacheHit(t *testing.T) {
	ex := sqlbridge.NewScriptedExecutor(sqlbridge.Script{
		Contains: []string{"MAX("},
		Columns:  []string{"agg_0"},
		Rows:     [][]interface{}{{int64(3)}},
	})
	f := newSalesFrame(t, WithExecutor(ex))
	f.Catalog().Store(`"id"`, "min", int64(1))

	table, err := f.Aggregate(context.Background(), []string{"min", "max"}, []string{"id"})
	require.NoError(t, err)

	// Only the missing cell was queried.
	require.Len(t, ex.Executed, 1)
	assert.Equal(t, `SELECT MAX("id") AS "agg_0" FROM sales`, ex.Executed[0])
	assert.Equal(t, []interface{}{"id", int64(1), int64(3)}, table.Row(0))
}

func TestAggregateFallsBackPerColumn(t *testing.T) {
	warnings := captureWarnings(t)
	ex := sqlbridge.NewScriptedExecutor(
		sqlbridge.Script{
			Contains: []string{`"agg_1"`},
			Err:      errors.New("too many expressions"),
		},
		sqlbridge.Script{
			Contains: []string{`MIN("id")`},
			Columns:  []string{"agg_0"},
			Rows:     [][]interface{}{{int64(1)}},
		},
		sqlbridge.Script{
			Contains: []string{`MIN("amt")`},
			Columns:  []string{"agg_0"},
			Rows:     [][]interface{}{{10.0}},
		},
	)
	f := newSalesFrame(t, WithExecutor(ex))

	table, err := f.Aggregate(context.Background(), []string{"min"}, []string{"id", "amt"})
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"id", int64(1)}, table.Row(0))
	assert.Equal(t, []interface{}{"amt", 10.0}, table.Row(1))
	require.NotEmpty(t, *warnings)
	assert.Contains(t, (*warnings)[0], "falling back")
}

func TestAggregateRetriesWithFloatCast(t *testing.T) {
	warnings := captureWarnings(t)
	ex := sqlbridge.NewScriptedExecutor(
		sqlbridge.Script{
			Contains: []string{`AVG("amt")`},
			Err:      errors.New("cannot aggregate varchar"),
		},
		sqlbridge.Script{
			Contains: []string{`AVG(CAST("amt" AS float))`},
			Columns:  []string{"agg_0"},
			Rows:     [][]interface{}{{20.0}},
		},
	)
	f := newSalesFrame(t, WithExecutor(ex))

	table, err := f.Aggregate(context.Background(), []string{"avg"}, []string{"amt"})
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"amt", 20.0}, table.Row(0))
	assert.Contains(t, (*warnings)[len(*warnings)-1], "float cast")
}

type failingExecutor struct{ err error }

func (fe failingExecutor) Execute(context.Context, string, sqlbridge.Mode) (sqlbridge.Rows, error) {
	return nil, fe.err
}

func TestAggregateNonQueryErrorPropagates(t *testing.T) {
	sentinel := errors.New("connection lost")
	f := newSalesFrame(t, WithExecutor(failingExecutor{err: sentinel}))

	_, err := f.Aggregate(context.Background(), []string{"min"}, []string{"amt"})
	assert.ErrorIs(t, err, sentinel)
}

func TestAggregateRejectsUnknownInput(t *testing.T) {
	f := newSalesFrame(t)

	_, err := f.Aggregate(context.Background(), []string{"quantile"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantile")

	_, err = f.Aggregate(context.Background(), []string{"min"}, []string{"ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")

	_, err = f.Aggregate(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestAggregateFansOutOverColumnBlocks(t *testing.T) {
	defs := make([]ColumnDef, 12)
	names := make([]string, 12)
	for i := range defs {
		names[i] = fmt.Sprintf("c%02d", i)
		defs[i] = ColumnDef{Name: names[i], Type: "float"}
	}

	fullBlock := sqlbridge.Script{
		Contains: []string{`"agg_4"`},
		Columns:  []string{"agg_0", "agg_1", "agg_2", "agg_3", "agg_4"},
		Rows:     [][]interface{}{{0.0, 1.0, 2.0, 3.0, 4.0}},
	}
	tailBlock := sqlbridge.Script{
		Contains: []string{`"agg_1"`},
		Columns:  []string{"agg_0", "agg_1"},
		Rows:     [][]interface{}{{0.0, 1.0}},
	}
	ex := sqlbridge.NewScriptedExecutor(fullBlock, tailBlock)

	cfg := config.NewConfig()
	cfg.ChunkSize = 5
	f, err := NewFrame("wide", defs, WithExecutor(ex), WithConfig(cfg))
	require.NoError(t, err)

	table, err := f.Aggregate(context.Background(), []string{"max"}, nil)
	require.NoError(t, err)

	// Three disjoint blocks of at most five columns, merged in input order.
	assert.Len(t, ex.Executed, 3)
	require.Equal(t, 12, table.NumRows())
	maxes, ok := table.Values("max")
	require.True(t, ok)
	assert.Equal(t,
		[]interface{}{0.0, 1.0, 2.0, 3.0, 4.0, 0.0, 1.0, 2.0, 3.0, 4.0, 0.0, 1.0},
		maxes)
	cols, ok := table.Values("column")
	require.True(t, ok)
	for i, name := range names {
		assert.Equal(t, name, cols[i])
	}

	// Worker clones fed their results back to the parent catalog.
	for i, name := range names {
		v, cached := f.Catalog().Lookup(name, "max")
		require.True(t, cached, name)
		assert.Equal(t, float64(i%5), v)
	}
	_, err = f.Aggregate(context.Background(), []string{"max"}, nil)
	require.NoError(t, err)
	assert.Len(t, ex.Executed, 3, "second pass is served from the catalog")
}

func TestAggregateFanOutFailsAll(t *testing.T) {
	defs := make([]ColumnDef, 12)
	for i := range defs {
		defs[i] = ColumnDef{Name: fmt.Sprintf("c%02d", i), Type: "float"}
	}
	sentinel := errors.New("connection lost")

	cfg := config.NewConfig()
	cfg.ChunkSize = 5
	f, err := NewFrame("wide", defs, WithExecutor(failingExecutor{err: sentinel}), WithConfig(cfg))
	require.NoError(t, err)

	_, err = f.Aggregate(context.Background(), []string{"max"}, nil)
	assert.ErrorIs(t, err, sentinel)
}

func TestConvenienceAggregates(t *testing.T) {
	ex := sqlbridge.NewScriptedExecutor(sqlbridge.Script{
		Contains: []string{`SUM("amt")`},
		Columns:  []string{"agg_0"},
		Rows:     [][]interface{}{{60.0}},
	})
	f := newSalesFrame(t, WithExecutor(ex))

	table, err := f.Sum(context.Background(), "amt")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"amt", 60.0}, table.Row(0))
}

func TestModeCachesNullAnswer(t *testing.T) {
	ex := sqlbridge.NewScriptedExecutor(sqlbridge.Script{
		Contains: []string{"GROUP BY"},
		Columns:  []string{"name"},
		Rows:     [][]interface{}{{nil}},
	})
	f := newSalesFrame(t, WithExecutor(ex))
	ctx := context.Background()

	v, err := f.Mode(ctx, "name")
	require.NoError(t, err)
	assert.Nil(t, v)
	require.Len(t, ex.Executed, 1)
	assert.Equal(t,
		`SELECT "name" FROM sales GROUP BY "name" ORDER BY COUNT(*) DESC LIMIT 1`,
		ex.Executed[0])

	// A null mode is a legitimate result, so the second call is a hit.
	v, err = f.Mode(ctx, "name")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Len(t, ex.Executed, 1)
}

func TestCorrMemoizedPerOrderedPair(t *testing.T) {
	ex := sqlbridge.NewScriptedExecutor(sqlbridge.Script{
		Contains: []string{"CORR("},
		Columns:  []string{"corr"},
		Rows:     [][]interface{}{{0.9}},
	})
	f := newSalesFrame(t, WithExecutor(ex))
	ctx := context.Background()

	v, err := f.Corr(ctx, "id", "amt")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, v, 1e-9)
	assert.Equal(t, `SELECT CORR("id", "amt") FROM sales`, ex.Executed[0])

	v, err = f.Corr(ctx, "id", "amt")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, v, 1e-9)
	assert.Len(t, ex.Executed, 1)
}

func TestCorrUnknownColumn(t *testing.T) {
	f := newSalesFrame(t)
	_, err := f.Corr(context.Background(), "id", "ghost")
	require.Error(t, err)
	var fe *ferrors.FrameError
	assert.ErrorAs(t, err, &fe)
}
