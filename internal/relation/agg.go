package relation

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlframe/sqlframe/internal/config"
	ferrors "github.com/sqlframe/sqlframe/internal/errors"
	"github.com/sqlframe/sqlframe/internal/expr"
	"github.com/sqlframe/sqlframe/internal/parallel"
	"github.com/sqlframe/sqlframe/internal/result"
)

// aggTemplate renders one aggregate over a column expression.
var aggTemplate = map[string]string{
	"min":    "MIN(%s)",
	"max":    "MAX(%s)",
	"sum":    "SUM(%s)",
	"avg":    "AVG(%s)",
	"count":  "COUNT(%s)",
	"unique": "COUNT(DISTINCT %s)",
	"std":    "STDDEV(%s)",
	"var":    "VARIANCE(%s)",
	"median": "MEDIAN(%s)",
}

func normalizeAggFunc(fn string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(fn)) {
	case "mean", "avg", "average":
		return "avg", true
	case "unique", "countdistinct", "approx_unique", "ndistinct":
		return "unique", true
	case "std", "stddev", "stdev":
		return "std", true
	case "var", "variance":
		return "var", true
	case "min", "max", "sum", "count", "median":
		return strings.ToLower(strings.TrimSpace(fn)), true
	default:
		return "", false
	}
}

// Aggregate computes the given statistics for the given columns (all
// visible columns when none are named). The catalog is consulted first and
// fed afterward; with many columns the work fans out over independent
// frame clones, one disjoint column block per worker, merged back in column
// order after all blocks complete.
func (f *Frame) Aggregate(ctx context.Context, funcs []string, columns []string) (*result.Table, error) {
	if len(funcs) == 0 {
		return nil, ferrors.NewInvalidInputError("Aggregate", "no aggregate functions given")
	}
	normFuncs := make([]string, len(funcs))
	for i, fn := range funcs {
		norm, ok := normalizeAggFunc(fn)
		if !ok {
			return nil, ferrors.NewInvalidInputError("Aggregate", fmt.Sprintf("unknown aggregate function %q", fn))
		}
		normFuncs[i] = norm
	}

	if len(columns) == 0 {
		columns = f.Columns()
	}
	cols := make([]*Column, len(columns))
	for i, name := range columns {
		col, ok := f.Column(name)
		if !ok {
			return nil, ferrors.NewColumnNotFoundError("Aggregate", expr.QuoteIdent(name))
		}
		cols[i] = col
	}

	var matrix [][]interface{}
	chunk := f.cfg.ChunkSize
	if chunk > 0 && len(cols) > chunk {
		blocks := make([][]*Column, 0, (len(cols)+chunk-1)/chunk)
		for i := 0; i < len(cols); i += chunk {
			end := i + chunk
			if end > len(cols) {
				end = len(cols)
			}
			blocks = append(blocks, cols[i:end])
		}

		pool := parallel.NewWorkerPool(f.cfg.WorkerPoolSize)
		defer pool.Close()

		blockResults, err := parallel.ProcessIndexed(pool, blocks, func(_ int, block []*Column) ([][]interface{}, error) {
			worker := f.Clone()
			names := make([]string, len(block))
			for i, c := range block {
				names[i] = c.Name()
			}
			workerCols := make([]*Column, len(block))
			for i, name := range names {
				wc, _ := worker.Column(name)
				workerCols[i] = wc
			}
			return worker.aggregateBlock(ctx, normFuncs, workerCols)
		})
		if err != nil {
			return nil, err
		}
		for _, block := range blockResults {
			matrix = append(matrix, block...)
		}
		// Feed the merged results back into the parent catalog; workers
		// only populated their own clones.
		for i, col := range cols {
			for j, fn := range normFuncs {
				f.cat.Store(col.Name(), fn, matrix[i][j])
			}
		}
	} else {
		var err error
		matrix, err = f.aggregateBlock(ctx, normFuncs, cols)
		if err != nil {
			return nil, err
		}
	}

	outCols := append([]string{"column"}, normFuncs...)
	rows := make([][]interface{}, len(cols))
	for i, col := range cols {
		row := make([]interface{}, 0, len(normFuncs)+1)
		row = append(row, col.BareName())
		row = append(row, matrix[i]...)
		rows[i] = row
	}
	return result.Build(outCols, nil, rows), nil
}

// pendingCell addresses one (column, function) slot still to be computed.
type pendingCell struct{ col, fn int }

// aggregateBlock computes funcs x cols, catalog first, then a tiered query
// ladder: one combined query, per-column queries, per-column with a float
// cast. Each tier advances only when the engine rejected the previous
// formulation; any other failure propagates.
func (f *Frame) aggregateBlock(ctx context.Context, funcs []string, cols []*Column) ([][]interface{}, error) {
	matrix := make([][]interface{}, len(cols))
	var pending []pendingCell
	for i, col := range cols {
		matrix[i] = make([]interface{}, len(funcs))
		for j, fn := range funcs {
			if v, ok := f.cat.Lookup(col.Name(), fn); ok {
				matrix[i][j] = v
				f.metrics.RecordCacheHit()
				continue
			}
			f.metrics.RecordCacheMiss()
			pending = append(pending, pendingCell{col: i, fn: j})
		}
	}
	if len(pending) == 0 {
		return matrix, nil
	}

	store := func(cell pendingCell, v interface{}) {
		matrix[cell.col][cell.fn] = v
		f.cat.Store(cols[cell.col].Name(), funcs[cell.fn], v)
	}

	// Tier 1: everything in one statement.
	exprs := make([]string, len(pending))
	for i, cell := range pending {
		exprs[i] = fmt.Sprintf(aggTemplate[funcs[cell.fn]], cols[cell.col].Name()) +
			fmt.Sprintf(" AS %s", expr.QuoteIdent(fmt.Sprintf("agg_%d", i)))
	}
	table, err := result.Fetch(ctx, f.bridgeFor("Aggregate"),
		"SELECT "+strings.Join(exprs, ", ")+" FROM "+f.Relation())
	if err == nil && table.NumRows() == 1 {
		row := table.Row(0)
		if len(row) == len(pending) {
			for i, cell := range pending {
				store(cell, row[i])
			}
			return matrix, nil
		}
	}
	if err != nil && !ferrors.IsQueryError(err) {
		return nil, err
	}
	config.Warnf("combined aggregation query was rejected, falling back to per-column queries")

	// Tier 2 and 3: one query per column, retrying with a float cast when
	// the engine rejects the bare column (text-typed numerics, for one).
	byCol := make(map[int][]pendingCell)
	for _, cell := range pending {
		byCol[cell.col] = append(byCol[cell.col], cell)
	}
	for colIdx, cells := range byCol {
		col := cols[colIdx]
		values, err := f.aggregateOneColumn(ctx, funcs, cells, col.Name())
		if err != nil {
			if !ferrors.IsQueryError(err) {
				return nil, err
			}
			cast := "CAST(" + col.Name() + " AS float)"
			values, err = f.aggregateOneColumn(ctx, funcs, cells, cast)
			if err != nil {
				return nil, err
			}
			config.Warnf("aggregation on column %s succeeded only with a float cast", col.Name())
		}
		for i, cell := range cells {
			store(cell, values[i])
		}
	}
	return matrix, nil
}

func (f *Frame) aggregateOneColumn(ctx context.Context, funcs []string, cells []pendingCell, colExpr string) ([]interface{}, error) {
	exprs := make([]string, len(cells))
	for i, cell := range cells {
		exprs[i] = fmt.Sprintf(aggTemplate[funcs[cell.fn]], colExpr) +
			fmt.Sprintf(" AS %s", expr.QuoteIdent(fmt.Sprintf("agg_%d", i)))
	}
	table, err := result.Fetch(ctx, f.bridgeFor("Aggregate"),
		"SELECT "+strings.Join(exprs, ", ")+" FROM "+f.Relation())
	if err != nil {
		return nil, err
	}
	if table.NumRows() != 1 || len(table.Row(0)) != len(cells) {
		return nil, ferrors.NewInvalidInputError("Aggregate",
			fmt.Sprintf("aggregation returned an unexpected shape: %d rows", table.NumRows()))
	}
	return table.Row(0), nil
}

// Min computes the minimum of the given columns.
func (f *Frame) Min(ctx context.Context, columns ...string) (*result.Table, error) {
	return f.Aggregate(ctx, []string{"min"}, columns)
}

// Max computes the maximum of the given columns.
func (f *Frame) Max(ctx context.Context, columns ...string) (*result.Table, error) {
	return f.Aggregate(ctx, []string{"max"}, columns)
}

// Sum computes the sum of the given columns.
func (f *Frame) Sum(ctx context.Context, columns ...string) (*result.Table, error) {
	return f.Aggregate(ctx, []string{"sum"}, columns)
}

// Avg computes the average of the given columns.
func (f *Frame) Avg(ctx context.Context, columns ...string) (*result.Table, error) {
	return f.Aggregate(ctx, []string{"avg"}, columns)
}

// Count computes the non-null count of the given columns.
func (f *Frame) Count(ctx context.Context, columns ...string) (*result.Table, error) {
	return f.Aggregate(ctx, []string{"count"}, columns)
}

// CountDistinct computes the distinct count of the given columns.
func (f *Frame) CountDistinct(ctx context.Context, columns ...string) (*result.Table, error) {
	return f.Aggregate(ctx, []string{"unique"}, columns)
}

// Median computes the median of the given columns.
func (f *Frame) Median(ctx context.Context, columns ...string) (*result.Table, error) {
	return f.Aggregate(ctx, []string{"median"}, columns)
}

// Mode returns the most frequent value of a column. A null answer is a
// legitimate result and is cached as such.
func (f *Frame) Mode(ctx context.Context, column string) (interface{}, error) {
	col, ok := f.Column(column)
	if !ok {
		return nil, ferrors.NewColumnNotFoundError("Mode", expr.QuoteIdent(column))
	}
	if v, cached := f.cat.Lookup(col.Name(), "top"); cached {
		f.metrics.RecordCacheHit()
		return v, nil
	}
	f.metrics.RecordCacheMiss()

	query := fmt.Sprintf("SELECT %s FROM %s GROUP BY %s ORDER BY COUNT(*) DESC LIMIT 1",
		col.Name(), f.Relation(), col.Name())
	v, err := result.FetchScalar(ctx, f.bridgeFor("Mode"), query)
	if err != nil {
		return nil, err
	}
	f.cat.Store(col.Name(), "top", v)
	return v, nil
}

// Corr computes the Pearson correlation between two columns, memoized under
// the ordered pair.
func (f *Frame) Corr(ctx context.Context, colA, colB string) (float64, error) {
	a, ok := f.Column(colA)
	if !ok {
		return 0, ferrors.NewColumnNotFoundError("Corr", expr.QuoteIdent(colA))
	}
	b, ok := f.Column(colB)
	if !ok {
		return 0, ferrors.NewColumnNotFoundError("Corr", expr.QuoteIdent(colB))
	}

	if v, cached := f.cat.LookupPair(a.Name(), b.Name(), "corr"); cached {
		f.metrics.RecordCacheHit()
		if fv, ok := result.ToFloat(v); ok {
			return fv, nil
		}
	}
	f.metrics.RecordCacheMiss()

	query := fmt.Sprintf("SELECT CORR(%s, %s) FROM %s", a.Name(), b.Name(), f.Relation())
	v, err := result.FetchScalar(ctx, f.bridgeFor("Corr"), query)
	if err != nil {
		return 0, err
	}
	fv, ok := result.ToFloat(v)
	if !ok {
		return 0, ferrors.NewValidationError("Corr", a.Name(), fmt.Sprintf("engine returned a non-numeric correlation: %v", v))
	}
	f.cat.StorePair(a.Name(), b.Name(), "corr", fv)
	return fv, nil
}
