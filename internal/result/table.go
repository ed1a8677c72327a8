// Package result turns executed query rows into in-memory tabular
// structures for display, iteration and export, and feeds scalar aggregates
// back into the catalog. Decimal-typed values are normalized to native
// floating point on the way in.
package result

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/shopspring/decimal"

	"github.com/sqlframe/sqlframe/internal/expr"
	"github.com/sqlframe/sqlframe/internal/series"
	"github.com/sqlframe/sqlframe/internal/sqlbridge"
)

// Table is an ordered mapping from column name to a sequence of row values.
type Table struct {
	cols  []string
	types []string
	data  map[string][]interface{}
}

// Build assembles a table from already-materialized rows, given in column
// order. Aggregation paths use this to merge per-block results.
func Build(cols []string, types []string, rows [][]interface{}) *Table {
	if types == nil {
		types = make([]string, len(cols))
	}
	t := &Table{
		cols:  append([]string(nil), cols...),
		types: append([]string(nil), types...),
		data:  make(map[string][]interface{}, len(cols)),
	}
	for _, c := range cols {
		t.data[c] = nil
	}
	for _, row := range rows {
		for i, c := range cols {
			var v interface{}
			if i < len(row) {
				v = row[i]
			}
			t.data[c] = append(t.data[c], v)
		}
	}
	return t
}

// Fetch executes the query and materializes every row.
func Fetch(ctx context.Context, ex sqlbridge.Executor, query string) (*Table, error) {
	rows, err := ex.Execute(ctx, query, sqlbridge.FetchAll)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := rows.Columns()
	types := rows.Types()
	if len(types) != len(cols) {
		types = make([]string, len(cols))
	}

	t := &Table{
		cols:  append([]string(nil), cols...),
		types: append([]string(nil), types...),
		data:  make(map[string][]interface{}, len(cols)),
	}
	for _, c := range cols {
		t.data[c] = nil
	}

	for {
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for i, c := range cols {
			t.data[c] = append(t.data[c], Normalize(row[i], types[i]))
		}
	}
	return t, nil
}

// FetchScalar executes the query and returns the first value of the first
// row, or nil when the result set is empty.
func FetchScalar(ctx context.Context, ex sqlbridge.Executor, query string) (interface{}, error) {
	rows, err := ex.Execute(ctx, query, sqlbridge.FetchScalar)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	row, err := rows.Next()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, nil
	}
	types := rows.Types()
	sqlType := ""
	if len(types) > 0 {
		sqlType = types[0]
	}
	return Normalize(row[0], sqlType), nil
}

// Normalize converts engine-specific scalar representations into native Go
// values. Decimal values, whether typed or rendered as strings by the
// driver, become float64.
func Normalize(v interface{}, sqlType string) interface{} {
	switch x := v.(type) {
	case decimal.Decimal:
		f, _ := x.Float64()
		return f
	case string:
		if expr.CategoryFromType(sqlType) == expr.CatFloat {
			if d, err := decimal.NewFromString(x); err == nil {
				f, _ := d.Float64()
				return f
			}
		}
		return x
	case time.Time:
		return x
	default:
		return v
	}
}

// ToFloat coerces a normalized scalar to float64 where possible.
func ToFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case decimal.Decimal:
		f, _ := x.Float64()
		return f, true
	case string:
		if d, err := decimal.NewFromString(x); err == nil {
			f, _ := d.Float64()
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// Columns returns the column names in result order.
func (t *Table) Columns() []string {
	return t.cols
}

// Types returns the engine type names, index-aligned with Columns.
func (t *Table) Types() []string {
	return t.types
}

// NumRows returns the number of materialized rows.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.data[t.cols[0]])
}

// Values returns the value sequence for one column.
func (t *Table) Values(column string) ([]interface{}, bool) {
	vals, ok := t.data[column]
	return vals, ok
}

// Row returns one row in column order.
func (t *Table) Row(i int) []interface{} {
	row := make([]interface{}, len(t.cols))
	for j, c := range t.cols {
		vals := t.data[c]
		if i >= 0 && i < len(vals) {
			row[j] = vals[i]
		}
	}
	return row
}

// ToRecord renders the table as an Arrow record. Column categories derive
// from the engine type names captured at fetch time.
func (t *Table) ToRecord(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	fields := make([]arrow.Field, len(t.cols))
	arrays := make([]arrow.Array, len(t.cols))
	for i, c := range t.cols {
		cat := expr.CategoryFromType(t.types[i])
		col, err := series.FromValues(c, cat, t.data[c], mem)
		if err != nil {
			for _, a := range arrays[:i] {
				a.Release()
			}
			return nil, fmt.Errorf("building arrow column %s: %w", c, err)
		}
		fields[i] = col.Field()
		arrays[i] = col.Array()
	}

	schema := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(schema, arrays, int64(t.NumRows()))
	for _, a := range arrays {
		a.Release()
	}
	return rec, nil
}

// String renders a plain text preview of the table.
func (t *Table) String() string {
	var sb strings.Builder

	widths := make([]int, len(t.cols))
	rendered := make([][]string, t.NumRows())
	for i, c := range t.cols {
		widths[i] = len(c)
	}
	for r := 0; r < t.NumRows(); r++ {
		row := t.Row(r)
		cells := make([]string, len(row))
		for i, v := range row {
			cell := "NULL"
			if v != nil {
				cell = fmt.Sprintf("%v", v)
			}
			cells[i] = cell
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
		rendered[r] = cells
	}

	for i, c := range t.cols {
		if i > 0 {
			sb.WriteString(" | ")
		}
		fmt.Fprintf(&sb, "%-*s", widths[i], c)
	}
	sb.WriteByte('\n')
	for _, cells := range rendered {
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString(" | ")
			}
			fmt.Fprintf(&sb, "%-*s", widths[i], cell)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
