package relation

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlframe/sqlframe/internal/config"
	ferrors "github.com/sqlframe/sqlframe/internal/errors"
	"github.com/sqlframe/sqlframe/internal/expr"
	"github.com/sqlframe/sqlframe/internal/result"
	"github.com/sqlframe/sqlframe/internal/sqlbridge"
)

// splitColumn is the alias of the random sampling column.
const splitColumn = "__sqlframe_split__"

// frameExecutor routes bridge calls through the frame so every statement
// picks up SQL echoing and metrics.
type frameExecutor struct {
	f  *Frame
	op string
}

func (fe frameExecutor) Execute(ctx context.Context, query string, mode sqlbridge.Mode) (sqlbridge.Rows, error) {
	return fe.f.execute(ctx, fe.op, query, mode)
}

func (f *Frame) bridgeFor(op string) sqlbridge.Executor {
	return frameExecutor{f: f, op: op}
}

func typeForCategory(cat expr.Category) string {
	switch cat {
	case expr.CatInt:
		return "int"
	case expr.CatFloat:
		return "float"
	case expr.CatText:
		return "varchar"
	case expr.CatDate:
		return "timestamp"
	case expr.CatBool:
		return "boolean"
	default:
		return "varchar"
	}
}

// Eval derives a new computed column from a SQL expression. The expression
// may reference other columns by name; it is placed at the floor where every
// referenced column has received all of its transformations. When an
// executor is attached the candidate expression is probed with a LIMIT 0
// query before being committed; a rejected expression leaves the state
// untouched.
func (f *Frame) Eval(ctx context.Context, name string, node expr.Node) error {
	if strings.TrimSpace(name) == "" {
		return ferrors.NewInvalidInputError("Eval", "column name must not be empty")
	}
	if _, exists := f.Column(name); exists {
		return ferrors.NewValidationError("Eval", expr.QuoteIdent(name), "column already exists")
	}
	expression := node.SQL()
	if strings.TrimSpace(expression) == "" {
		return ferrors.NewInvalidInputError("Eval", "expression must not be empty")
	}

	if f.exec != nil {
		probe := "SELECT " + expression + " AS " + expr.QuoteIdent(name) +
			" FROM (" + f.genSQL(genOptions{adhoc: expression}) + ") AS subtable LIMIT 0"
		rows, err := f.execute(ctx, "Eval", probe, sqlbridge.FetchAll)
		if err != nil {
			return err
		}
		rows.Close()
	}

	col := newComputedColumn(name, expression, typeForCategory(node.Category()), node.Category(), f.evalFloor(expression))
	f.cols = append(f.cols, col)
	f.byName[normalizeName(col.Name())] = col
	f.cat.Invalidate(col.Name())
	return nil
}

// Transform appends one step to a column's chain. The template must carry at
// most one "{}" placeholder for the previous value; the SQL itself is not
// validated here, by the same lazy-validation choice the rest of the core
// makes.
func (f *Frame) Transform(name, template, resultType string, cat expr.Category) error {
	col, ok := f.Column(name)
	if !ok {
		return ferrors.NewColumnNotFoundError("Transform", expr.QuoteIdent(name))
	}
	if strings.Count(template, "{}") > 1 {
		return ferrors.NewValidationError("Transform", col.Name(), "template must contain at most one {} placeholder")
	}
	col.appendStep(template, resultType, cat)
	f.cat.Invalidate(col.Name())
	return nil
}

// Filter appends a WHERE predicate, tagged at the floor where its referenced
// columns are fully transformed. With an executor attached the new state is
// probed with a count query: a malformed predicate is rolled back with a
// warning, and a predicate that filters nothing is dropped as a no-op.
func (f *Frame) Filter(ctx context.Context, condition expr.Node) error {
	text := condition.SQL()
	if strings.TrimSpace(text) == "" {
		return ferrors.NewInvalidInputError("Filter", "condition must not be empty")
	}

	previousCount := f.rowCount
	f.where = append(f.where, Predicate{Text: text, Floor: f.floorFor(text)})

	if f.exec == nil {
		f.invalidateRows()
		return nil
	}

	count, err := result.FetchScalar(ctx, f.bridgeFor("Filter"),
		"SELECT COUNT(*) FROM ("+f.CurrentSQL()+") AS subtable")
	if err != nil {
		f.where = f.where[:len(f.where)-1]
		config.Warnf("filter %q was rejected by the engine and has been rolled back: %v", text, err)
		return nil
	}

	newCount, ok := result.ToFloat(count)
	if ok && previousCount >= 0 && int64(newCount) == previousCount {
		f.where = f.where[:len(f.where)-1]
		config.Warnf("filter %q has no effect, nothing was changed", text)
		return nil
	}

	f.invalidateRows()
	if ok {
		f.rowCount = int64(newCount)
		if f.rowCount == 0 {
			config.Warnf("filter %q leaves an empty relation", text)
		}
	}
	return nil
}

// SortKey is one ORDER BY entry.
type SortKey struct {
	Column string
	Desc   bool
}

// Sort registers an ORDER BY rule at the current maximum floor, merging with
// any rule already present there.
func (f *Frame) Sort(keys ...SortKey) error {
	if len(keys) == 0 {
		return ferrors.NewInvalidInputError("Sort", "empty sort specification")
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		col, ok := f.Column(k.Column)
		if !ok {
			return ferrors.NewColumnNotFoundError("Sort", expr.QuoteIdent(k.Column))
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts[i] = col.Name() + " " + dir
	}

	floor := f.maxLiveDepth() - 1
	clause := strings.Join(parts, ", ")
	if existing, ok := f.orderBy[floor]; ok {
		f.orderBy[floor] = existing + ", " + clause
	} else {
		f.orderBy[floor] = "ORDER BY " + clause
	}
	return nil
}

// Select keeps only the named columns, in the given order. The underlying
// storage is untouched; dropped columns simply leave the projection.
func (f *Frame) Select(names ...string) error {
	if len(names) == 0 {
		return ferrors.NewInvalidInputError("Select", "no columns selected")
	}
	keep := make([]*Column, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		col, ok := f.Column(name)
		if !ok {
			return ferrors.NewColumnNotFoundError("Select", expr.QuoteIdent(name))
		}
		key := normalizeName(col.Name())
		if seen[key] {
			return ferrors.NewValidationError("Select", col.Name(), "column selected twice")
		}
		seen[key] = true
		keep = append(keep, col)
	}

	var dropped []string
	for _, c := range f.cols {
		if !seen[normalizeName(c.name)] {
			dropped = append(dropped, c.name)
		}
	}
	if len(dropped) > 0 {
		f.narrowed = true
	} else {
		for i := range keep {
			if keep[i] != f.cols[i] {
				f.narrowed = true
				break
			}
		}
	}
	f.cols = keep
	for _, name := range dropped {
		delete(f.byName, normalizeName(name))
		delete(f.exclude, normalizeName(name))
	}
	if len(dropped) > 0 {
		f.cat.Invalidate(dropped...)
	}
	return nil
}

// Drop removes columns from the projection. Dropping every column is
// rejected, an empty relation has no meaning.
func (f *Frame) Drop(names ...string) error {
	if len(names) == 0 {
		return nil
	}
	remove := make(map[string]bool, len(names))
	for _, name := range names {
		col, ok := f.Column(name)
		if !ok {
			return ferrors.NewColumnNotFoundError("Drop", expr.QuoteIdent(name))
		}
		remove[normalizeName(col.Name())] = true
	}
	if len(remove) >= len(f.cols) {
		return ferrors.ErrEmptyFrame
	}

	kept := make([]*Column, 0, len(f.cols)-len(remove))
	for _, c := range f.cols {
		key := normalizeName(c.name)
		if remove[key] {
			delete(f.byName, key)
			delete(f.exclude, key)
			continue
		}
		kept = append(kept, c)
	}
	f.cols = kept
	f.narrowed = true
	f.cat.Invalidate(names...)
	return nil
}

// ExcludeColumns marks helper columns that must not appear in the final
// projection. They remain live, so other columns' expressions may still
// reference them.
func (f *Frame) ExcludeColumns(names ...string) error {
	for _, name := range names {
		col, ok := f.Column(name)
		if !ok {
			return ferrors.NewColumnNotFoundError("ExcludeColumns", expr.QuoteIdent(name))
		}
		f.exclude[normalizeName(col.Name())] = true
	}
	return nil
}

// IncludeColumns clears the exclusion mark.
func (f *Frame) IncludeColumns(names ...string) error {
	for _, name := range names {
		col, ok := f.Column(name)
		if !ok {
			return ferrors.NewColumnNotFoundError("IncludeColumns", expr.QuoteIdent(name))
		}
		delete(f.exclude, normalizeName(col.Name()))
	}
	return nil
}

// Head materializes the first rows of the current relation. A non-positive
// limit falls back to the session display limit.
func (f *Frame) Head(ctx context.Context, limit, offset int) (*result.Table, error) {
	if limit <= 0 {
		limit = f.cfg.MaxRows
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d", f.Relation(), limit, offset)
	return result.Fetch(ctx, f.bridgeFor("Head"), query)
}

// Tail materializes the last rows of the current relation, by offsetting
// from the total row count. A non-positive limit falls back to the session
// display limit.
func (f *Frame) Tail(ctx context.Context, limit int) (*result.Table, error) {
	if limit <= 0 {
		limit = f.cfg.MaxRows
	}
	total, err := f.CountRows(ctx)
	if err != nil {
		return nil, err
	}
	offset := int(total) - limit
	if offset < 0 {
		offset = 0
	}
	return f.Head(ctx, limit, offset)
}

// CountRows returns the total row count of the current relation, cached
// until a row-affecting mutation invalidates it.
func (f *Frame) CountRows(ctx context.Context) (int64, error) {
	if f.rowCount >= 0 {
		return f.rowCount, nil
	}
	v, err := result.FetchScalar(ctx, f.bridgeFor("CountRows"),
		"SELECT COUNT(*) FROM ("+f.CurrentSQL()+") AS subtable")
	if err != nil {
		return 0, err
	}
	count, ok := result.ToFloat(v)
	if !ok {
		return 0, ferrors.NewInvalidInputError("CountRows", fmt.Sprintf("engine returned a non-numeric count: %v", v))
	}
	f.rowCount = int64(count)
	return f.rowCount, nil
}

// Shape returns (rows, columns) of the current relation.
func (f *Frame) Shape(ctx context.Context) (int64, int, error) {
	rows, err := f.CountRows(ctx)
	if err != nil {
		return 0, 0, err
	}
	return rows, f.Width(), nil
}

// Sample returns a new frame over a random subset of the rows, built by
// projecting a random split column and keeping rows below the fraction.
func (f *Frame) Sample(fraction float64) (*Frame, error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, ferrors.NewInvalidInputError("Sample", fmt.Sprintf("fraction must be in (0, 1), got %v", fraction))
	}

	inner := f.genSQL(genOptions{splitAlias: splitColumn})
	visible := f.visibleColumns()
	names := make([]string, len(visible))
	defs := make([]ColumnDef, len(visible))
	for i, c := range visible {
		names[i] = c.Name()
		defs[i] = ColumnDef{Name: c.BareName(), Type: c.Type()}
	}
	sampleSQL := "SELECT " + strings.Join(names, ", ") + " FROM (" + inner + ") AS subtable" +
		fmt.Sprintf(" WHERE %s < %v", expr.QuoteIdent(splitColumn), fraction)

	return NewFrame("("+sampleSQL+") AS sample_relation", defs,
		WithExecutor(f.exec), WithConfig(f.cfg), WithMetrics(f.metrics))
}
