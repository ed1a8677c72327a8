// Package sqlframe provides a lazy SQL virtual dataframe: a client-side
// description of a relation plus per-column transformation chains, compiled
// on demand into a single nested SQL query and executed through a pluggable
// bridge. This package is the sole public API for the library.
package sqlframe

import (
	"context"
	"database/sql"

	"github.com/sqlframe/sqlframe/internal/config"
	ferrors "github.com/sqlframe/sqlframe/internal/errors"
	"github.com/sqlframe/sqlframe/internal/expr"
	"github.com/sqlframe/sqlframe/internal/monitoring"
	"github.com/sqlframe/sqlframe/internal/relation"
	"github.com/sqlframe/sqlframe/internal/result"
	"github.com/sqlframe/sqlframe/internal/sqlbridge"
)

// Expr is a composable SQL expression. Build expressions from Col and Lit
// and combine them with the builder methods: Col("age").Gt(Lit(30)).
type Expr = expr.Node

// Category classifies an expression or column semantically.
type Category = expr.Category

// Semantic categories.
const (
	CatUndefined = expr.CatUndefined
	CatInt       = expr.CatInt
	CatFloat     = expr.CatFloat
	CatText      = expr.CatText
	CatDate      = expr.CatDate
	CatBool      = expr.CatBool
)

// Expression constructors, re-exported from the internal builder.
var (
	Col      = expr.Col
	TypedCol = expr.TypedCol
	Lit      = expr.Lit
	Raw      = expr.Raw
	Coalesce = expr.Coalesce
	Concat   = expr.Concat
	Func     = expr.Func
	CaseWhen = expr.CaseWhen
)

// Config holds the session options.
type Config = config.Config

// Table is a materialized, column-oriented result set.
type Table = result.Table

// Executor runs SQL statements against an engine.
type Executor = sqlbridge.Executor

// ColumnDef describes one source column when constructing a frame without a
// live connection.
type ColumnDef = relation.ColumnDef

// SortKey is one ORDER BY entry.
type SortKey = relation.SortKey

// Option configures a frame at construction.
type Option = relation.Option

// Re-exported construction options.
var (
	WithExecutor = relation.WithExecutor
	WithConfig   = relation.WithConfig
	WithMetrics  = relation.WithMetrics
)

// Error helpers, re-exported so callers can classify failures.
var (
	IsQueryError  = ferrors.IsQueryError
	ErrEmptyFrame = ferrors.ErrEmptyFrame
	ErrNoExecutor = ferrors.ErrNoExecutor
)

// SetOption mutates one global session option, e.g.
// SetOption("cache_enabled", false).
func SetOption(name string, value interface{}) error {
	return config.SetGlobalOption(name, value)
}

// GetConfig returns a snapshot of the global session options.
func GetConfig() Config {
	return config.GetGlobalConfig()
}

// LoadConfigFile loads global session options from a JSON or YAML file.
func LoadConfigFile(path string) error {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return err
	}
	config.SetGlobalConfig(cfg)
	return nil
}

// SetWarnSink replaces the process-wide warning sink. Passing nil restores
// the default stderr logger.
func SetWarnSink(sink func(format string, args ...interface{})) {
	config.SetWarnSink(sink)
}

// NewDBExecutor wraps a database/sql handle as an Executor.
func NewDBExecutor(db *sql.DB) Executor {
	return sqlbridge.NewDB(db)
}

// NewCollector creates a metrics collector for use with WithMetrics.
func NewCollector(enabled bool) *monitoring.Collector {
	return monitoring.NewCollector(enabled)
}

// VDataFrame is the public virtual dataframe. It wraps the internal
// relation state to hide implementation details. A VDataFrame and the
// frames derived from it belong to a single goroutine.
type VDataFrame struct {
	f *relation.Frame
}

// New constructs a frame over a base relation with known columns, without
// touching an engine.
func New(mainRelation string, defs []ColumnDef, opts ...Option) (*VDataFrame, error) {
	f, err := relation.NewFrame(mainRelation, defs, opts...)
	if err != nil {
		return nil, err
	}
	return &VDataFrame{f: f}, nil
}

// FromRelation constructs a frame over a table or view, discovering its
// columns through a LIMIT 0 probe.
func FromRelation(ctx context.Context, ex Executor, relationName string, opts ...Option) (*VDataFrame, error) {
	f, err := relation.FromRelation(ctx, ex, relationName, opts...)
	if err != nil {
		return nil, err
	}
	return &VDataFrame{f: f}, nil
}

// FromQuery constructs a frame over an arbitrary SQL query.
func FromQuery(ctx context.Context, ex Executor, query string, opts ...Option) (*VDataFrame, error) {
	f, err := relation.FromQuery(ctx, ex, query, opts...)
	if err != nil {
		return nil, err
	}
	return &VDataFrame{f: f}, nil
}

// Columns returns the visible column names in order.
func (v *VDataFrame) Columns() []string {
	return v.f.Columns()
}

// Width returns the number of visible columns.
func (v *VDataFrame) Width() int {
	return v.f.Width()
}

// CurrentSQL compiles the frame's logical state into a single SQL query.
func (v *VDataFrame) CurrentSQL() string {
	return v.f.CurrentSQL()
}

// Relation renders the frame as a FROM-embeddable relation string.
func (v *VDataFrame) Relation() string {
	return v.f.Relation()
}

// MainRelation returns the base relation identifier the frame was built on.
func (v *VDataFrame) MainRelation() string {
	return v.f.MainRelation()
}

// SetOption mutates one session option on this frame only.
func (v *VDataFrame) SetOption(name string, value interface{}) error {
	return v.f.SetOption(name, value)
}

// Clone returns an independent deep copy of the frame's logical state.
func (v *VDataFrame) Clone() *VDataFrame {
	return &VDataFrame{f: v.f.Clone()}
}

// Eval derives a new computed column from an expression.
func (v *VDataFrame) Eval(ctx context.Context, name string, e Expr) error {
	return v.f.Eval(ctx, name, e)
}

// Transform appends one transformation step to a column. The template may
// contain one "{}" placeholder standing for the column's previous value.
func (v *VDataFrame) Transform(name, template, resultType string, cat Category) error {
	return v.f.Transform(name, template, resultType, cat)
}

// Filter appends a WHERE predicate.
func (v *VDataFrame) Filter(ctx context.Context, condition Expr) error {
	return v.f.Filter(ctx, condition)
}

// Sort registers an ORDER BY rule.
func (v *VDataFrame) Sort(keys ...SortKey) error {
	return v.f.Sort(keys...)
}

// Select keeps only the named columns, in the given order.
func (v *VDataFrame) Select(names ...string) error {
	return v.f.Select(names...)
}

// Drop removes columns from the projection.
func (v *VDataFrame) Drop(names ...string) error {
	return v.f.Drop(names...)
}

// ExcludeColumns hides helper columns from the final projection while
// keeping them referenceable.
func (v *VDataFrame) ExcludeColumns(names ...string) error {
	return v.f.ExcludeColumns(names...)
}

// IncludeColumns reverses ExcludeColumns.
func (v *VDataFrame) IncludeColumns(names ...string) error {
	return v.f.IncludeColumns(names...)
}

// Head materializes the first rows of the current relation.
func (v *VDataFrame) Head(ctx context.Context, limit, offset int) (*Table, error) {
	return v.f.Head(ctx, limit, offset)
}

// Tail materializes the last rows of the current relation.
func (v *VDataFrame) Tail(ctx context.Context, limit int) (*Table, error) {
	return v.f.Tail(ctx, limit)
}

// CountRows returns the total row count of the current relation.
func (v *VDataFrame) CountRows(ctx context.Context) (int64, error) {
	return v.f.CountRows(ctx)
}

// Shape returns (rows, columns) of the current relation.
func (v *VDataFrame) Shape(ctx context.Context) (int64, int, error) {
	return v.f.Shape(ctx)
}

// Aggregate computes statistics for the given columns, consulting and
// feeding the aggregate catalog.
func (v *VDataFrame) Aggregate(ctx context.Context, funcs []string, columns []string) (*Table, error) {
	return v.f.Aggregate(ctx, funcs, columns)
}

// Min computes the minimum of the given columns.
func (v *VDataFrame) Min(ctx context.Context, columns ...string) (*Table, error) {
	return v.f.Min(ctx, columns...)
}

// Max computes the maximum of the given columns.
func (v *VDataFrame) Max(ctx context.Context, columns ...string) (*Table, error) {
	return v.f.Max(ctx, columns...)
}

// Sum computes the sum of the given columns.
func (v *VDataFrame) Sum(ctx context.Context, columns ...string) (*Table, error) {
	return v.f.Sum(ctx, columns...)
}

// Avg computes the average of the given columns.
func (v *VDataFrame) Avg(ctx context.Context, columns ...string) (*Table, error) {
	return v.f.Avg(ctx, columns...)
}

// Count computes the non-null count of the given columns.
func (v *VDataFrame) Count(ctx context.Context, columns ...string) (*Table, error) {
	return v.f.Count(ctx, columns...)
}

// CountDistinct computes the distinct count of the given columns.
func (v *VDataFrame) CountDistinct(ctx context.Context, columns ...string) (*Table, error) {
	return v.f.CountDistinct(ctx, columns...)
}

// Median computes the median of the given columns.
func (v *VDataFrame) Median(ctx context.Context, columns ...string) (*Table, error) {
	return v.f.Median(ctx, columns...)
}

// Mode returns the most frequent value of a column.
func (v *VDataFrame) Mode(ctx context.Context, column string) (interface{}, error) {
	return v.f.Mode(ctx, column)
}

// Corr computes the Pearson correlation between two columns.
func (v *VDataFrame) Corr(ctx context.Context, colA, colB string) (float64, error) {
	return v.f.Corr(ctx, colA, colB)
}

// Sample returns a new frame over a random subset of the rows.
func (v *VDataFrame) Sample(fraction float64) (*VDataFrame, error) {
	f, err := v.f.Sample(fraction)
	if err != nil {
		return nil, err
	}
	return &VDataFrame{f: f}, nil
}
