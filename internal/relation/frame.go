package relation

import (
	"context"
	"strings"
	"time"

	"golang.org/x/exp/maps"

	"github.com/sqlframe/sqlframe/internal/catalog"
	"github.com/sqlframe/sqlframe/internal/config"
	ferrors "github.com/sqlframe/sqlframe/internal/errors"
	"github.com/sqlframe/sqlframe/internal/expr"
	"github.com/sqlframe/sqlframe/internal/monitoring"
	"github.com/sqlframe/sqlframe/internal/sqlbridge"
)

// unknownRowCount is the row-count cache sentinel.
const unknownRowCount int64 = -1

// Predicate is one accumulated WHERE condition, tagged with the
// transformation floor it must be applied at.
type Predicate struct {
	Text  string
	Floor int
}

// Frame is the dataframe-level relation state. It exclusively owns its
// Columns; a frame and its nested per-column state belong to the single
// goroutine that created them.
type Frame struct {
	cols         []*Column
	byName       map[string]*Column
	mainRelation string
	where        []Predicate
	orderBy      map[int]string
	exclude      map[string]bool
	// narrowed records that the projection no longer matches the base
	// relation (columns dropped or reordered), so a plain scan would
	// resurrect them.
	narrowed bool
	rowCount int64
	cfg      config.Config
	exec     sqlbridge.Executor
	cat      *catalog.Cache
	metrics  *monitoring.Collector
}

// ColumnDef describes one source column when constructing a frame without a
// live connection.
type ColumnDef struct {
	Name string
	Type string
}

// Option configures a frame at construction.
type Option func(*Frame)

// WithExecutor attaches the query execution bridge.
func WithExecutor(ex sqlbridge.Executor) Option {
	return func(f *Frame) { f.exec = ex }
}

// WithConfig overrides the session options for this frame. By default a
// frame snapshots the global configuration at construction.
func WithConfig(cfg config.Config) Option {
	return func(f *Frame) { f.cfg = cfg }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(mc *monitoring.Collector) Option {
	return func(f *Frame) { f.metrics = mc }
}

// NewFrame constructs a frame over a base relation with known columns.
func NewFrame(mainRelation string, defs []ColumnDef, opts ...Option) (*Frame, error) {
	if mainRelation == "" {
		return nil, ferrors.NewInvalidInputError("NewFrame", "main relation must not be empty")
	}
	if len(defs) == 0 {
		return nil, ferrors.ErrEmptyFrame
	}

	f := &Frame{
		mainRelation: mainRelation,
		byName:       make(map[string]*Column, len(defs)),
		orderBy:      make(map[int]string),
		exclude:      make(map[string]bool),
		rowCount:     unknownRowCount,
		cfg:          config.GetGlobalConfig(),
		metrics:      monitoring.NewCollector(false),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.cat = catalog.New(func() bool { return f.cfg.CacheEnabled })

	for _, def := range defs {
		col := newSourceColumn(def.Name, def.Type)
		key := normalizeName(col.name)
		if _, dup := f.byName[key]; dup {
			return nil, ferrors.NewValidationError("NewFrame", col.name, "duplicate column name")
		}
		f.cols = append(f.cols, col)
		f.byName[key] = col
	}
	return f, nil
}

// FromRelation constructs a frame over a table or view, discovering columns
// through a LIMIT 0 probe.
func FromRelation(ctx context.Context, ex sqlbridge.Executor, relationName string, opts ...Option) (*Frame, error) {
	defs, err := discoverColumns(ctx, ex, relationName)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithExecutor(ex)}, opts...)
	return NewFrame(relationName, defs, opts...)
}

// FromQuery constructs a frame over an arbitrary SQL query.
func FromQuery(ctx context.Context, ex sqlbridge.Executor, query string, opts ...Option) (*Frame, error) {
	rel := "(" + query + ") AS query_relation"
	defs, err := discoverColumns(ctx, ex, rel)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithExecutor(ex)}, opts...)
	return NewFrame(rel, defs, opts...)
}

func discoverColumns(ctx context.Context, ex sqlbridge.Executor, rel string) ([]ColumnDef, error) {
	rows, err := ex.Execute(ctx, "SELECT * FROM "+rel+" LIMIT 0", sqlbridge.FetchAll)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := rows.Columns()
	types := rows.Types()
	defs := make([]ColumnDef, len(cols))
	for i, c := range cols {
		sqlType := ""
		if i < len(types) {
			sqlType = types[i]
		}
		defs[i] = ColumnDef{Name: c, Type: sqlType}
	}
	return defs, nil
}

func normalizeName(name string) string {
	return strings.ToLower(expr.CleanIdent(name))
}

// MainRelation returns the base relation identifier.
func (f *Frame) MainRelation() string {
	return f.mainRelation
}

// Config returns the frame's session options.
func (f *Frame) Config() config.Config {
	return f.cfg
}

// SetOption mutates one session option on this frame.
func (f *Frame) SetOption(name string, value interface{}) error {
	return f.cfg.Set(name, value)
}

// Catalog returns the frame's aggregate cache.
func (f *Frame) Catalog() *catalog.Cache {
	return f.cat
}

// Metrics returns the frame's metrics collector.
func (f *Frame) Metrics() *monitoring.Collector {
	return f.metrics
}

// Columns returns the visible column names in order, quoted.
func (f *Frame) Columns() []string {
	names := make([]string, 0, len(f.cols))
	for _, c := range f.cols {
		if f.exclude[normalizeName(c.name)] {
			continue
		}
		names = append(names, c.name)
	}
	return names
}

// AllColumns returns every live column name, including excluded helpers.
func (f *Frame) AllColumns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.name
	}
	return names
}

// Column looks up a column by name, ignoring quoting and case.
func (f *Frame) Column(name string) (*Column, bool) {
	c, ok := f.byName[normalizeName(name)]
	return c, ok
}

// Width returns the number of visible columns.
func (f *Frame) Width() int {
	return len(f.Columns())
}

// visibleColumns returns the non-excluded columns in order.
func (f *Frame) visibleColumns() []*Column {
	out := make([]*Column, 0, len(f.cols))
	for _, c := range f.cols {
		if f.exclude[normalizeName(c.name)] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// liveColumns returns all owned columns in order.
func (f *Frame) liveColumns() []*Column {
	return f.cols
}

// Clone returns a deep value clone of the relation state: column chains,
// predicates, sort rules and catalog. The executor, metrics collector and
// session options carry over.
func (f *Frame) Clone() *Frame {
	clone := &Frame{
		mainRelation: f.mainRelation,
		byName:       make(map[string]*Column, len(f.cols)),
		where:        append([]Predicate(nil), f.where...),
		orderBy:      maps.Clone(f.orderBy),
		exclude:      maps.Clone(f.exclude),
		narrowed:     f.narrowed,
		rowCount:     f.rowCount,
		cfg:          f.cfg,
		exec:         f.exec,
		metrics:      f.metrics,
	}
	clone.cat = f.cat.CloneWith(func() bool { return clone.cfg.CacheEnabled })
	for _, c := range f.cols {
		cc := c.clone()
		clone.cols = append(clone.cols, cc)
		clone.byName[normalizeName(cc.name)] = cc
	}
	return clone
}

// execute routes a statement through the bridge, honoring the print-SQL
// option and recording metrics.
func (f *Frame) execute(ctx context.Context, op, query string, mode sqlbridge.Mode) (sqlbridge.Rows, error) {
	if f.exec == nil {
		return nil, ferrors.ErrNoExecutor
	}
	if f.cfg.PrintSQL {
		config.Warnf("executing SQL [%s]: %s", op, query)
	}
	start := time.Now()
	rows, err := f.exec.Execute(ctx, query, mode)
	f.metrics.RecordQuery(monitoring.QueryMetrics{
		Duration:  time.Since(start),
		SQL:       query,
		Operation: op,
		Failed:    err != nil,
	})
	return rows, err
}

// invalidateRows marks every cached statistic and the row count stale. Any
// operation that changes which rows exist must call this.
func (f *Frame) invalidateRows() {
	f.cat.Invalidate()
	f.rowCount = unknownRowCount
}
