// Package sqlbridge defines the query execution contract consumed by the
// core and adapts database/sql connections to it. The core never talks to a
// driver directly: it compiles SQL text and hands it to an Executor.
package sqlbridge

import (
	"context"
	"database/sql"
	"io"

	pkgerrors "github.com/pkg/errors"

	ferrors "github.com/sqlframe/sqlframe/internal/errors"
)

// Mode distinguishes what the caller intends to do with the statement.
type Mode int

const (
	// Exec runs a statement without fetching rows.
	Exec Mode = iota
	// FetchOne runs a query expecting at most one row.
	FetchOne
	// FetchAll runs a query and iterates every row.
	FetchAll
	// FetchScalar runs a query expecting a single scalar value.
	FetchScalar
	// Copy runs a bulk-load statement.
	Copy
)

func (m Mode) String() string {
	switch m {
	case Exec:
		return "exec"
	case FetchOne:
		return "fetch_one"
	case FetchAll:
		return "fetch_all"
	case FetchScalar:
		return "fetch_scalar"
	case Copy:
		return "copy"
	default:
		return "unknown"
	}
}

// Rows is a forward-only cursor over an executed query. Next returns io.EOF
// when the result set is exhausted.
type Rows interface {
	Columns() []string
	Types() []string
	Next() ([]interface{}, error)
	Close() error
}

// Executor executes compiled SQL against the backing engine. Failures must
// surface as *errors.QueryError so callers can distinguish "the engine
// rejected the generated query" from local conditions.
type Executor interface {
	Execute(ctx context.Context, query string, mode Mode) (Rows, error)
}

// DB adapts a database/sql handle to the Executor contract. Any driver
// registered with database/sql works.
type DB struct {
	db *sql.DB
}

// NewDB wraps an open database handle.
func NewDB(db *sql.DB) *DB {
	return &DB{db: db}
}

// Execute implements Executor.
func (d *DB) Execute(ctx context.Context, query string, mode Mode) (Rows, error) {
	switch mode {
	case Exec, Copy:
		if _, err := d.db.ExecContext(ctx, query); err != nil {
			return nil, ferrors.NewQueryError(query, pkgerrors.Wrap(err, "executing statement"))
		}
		return emptyRows{}, nil
	default:
		rows, err := d.db.QueryContext(ctx, query)
		if err != nil {
			return nil, ferrors.NewQueryError(query, pkgerrors.Wrap(err, "running query"))
		}
		return newDBRows(query, rows)
	}
}

type emptyRows struct{}

func (emptyRows) Columns() []string              { return nil }
func (emptyRows) Types() []string                { return nil }
func (emptyRows) Next() ([]interface{}, error)   { return nil, io.EOF }
func (emptyRows) Close() error                   { return nil }

type dbRows struct {
	query string
	rows  *sql.Rows
	cols  []string
	types []string
}

func newDBRows(query string, rows *sql.Rows) (*dbRows, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, ferrors.NewQueryError(query, pkgerrors.Wrap(err, "reading result columns"))
	}
	types := make([]string, len(cols))
	if colTypes, err := rows.ColumnTypes(); err == nil {
		for i, ct := range colTypes {
			types[i] = ct.DatabaseTypeName()
		}
	}
	return &dbRows{query: query, rows: rows, cols: cols, types: types}, nil
}

func (r *dbRows) Columns() []string {
	return r.cols
}

func (r *dbRows) Types() []string {
	return r.types
}

func (r *dbRows) Next() ([]interface{}, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, ferrors.NewQueryError(r.query, pkgerrors.Wrap(err, "iterating rows"))
		}
		return nil, io.EOF
	}
	values := make([]interface{}, len(r.cols))
	ptrs := make([]interface{}, len(r.cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, ferrors.NewQueryError(r.query, pkgerrors.Wrap(err, "scanning row"))
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values, nil
}

func (r *dbRows) Close() error {
	return r.rows.Close()
}
