package sqlbridge

import (
	"context"
	"io"
	"strings"
	"sync"

	ferrors "github.com/sqlframe/sqlframe/internal/errors"
)

// Script is one canned response: the first rule whose Contains fragments all
// appear in the executed SQL answers the query.
type Script struct {
	Contains []string
	Columns  []string
	Types    []string
	Rows     [][]interface{}
	Err      error
}

// ScriptedExecutor answers queries from canned scripts and records every
// statement it receives. It backs tests and offline inspection of the SQL
// the compiler emits.
type ScriptedExecutor struct {
	Scripts  []Script
	Executed []string
	// Fallback answers queries no script matches; nil means such queries
	// fail with a QueryError.
	Fallback *Script

	mu sync.Mutex
}

// NewScriptedExecutor creates an executor answering from the given scripts.
func NewScriptedExecutor(scripts ...Script) *ScriptedExecutor {
	return &ScriptedExecutor{Scripts: scripts}
}

// Execute implements Executor.
func (s *ScriptedExecutor) Execute(_ context.Context, query string, _ Mode) (Rows, error) {
	s.mu.Lock()
	s.Executed = append(s.Executed, query)
	s.mu.Unlock()
	for i := range s.Scripts {
		sc := &s.Scripts[i]
		matched := true
		for _, frag := range sc.Contains {
			if !strings.Contains(query, frag) {
				matched = false
				break
			}
		}
		if matched {
			if sc.Err != nil {
				return nil, ferrors.NewQueryError(query, sc.Err)
			}
			return newSliceRows(sc), nil
		}
	}
	if s.Fallback != nil {
		if s.Fallback.Err != nil {
			return nil, ferrors.NewQueryError(query, s.Fallback.Err)
		}
		return newSliceRows(s.Fallback), nil
	}
	return nil, ferrors.NewQueryError(query, errUnscripted)
}

var errUnscripted = unscriptedError{}

type unscriptedError struct{}

func (unscriptedError) Error() string { return "no script matches the executed SQL" }

type sliceRows struct {
	cols  []string
	types []string
	rows  [][]interface{}
	pos   int
}

func newSliceRows(sc *Script) *sliceRows {
	types := sc.Types
	if types == nil {
		types = make([]string, len(sc.Columns))
	}
	return &sliceRows{cols: sc.Columns, types: types, rows: sc.Rows}
}

func (r *sliceRows) Columns() []string {
	return r.cols
}

func (r *sliceRows) Types() []string {
	return r.types
}

func (r *sliceRows) Next() ([]interface{}, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func (r *sliceRows) Close() error {
	return nil
}
