// Package errors provides standardized error types for virtual dataframe
// operations. It defines FrameError for local validation/configuration
// failures and QueryError for SQL rejected by the backing engine, with
// operation context and error wrapping support.
package errors

import (
	"errors"
	"fmt"
)

// FrameError represents errors raised locally, before any SQL reaches the
// engine: bad option values, unknown columns at the API boundary, invalid
// operation inputs.
type FrameError struct {
	Op      string // Operation name (e.g., "Filter", "Eval", "Sort")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *FrameError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s operation failed on column %s: %s", e.Op, e.Column, e.Message)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *FrameError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is()
func (e *FrameError) Is(target error) bool {
	if fe, ok := target.(*FrameError); ok {
		return e.Op == fe.Op && e.Column == fe.Column && e.Message == fe.Message
	}
	return false
}

// QueryError means the generated SQL was rejected by the database engine.
// The core compiles optimistically and lets the engine be the source of
// truth, so schema and semantic mistakes surface here, carrying the failing
// statement for diagnosis.
type QueryError struct {
	SQL   string
	Cause error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query rejected by engine: %v\nattempted SQL: %s", e.Cause, e.SQL)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError wraps an engine failure together with the statement that
// triggered it.
func NewQueryError(sql string, cause error) *QueryError {
	return &QueryError{SQL: sql, Cause: cause}
}

// IsQueryError reports whether err is (or wraps) a QueryError. The tiered
// aggregation strategies advance only on this error kind.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// Common error constructors for consistent error creation

// NewColumnNotFoundError creates an error for operations on non-existent columns
func NewColumnNotFoundError(op, column string) *FrameError {
	return &FrameError{
		Op:      op,
		Column:  column,
		Message: "column does not exist",
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *FrameError {
	return &FrameError{
		Op:      op,
		Message: message,
	}
}

// NewOptionError creates an error for bad session option values; raised at
// the call site before any SQL is built.
func NewOptionError(option, message string) *FrameError {
	return &FrameError{
		Op:      "setOption",
		Column:  option,
		Message: message,
	}
}

// NewValidationError creates an error for input validation failures
func NewValidationError(op, column, message string) *FrameError {
	return &FrameError{
		Op:      op,
		Column:  column,
		Message: message,
	}
}

// Predefined error variables for common cases
var (
	// ErrEmptyFrame indicates operations on a relation with no columns
	ErrEmptyFrame = &FrameError{
		Op:      "validation",
		Message: "operation not supported on a relation with no columns",
	}

	// ErrNoExecutor indicates a materialization was attempted without a
	// query execution bridge attached
	ErrNoExecutor = &FrameError{
		Op:      "execute",
		Message: "no executor attached to the frame",
	}
)
