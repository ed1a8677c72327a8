// Package relation holds the virtual dataframe core: per-column
// transformation chains, the frame-level relation state, and the compiler
// that renders the current logical state as one nested SQL query. Nothing in
// this package executes SQL on its own; materialization goes through the
// execution bridge.
package relation

import (
	"strings"

	"github.com/sqlframe/sqlframe/internal/expr"
)

// Step is one entry of a column's transformation chain. Template contains at
// most one "{}" placeholder standing for the column's value at the previous
// floor; a template without a placeholder ignores the previous value
// (literal or full-expression steps).
type Step struct {
	Template   string
	ResultType string
	Category   expr.Category
}

// apply substitutes the previous value into the template.
func (s Step) apply(prev string) string {
	return strings.ReplaceAll(s.Template, "{}", prev)
}

// identity reports whether the step passes its input through unchanged.
func (s Step) identity() bool {
	return strings.TrimSpace(s.Template) == "{}"
}

// Column represents one virtual column: a quoted name plus the append-only
// log of every transformation applied to it. The chain is never empty; the
// first entry is the raw source column or, for computed columns, a full SQL
// expression valid at the column's definition floor.
type Column struct {
	name     string
	defFloor int
	steps    []Step
}

// newSourceColumn creates a column backed directly by a relation column.
func newSourceColumn(name, sqlType string) *Column {
	quoted := expr.QuoteIdent(name)
	return &Column{
		name: quoted,
		steps: []Step{{
			Template:   quoted,
			ResultType: sqlType,
			Category:   expr.CategoryFromType(sqlType),
		}},
	}
}

// newComputedColumn creates a column defined by a full SQL expression at the
// given floor. The expression may reference other columns by name; the
// dependency is textual, resolved by the compiler at that floor.
func newComputedColumn(name, expression, sqlType string, cat expr.Category, floor int) *Column {
	return &Column{
		name:     expr.QuoteIdent(name),
		defFloor: floor,
		steps: []Step{{
			Template:   expression,
			ResultType: sqlType,
			Category:   cat,
		}},
	}
}

// Name returns the quoted column name.
func (c *Column) Name() string {
	return c.name
}

// BareName returns the column name without quoting.
func (c *Column) BareName() string {
	return expr.CleanIdent(c.name)
}

// Type returns the SQL type of the latest step.
func (c *Column) Type() string {
	return c.steps[len(c.steps)-1].ResultType
}

// Category returns the semantic category of the latest step.
func (c *Column) Category() expr.Category {
	return c.steps[len(c.steps)-1].Category
}

// DefFloor returns the floor at which the column's first expression is
// defined. Source columns start at floor 0.
func (c *Column) DefFloor() int {
	return c.defFloor
}

// Depth returns the transformation depth: one past the floor of the latest
// step. The compiler pads shorter chains to the maximum depth with identity
// steps instead of mutating the chain.
func (c *Column) Depth() int {
	return c.defFloor + len(c.steps)
}

// appendStep pushes one transformation. No SQL validation happens here;
// errors surface only when the compiled query is executed.
func (c *Column) appendStep(template, resultType string, cat expr.Category) {
	c.steps = append(c.steps, Step{Template: template, ResultType: resultType, Category: cat})
}

// definedAt reports whether the column is projected at the given floor.
func (c *Column) definedAt(floor int) bool {
	return floor >= c.defFloor
}

// expressionAt renders the column's expression for one floor. Floors past
// the chain's end are identity; floors before the definition floor have no
// expression.
func (c *Column) expressionAt(floor int) (string, bool) {
	if floor < c.defFloor {
		return "", false
	}
	idx := floor - c.defFloor
	if idx == 0 {
		return c.steps[0].Template, true
	}
	if idx >= len(c.steps) {
		return c.name, true
	}
	return c.steps[idx].apply(c.name), true
}

// trivialAt reports whether the floor's expression is just the column
// itself, requiring no wrapping SELECT.
func (c *Column) trivialAt(floor int) bool {
	e, ok := c.expressionAt(floor)
	return ok && e == c.name
}

// clone deep-copies the column.
func (c *Column) clone() *Column {
	steps := make([]Step, len(c.steps))
	copy(steps, c.steps)
	return &Column{name: c.name, defFloor: c.defFloor, steps: steps}
}
