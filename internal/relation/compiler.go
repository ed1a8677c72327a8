package relation

import (
	"sort"
	"strings"

	"github.com/sqlframe/sqlframe/internal/expr"
)

// genOptions tunes one compilation.
type genOptions struct {
	// force keeps the named columns in the depth calculation and the final
	// projection even when marked excluded.
	force []string
	// adhoc is a caller-supplied expression whose referenced columns must be
	// valid in the compiled relation; used to probe a candidate expression
	// before committing it.
	adhoc string
	// splitAlias, when set, projects a random split column under this alias.
	splitAlias string
}

// genSQL compiles the relation state and every column's transformation chain
// into a single SQL string: floor by floor, each wrapped as a subquery of
// the next, with WHERE and ORDER BY clauses injected at the floor they were
// tagged with. Pure function of the state; nothing is executed here.
func (f *Frame) genSQL(opts genOptions) string {
	live := f.liveColumns()

	forced := make(map[string]bool, len(opts.force))
	for _, name := range opts.force {
		forced[normalizeName(name)] = true
	}

	// Depth spans the visible and forced columns plus anything an ad hoc
	// expression reaches into.
	maxDepth := 1
	for _, c := range live {
		if f.exclude[normalizeName(c.name)] && !forced[normalizeName(c.name)] {
			continue
		}
		if c.Depth() > maxDepth {
			maxDepth = c.Depth()
		}
	}
	if opts.adhoc != "" {
		for _, c := range f.columnsIn(opts.adhoc) {
			if c.Depth() > maxDepth {
				maxDepth = c.Depth()
			}
		}
	}

	// Floor 0: project each column's first expression, unless every column
	// is untransformed there and a plain scan suffices. A narrowed frame
	// always projects explicitly; SELECT * would bring dropped columns back.
	needWrap := f.narrowed
	for _, c := range live {
		if c.definedAt(0) && !c.trivialAt(0) {
			needWrap = true
			break
		}
	}
	var sql string
	if needWrap {
		sql = "SELECT " + f.selectList(live, 0) + " FROM " + f.mainRelation
	} else {
		sql = "SELECT * FROM " + f.mainRelation
	}

	// Floors 1..maxDepth-1: each floor selects from the previous one as a
	// subtable; clauses tagged at floor f-1 attach here, so a predicate
	// filters the output of the floor where its columns became valid.
	for floor := 1; floor < maxDepth; floor++ {
		sql = "SELECT " + f.selectList(live, floor) + " FROM (" + sql + ") AS subtable" +
			f.clausesAt(floor-1, false)
	}
	// Trailing clauses tagged at the last floor reference columns a WHERE
	// on the same SELECT could not see, so they get one more wrap. The
	// collapse below flattens it again when the body was a plain scan.
	if trail := f.clausesAt(maxDepth-1, true); trail != "" {
		sql = "SELECT * FROM (" + sql + ") AS subtable" + trail
	}

	if opts.splitAlias != "" {
		sql = "SELECT *, RANDOM() AS " + expr.QuoteIdent(opts.splitAlias) + " FROM (" + sql + ") AS subtable"
	}

	if len(f.exclude) > 0 {
		final := make([]string, 0, len(live))
		for _, c := range live {
			key := normalizeName(c.name)
			if f.exclude[key] && !forced[key] {
				continue
			}
			final = append(final, c.name)
		}
		if opts.splitAlias != "" {
			final = append(final, expr.QuoteIdent(opts.splitAlias))
		}
		sql = "SELECT " + strings.Join(final, ", ") + " FROM (" + sql + ") AS subtable"
	}

	// A verbatim no-op wrap adds nesting without meaning; collapse it back
	// to the bare relation.
	return strings.ReplaceAll(sql, "(SELECT * FROM "+f.mainRelation+") AS subtable", f.mainRelation)
}

// selectList renders one floor's projection. Columns not yet defined at the
// floor are omitted; columns whose expression is the bare name project as
// is, everything else is aliased back to the column name.
func (f *Frame) selectList(cols []*Column, floor int) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		e, ok := c.expressionAt(floor)
		if !ok {
			continue
		}
		if e == c.name {
			parts = append(parts, c.name)
		} else {
			parts = append(parts, e+" AS "+c.name)
		}
	}
	return strings.Join(parts, ", ")
}

// clausesAt renders the WHERE and ORDER BY text tagged at the given floor.
// The last floor also flushes any clause tagged deeper, so nothing recorded
// in the state is ever dropped.
func (f *Frame) clausesAt(floor int, last bool) string {
	var preds []string
	for _, p := range f.where {
		if p.Floor == floor || (last && p.Floor > floor) {
			preds = append(preds, "("+p.Text+")")
		}
	}
	var sb strings.Builder
	if len(preds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(preds, " AND "))
	}
	if last {
		// Dropping a deep column can strand rules tagged past the new last
		// floor; fold them into one ORDER BY, shallowest rules first, so a
		// single SELECT never carries two ORDER BY clauses.
		floors := make([]int, 0, len(f.orderBy))
		for fl := range f.orderBy {
			if fl >= floor {
				floors = append(floors, fl)
			}
		}
		sort.Ints(floors)
		rules := make([]string, 0, len(floors))
		for _, fl := range floors {
			rules = append(rules, strings.TrimPrefix(f.orderBy[fl], "ORDER BY "))
		}
		if len(rules) > 0 {
			sb.WriteString(" ORDER BY ")
			sb.WriteString(strings.Join(rules, ", "))
		}
	} else if clause, ok := f.orderBy[floor]; ok {
		sb.WriteString(" ")
		sb.WriteString(clause)
	}
	return sb.String()
}

// CurrentSQL returns the compiled SQL for the frame's current logical state.
func (f *Frame) CurrentSQL() string {
	return f.genSQL(genOptions{})
}

// Relation renders the current logical table as a FROM-embeddable relation
// string: the bare base relation when nothing has been applied, otherwise
// the compiled query parenthesized and aliased.
func (f *Frame) Relation() string {
	sql := f.CurrentSQL()
	if sql == "SELECT * FROM "+f.mainRelation {
		return f.mainRelation
	}
	return "(" + sql + ") AS subtable"
}

// maxLiveDepth returns the maximum transformation depth over the visible
// columns.
func (f *Frame) maxLiveDepth() int {
	depth := 1
	for _, c := range f.visibleColumns() {
		if c.Depth() > depth {
			depth = c.Depth()
		}
	}
	return depth
}

// columnsIn returns the live columns referenced by name inside a SQL
// fragment. Matching is textual with identifier boundaries; this is how
// cross-column dependency is expressed, there are no object references
// between columns.
func (f *Frame) columnsIn(text string) []*Column {
	var out []*Column
	for _, c := range f.cols {
		if containsIdent(text, c.BareName()) {
			out = append(out, c)
		}
	}
	return out
}

// floorFor returns the floor a predicate must be tagged with: the point
// where every column it references has received all of its transformations.
func (f *Frame) floorFor(text string) int {
	floor := 0
	for _, c := range f.columnsIn(text) {
		if c.Depth()-1 > floor {
			floor = c.Depth() - 1
		}
	}
	return floor
}

// evalFloor returns the definition floor for a derived expression. A select
// list at floor n resolves names against floor n-1's output, so any
// reference to a transformed or computed column must sit one floor past
// that column's last step. Untransformed source columns live in the base
// relation and resolve at any floor, floor 0 included.
func (f *Frame) evalFloor(text string) int {
	floor := 0
	for _, c := range f.columnsIn(text) {
		if c.Depth() == 1 && c.trivialAt(0) {
			continue
		}
		if c.Depth() > floor {
			floor = c.Depth()
		}
	}
	return floor
}

func isIdentChar(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// containsIdent reports whether ident occurs in text as a whole identifier,
// case-insensitively. Double quotes count as boundaries, so both quoted and
// bare references match.
func containsIdent(text, ident string) bool {
	if ident == "" {
		return false
	}
	lower := strings.ToLower(text)
	id := strings.ToLower(ident)
	for i := 0; i+len(id) <= len(lower); {
		j := strings.Index(lower[i:], id)
		if j < 0 {
			return false
		}
		j += i
		beforeOK := j == 0 || !isIdentChar(lower[j-1])
		after := j + len(id)
		afterOK := after >= len(lower) || !isIdentChar(lower[after])
		if beforeOK && afterOK {
			return true
		}
		i = j + 1
	}
	return false
}
