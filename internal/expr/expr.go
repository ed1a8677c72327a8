// Package expr provides SQL scalar expression nodes for virtual dataframe
// operations. A Node wraps one SQL expression fragment together with its
// semantic category; builder methods compose larger expressions textually,
// so cross-column dependency is plain name substitution and never object
// aliasing.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category classifies the semantic type of a SQL expression.
type Category int

const (
	CatUndefined Category = iota
	CatInt
	CatFloat
	CatText
	CatDate
	CatBool
	CatComplex
	CatVMap
)

func (c Category) String() string {
	switch c {
	case CatInt:
		return "int"
	case CatFloat:
		return "float"
	case CatText:
		return "text"
	case CatDate:
		return "date"
	case CatBool:
		return "bool"
	case CatComplex:
		return "complex"
	case CatVMap:
		return "vmap"
	default:
		return "undefined"
	}
}

// IsNumeric reports whether the category participates in arithmetic.
func (c Category) IsNumeric() bool {
	return c == CatInt || c == CatFloat || c == CatBool
}

// CategoryFromType maps a SQL type name to its semantic category. Unknown
// types classify as complex, mirroring how analytical engines expose
// geometry, uuid and binary types.
func CategoryFromType(sqlType string) Category {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	if idx := strings.IndexByte(t, '('); idx >= 0 {
		t = t[:idx]
	}
	switch t {
	case "":
		return CatUndefined
	case "int", "integer", "bigint", "smallint", "tinyint", "int8", "int2", "int4":
		return CatInt
	case "float", "float8", "double", "double precision", "real", "numeric", "decimal", "number", "money":
		return CatFloat
	case "varchar", "char", "character", "character varying", "text", "string", "long varchar", "uuid":
		return CatText
	case "date", "datetime", "time", "timestamp", "timestamptz", "timetz", "interval", "smalldatetime":
		return CatDate
	case "bool", "boolean":
		return CatBool
	case "vmap", "map", "long varbinary":
		return CatVMap
	default:
		return CatComplex
	}
}

// Node is one SQL scalar expression plus its semantic category. Nodes are
// immutable values; every builder method returns a new Node.
type Node struct {
	text string
	cat  Category
}

// Raw wraps an arbitrary SQL fragment. No validation is performed; malformed
// fragments surface only when the compiled query reaches the engine.
func Raw(text string, cat Category) Node {
	return Node{text: text, cat: cat}
}

// Col creates a quoted column reference of undefined category.
func Col(name string) Node {
	return Node{text: QuoteIdent(name), cat: CatUndefined}
}

// TypedCol creates a quoted column reference with a known category.
func TypedCol(name string, cat Category) Node {
	return Node{text: QuoteIdent(name), cat: cat}
}

// Lit creates a literal node rendered in SQL syntax.
func Lit(value interface{}) Node {
	switch v := value.(type) {
	case nil:
		return Node{text: "NULL", cat: CatUndefined}
	case bool:
		if v {
			return Node{text: "TRUE", cat: CatBool}
		}
		return Node{text: "FALSE", cat: CatBool}
	case int:
		return Node{text: strconv.Itoa(v), cat: CatInt}
	case int32:
		return Node{text: strconv.FormatInt(int64(v), 10), cat: CatInt}
	case int64:
		return Node{text: strconv.FormatInt(v, 10), cat: CatInt}
	case float32:
		return Node{text: strconv.FormatFloat(float64(v), 'g', -1, 32), cat: CatFloat}
	case float64:
		return Node{text: strconv.FormatFloat(v, 'g', -1, 64), cat: CatFloat}
	case string:
		return Node{text: "'" + strings.ReplaceAll(v, "'", "''") + "'", cat: CatText}
	case time.Time:
		return Node{text: "'" + v.Format("2006-01-02 15:04:05") + "'", cat: CatDate}
	default:
		return Node{text: "'" + strings.ReplaceAll(fmt.Sprintf("%v", v), "'", "''") + "'", cat: CatText}
	}
}

// SQL returns the rendered SQL fragment.
func (n Node) SQL() string {
	return n.text
}

// Category returns the node's semantic category.
func (n Node) Category() Category {
	return n.cat
}

func (n Node) String() string {
	return n.text
}

func numericResult(a, b Category) Category {
	if a == CatFloat || b == CatFloat {
		return CatFloat
	}
	if a == CatInt && b == CatInt {
		return CatInt
	}
	return CatFloat
}

func (n Node) binary(op string, other Node, cat Category) Node {
	return Node{text: "(" + n.text + ") " + op + " (" + other.text + ")", cat: cat}
}

// Arithmetic builders

// Add creates an addition expression
func (n Node) Add(other Node) Node {
	return n.binary("+", other, numericResult(n.cat, other.cat))
}

// Sub creates a subtraction expression
func (n Node) Sub(other Node) Node {
	return n.binary("-", other, numericResult(n.cat, other.cat))
}

// Mul creates a multiplication expression
func (n Node) Mul(other Node) Node {
	return n.binary("*", other, numericResult(n.cat, other.cat))
}

// Div creates a division expression
func (n Node) Div(other Node) Node {
	return n.binary("/", other, CatFloat)
}

// Mod creates a modulo expression
func (n Node) Mod(other Node) Node {
	return Node{text: "MOD(" + n.text + ", " + other.text + ")", cat: numericResult(n.cat, other.cat)}
}

// Pow creates a power expression
func (n Node) Pow(other Node) Node {
	return Node{text: "POWER(" + n.text + ", " + other.text + ")", cat: CatFloat}
}

// Neg creates a negation (unary minus) expression
func (n Node) Neg() Node {
	return Node{text: "-(" + n.text + ")", cat: n.cat}
}

// Comparison builders

// Eq creates an equality expression
func (n Node) Eq(other Node) Node {
	return n.binary("=", other, CatBool)
}

// Ne creates a not-equal expression
func (n Node) Ne(other Node) Node {
	return n.binary("!=", other, CatBool)
}

// Lt creates a less-than expression
func (n Node) Lt(other Node) Node {
	return n.binary("<", other, CatBool)
}

// Le creates a less-than-or-equal expression
func (n Node) Le(other Node) Node {
	return n.binary("<=", other, CatBool)
}

// Gt creates a greater-than expression
func (n Node) Gt(other Node) Node {
	return n.binary(">", other, CatBool)
}

// Ge creates a greater-than-or-equal expression
func (n Node) Ge(other Node) Node {
	return n.binary(">=", other, CatBool)
}

// Between creates a BETWEEN expression
func (n Node) Between(low, high Node) Node {
	return Node{text: "(" + n.text + ") BETWEEN (" + low.text + ") AND (" + high.text + ")", cat: CatBool}
}

// In creates an IN list expression
func (n Node) In(values ...Node) Node {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.text
	}
	return Node{text: "(" + n.text + ") IN (" + strings.Join(parts, ", ") + ")", cat: CatBool}
}

// Like creates a LIKE pattern expression
func (n Node) Like(pattern Node) Node {
	return n.binary("LIKE", pattern, CatBool)
}

// IsNull creates an IS NULL expression
func (n Node) IsNull() Node {
	return Node{text: "(" + n.text + ") IS NULL", cat: CatBool}
}

// IsNotNull creates an IS NOT NULL expression
func (n Node) IsNotNull() Node {
	return Node{text: "(" + n.text + ") IS NOT NULL", cat: CatBool}
}

// Logical builders

// And creates a logical AND expression
func (n Node) And(other Node) Node {
	return n.binary("AND", other, CatBool)
}

// Or creates a logical OR expression
func (n Node) Or(other Node) Node {
	return n.binary("OR", other, CatBool)
}

// Not creates a logical NOT expression
func (n Node) Not() Node {
	return Node{text: "NOT (" + n.text + ")", cat: CatBool}
}

// Function builders

func (n Node) fn(name string, cat Category) Node {
	return Node{text: name + "(" + n.text + ")", cat: cat}
}

// Abs creates an absolute value expression
func (n Node) Abs() Node {
	return n.fn("ABS", n.cat)
}

// Round creates a round expression
func (n Node) Round() Node {
	return n.fn("ROUND", n.cat)
}

// RoundTo creates a round expression with precision
func (n Node) RoundTo(precision int) Node {
	return Node{text: "ROUND(" + n.text + ", " + strconv.Itoa(precision) + ")", cat: CatFloat}
}

// Floor creates a floor expression
func (n Node) Floor() Node {
	return n.fn("FLOOR", CatInt)
}

// Ceil creates a ceiling expression
func (n Node) Ceil() Node {
	return n.fn("CEILING", CatInt)
}

// Sqrt creates a square root expression
func (n Node) Sqrt() Node {
	return n.fn("SQRT", CatFloat)
}

// Ln creates a natural logarithm expression
func (n Node) Ln() Node {
	return n.fn("LN", CatFloat)
}

// Exp creates an exponential expression
func (n Node) Exp() Node {
	return n.fn("EXP", CatFloat)
}

// Upper creates an UPPER expression
func (n Node) Upper() Node {
	return n.fn("UPPER", CatText)
}

// Lower creates a LOWER expression
func (n Node) Lower() Node {
	return n.fn("LOWER", CatText)
}

// Length creates a LENGTH expression
func (n Node) Length() Node {
	return n.fn("LENGTH", CatInt)
}

// Trim creates a TRIM expression
func (n Node) Trim() Node {
	return n.fn("TRIM", CatText)
}

// Cast creates a CAST expression; the resulting category follows the target
// SQL type.
func (n Node) Cast(sqlType string) Node {
	return Node{text: "CAST(" + n.text + " AS " + sqlType + ")", cat: CategoryFromType(sqlType)}
}

// Date part extraction

// Year creates a YEAR extraction expression
func (n Node) Year() Node {
	return n.fn("YEAR", CatInt)
}

// Month creates a MONTH extraction expression
func (n Node) Month() Node {
	return n.fn("MONTH", CatInt)
}

// Day creates a DAY extraction expression
func (n Node) Day() Node {
	return n.fn("DAY", CatInt)
}

// Hour creates an HOUR extraction expression
func (n Node) Hour() Node {
	return n.fn("HOUR", CatInt)
}

// Free-standing constructors

// Coalesce creates a COALESCE expression over the given nodes.
func Coalesce(nodes ...Node) Node {
	parts := make([]string, len(nodes))
	cat := CatUndefined
	for i, n := range nodes {
		parts[i] = n.text
		if cat == CatUndefined {
			cat = n.cat
		}
	}
	return Node{text: "COALESCE(" + strings.Join(parts, ", ") + ")", cat: cat}
}

// Concat creates a string concatenation expression.
func Concat(nodes ...Node) Node {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.text
	}
	return Node{text: "(" + strings.Join(parts, " || ") + ")", cat: CatText}
}

// Func creates an arbitrary function-call expression.
func Func(name string, cat Category, args ...Node) Node {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.text
	}
	return Node{text: name + "(" + strings.Join(parts, ", ") + ")", cat: cat}
}

// CaseWhen builds a two-branch CASE expression.
func CaseWhen(condition, then, otherwise Node) Node {
	return Node{
		text: "(CASE WHEN " + condition.text + " THEN " + then.text + " ELSE " + otherwise.text + " END)",
		cat:  then.cat,
	}
}
