// Package series provides Arrow-backed typed columns for materialized query
// results. Downstream consumers receive results as Arrow records, so a
// materialized column converts engine values into one Arrow array per
// semantic category.
package series

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/sqlframe/sqlframe/internal/expr"
)

// Column is one materialized result column backed by an Arrow array.
type Column struct {
	name  string
	cat   expr.Category
	array arrow.Array
}

// FromValues builds a Column from engine row values. Nil values become
// nulls. Numeric categories coerce across int/float representations; every
// other category renders as text.
func FromValues(name string, cat expr.Category, values []interface{}, mem memory.Allocator) (*Column, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	var arr arrow.Array
	switch cat {
	case expr.CatInt:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		for _, v := range values {
			iv, ok := asInt64(v)
			if !ok {
				builder.AppendNull()
				continue
			}
			builder.Append(iv)
		}
		arr = builder.NewArray()
	case expr.CatFloat:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		for _, v := range values {
			fv, ok := asFloat64(v)
			if !ok {
				builder.AppendNull()
				continue
			}
			builder.Append(fv)
		}
		arr = builder.NewArray()
	case expr.CatBool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		for _, v := range values {
			bv, ok := v.(bool)
			if !ok {
				builder.AppendNull()
				continue
			}
			builder.Append(bv)
		}
		arr = builder.NewArray()
	default:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		for _, v := range values {
			if v == nil {
				builder.AppendNull()
				continue
			}
			if s, ok := v.(string); ok {
				builder.Append(s)
				continue
			}
			builder.Append(fmt.Sprintf("%v", v))
		}
		arr = builder.NewArray()
	}

	return &Column{name: name, cat: cat, array: arr}, nil
}

func asInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

// Name returns the column name
func (c *Column) Name() string {
	return c.name
}

// Category returns the column's semantic category
func (c *Column) Category() expr.Category {
	return c.cat
}

// Len returns the number of values
func (c *Column) Len() int {
	return c.array.Len()
}

// Array returns the backing Arrow array
func (c *Column) Array() arrow.Array {
	return c.array
}

// Field returns the Arrow schema field for this column
func (c *Column) Field() arrow.Field {
	return arrow.Field{Name: c.name, Type: c.array.DataType(), Nullable: true}
}

// IsNull reports whether the value at index is null
func (c *Column) IsNull(index int) bool {
	if index < 0 || index >= c.array.Len() {
		return true
	}
	return c.array.IsNull(index)
}

// Release frees the backing Arrow array
func (c *Column) Release() {
	c.array.Release()
}
