// Package dense holds the host-managed numeric buffers written by
// array-backed decoders.
//
// Each buffer is a flat slice sized to its batch, with a roaring bitmap of
// null rows. Null slots also hold a sentinel so consumers that ignore the
// mask still see a recognisable value: NaN for floats, NaT (math.MinInt64)
// for datetimes and zero for integers and booleans.
package dense

import (
	"fmt"
	"math"
	"strconv"

	"github.com/RoaringBitmap/roaring"
)

// NaT is the datetime null sentinel.
const NaT int64 = math.MinInt64

// Kind is the element type of a dense column.
type Kind uint8

const (
	KindInt64 Kind = iota
	KindFloat64
	KindBool
	KindDatetime64
)

func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindDatetime64:
		return "datetime64"
	default:
		return "unknown"
	}
}

// ElemSize returns the width in bytes of one element.
func (k Kind) ElemSize() int {
	if k == KindBool {
		return 1
	}
	return 8
}

// Unit is the resolution of a datetime64 column.
type Unit uint8

const (
	Day Unit = iota
	Nanosecond
)

func (u Unit) String() string {
	if u == Day {
		return "D"
	}
	return "ns"
}

// Datetime64 is a datetime cell produced in array-backed mode.
type Datetime64 struct {
	Value int64
	Unit  Unit
}

func (d Datetime64) String() string {
	if d.Value == NaT {
		return "NaT"
	}
	return fmt.Sprintf("%d[%s]", d.Value, d.Unit)
}

// MarshalJSON emits the raw count, or null for NaT.
func (d Datetime64) MarshalJSON() ([]byte, error) {
	if d.Value == NaT {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, d.Value, 10), nil
}

// Column is one dense output buffer. Exactly one of the value slices is
// populated, matching Kind.
type Column struct {
	Kind     Kind
	Unit     Unit
	Int64s   []int64
	Float64s []float64
	Bools    []byte
	Nulls    *roaring.Bitmap

	raw []byte
}

// Len returns the number of slots.
func (c *Column) Len() int {
	switch c.Kind {
	case KindFloat64:
		return len(c.Float64s)
	case KindBool:
		return len(c.Bools)
	default:
		return len(c.Int64s)
	}
}

// IsNull reports whether slot i was written as null.
func (c *Column) IsNull(i int) bool {
	return c.Nulls.Contains(uint32(i))
}

// SetInt64 stores v at slot i.
func (c *Column) SetInt64(i int, v int64) {
	c.Int64s[i] = v
	c.Nulls.Remove(uint32(i))
}

// SetFloat64 stores v at slot i.
func (c *Column) SetFloat64(i int, v float64) {
	c.Float64s[i] = v
	c.Nulls.Remove(uint32(i))
}

// SetBool stores v at slot i.
func (c *Column) SetBool(i int, v bool) {
	var b byte
	if v {
		b = 1
	}
	c.Bools[i] = b
	c.Nulls.Remove(uint32(i))
}

// SetNull marks slot i null and writes the kind's sentinel.
func (c *Column) SetNull(i int) {
	switch c.Kind {
	case KindInt64:
		c.Int64s[i] = 0
	case KindFloat64:
		c.Float64s[i] = math.NaN()
	case KindBool:
		c.Bools[i] = 0
	case KindDatetime64:
		c.Int64s[i] = NaT
	}
	c.Nulls.Add(uint32(i))
}

// NullCount returns the number of null slots.
func (c *Column) NullCount() int {
	return int(c.Nulls.GetCardinality())
}
