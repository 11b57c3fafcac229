package decode

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/decimal128"

	"github.com/logflow/arrowrows/pkg/dense"
	"github.com/logflow/arrowrows/pkg/logical"
)

// intColumn is a width-erased view over an integer payload buffer.
type intColumn struct {
	i8  []int8
	i16 []int16
	i32 []int32
	i64 []int64
	d32 []arrow.Date32
	w   int8
}

func newIntColumn(arr arrow.Array) (intColumn, bool) {
	switch a := arr.(type) {
	case *array.Int8:
		return intColumn{i8: a.Int8Values(), w: 1}, true
	case *array.Int16:
		return intColumn{i16: a.Int16Values(), w: 2}, true
	case *array.Int32:
		return intColumn{i32: a.Int32Values(), w: 4}, true
	case *array.Int64:
		return intColumn{i64: a.Int64Values(), w: 8}, true
	case *array.Date32:
		return intColumn{d32: a.Date32Values(), w: -4}, true
	}
	return intColumn{}, false
}

func (c intColumn) at(i int) int64 {
	switch c.w {
	case 1:
		return int64(c.i8[i])
	case 2:
		return int64(c.i16[i])
	case 4:
		return int64(c.i32[i])
	case -4:
		return int64(c.d32[i])
	default:
		return c.i64[i]
	}
}

type textValues interface {
	Value(i int) string
}

type binaryValues interface {
	Value(i int) []byte
}

// Decoder turns one row of one column into a value. It is bound to a
// single batch and never mutates the column it reads.
type Decoder struct {
	kind      Kind
	logical   logical.Type
	index     int
	name      string
	column    arrow.Array
	precision int32
	scale     int32

	ints     intColumn
	epoch    intColumn
	fraction intColumn
	tz       intColumn
	f64      []float64
	f32      []float32
	bools    *array.Boolean
	decimals *array.Decimal128
	text     textValues
	binary   binaryValues

	out *dense.Column
}

// Kind returns the variant tag.
func (d *Decoder) Kind() Kind { return d.kind }

// Logical returns the resolved logical type.
func (d *Decoder) Logical() logical.Type { return d.logical }

// Index returns the column position within its batch.
func (d *Decoder) Index() int { return d.index }

// Name returns the column name.
func (d *Decoder) Name() string { return d.name }

// PhysicalType returns the Arrow type of the bound column.
func (d *Decoder) PhysicalType() arrow.DataType { return d.column.DataType() }

// Scale returns the decimal or sub-second scale.
func (d *Decoder) Scale() int { return int(d.scale) }

// Precision returns the decimal precision, or 0 for non-decimal kinds.
func (d *Decoder) Precision() int { return int(d.precision) }

// Len returns the number of rows of the bound column.
func (d *Decoder) Len() int { return d.column.Len() }

// Dense returns the output buffer of an array-backed decoder, else nil.
func (d *Decoder) Dense() *dense.Column { return d.out }

// Decode returns the value at row, or nil when the row is null. Array-backed
// kinds also store the cell into slot row of their dense buffer.
func (d *Decoder) Decode(row int) any {
	if d.column.IsNull(row) {
		if d.out != nil {
			d.out.SetNull(row)
		}
		return nil
	}

	scale := int(d.scale)
	switch d.kind {
	case KindInt:
		return d.ints.at(row)
	case KindDecimalFromInt:
		return Decimal{Unscaled: decimal128.FromI64(d.ints.at(row)), Precision: d.precision, Scale: d.scale}
	case KindDecimalFromDecimal128:
		return Decimal{Unscaled: d.decimals.Value(row), Precision: d.precision, Scale: d.scale}
	case KindFloat:
		return d.float(row)
	case KindBoolean:
		return d.bools.Value(row)
	case KindText:
		return copyText(d.text.Value(row))
	case KindBinary:
		return copyBytes(d.binary.Value(row))
	case KindDate:
		return Date{Days: int32(d.ints.at(row))}
	case KindTime:
		return TimeOfDay{Units: d.ints.at(row), Scale: scale}
	case KindTimestampNTZOneField:
		return TimestampNTZ{Instant: instantFromUnits(d.ints.at(row), scale), Scale: scale}
	case KindTimestampNTZTwoField:
		return TimestampNTZ{Instant: instantFromParts(d.epoch.at(row), d.fraction.at(row)), Scale: scale}
	case KindTimestampLTZOneField:
		return TimestampLTZ{Instant: instantFromUnits(d.ints.at(row), scale), Scale: scale}
	case KindTimestampLTZTwoField:
		return TimestampLTZ{Instant: instantFromParts(d.epoch.at(row), d.fraction.at(row)), Scale: scale}
	case KindTimestampTZTwoField:
		return TimestampTZ{
			Instant: Instant{Seconds: d.epoch.at(row)},
			Offset:  int32(d.tz.at(row)),
			Scale:   scale,
		}
	case KindTimestampTZThreeField:
		return TimestampTZ{
			Instant: instantFromParts(d.epoch.at(row), d.fraction.at(row)),
			Offset:  int32(d.tz.at(row)),
			Scale:   scale,
		}

	case KindDenseInt:
		v := d.ints.at(row)
		d.out.SetInt64(row, v)
		return v
	case KindDenseDecimal:
		v := float64(d.ints.at(row)) / math.Pow10(scale)
		d.out.SetFloat64(row, v)
		return v
	case KindDenseFloat:
		v := d.float(row)
		d.out.SetFloat64(row, v)
		return v
	case KindDenseBoolean:
		v := d.bools.Value(row)
		d.out.SetBool(row, v)
		return v
	case KindDenseDate:
		v := d.ints.at(row)
		d.out.SetInt64(row, v)
		return dense.Datetime64{Value: v, Unit: dense.Day}
	case KindDenseTimestampNTZOneField, KindDenseTimestampLTZOneField:
		return d.datetime(row, instantFromUnits(d.ints.at(row), scale))
	case KindDenseTimestampNTZTwoField, KindDenseTimestampLTZTwoField:
		return d.datetime(row, instantFromParts(d.epoch.at(row), d.fraction.at(row)))
	}
	return nil
}

func (d *Decoder) float(row int) float64 {
	if d.f32 != nil {
		return float64(d.f32[row])
	}
	return d.f64[row]
}

// datetime stores in as nanoseconds. Instants that do not fit become NaT
// and decode as null.
func (d *Decoder) datetime(row int, in Instant) any {
	ns, ok := in.UnixNano()
	if !ok {
		d.out.SetNull(row)
		return nil
	}
	d.out.SetInt64(row, ns)
	return dense.Datetime64{Value: ns, Unit: dense.Nanosecond}
}

// copyText detaches s from the Arrow buffer it aliases. Invalid UTF-8 is
// replaced with U+FFFD.
func copyText(s string) string {
	if utf8.ValidString(s) {
		return strings.Clone(s)
	}
	return strings.ToValidUTF8(s, "\uFFFD")
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
