// Package fixtures builds metadata-annotated Arrow batches for tests and
// sample files.
package fixtures

import (
	"fmt"
	"math/big"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/decimal128"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

// Column pairs a field with its array.
type Column struct {
	Field arrow.Field
	Array arrow.Array
}

// Meta builds field metadata with the given logicalType followed by
// key/value pairs.
func Meta(logicalType string, kv ...string) arrow.Metadata {
	if len(kv)%2 != 0 {
		panic(fmt.Sprintf("fixtures: odd key/value count %d", len(kv)))
	}
	keys := []string{"logicalType"}
	values := []string{logicalType}
	for i := 0; i < len(kv); i += 2 {
		keys = append(keys, kv[i])
		values = append(values, kv[i+1])
	}
	return arrow.NewMetadata(keys, values)
}

// Col builds a column whose field type is taken from arr.
func Col(name string, arr arrow.Array, md arrow.Metadata) Column {
	return Column{
		Field: arrow.Field{Name: name, Type: arr.DataType(), Nullable: true, Metadata: md},
		Array: arr,
	}
}

// Batch assembles a record from cols and releases the caller's references to
// the arrays. All columns must have the same length.
func Batch(cols ...Column) arrow.Record {
	fields := make([]arrow.Field, len(cols))
	arrays := make([]arrow.Array, len(cols))
	var rows int64
	for i, c := range cols {
		fields[i] = c.Field
		arrays[i] = c.Array
		rows = int64(c.Array.Len())
	}
	rec := array.NewRecord(arrow.NewSchema(fields, nil), arrays, rows)
	for _, a := range arrays {
		a.Release()
	}
	return rec
}

// Int64s builds an int64 array. valid may be nil for all-valid.
func Int64s(mem memory.Allocator, vals []int64, valid []bool) arrow.Array {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// Int32s builds an int32 array.
func Int32s(mem memory.Allocator, vals []int32, valid []bool) arrow.Array {
	b := array.NewInt32Builder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// Int16s builds an int16 array.
func Int16s(mem memory.Allocator, vals []int16, valid []bool) arrow.Array {
	b := array.NewInt16Builder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// Int8s builds an int8 array.
func Int8s(mem memory.Allocator, vals []int8, valid []bool) arrow.Array {
	b := array.NewInt8Builder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// Float64s builds a float64 array.
func Float64s(mem memory.Allocator, vals []float64, valid []bool) arrow.Array {
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// Bools builds a boolean array.
func Bools(mem memory.Allocator, vals []bool, valid []bool) arrow.Array {
	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// Strings builds a utf8 array.
func Strings(mem memory.Allocator, vals []string, valid []bool) arrow.Array {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// Binaries builds a binary array.
func Binaries(mem memory.Allocator, vals [][]byte, valid []bool) arrow.Array {
	b := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// Date32s builds a date32 array of days since the epoch.
func Date32s(mem memory.Allocator, days []int32, valid []bool) arrow.Array {
	vals := make([]arrow.Date32, len(days))
	for i, d := range days {
		vals[i] = arrow.Date32(d)
	}
	b := array.NewDate32Builder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// Decimals builds a decimal128 array from unscaled values written as
// base-10 strings.
func Decimals(mem memory.Allocator, precision, scale int32, unscaled []string, valid []bool) arrow.Array {
	vals := make([]decimal128.Num, len(unscaled))
	for i, s := range unscaled {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			panic(fmt.Sprintf("fixtures: bad decimal %q", s))
		}
		vals[i] = decimal128.FromBigInt(n)
	}
	b := array.NewDecimal128Builder(mem, &arrow.Decimal128Type{Precision: precision, Scale: scale})
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// Struct builds a struct array of integer children. fields[i] holds the
// values of child i; children are converted to the child's declared width.
func Struct(mem memory.Allocator, typ *arrow.StructType, valid []bool, fields ...[]int64) arrow.Array {
	if len(fields) != len(typ.Fields()) {
		panic(fmt.Sprintf("fixtures: %d value slices for %d fields", len(fields), len(typ.Fields())))
	}
	b := array.NewStructBuilder(mem, typ)
	defer b.Release()

	rows := 0
	if len(fields) > 0 {
		rows = len(fields[0])
	}
	for r := 0; r < rows; r++ {
		b.Append(valid == nil || valid[r])
		for f := range fields {
			v := fields[f][r]
			switch fb := b.FieldBuilder(f).(type) {
			case *array.Int64Builder:
				fb.Append(v)
			case *array.Int32Builder:
				fb.Append(int32(v))
			case *array.Int16Builder:
				fb.Append(int16(v))
			case *array.Int8Builder:
				fb.Append(int8(v))
			default:
				panic(fmt.Sprintf("fixtures: unsupported struct child %T", fb))
			}
		}
	}
	return b.NewArray()
}

// Common struct layouts for multi-field timestamps.
var (
	EpochField    = arrow.Field{Name: "epoch", Type: arrow.PrimitiveTypes.Int64}
	FractionField = arrow.Field{Name: "fraction", Type: arrow.PrimitiveTypes.Int32}
	TimezoneField = arrow.Field{Name: "timezone", Type: arrow.PrimitiveTypes.Int32}

	TwoFieldTimestamp     = arrow.StructOf(EpochField, FractionField)
	TwoFieldTimestampTZ   = arrow.StructOf(EpochField, TimezoneField)
	ThreeFieldTimestampTZ = arrow.StructOf(EpochField, FractionField, TimezoneField)
)
