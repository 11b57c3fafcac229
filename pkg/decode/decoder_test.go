package decode

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/logflow/arrowrows/internal/fixtures"
	"github.com/logflow/arrowrows/pkg/dense"
)

func build(t *testing.T, f *Factory, arr arrow.Array, md arrow.Metadata) *Decoder {
	t.Helper()
	field := arrow.Field{Name: "c", Type: arr.DataType(), Nullable: true, Metadata: md}
	dec, err := f.Build(0, field, arr, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return dec
}

func TestDecoder_DecimalScales(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tests := []struct {
		name  string
		build func() arrow.Array
		scale string
		want  string
	}{
		{"int scale 1", func() arrow.Array { return fixtures.Int64s(mem, []int64{-15}, nil) }, "1", "-1.5"},
		{"int scale 9", func() arrow.Array { return fixtures.Int64s(mem, []int64{1234567890}, nil) }, "9", "1.234567890"},
		{"int scale 37", func() arrow.Array { return fixtures.Int64s(mem, []int64{5}, nil) }, "37", "0." + strings.Repeat("0", 36) + "5"},
		{"int below one", func() arrow.Array { return fixtures.Int32s(mem, []int32{-7}, nil) }, "3", "-0.007"},
		{"decimal128 scale 0", func() arrow.Array { return fixtures.Decimals(mem, 38, 0, []string{"-99"}, nil) }, "0", "-99"},
		{"decimal128 scale 1", func() arrow.Array { return fixtures.Decimals(mem, 38, 1, []string{"10"}, nil) }, "1", "1.0"},
		{"decimal128 scale 9", func() arrow.Array {
			return fixtures.Decimals(mem, 38, 9, []string{"98765432109876543210"}, nil)
		}, "9", "98765432109.876543210"},
		{"decimal128 scale 37", func() arrow.Array {
			return fixtures.Decimals(mem, 38, 37, []string{"12345678901234567890123456789012345678"}, nil)
		}, "37", "1.2345678901234567890123456789012345678"},
	}

	f := NewFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := tt.build()
			defer arr.Release()
			dec := build(t, f, arr, fixtures.Meta("FIXED", "scale", tt.scale, "precision", "38"))

			v, ok := dec.Decode(0).(Decimal)
			if !ok {
				t.Fatalf("Decode(0) = %T, want Decimal", dec.Decode(0))
			}
			if v.String() != tt.want {
				t.Errorf("String() = %s, want %s", v, tt.want)
			}
			if int(v.Scale) != dec.Scale() {
				t.Errorf("value scale = %d, want %d", v.Scale, dec.Scale())
			}
		})
	}
}

func TestDecoder_IntScaleZero(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	arr := fixtures.Int16s(mem, []int16{-32768, 42}, nil)
	defer arr.Release()
	dec := build(t, NewFactory(), arr, fixtures.Meta("FIXED", "scale", "0"))

	if got := dec.Decode(0); got != int64(-32768) {
		t.Errorf("Decode(0) = %v (%T), want int64 -32768", got, got)
	}
	if got := dec.Decode(1); got != int64(42) {
		t.Errorf("Decode(1) = %v (%T), want int64 42", got, got)
	}
}

// Values hidden under null slots must never surface.
func TestDecoder_NullsIgnorePayload(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	valid := []bool{true, false, true}
	tests := []struct {
		name  string
		build func() arrow.Array
		md    arrow.Metadata
	}{
		{"fixed", func() arrow.Array { return fixtures.Int64s(mem, []int64{1, 999, 3}, valid) }, fixtures.Meta("FIXED", "scale", "2")},
		{"real", func() arrow.Array { return fixtures.Float64s(mem, []float64{1, 999, 3}, valid) }, fixtures.Meta("REAL")},
		{"boolean", func() arrow.Array { return fixtures.Bools(mem, []bool{true, true, false}, valid) }, fixtures.Meta("BOOLEAN")},
		{"text", func() arrow.Array { return fixtures.Strings(mem, []string{"a", "garbage", "c"}, valid) }, fixtures.Meta("TEXT")},
		{"binary", func() arrow.Array { return fixtures.Binaries(mem, [][]byte{{1}, {9, 9}, {3}}, valid) }, fixtures.Meta("BINARY")},
		{"date", func() arrow.Array { return fixtures.Date32s(mem, []int32{1, 999, 3}, valid) }, fixtures.Meta("DATE")},
		{"time", func() arrow.Array { return fixtures.Int64s(mem, []int64{1, 999, 3}, valid) }, fixtures.Meta("TIME")},
		{"ntz two field", func() arrow.Array {
			return fixtures.Struct(mem, fixtures.TwoFieldTimestamp, valid, []int64{1, 999, 3}, []int64{0, 5, 0})
		}, fixtures.Meta("TIMESTAMP_NTZ")},
		{"tz three field", func() arrow.Array {
			return fixtures.Struct(mem, fixtures.ThreeFieldTimestampTZ, valid, []int64{1, 999, 3}, []int64{0, 5, 0}, []int64{1440, 9, 1440})
		}, fixtures.Meta("TIMESTAMP_TZ", "byteLength", "16")},
	}

	f := NewFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := tt.build()
			defer arr.Release()
			dec := build(t, f, arr, tt.md)

			if dec.Decode(0) == nil || dec.Decode(2) == nil {
				t.Error("valid rows decoded as nil")
			}
			if got := dec.Decode(1); got != nil {
				t.Errorf("Decode(1) = %v, want nil", got)
			}
		})
	}
}

func TestDecoder_TimestampLayoutsAgree(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	// scale 3: 1700000000.123 and -0.001
	units := []int64{1700000000123, -1}
	epochs := []int64{1700000000, -1}
	fractions := []int64{123000000, 999000000}

	for _, lt := range []string{"TIMESTAMP_NTZ", "TIMESTAMP_LTZ"} {
		t.Run(lt, func(t *testing.T) {
			one := fixtures.Int64s(mem, units, nil)
			defer one.Release()
			two := fixtures.Struct(mem, fixtures.TwoFieldTimestamp, nil, epochs, fractions)
			defer two.Release()

			md := fixtures.Meta(lt, "scale", "3")
			a := build(t, NewFactory(), one, md)
			b := build(t, NewFactory(), two, md)

			for row := range units {
				va, vb := a.Decode(row), b.Decode(row)
				if va != vb {
					t.Errorf("row %d: one-field %v != two-field %v", row, va, vb)
				}
			}

			var in Instant
			switch v := a.Decode(1).(type) {
			case TimestampNTZ:
				in = v.Instant
			case TimestampLTZ:
				in = v.Instant
			default:
				t.Fatalf("Decode(1) = %T", v)
			}
			if in.Seconds != -1 || in.Nanos != 999000000 {
				t.Errorf("instant = %+v, want {-1 999000000}", in)
			}
		})
	}
}

func TestDecoder_TimestampTZPreservesOffset(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tz := []int64{TZOffsetBias + 60, TZOffsetBias - 330}
	two := fixtures.Struct(mem, fixtures.TwoFieldTimestampTZ, nil, []int64{1700000000, 1700000000}, tz)
	defer two.Release()
	three := fixtures.Struct(mem, fixtures.ThreeFieldTimestampTZ, nil,
		[]int64{1700000000, 1700000000}, []int64{0, 0}, tz)
	defer three.Release()

	a := build(t, NewFactory(), two, fixtures.Meta("TIMESTAMP_TZ", "scale", "3", "byteLength", "8"))
	b := build(t, NewFactory(), three, fixtures.Meta("TIMESTAMP_TZ", "scale", "3", "byteLength", "16"))

	wantOffsets := []int{60, -330}
	wantStrings := []string{
		"2023-11-14 23:13:20.000 +01:00",
		"2023-11-14 16:43:20.000 -05:30",
	}
	for row := range tz {
		va := a.Decode(row).(TimestampTZ)
		vb := b.Decode(row).(TimestampTZ)
		if va != vb {
			t.Errorf("row %d: %+v != %+v", row, va, vb)
		}
		if va.Offset != int32(tz[row]) {
			t.Errorf("row %d: Offset = %d, want stored %d", row, va.Offset, tz[row])
		}
		if va.UTCOffsetMinutes() != wantOffsets[row] {
			t.Errorf("row %d: UTCOffsetMinutes = %d, want %d", row, va.UTCOffsetMinutes(), wantOffsets[row])
		}
		if va.String() != wantStrings[row] {
			t.Errorf("row %d: String = %q, want %q", row, va.String(), wantStrings[row])
		}
		if !va.Time().Equal(va.Instant.Time()) {
			t.Errorf("row %d: zoned time denotes a different instant", row)
		}
	}
}

func TestDecoder_TimestampTZTwoFieldEpochIsSeconds(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	arr := fixtures.Struct(mem, fixtures.TwoFieldTimestampTZ, nil, []int64{1700000000}, []int64{TZOffsetBias})
	defer arr.Release()

	want := time.Unix(1700000000, 0).UTC()
	for _, md := range []arrow.Metadata{
		fixtures.Meta("TIMESTAMP_TZ"),
		fixtures.Meta("TIMESTAMP_TZ", "scale", "0"),
		fixtures.Meta("TIMESTAMP_TZ", "scale", "3", "byteLength", "8"),
		fixtures.Meta("TIMESTAMP_TZ", "scale", "9", "byteLength", "8"),
	} {
		v := build(t, NewFactory(), arr, md).Decode(0).(TimestampTZ)
		if !v.Instant.Time().Equal(want) || v.Nanos != 0 {
			t.Errorf("%v: instant = %s, want %s", md, v.Instant.Time(), want)
		}
		if v.UTCOffsetMinutes() != 0 {
			t.Errorf("%v: offset = %d, want 0", md, v.UTCOffsetMinutes())
		}
	}
}

func TestDecoder_TextAndBinaryAreCopies(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	bin := fixtures.Binaries(mem, [][]byte{[]byte("abc")}, nil)
	defer bin.Release()
	dec := build(t, NewFactory(), bin, fixtures.Meta("BINARY"))

	first := dec.Decode(0).([]byte)
	first[0] = 'z'
	if again := dec.Decode(0).([]byte); string(again) != "abc" {
		t.Errorf("column was mutated through a decoded value: %q", again)
	}

	text := fixtures.Strings(mem, []string{"héllo", "a\xffb", ""}, nil)
	defer text.Release()
	tdec := build(t, NewFactory(), text, fixtures.Meta("TEXT"))

	if got := tdec.Decode(0); got != "héllo" {
		t.Errorf("Decode(0) = %q", got)
	}
	if got := tdec.Decode(1); got != "a\uFFFDb" {
		t.Errorf("Decode(1) = %q, want replacement character", got)
	}
	if got := tdec.Decode(2); got != "" {
		t.Errorf("Decode(2) = %q, want empty string", got)
	}
}

func TestDecoder_TimeAndDate(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	times := fixtures.Int32s(mem, []int32{3723456}, nil)
	defer times.Release()
	dates := fixtures.Date32s(mem, []int32{19000, -1}, nil)
	defer dates.Release()

	tdec := build(t, NewFactory(), times, fixtures.Meta("TIME", "scale", "3"))
	tv := tdec.Decode(0).(TimeOfDay)
	if tv.String() != "01:02:03.456" {
		t.Errorf("TIME = %s, want 01:02:03.456", tv)
	}
	if tv.Nanos() != 3723456000000 {
		t.Errorf("Nanos = %d", tv.Nanos())
	}

	ddec := build(t, NewFactory(), dates, fixtures.Meta("DATE"))
	if got := ddec.Decode(0).(Date).String(); got != "2022-01-08" {
		t.Errorf("DATE = %s, want 2022-01-08", got)
	}
	if got := ddec.Decode(1).(Date).String(); got != "1969-12-31" {
		t.Errorf("DATE = %s, want 1969-12-31", got)
	}
}

func TestDecoder_ArrayBacked(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	arena := dense.NewArena(mem)
	defer arena.Release()
	f := NewFactory(WithOutputMode(ArrayBacked), WithHostContext(arena))

	valid := []bool{true, false, true}
	ints := fixtures.Int64s(mem, []int64{1, 999, 3}, valid)
	defer ints.Release()
	scaled := fixtures.Int64s(mem, []int64{150, 999, -25}, valid)
	defer scaled.Release()
	floats := fixtures.Float64s(mem, []float64{0.5, 999, 2.5}, valid)
	defer floats.Release()
	bools := fixtures.Bools(mem, []bool{true, true, false}, valid)
	defer bools.Release()
	dates := fixtures.Date32s(mem, []int32{1, 999, 2}, valid)
	defer dates.Release()
	stamps := fixtures.Struct(mem, fixtures.TwoFieldTimestamp, valid, []int64{1, 999, 2}, []int64{5, 0, 0})
	defer stamps.Release()
	decimals := fixtures.Decimals(mem, 10, 2, []string{"1", "2", "3"}, nil)
	defer decimals.Release()

	cases := []struct {
		arr  arrow.Array
		md   arrow.Metadata
		kind Kind
	}{
		{ints, fixtures.Meta("FIXED"), KindDenseInt},
		{scaled, fixtures.Meta("FIXED", "scale", "2"), KindDenseDecimal},
		{floats, fixtures.Meta("REAL"), KindDenseFloat},
		{bools, fixtures.Meta("BOOLEAN"), KindDenseBoolean},
		{dates, fixtures.Meta("DATE"), KindDenseDate},
		{stamps, fixtures.Meta("TIMESTAMP_NTZ"), KindDenseTimestampNTZTwoField},
	}

	decs := make([]*Decoder, len(cases))
	for i, c := range cases {
		field := arrow.Field{Name: "c", Type: c.arr.DataType(), Nullable: true, Metadata: c.md}
		dec, err := f.Build(i, field, c.arr, 0)
		if err != nil {
			t.Fatalf("Build(%d) failed: %v", i, err)
		}
		if dec.Kind() != c.kind {
			t.Fatalf("Build(%d) kind = %s, want %s", i, dec.Kind(), c.kind)
		}
		for row := 0; row < 3; row++ {
			dec.Decode(row)
		}
		decs[i] = dec
	}

	for i, dec := range decs {
		out := dec.Dense()
		if out == nil || out.Len() != 3 {
			t.Fatalf("column %d: missing dense buffer", i)
		}
		if !out.IsNull(1) || out.NullCount() != 1 {
			t.Errorf("column %d: null mask wrong", i)
		}
		if arena.Column(dense.Slot{Batch: 0, Column: i}) != out {
			t.Errorf("column %d: buffer not owned by the host context", i)
		}
	}

	if got := decs[0].Dense().Int64s; got[0] != 1 || got[1] != 0 || got[2] != 3 {
		t.Errorf("int buffer = %v", got)
	}
	if got := decs[1].Dense().Float64s; got[0] != 1.5 || !math.IsNaN(got[1]) || got[2] != -0.25 {
		t.Errorf("decimal buffer = %v", got)
	}
	if got := decs[2].Dense().Float64s; got[0] != 0.5 || !math.IsNaN(got[1]) || got[2] != 2.5 {
		t.Errorf("float buffer = %v", got)
	}
	if got := decs[3].Dense().Bools; got[0] != 1 || got[1] != 0 || got[2] != 0 {
		t.Errorf("bool buffer = %v", got)
	}
	if out := decs[4].Dense(); out.Unit != dense.Day || out.Int64s[1] != dense.NaT || out.Int64s[2] != 2 {
		t.Errorf("date buffer = %v unit %s", out.Int64s, out.Unit)
	}
	if out := decs[5].Dense(); out.Unit != dense.Nanosecond || out.Int64s[0] != 1000000005 || out.Int64s[1] != dense.NaT {
		t.Errorf("timestamp buffer = %v unit %s", out.Int64s, out.Unit)
	}
	if got := decs[5].Decode(0); got != (dense.Datetime64{Value: 1000000005, Unit: dense.Nanosecond}) {
		t.Errorf("Decode(0) = %v", got)
	}

	// Types without a dense representation keep their standard decoder.
	field := arrow.Field{Name: "d", Type: decimals.DataType(), Metadata: fixtures.Meta("FIXED")}
	dec, err := f.Build(9, field, decimals, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if dec.Kind() != KindDecimalFromDecimal128 || dec.Dense() != nil {
		t.Errorf("decimal128 in array mode = %s", dec.Kind())
	}
}

func TestKind_String(t *testing.T) {
	for k := KindInt; k < numKinds; k++ {
		if k.String() == "" || k.String() == "Invalid" {
			t.Errorf("kind %d has no name", k)
		}
	}
	if Kind(200).String() != "Invalid" {
		t.Error("out-of-range kind should be Invalid")
	}
	if KindText.ArrayBacked() || !KindDenseDate.ArrayBacked() {
		t.Error("ArrayBacked misclassifies kinds")
	}
}

func TestDecoder_ArrayBackedTimestampOutOfRange(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	arena := dense.NewArena(mem)
	defer arena.Release()
	f := NewFactory(WithOutputMode(ArrayBacked), WithHostContext(arena))

	// Year 2286 and year 1600 do not fit in int64 nanoseconds.
	arr := fixtures.Int64s(mem, []int64{1700000000, 10_000_000_000, -11_000_000_000}, nil)
	defer arr.Release()
	dec := build(t, f, arr, fixtures.Meta("TIMESTAMP_NTZ", "scale", "0"))

	if v, ok := dec.Decode(0).(dense.Datetime64); !ok || v.Value != 1700000000*int64(time.Second) {
		t.Errorf("Decode(0) = %v", dec.Decode(0))
	}
	for _, row := range []int{1, 2} {
		if v := dec.Decode(row); v != nil {
			t.Errorf("Decode(%d) = %v, want nil", row, v)
		}
		if out := dec.Dense(); !out.IsNull(row) || out.Int64s[row] != dense.NaT {
			t.Errorf("row %d: dense cell = %d null=%v, want NaT", row, out.Int64s[row], out.IsNull(row))
		}
	}
}

func TestInstant_UnixNano(t *testing.T) {
	tests := []struct {
		in     Instant
		want   int64
		wantOK bool
	}{
		{Instant{Seconds: 0, Nanos: 1}, 1, true},
		{Instant{Seconds: -1, Nanos: 999999999}, -1, true},
		{Instant{Seconds: 9223372036, Nanos: 854775807}, math.MaxInt64, true},
		{Instant{Seconds: 9223372036, Nanos: 854775808}, 0, false},
		{Instant{Seconds: -9223372036, Nanos: 0}, -9223372036000000000, true},
		{Instant{Seconds: -9223372037, Nanos: 0}, 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.in.UnixNano()
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("%+v.UnixNano() = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
