// Package decode selects and runs the per-column decoders that turn Arrow
// arrays annotated with logical-type metadata into row values.
//
// A Factory inspects one column at a time: it resolves the logicalType
// metadata, branches on the physical storage the producer chose, parses
// scale/precision/byteLength and returns exactly one Decoder or a
// *errors.ConversionError. Rosters are all-or-nothing per batch.
package decode

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/rs/zerolog"

	"github.com/logflow/arrowrows/pkg/dense"
	cerrors "github.com/logflow/arrowrows/pkg/errors"
	"github.com/logflow/arrowrows/pkg/logical"
)

// OutputMode selects standard per-cell values or array-backed output.
type OutputMode uint8

const (
	Standard OutputMode = iota
	ArrayBacked
)

func (m OutputMode) String() string {
	switch m {
	case Standard:
		return "standard"
	case ArrayBacked:
		return "array"
	default:
		return "unknown"
	}
}

// ParseOutputMode parses "standard" or "array".
func ParseOutputMode(s string) (OutputMode, error) {
	switch s {
	case "", "standard":
		return Standard, nil
	case "array", "array-backed", "numpy":
		return ArrayBacked, nil
	default:
		return Standard, fmt.Errorf("unknown output mode %q", s)
	}
}

// Factory builds decoders. It is safe to share between goroutines as long
// as its HostContext is. Array-backed buffers are keyed by owner, batch and
// column, so iterators sharing an array-backed factory must build their
// rosters under distinct owners (see WithOwner).
type Factory struct {
	mode   OutputMode
	host   dense.HostContext
	logger zerolog.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithOutputMode sets the output mode for every column built.
func WithOutputMode(m OutputMode) Option {
	return func(f *Factory) {
		f.mode = m
	}
}

// WithHostContext sets where array-backed decoders allocate their buffers.
func WithHostContext(h dense.HostContext) Option {
	return func(f *Factory) {
		f.host = h
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Factory) {
		f.logger = l
	}
}

// NewFactory creates a factory. Array-backed mode without a host context
// allocates into a private dense.Arena.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		mode:   Standard,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.mode == ArrayBacked && f.host == nil {
		f.host = dense.NewArena(nil)
	}
	return f
}

// Mode returns the output mode.
func (f *Factory) Mode() OutputMode { return f.mode }

// Host returns the host context, nil in standard mode unless one was set.
func (f *Factory) Host() dense.HostContext { return f.host }

// BuildOption tunes one Build call: a numeric metadata override or the
// owner of the dense buffer.
type BuildOption func(*buildParams)

type buildParams struct {
	owner      string
	scale      *int
	precision  *int
	byteLength *int
}

// WithOwner sets the owner recorded in the dense.Slot of array-backed
// buffers. Rosters of different owners never replace each other's buffers.
func WithOwner(id string) BuildOption {
	return func(p *buildParams) { p.owner = id }
}

// WithScale overrides the scale metadata.
func WithScale(n int) BuildOption {
	return func(p *buildParams) { p.scale = &n }
}

// WithPrecision overrides the precision metadata.
func WithPrecision(n int) BuildOption {
	return func(p *buildParams) { p.precision = &n }
}

// WithByteLength overrides the byteLength metadata.
func WithByteLength(n int) BuildOption {
	return func(p *buildParams) { p.byteLength = &n }
}

// Build returns the decoder for column index of batch. field supplies the
// name and metadata; col supplies the physical storage.
func (f *Factory) Build(index int, field arrow.Field, col arrow.Array, batch int, opts ...BuildOption) (*Decoder, error) {
	var p buildParams
	for _, opt := range opts {
		opt(&p)
	}

	name, _ := lookup(field.Metadata, MetaLogicalType)
	b := &builder{
		f:       f,
		batch:   batch,
		field:   field,
		col:     col,
		params:  p,
		logical: logical.Resolve(name),
		rawType: name,
		dec: &Decoder{
			index:  index,
			name:   field.Name,
			column: col,
		},
	}
	b.dec.logical = b.logical

	var err error
	switch lt := b.logical; {
	case lt == logical.Fixed:
		err = b.fixed()
	case lt.IsText():
		err = b.textual()
	case lt == logical.Boolean:
		err = b.boolean()
	case lt == logical.Real:
		err = b.real()
	case lt == logical.Date:
		err = b.date()
	case lt == logical.Binary:
		err = b.binary()
	case lt == logical.Time:
		err = b.time()
	case lt == logical.TimestampNTZ, lt == logical.TimestampLTZ:
		err = b.timestamp()
	case lt == logical.TimestampTZ:
		err = b.timestampTZ()
	default:
		err = b.fail(cerrors.CodeUnknownLogicalType, fmt.Sprintf("no decoding rule for logicalType %q", name))
	}
	if err != nil {
		return nil, err
	}

	f.logger.Trace().
		Int("batch", batch).
		Int("column", index).
		Str("name", field.Name).
		Str("logical", b.logical.String()).
		Str("physical", col.DataType().String()).
		Str("decoder", b.dec.kind.String()).
		Msg("decoder selected")
	return b.dec, nil
}

// BuildRoster builds a decoder for every column of rec. opts apply to every
// column. Any failure aborts the whole roster.
func (f *Factory) BuildRoster(rec arrow.Record, batch int, opts ...BuildOption) (*Roster, error) {
	var p buildParams
	for _, opt := range opts {
		opt(&p)
	}

	schema := rec.Schema()
	decoders := make([]*Decoder, rec.NumCols())
	for i := range decoders {
		dec, err := f.Build(i, schema.Field(i), rec.Column(i), batch, opts...)
		if err != nil {
			return nil, err
		}
		decoders[i] = dec
	}
	return &Roster{
		owner:    p.owner,
		batch:    batch,
		schema:   schema,
		rows:     int(rec.NumRows()),
		decoders: decoders,
	}, nil
}

// builder holds the state of one Build call.
type builder struct {
	f       *Factory
	batch   int
	field   arrow.Field
	col     arrow.Array
	params  buildParams
	logical logical.Type
	rawType string
	dec     *Decoder
}

func (b *builder) fail(code cerrors.Code, msg string) *cerrors.ConversionError {
	lt := b.logical.String()
	if b.logical == logical.Unknown && b.rawType != "" {
		lt = b.rawType
	}
	return cerrors.Conversion(code, b.dec.index, b.field.Name, lt, b.col.DataType().String(), msg)
}

func (b *builder) unsupported() error {
	return b.fail(cerrors.CodeUnsupportedEncoding,
		fmt.Sprintf("no %s decoder for physical type %s", b.logical, b.col.DataType()))
}

func (b *builder) param(key string, override *int) (int, bool, error) {
	v, found, err := param{key: key, override: override}.resolve(b.field.Metadata)
	if err != nil {
		return 0, found, b.fail(cerrors.CodeMetadataParse, err.Error())
	}
	return v, found, nil
}

func (b *builder) inRange(key string, v, lo, hi int) error {
	if err := checkRange(key, v, lo, hi); err != nil {
		return b.fail(cerrors.CodeMetadataParse, err.Error())
	}
	return nil
}

func (b *builder) arrayBacked() bool {
	return b.f.mode == ArrayBacked
}

// allocate attaches a dense buffer to an array-backed decoder.
func (b *builder) allocate(kind Kind, dk dense.Kind) error {
	slot := dense.Slot{Owner: b.params.owner, Batch: b.batch, Column: b.dec.index}
	out, err := b.f.host.Allocate(slot, dk, b.col.Len())
	if err != nil {
		return b.fail(cerrors.CodeAllocation, fmt.Sprintf("allocate %s buffer of %d elements", dk, b.col.Len())).WithCause(err)
	}
	b.dec.kind = kind
	b.dec.out = out
	return nil
}

func (b *builder) fixed() error {
	scale, hasScale, err := b.param(MetaScale, b.params.scale)
	if err != nil {
		return err
	}
	precision, hasPrecision, err := b.param(MetaPrecision, b.params.precision)
	if err != nil {
		return err
	}

	if dec, ok := b.col.(*array.Decimal128); ok {
		// Storage type parameters fill in for absent metadata.
		dt := dec.DataType().(*arrow.Decimal128Type)
		if !hasScale {
			scale = int(dt.Scale)
		}
		if !hasPrecision {
			precision = int(dt.Precision)
		}
		if err := b.decimalParams(scale, precision); err != nil {
			return err
		}
		b.dec.kind = KindDecimalFromDecimal128
		b.dec.decimals = dec
		return nil
	}

	ints, ok := newIntColumn(b.col)
	if !ok || ints.w < 0 {
		return b.unsupported()
	}
	if !hasPrecision {
		precision = defaultPrecision
	}
	if err := b.decimalParams(scale, precision); err != nil {
		return err
	}
	b.dec.ints = ints

	switch {
	case scale == 0 && b.arrayBacked():
		return b.allocate(KindDenseInt, dense.KindInt64)
	case scale == 0:
		b.dec.kind = KindInt
	case b.arrayBacked():
		return b.allocate(KindDenseDecimal, dense.KindFloat64)
	default:
		b.dec.kind = KindDecimalFromInt
	}
	return nil
}

func (b *builder) decimalParams(scale, precision int) error {
	if err := b.inRange(MetaPrecision, precision, 1, maxDecimalPrecision); err != nil {
		return err
	}
	if err := b.inRange(MetaScale, scale, 0, precision); err != nil {
		return err
	}
	b.dec.scale = int32(scale)
	b.dec.precision = int32(precision)
	return nil
}

func (b *builder) textual() error {
	switch a := b.col.(type) {
	case *array.String:
		b.dec.text = a
	case *array.LargeString:
		b.dec.text = a
	default:
		return b.unsupported()
	}
	b.dec.kind = KindText
	return nil
}

func (b *builder) binary() error {
	switch a := b.col.(type) {
	case *array.Binary:
		b.dec.binary = a
	case *array.LargeBinary:
		b.dec.binary = a
	case *array.FixedSizeBinary:
		b.dec.binary = a
	default:
		return b.unsupported()
	}
	b.dec.kind = KindBinary
	return nil
}

func (b *builder) boolean() error {
	bools, ok := b.col.(*array.Boolean)
	if !ok {
		return b.unsupported()
	}
	b.dec.bools = bools
	if b.arrayBacked() {
		return b.allocate(KindDenseBoolean, dense.KindBool)
	}
	b.dec.kind = KindBoolean
	return nil
}

func (b *builder) real() error {
	switch a := b.col.(type) {
	case *array.Float64:
		b.dec.f64 = a.Float64Values()
	case *array.Float32:
		b.dec.f32 = a.Float32Values()
	default:
		return b.unsupported()
	}
	if b.arrayBacked() {
		return b.allocate(KindDenseFloat, dense.KindFloat64)
	}
	b.dec.kind = KindFloat
	return nil
}

func (b *builder) date() error {
	ints, ok := newIntColumn(b.col)
	if !ok || (ints.w != 4 && ints.w != -4) {
		return b.unsupported()
	}
	b.dec.ints = ints
	if b.arrayBacked() {
		if err := b.allocate(KindDenseDate, dense.KindDatetime64); err != nil {
			return err
		}
		b.dec.out.Unit = dense.Day
		return nil
	}
	b.dec.kind = KindDate
	return nil
}

// temporalScale resolves the sub-second scale shared by TIME and the
// timestamp families.
func (b *builder) temporalScale() error {
	scale, found, err := b.param(MetaScale, b.params.scale)
	if err != nil {
		return err
	}
	if !found {
		scale = defaultTemporalScale
	}
	if err := b.inRange(MetaScale, scale, 0, maxTemporalScale); err != nil {
		return err
	}
	b.dec.scale = int32(scale)
	return nil
}

func (b *builder) time() error {
	if err := b.temporalScale(); err != nil {
		return err
	}
	ints, ok := newIntColumn(b.col)
	if !ok || (ints.w != 4 && ints.w != 8) {
		return b.unsupported()
	}
	b.dec.ints = ints
	b.dec.kind = KindTime
	return nil
}

// structFields binds the integer children of a struct column, in order.
func (b *builder) structFields(want int) ([]intColumn, error) {
	st, ok := b.col.(*array.Struct)
	if !ok || st.NumField() != want {
		return nil, b.unsupported()
	}
	out := make([]intColumn, want)
	for i := range out {
		c, ok := newIntColumn(st.Field(i))
		if !ok || c.w < 0 {
			return nil, b.fail(cerrors.CodeUnsupportedEncoding,
				fmt.Sprintf("struct field %d has type %s, want integer", i, st.Field(i).DataType()))
		}
		out[i] = c
	}
	return out, nil
}

func (b *builder) timestamp() error {
	if err := b.temporalScale(); err != nil {
		return err
	}

	ntz := b.logical == logical.TimestampNTZ
	switch b.col.DataType().ID() {
	case arrow.INT64:
		b.dec.ints, _ = newIntColumn(b.col)
		switch {
		case b.arrayBacked() && ntz:
			return b.allocate(KindDenseTimestampNTZOneField, dense.KindDatetime64)
		case b.arrayBacked():
			return b.allocate(KindDenseTimestampLTZOneField, dense.KindDatetime64)
		case ntz:
			b.dec.kind = KindTimestampNTZOneField
		default:
			b.dec.kind = KindTimestampLTZOneField
		}
		return nil

	case arrow.STRUCT:
		fields, err := b.structFields(2)
		if err != nil {
			return err
		}
		b.dec.epoch, b.dec.fraction = fields[0], fields[1]
		switch {
		case b.arrayBacked() && ntz:
			return b.allocate(KindDenseTimestampNTZTwoField, dense.KindDatetime64)
		case b.arrayBacked():
			return b.allocate(KindDenseTimestampLTZTwoField, dense.KindDatetime64)
		case ntz:
			b.dec.kind = KindTimestampNTZTwoField
		default:
			b.dec.kind = KindTimestampLTZTwoField
		}
		return nil
	}
	return b.unsupported()
}

func (b *builder) timestampTZ() error {
	if err := b.temporalScale(); err != nil {
		return err
	}

	st, ok := b.col.(*array.Struct)
	if !ok {
		return b.unsupported()
	}

	byteLength, found, err := b.param(MetaByteLength, b.params.byteLength)
	if err != nil {
		return err
	}
	if !found {
		switch st.NumField() {
		case 2:
			byteLength = 8
		case 3:
			byteLength = 16
		default:
			return b.unsupported()
		}
	}

	switch byteLength {
	case 8:
		fields, err := b.structFields(2)
		if err != nil {
			return err
		}
		b.dec.epoch, b.dec.tz = fields[0], fields[1]
		b.dec.kind = KindTimestampTZTwoField
	case 16:
		fields, err := b.structFields(3)
		if err != nil {
			return err
		}
		b.dec.epoch, b.dec.fraction, b.dec.tz = fields[0], fields[1], fields[2]
		b.dec.kind = KindTimestampTZThreeField
	default:
		return b.fail(cerrors.CodeMetadataParse, fmt.Sprintf("byteLength %d, want 8 or 16", byteLength))
	}
	return nil
}
