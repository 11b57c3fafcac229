// Package rowiter walks an ordered sequence of Arrow record batches and
// yields one materialized row per step.
//
// An Iterator builds a decode.Roster lazily, once per batch, and never
// looks ahead. A roster failure is terminal: the error replaces the row and
// every later call returns it again.
package rowiter

import (
	"errors"
	"iter"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/logflow/arrowrows/pkg/decode"
)

// Done is returned by Next once every row has been yielded.
var Done = errors.New("rowiter: no more rows")

// State is the position of an Iterator in its lifecycle.
type State uint8

const (
	Fresh State = iota
	InBatch
	Exhausted
	Failed
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case InBatch:
		return "in-batch"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	default:
		return "invalid"
	}
}

// Iterator yields rows of type R. It is not safe for concurrent use.
type Iterator[R any] struct {
	batches  []arrow.Record
	m        Materializer[R]
	factory  *decode.Factory
	logger   zerolog.Logger
	session  string
	onRoster func(*decode.Roster)

	state  State
	batch  int
	row    int
	rows   int
	roster *decode.Roster
	err    error
}

// Option configures an Iterator.
type Option func(*options)

type options struct {
	factory  *decode.Factory
	logger   zerolog.Logger
	session  string
	onRoster func(*decode.Roster)
}

// WithFactory sets the decoder factory. The default is a standard-mode
// factory.
func WithFactory(f *decode.Factory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithSessionID tags diagnostics with id instead of a random one. The id
// also owns the iterator's array-backed buffers, so iterators sharing a
// factory need distinct ids.
func WithSessionID(id string) Option {
	return func(o *options) {
		o.session = id
	}
}

// WithOnRoster calls fn after each successful roster build.
func WithOnRoster(fn func(*decode.Roster)) Option {
	return func(o *options) {
		o.onRoster = fn
	}
}

// New creates an iterator over batches. The batches are borrowed and must
// stay alive until the iterator is exhausted.
func New[R any](batches []arrow.Record, m Materializer[R], opts ...Option) *Iterator[R] {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.factory == nil {
		o.factory = decode.NewFactory(decode.WithLogger(o.logger))
	}
	if o.session == "" {
		o.session = uuid.NewString()
	}
	return &Iterator[R]{
		batches:  batches,
		m:        m,
		factory:  o.factory,
		logger:   o.logger,
		session:  o.session,
		onRoster: o.onRoster,
		state:    Fresh,
		batch:    -1,
	}
}

// State returns the current state.
func (it *Iterator[R]) State() State { return it.state }

// SessionID returns the id used in diagnostics.
func (it *Iterator[R]) SessionID() string { return it.session }

// Batch returns the index of the current batch, -1 before the first.
func (it *Iterator[R]) Batch() int { return it.batch }

// Roster returns the decoders of the current batch, nil outside InBatch.
func (it *Iterator[R]) Roster() *decode.Roster { return it.roster }

// Next returns the next row. After the last row it returns Done; after a
// conversion failure it returns that error. Both are sticky.
func (it *Iterator[R]) Next() (R, error) {
	var zero R
	switch it.state {
	case Exhausted:
		return zero, Done
	case Failed:
		return zero, it.err
	}

	for it.row >= it.rows {
		if !it.advance() {
			if it.state == Failed {
				return zero, it.err
			}
			return zero, Done
		}
	}

	row := it.row
	it.row++
	return it.m.Materialize(it.roster, row), nil
}

// advance moves to the next non-empty batch and installs its roster.
func (it *Iterator[R]) advance() bool {
	it.roster = nil
	for {
		it.batch++
		if it.batch >= len(it.batches) {
			it.state = Exhausted
			it.rows, it.row = 0, 0
			it.logger.Debug().
				Str("session", it.session).
				Int("batches", len(it.batches)).
				Msg("exhausted")
			return false
		}
		rec := it.batches[it.batch]
		if rec.NumRows() == 0 {
			continue
		}

		roster, err := it.factory.BuildRoster(rec, it.batch, decode.WithOwner(it.session))
		if err != nil {
			it.state = Failed
			it.err = err
			return false
		}
		it.roster = roster
		it.rows = roster.NumRows()
		it.row = 0
		it.state = InBatch
		it.logger.Debug().
			Str("session", it.session).
			Int("batch", it.batch).
			Int("rows", it.rows).
			Int("columns", roster.Len()).
			Msg("roster rebuilt")
		if it.onRoster != nil {
			it.onRoster(roster)
		}
		return true
	}
}

// Rows returns a single-use sequence over the remaining rows. A conversion
// error is yielded once as the final element.
func (it *Iterator[R]) Rows() iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		for {
			row, err := it.Next()
			if errors.Is(err, Done) {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// Collect drains the iterator.
func (it *Iterator[R]) Collect() ([]R, error) {
	var out []R
	for row, err := range it.Rows() {
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
	return out, nil
}
