package rowiter

import (
	"github.com/apache/arrow/go/v14/arrow"

	"github.com/logflow/arrowrows/pkg/decode"
)

// Materializer assembles the decoded cells of one row into an R.
type Materializer[R any] interface {
	Materialize(r *decode.Roster, row int) R
}

// Tuple yields positional rows. Nulls stay in place as nil.
type Tuple struct{}

func (Tuple) Materialize(r *decode.Roster, row int) []any {
	out := make([]any, r.Len())
	for i := range out {
		out[i] = r.Decode(i, row)
	}
	return out
}

// Dict yields rows keyed by column name. Null cells are omitted; columns
// sharing a name keep the last non-null value.
type Dict struct{}

func (Dict) Materialize(r *decode.Roster, row int) map[string]any {
	out := make(map[string]any, r.Len())
	for i := 0; i < r.Len(); i++ {
		if v := r.Decode(i, row); v != nil {
			out[r.Decoder(i).Name()] = v
		}
	}
	return out
}

// NewTuple returns an iterator of positional rows.
func NewTuple(batches []arrow.Record, opts ...Option) *Iterator[[]any] {
	return New[[]any](batches, Tuple{}, opts...)
}

// NewDict returns an iterator of named rows.
func NewDict(batches []arrow.Record, opts ...Option) *Iterator[map[string]any] {
	return New[map[string]any](batches, Dict{}, opts...)
}
