package decode

import "github.com/apache/arrow/go/v14/arrow"

// Roster is the set of decoders valid for exactly one batch.
type Roster struct {
	owner    string
	batch    int
	schema   *arrow.Schema
	rows     int
	decoders []*Decoder
}

// Owner returns the owner the roster's dense buffers were allocated under.
func (r *Roster) Owner() string { return r.owner }

// Batch returns the index of the batch the roster was built for.
func (r *Roster) Batch() int { return r.batch }

// Schema returns the batch schema.
func (r *Roster) Schema() *arrow.Schema { return r.schema }

// NumRows returns the row count of the batch.
func (r *Roster) NumRows() int { return r.rows }

// Len returns the number of columns.
func (r *Roster) Len() int { return len(r.decoders) }

// Decoder returns the decoder of column i.
func (r *Roster) Decoder(i int) *Decoder { return r.decoders[i] }

// Decode decodes column col at row.
func (r *Roster) Decode(col, row int) any {
	return r.decoders[col].Decode(row)
}

// Kinds returns the decoder kind of every column, in order.
func (r *Roster) Kinds() []Kind {
	out := make([]Kind, len(r.decoders))
	for i, d := range r.decoders {
		out[i] = d.kind
	}
	return out
}
