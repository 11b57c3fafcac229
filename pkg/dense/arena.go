package dense

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

// HostContext allocates dense buffers on behalf of the consumer. It is the
// handle array-backed decoders are constructed with.
type HostContext interface {
	Allocate(slot Slot, kind Kind, length int) (*Column, error)
}

// Slot names one dense buffer: a column of a batch as decoded by one owner.
// Batch indexes restart for every owner, so two iterators sharing a host
// context only collide when they share an owner.
type Slot struct {
	Owner  string
	Batch  int
	Column int
}

// Arena is the default HostContext. It allocates from an Arrow allocator
// and keeps every column until Release.
type Arena struct {
	mu      sync.Mutex
	mem     memory.Allocator
	columns map[Slot]*Column
}

// NewArena creates an arena over mem. A nil mem uses memory.DefaultAllocator.
func NewArena(mem memory.Allocator) *Arena {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Arena{
		mem:     mem,
		columns: make(map[Slot]*Column),
	}
}

// Allocate returns a zeroed column of length elements for slot.
// Allocating the same slot twice replaces and frees the previous buffer.
func (a *Arena) Allocate(slot Slot, kind Kind, length int) (*Column, error) {
	if length < 0 {
		return nil, fmt.Errorf("dense: negative length %d", length)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if old, ok := a.columns[slot]; ok {
		a.free(old)
	}

	col := &Column{
		Kind:  kind,
		Nulls: roaring.New(),
	}
	if kind == KindDatetime64 {
		col.Unit = Nanosecond
	}
	if length == 0 {
		col.Int64s, col.Float64s, col.Bools = []int64{}, []float64{}, []byte{}
		a.columns[slot] = col
		return col, nil
	}

	raw := a.mem.Allocate(length * kind.ElemSize())
	clear(raw)
	col.raw = raw

	switch kind {
	case KindFloat64:
		col.Float64s = arrow.Float64Traits.CastFromBytes(raw)
	case KindBool:
		col.Bools = raw
	default:
		col.Int64s = arrow.Int64Traits.CastFromBytes(raw)
	}

	a.columns[slot] = col
	return col, nil
}

// Column returns the buffer allocated for slot, or nil.
func (a *Arena) Column(slot Slot) *Column {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.columns[slot]
}

// Len returns the number of live columns.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.columns)
}

// ReleaseBatch frees every column owner allocated for batch. Other owners'
// buffers for the same batch index are left alone.
func (a *Arena) ReleaseBatch(owner string, batch int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for k, col := range a.columns {
		if k.Owner == owner && k.Batch == batch {
			a.free(col)
			delete(a.columns, k)
		}
	}
}

// Release frees every column.
func (a *Arena) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for k, col := range a.columns {
		a.free(col)
		delete(a.columns, k)
	}
}

func (a *Arena) free(col *Column) {
	if col.raw != nil {
		a.mem.Free(col.raw)
	}
	col.raw = nil
	col.Int64s = nil
	col.Float64s = nil
	col.Bools = nil
}

var _ HostContext = (*Arena)(nil)
