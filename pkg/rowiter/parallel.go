package rowiter

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"golang.org/x/sync/errgroup"

	cerrors "github.com/logflow/arrowrows/pkg/errors"
)

// Partition splits batches into at most n contiguous, disjoint parts that
// together preserve the original order. Parts differ in size by at most one
// batch.
func Partition(batches []arrow.Record, n int) [][]arrow.Record {
	if n < 1 {
		n = 1
	}
	if n > len(batches) {
		n = len(batches)
	}
	parts := make([][]arrow.Record, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		size := len(batches) / n
		if i < len(batches)%n {
			size++
		}
		parts = append(parts, batches[start:start+size:start+size])
		start += size
	}
	return parts
}

// Consume drains one iterator per part concurrently. fn receives the part
// index and each row in part order; it is called from several goroutines
// and must be safe for that. The first error cancels the remaining parts.
func Consume[R any](ctx context.Context, parts [][]arrow.Record, newIter func([]arrow.Record) *Iterator[R], fn func(part int, row R) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		g.Go(func() error {
			it := newIter(part)
			for {
				if err := ctx.Err(); err != nil {
					return cerrors.Wrap(err, cerrors.CodeContextCanceled, fmt.Sprintf("consume part %d", i))
				}
				row, err := it.Next()
				if errors.Is(err, Done) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("part %d: %w", i, err)
				}
				if err := fn(i, row); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}
