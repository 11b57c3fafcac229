package source

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	cerrors "github.com/logflow/arrowrows/pkg/errors"
)

// ReadParquet reads a Parquet file and re-batches it into records of at
// most batchSize rows. Field metadata survives only when the writer stored
// the Arrow schema.
func ReadParquet(ctx context.Context, r parquet.ReaderAtSeeker, mem memory.Allocator, batchSize int64) (*Batches, error) {
	pqReader, err := file.NewParquetReader(r)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeInvalidFormat, "failed to create parquet reader")
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{
		Parallel:  true,
		BatchSize: batchSize,
	}, mem)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeInvalidFormat, "failed to create arrow reader")
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cerrors.Wrap(ctx.Err(), cerrors.CodeContextCanceled, "read parquet")
		}
		return nil, cerrors.Wrap(err, cerrors.CodeInvalidFormat, "failed to read parquet table")
	}
	defer table.Release()

	if batchSize <= 0 {
		batchSize = 64 * 1024
	}
	tableReader := array.NewTableReader(table, batchSize)
	defer tableReader.Release()

	out := &Batches{Schema: table.Schema()}
	for tableReader.Next() {
		if err := canceled(ctx, out, "read parquet"); err != nil {
			return nil, err
		}
		rec := tableReader.Record()
		rec.Retain()
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

// WriteParquet writes records to w as a Snappy-compressed Parquet file,
// storing the Arrow schema so field metadata can be restored on read.
func WriteParquet(w io.Writer, schema *arrow.Schema, recs []arrow.Record) error {
	table := array.NewTableFromRecords(schema, recs)
	defer table.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	if err := pqarrow.WriteTable(table, w, 64*1024, props, arrowProps); err != nil {
		return fmt.Errorf("failed to write parquet: %w", err)
	}
	return nil
}
