package source

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	cerrors "github.com/logflow/arrowrows/pkg/errors"
)

// ReadIPCFile reads an Arrow IPC file (random-access format).
func ReadIPCFile(ctx context.Context, r ipc.ReadAtSeeker, mem memory.Allocator) (*Batches, error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeInvalidFormat, "failed to open arrow ipc file")
	}
	defer fr.Close()

	out := &Batches{Schema: fr.Schema()}
	for i := 0; i < fr.NumRecords(); i++ {
		if err := canceled(ctx, out, "read ipc file"); err != nil {
			return nil, err
		}
		rec, err := fr.Record(i)
		if err != nil {
			out.Release()
			return nil, cerrors.Wrapf(err, cerrors.CodeInvalidFormat, "failed to read record %d", i)
		}
		// Records are only valid until the next call to Record.
		rec.Retain()
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

// ReadIPCStream reads an Arrow IPC stream.
func ReadIPCStream(ctx context.Context, r io.Reader, mem memory.Allocator) (*Batches, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeInvalidFormat, "failed to open arrow ipc stream")
	}
	defer rdr.Release()

	out := &Batches{Schema: rdr.Schema()}
	for rdr.Next() {
		if err := canceled(ctx, out, "read ipc stream"); err != nil {
			return nil, err
		}
		rec := rdr.Record()
		rec.Retain()
		out.Records = append(out.Records, rec)
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		out.Release()
		return nil, cerrors.Wrap(err, cerrors.CodeInvalidFormat, "failed to read arrow ipc stream")
	}
	return out, nil
}

// WriteIPCStream writes records as an Arrow IPC stream.
func WriteIPCStream(w io.Writer, schema *arrow.Schema, recs []arrow.Record) error {
	writer := ipc.NewWriter(w, ipc.WithSchema(schema))
	for i, rec := range recs {
		if err := writer.Write(rec); err != nil {
			writer.Close()
			return fmt.Errorf("failed to write batch %d: %w", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close ipc writer: %w", err)
	}
	return nil
}

// WriteIPCFile writes records as an Arrow IPC file.
func WriteIPCFile(w io.Writer, schema *arrow.Schema, recs []arrow.Record) error {
	writer, err := ipc.NewFileWriter(w, ipc.WithSchema(schema))
	if err != nil {
		return fmt.Errorf("failed to create ipc file writer: %w", err)
	}
	for i, rec := range recs {
		if err := writer.Write(rec); err != nil {
			writer.Close()
			return fmt.Errorf("failed to write batch %d: %w", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close ipc file writer: %w", err)
	}
	return nil
}
