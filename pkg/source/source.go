// Package source loads Arrow record batches from Arrow IPC files, IPC
// streams and Parquet files.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/memory"

	cerrors "github.com/logflow/arrowrows/pkg/errors"
)

// Format identifies a container format.
type Format string

const (
	FormatIPC     Format = "ipc"
	FormatStream  Format = "stream"
	FormatParquet Format = "parquet"
)

// ParseFormat parses a format name. The empty string means "detect".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatIPC, FormatStream, FormatParquet:
		return f, nil
	case "arrow", "feather":
		return FormatIPC, nil
	default:
		return "", cerrors.InvalidFormat(s)
	}
}

// DetectFormat guesses the format from the file extension, defaulting to
// the IPC file format.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return FormatParquet
	case ".arrows", ".stream":
		return FormatStream
	default:
		return FormatIPC
	}
}

// Batches is an ordered set of record batches sharing one schema. The
// caller owns the records and must call Release.
type Batches struct {
	Schema  *arrow.Schema
	Records []arrow.Record
}

// NumRows returns the total row count.
func (b *Batches) NumRows() int64 {
	var n int64
	for _, r := range b.Records {
		n += r.NumRows()
	}
	return n
}

// Release releases every record.
func (b *Batches) Release() {
	for _, r := range b.Records {
		r.Release()
	}
	b.Records = nil
}

// Options configures loading.
type Options struct {
	Allocator memory.Allocator
	// BatchSize caps rows per record when re-batching Parquet tables.
	BatchSize int64
}

// Option mutates Options.
type Option func(*Options)

// WithAllocator sets the allocator used for record buffers.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *Options) {
		o.Allocator = mem
	}
}

// WithBatchSize sets the Parquet re-batching size.
func WithBatchSize(n int64) Option {
	return func(o *Options) {
		o.BatchSize = n
	}
}

func buildOptions(opts []Option) Options {
	o := Options{
		Allocator: memory.DefaultAllocator,
		BatchSize: 64 * 1024,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Load reads every batch of the file at path. An empty format is detected
// from the extension.
func Load(ctx context.Context, path string, format Format, opts ...Option) (*Batches, error) {
	if format == "" {
		format = DetectFormat(path)
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cerrors.FileNotFound(path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	o := buildOptions(opts)
	switch format {
	case FormatIPC:
		return ReadIPCFile(ctx, f, o.Allocator)
	case FormatStream:
		return ReadIPCStream(ctx, f, o.Allocator)
	case FormatParquet:
		return ReadParquet(ctx, f, o.Allocator, o.BatchSize)
	default:
		return nil, cerrors.InvalidFormat(string(format))
	}
}

// Save writes recs to path in the given format, replacing any existing
// file. An empty format is detected from the extension.
func Save(path string, format Format, schema *arrow.Schema, recs []arrow.Record) error {
	if format == "" {
		format = DetectFormat(path)
	}
	var write func(io.Writer, *arrow.Schema, []arrow.Record) error
	switch format {
	case FormatIPC:
		write = WriteIPCFile
	case FormatStream:
		write = WriteIPCStream
	case FormatParquet:
		write = WriteParquet
	default:
		return cerrors.InvalidFormat(string(format))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f, schema, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func canceled(ctx context.Context, b *Batches, op string) error {
	if err := ctx.Err(); err != nil {
		b.Release()
		return cerrors.Wrap(err, cerrors.CodeContextCanceled, op)
	}
	return nil
}
