package source

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/logflow/arrowrows/internal/fixtures"
	cerrors "github.com/logflow/arrowrows/pkg/errors"
)

func sampleBatches(mem memory.Allocator) []arrow.Record {
	return []arrow.Record{
		fixtures.Batch(
			fixtures.Col("amount", fixtures.Int32s(mem, []int32{12345, 0}, []bool{true, false}), fixtures.Meta("FIXED", "scale", "2", "precision", "5")),
			fixtures.Col("name", fixtures.Strings(mem, []string{"a", "b"}, nil), fixtures.Meta("TEXT")),
		),
		fixtures.Batch(
			fixtures.Col("amount", fixtures.Int32s(mem, []int32{1}, nil), fixtures.Meta("FIXED", "scale", "2", "precision", "5")),
			fixtures.Col("name", fixtures.Strings(mem, []string{"c"}, nil), fixtures.Meta("TEXT")),
		),
	}
}

func release(recs []arrow.Record) {
	for _, r := range recs {
		r.Release()
	}
}

func checkBatches(t *testing.T, got *Batches, wantBatches int) {
	t.Helper()
	if len(got.Records) != wantBatches {
		t.Fatalf("got %d batches, want %d", len(got.Records), wantBatches)
	}
	if got.NumRows() != 3 {
		t.Errorf("NumRows = %d, want 3", got.NumRows())
	}
	if got.Schema.NumFields() != 2 {
		t.Fatalf("schema has %d fields", got.Schema.NumFields())
	}
	amount := got.Records[0].Column(0).(*array.Int32)
	if amount.Value(0) != 12345 || !amount.IsNull(1) {
		t.Errorf("amount column = %v", amount)
	}
}

func checkMetadata(t *testing.T, schema *arrow.Schema) {
	t.Helper()
	md := schema.Field(0).Metadata
	idx := md.FindKey("logicalType")
	if idx < 0 || md.Values()[idx] != "FIXED" {
		t.Errorf("field metadata lost: %v", md)
	}
}

func TestIPCStream_RoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()
	recs := sampleBatches(mem)
	defer release(recs)

	var buf bytes.Buffer
	if err := WriteIPCStream(&buf, recs[0].Schema(), recs); err != nil {
		t.Fatalf("WriteIPCStream failed: %v", err)
	}

	got, err := ReadIPCStream(context.Background(), &buf, mem)
	if err != nil {
		t.Fatalf("ReadIPCStream failed: %v", err)
	}
	defer got.Release()

	checkBatches(t, got, 2)
	checkMetadata(t, got.Schema)
}

func TestIPCFile_RoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()
	recs := sampleBatches(mem)
	defer release(recs)

	var buf bytes.Buffer
	if err := WriteIPCFile(&buf, recs[0].Schema(), recs); err != nil {
		t.Fatalf("WriteIPCFile failed: %v", err)
	}

	got, err := ReadIPCFile(context.Background(), bytes.NewReader(buf.Bytes()), mem)
	if err != nil {
		t.Fatalf("ReadIPCFile failed: %v", err)
	}
	defer got.Release()

	checkBatches(t, got, 2)
	checkMetadata(t, got.Schema)
}

func TestParquet_RoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()
	recs := sampleBatches(mem)
	defer release(recs)

	var buf bytes.Buffer
	if err := WriteParquet(&buf, recs[0].Schema(), recs); err != nil {
		t.Fatalf("WriteParquet failed: %v", err)
	}

	got, err := ReadParquet(context.Background(), bytes.NewReader(buf.Bytes()), mem, 2)
	if err != nil {
		t.Fatalf("ReadParquet failed: %v", err)
	}
	defer got.Release()

	if got.NumRows() != 3 {
		t.Errorf("NumRows = %d, want 3", got.NumRows())
	}
	for i, rec := range got.Records {
		if rec.NumRows() > 2 {
			t.Errorf("batch %d has %d rows, want at most 2", i, rec.NumRows())
		}
	}
}

func TestLoad(t *testing.T) {
	mem := memory.NewGoAllocator()
	recs := sampleBatches(mem)
	defer release(recs)

	dir := t.TempDir()
	path := filepath.Join(dir, "sample.arrows")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteIPCStream(f, recs[0].Schema(), recs); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := Load(context.Background(), path, "", WithAllocator(mem))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer got.Release()
	checkBatches(t, got, 2)

	_, err = Load(context.Background(), filepath.Join(dir, "missing.arrow"), FormatIPC)
	if !cerrors.IsCode(err, cerrors.CodeFileNotFound) {
		t.Errorf("missing file error = %v, want %s", err, cerrors.CodeFileNotFound)
	}

	_, err = Load(context.Background(), path, FormatIPC)
	if !cerrors.IsCode(err, cerrors.CodeInvalidFormat) {
		t.Errorf("stream read as file error = %v, want %s", err, cerrors.CodeInvalidFormat)
	}
}

func TestLoad_Canceled(t *testing.T) {
	mem := memory.NewGoAllocator()
	recs := sampleBatches(mem)
	defer release(recs)

	var buf bytes.Buffer
	if err := WriteIPCStream(&buf, recs[0].Schema(), recs); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ReadIPCStream(ctx, &buf, mem); !cerrors.IsCode(err, cerrors.CodeContextCanceled) {
		t.Errorf("error = %v, want %s", err, cerrors.CodeContextCanceled)
	}
}

func TestFormats(t *testing.T) {
	detect := map[string]Format{
		"a.parquet": FormatParquet,
		"a.PQ":      FormatParquet,
		"a.arrows":  FormatStream,
		"a.arrow":   FormatIPC,
		"a":         FormatIPC,
	}
	for path, want := range detect {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %s, want %s", path, got, want)
		}
	}

	parse := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", "", false},
		{"IPC", FormatIPC, false},
		{"feather", FormatIPC, false},
		{"stream", FormatStream, false},
		{"parquet", FormatParquet, false},
		{"csv", "", true},
	}
	for _, tt := range parse {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %s, %v", tt.in, got, err)
		}
	}
}

func TestSave(t *testing.T) {
	mem := memory.NewGoAllocator()
	recs := sampleBatches(mem)
	defer release(recs)

	dir := t.TempDir()
	for _, name := range []string{"out.arrow", "out.arrows", "out.parquet"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := Save(path, "", recs[0].Schema(), recs); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := Load(context.Background(), path, "", WithAllocator(mem))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			defer got.Release()
			if got.NumRows() != 3 {
				t.Errorf("NumRows = %d, want 3", got.NumRows())
			}
			checkMetadata(t, got.Schema)
		})
	}

	err := Save(filepath.Join(dir, "out.csv"), "csv", recs[0].Schema(), recs)
	if !cerrors.IsCode(err, cerrors.CodeInvalidFormat) {
		t.Errorf("error = %v, want %s", err, cerrors.CodeInvalidFormat)
	}
}
