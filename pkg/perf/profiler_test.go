package perf

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestProfiler_Phases(t *testing.T) {
	p := New()

	end := p.StartPhase(PhaseDecode)
	time.Sleep(2 * time.Millisecond)
	end()
	end = p.StartPhase(PhaseDecode)
	end()
	p.StartPhase(PhaseLoad)()

	if got := len(p.Phases()); got != 3 {
		t.Fatalf("got %d phase records, want 3", got)
	}

	r := p.Report()
	if len(r.PhaseBreakdown) != 2 {
		t.Fatalf("breakdown = %v, want load and decode", r.PhaseBreakdown)
	}
	if r.PhaseBreakdown[PhaseDecode] < 2*time.Millisecond {
		t.Errorf("decode total = %v, want at least 2ms", r.PhaseBreakdown[PhaseDecode])
	}
	if got := r.Slowest(); got != PhaseDecode {
		t.Errorf("Slowest = %q, want %q", got, PhaseDecode)
	}
}

func TestProfiler_Counters(t *testing.T) {
	p := New()
	p.RecordRows(10)
	p.RecordRows(5)
	p.RecordRoster()

	var buf bytes.Buffer
	w := NewProfiledWriter(&buf, p)
	w.Write([]byte("hello"))
	w.Write([]byte("!"))

	r := p.Report()
	if r.RowsDecoded != 15 {
		t.Errorf("RowsDecoded = %d, want 15", r.RowsDecoded)
	}
	if r.Rosters != 1 {
		t.Errorf("Rosters = %d, want 1", r.Rosters)
	}
	if r.BytesWritten != 6 || r.WriteOps != 2 {
		t.Errorf("written = %d bytes in %d ops, want 6 in 2", r.BytesWritten, r.WriteOps)
	}
	if buf.String() != "hello!" {
		t.Errorf("forwarded %q", buf.String())
	}

	out := r.String()
	for _, want := range []string{"PROFILE", "Rows Decoded:   15", "6 B in 2 writes"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Error("empty context returned a profiler")
	}
	p := New()
	if FromContext(WithProfiler(context.Background(), p)) != p {
		t.Error("profiler not recovered from context")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:             "0 B",
		999:           "999 B",
		1500:          "1.5 KB",
		2_500_000:     "2.5 MB",
		3_000_000_000: "3.0 GB",
	}
	for n, want := range tests {
		if got := formatBytes(n); got != want {
			t.Errorf("formatBytes(%d) = %s, want %s", n, got, want)
		}
	}
}
