// Package perf profiles a decode run: phase timings, row and byte
// counters, and Go heap statistics.
package perf

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Phase names used by the CLI.
const (
	PhaseLoad   = "load"
	PhaseDecode = "decode"
	PhaseWrite  = "write"
)

// Profiler tracks phase timings and counters. Safe for concurrent use.
type Profiler struct {
	timings sync.Map // phase -> time.Duration

	rowsDecoded  atomic.Int64
	bytesWritten atomic.Int64
	writeOps     atomic.Int64
	writeWait    atomic.Int64 // nanoseconds
	rosters      atomic.Int64

	startTime time.Time
	phases    []PhaseRecord
	phaseMu   sync.Mutex
}

// PhaseRecord records one run of a phase.
type PhaseRecord struct {
	Name     string
	Start    time.Time
	Duration time.Duration
}

// New creates a profiler whose clock starts now.
func New() *Profiler {
	return &Profiler{startTime: time.Now()}
}

// StartPhase begins timing a phase. Call the returned func to end it.
// Repeated phases accumulate.
func (p *Profiler) StartPhase(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		p.phaseMu.Lock()
		p.phases = append(p.phases, PhaseRecord{Name: name, Start: start, Duration: d})
		if existing, ok := p.timings.Load(name); ok {
			d += existing.(time.Duration)
		}
		p.timings.Store(name, d)
		p.phaseMu.Unlock()
	}
}

// Phases returns the recorded phase runs in completion order.
func (p *Profiler) Phases() []PhaseRecord {
	p.phaseMu.Lock()
	defer p.phaseMu.Unlock()
	return append([]PhaseRecord(nil), p.phases...)
}

// RecordRows adds decoded rows.
func (p *Profiler) RecordRows(n int64) {
	p.rowsDecoded.Add(n)
}

// RecordRoster counts one per-batch decoder roster build.
func (p *Profiler) RecordRoster() {
	p.rosters.Add(1)
}

// RecordWrite records one write of n bytes.
func (p *Profiler) RecordWrite(n int64, d time.Duration) {
	p.bytesWritten.Add(n)
	p.writeOps.Add(1)
	p.writeWait.Add(int64(d))
}

// Report snapshots the profile.
func (p *Profiler) Report() *Report {
	total := time.Since(p.startTime)
	r := &Report{
		TotalDuration:  total,
		RowsDecoded:    p.rowsDecoded.Load(),
		Rosters:        p.rosters.Load(),
		BytesWritten:   p.bytesWritten.Load(),
		WriteOps:       p.writeOps.Load(),
		WriteWaitTime:  time.Duration(p.writeWait.Load()),
		PhaseBreakdown: make(map[string]time.Duration),
	}
	p.timings.Range(func(key, value any) bool {
		r.PhaseBreakdown[key.(string)] = value.(time.Duration)
		return true
	})
	if total > 0 {
		r.RowsPerSecond = float64(r.RowsDecoded) / total.Seconds()
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.HeapAlloc = int64(m.HeapAlloc)
	r.GCPauses = time.Duration(m.PauseTotalNs)
	r.NumGC = int64(m.NumGC)
	return r
}

// Report holds profiling results.
type Report struct {
	TotalDuration time.Duration `json:"total_duration"`
	RowsDecoded   int64         `json:"rows_decoded"`
	RowsPerSecond float64       `json:"rows_per_second"`
	Rosters       int64         `json:"rosters"`

	BytesWritten  int64         `json:"bytes_written"`
	WriteOps      int64         `json:"write_ops"`
	WriteWaitTime time.Duration `json:"write_wait_time"`

	HeapAlloc int64         `json:"heap_alloc"`
	GCPauses  time.Duration `json:"gc_pauses"`
	NumGC     int64         `json:"num_gc"`

	PhaseBreakdown map[string]time.Duration `json:"phase_breakdown"`
}

// Slowest returns the phase with the largest total time, or "" if none ran.
func (r *Report) Slowest() string {
	var name string
	var longest time.Duration
	for n, d := range r.PhaseBreakdown {
		if name == "" || d > longest || (d == longest && n < name) {
			name, longest = n, d
		}
	}
	return name
}

// String formats the report.
func (r *Report) String() string {
	var sb strings.Builder
	sb.WriteString("PROFILE\n")
	fmt.Fprintf(&sb, "  Total Time:     %v\n", r.TotalDuration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "  Rows Decoded:   %d (%.0f/sec)\n", r.RowsDecoded, r.RowsPerSecond)
	fmt.Fprintf(&sb, "  Rosters:        %d\n", r.Rosters)
	fmt.Fprintf(&sb, "  Written:        %s in %d writes\n", formatBytes(r.BytesWritten), r.WriteOps)
	fmt.Fprintf(&sb, "  Heap Alloc:     %s\n", formatBytes(r.HeapAlloc))
	fmt.Fprintf(&sb, "  GC:             %d runs, %v paused\n", r.NumGC, r.GCPauses.Round(time.Microsecond))

	if len(r.PhaseBreakdown) > 0 {
		type phaseDur struct {
			name string
			dur  time.Duration
		}
		phases := make([]phaseDur, 0, len(r.PhaseBreakdown))
		for name, dur := range r.PhaseBreakdown {
			phases = append(phases, phaseDur{name, dur})
		}
		sort.Slice(phases, func(i, j int) bool {
			if phases[i].dur != phases[j].dur {
				return phases[i].dur > phases[j].dur
			}
			return phases[i].name < phases[j].name
		})
		sb.WriteString("  Phases:\n")
		for _, p := range phases {
			pct := 0.0
			if r.TotalDuration > 0 {
				pct = float64(p.dur) / float64(r.TotalDuration) * 100
			}
			fmt.Fprintf(&sb, "    %-8s %v (%.1f%%)\n", p.name+":", p.dur.Round(time.Microsecond), pct)
		}
	}
	return sb.String()
}

// ProfiledWriter records every write it forwards.
type ProfiledWriter struct {
	w io.Writer
	p *Profiler
}

// NewProfiledWriter wraps w.
func NewProfiledWriter(w io.Writer, p *Profiler) *ProfiledWriter {
	return &ProfiledWriter{w: w, p: p}
}

func (w *ProfiledWriter) Write(b []byte) (int, error) {
	start := time.Now()
	n, err := w.w.Write(b)
	w.p.RecordWrite(int64(n), time.Since(start))
	return n, err
}

func formatBytes(b int64) string {
	switch {
	case b >= 1e9:
		return fmt.Sprintf("%.1f GB", float64(b)/1e9)
	case b >= 1e6:
		return fmt.Sprintf("%.1f MB", float64(b)/1e6)
	case b >= 1e3:
		return fmt.Sprintf("%.1f KB", float64(b)/1e3)
	}
	return fmt.Sprintf("%d B", b)
}

type profilerKey struct{}

// WithProfiler attaches p to ctx.
func WithProfiler(ctx context.Context, p *Profiler) context.Context {
	return context.WithValue(ctx, profilerKey{}, p)
}

// FromContext returns the profiler attached to ctx, or nil.
func FromContext(ctx context.Context) *Profiler {
	if p, ok := ctx.Value(profilerKey{}).(*Profiler); ok {
		return p
	}
	return nil
}
