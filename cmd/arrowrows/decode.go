package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/logflow/arrowrows/pkg/config"
	"github.com/logflow/arrowrows/pkg/decode"
	"github.com/logflow/arrowrows/pkg/dense"
	"github.com/logflow/arrowrows/pkg/perf"
	"github.com/logflow/arrowrows/pkg/rowiter"
	"github.com/logflow/arrowrows/pkg/source"
	"github.com/logflow/arrowrows/pkg/tui"
)

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	prof := perf.New()
	ctx = perf.WithProfiler(ctx, prof)

	format, err := source.ParseFormat(cfg.Decode.Format)
	if err != nil {
		return err
	}
	endLoad := prof.StartPhase(perf.PhaseLoad)
	batches, err := source.Load(ctx, inputFile, format, source.WithBatchSize(cfg.Decode.BatchSize))
	endLoad()
	if err != nil {
		return err
	}
	defer batches.Release()

	var out io.Writer = cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(perf.NewProfiledWriter(out, prof))

	mode, err := decode.ParseOutputMode(cfg.Decode.Mode)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if cfg.Output.Progress {
		bar = tui.ShowProgress(cmd.ErrOrStderr(), batches.NumRows(), "decoding")
	}

	d := newDecoder(cfg, mode, logger, bar)
	defer d.release()

	start := time.Now()
	var rows int64
	switch cfg.Decode.Shape {
	case "tuple":
		rows, err = decodeRows[[]any](ctx, d, batches.Records, rowiter.Tuple{}, w)
	default:
		rows, err = decodeRows[map[string]any](ctx, d, batches.Records, rowiter.Dict{}, w)
	}
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if bar != nil {
		bar.Finish()
	}

	report := prof.Report()
	logger.Info().
		Int64("rows", rows).
		Int("batches", len(batches.Records)).
		Int64("rosters", report.Rosters).
		Str("slowest_phase", report.Slowest()).
		Dur("elapsed", time.Since(start)).
		Msg("decode complete")
	if cfg.Output.Progress {
		tui.PrintDecodeReport(cmd.ErrOrStderr(), &tui.DecodeReport{
			Batches:  len(batches.Records),
			Rows:     rows,
			Columns:  batches.Schema.NumFields(),
			Workers:  cfg.Decode.Workers,
			Duration: time.Since(start),
		})
	}
	if profileFlag {
		fmt.Fprint(cmd.ErrOrStderr(), report.String())
	}
	return nil
}

// decoder builds one iterator per batch range. Every iterator shares one
// factory and, in array-backed mode, one arena; each iterator's buffers are
// owned by its session id.
type decoder struct {
	cfg     *config.Config
	logger  zerolog.Logger
	bar     *progressbar.ProgressBar
	arena   *dense.Arena
	factory *decode.Factory
}

func newDecoder(cfg *config.Config, mode decode.OutputMode, logger zerolog.Logger, bar *progressbar.ProgressBar) *decoder {
	d := &decoder{cfg: cfg, logger: logger, bar: bar}
	opts := []decode.Option{decode.WithLogger(logger), decode.WithOutputMode(mode)}
	if mode == decode.ArrayBacked {
		d.arena = dense.NewArena(nil)
		opts = append(opts, decode.WithHostContext(d.arena))
	}
	d.factory = decode.NewFactory(opts...)
	return d
}

// onRoster frees the buffers of the batch an iterator just left. Rows are
// encoded before the next roster is built, so nothing still reads them.
func (d *decoder) onRoster(prof *perf.Profiler) func(*decode.Roster) {
	prev := -1
	return func(r *decode.Roster) {
		prof.RecordRoster()
		if d.arena != nil && prev >= 0 {
			d.arena.ReleaseBatch(r.Owner(), prev)
		}
		prev = r.Batch()
	}
}

func (d *decoder) release() {
	if d.arena != nil {
		d.arena.Release()
	}
}

// decodeRows encodes every row as one JSON line. Parts are decoded
// concurrently and written back in batch order.
func decodeRows[R any](ctx context.Context, d *decoder, batches []arrow.Record, m rowiter.Materializer[R], w io.Writer) (int64, error) {
	prof := perf.FromContext(ctx)
	if prof == nil {
		prof = perf.New()
	}
	parts := rowiter.Partition(batches, d.cfg.Decode.Workers)
	encoded := make([][][]byte, len(parts))

	endDecode := prof.StartPhase(perf.PhaseDecode)
	err := rowiter.Consume(ctx, parts, func(p []arrow.Record) *rowiter.Iterator[R] {
		return rowiter.New(p, m,
			rowiter.WithFactory(d.factory),
			rowiter.WithLogger(d.logger),
			rowiter.WithOnRoster(d.onRoster(prof)))
	}, func(part int, row R) error {
		line, err := json.Marshal(jsonSafe(row))
		if err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
		encoded[part] = append(encoded[part], line)
		prof.RecordRows(1)
		if d.bar != nil {
			d.bar.Add(1)
		}
		return nil
	})
	endDecode()
	if err != nil {
		return 0, err
	}

	defer prof.StartPhase(perf.PhaseWrite)()
	var rows int64
	for _, lines := range encoded {
		for _, line := range lines {
			if _, err := w.Write(append(line, '\n')); err != nil {
				return rows, fmt.Errorf("write row: %w", err)
			}
			rows++
		}
	}
	return rows, nil
}

// jsonSafe replaces floats JSON cannot represent with their names.
func jsonSafe(row any) any {
	switch r := row.(type) {
	case []any:
		for i, v := range r {
			r[i] = safeValue(v)
		}
	case map[string]any:
		for k, v := range r {
			r[k] = safeValue(v)
		}
	}
	return row
}

func safeValue(v any) any {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return v
}
