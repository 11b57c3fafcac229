package main

import (
	"errors"
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/spf13/cobra"

	"github.com/logflow/arrowrows/pkg/decode"
	cerrors "github.com/logflow/arrowrows/pkg/errors"
	"github.com/logflow/arrowrows/pkg/source"
	"github.com/logflow/arrowrows/pkg/tui"
)

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	format, err := source.ParseFormat(cfg.Decode.Format)
	if err != nil {
		return err
	}
	batches, err := source.Load(ctx, inputFile, format)
	if err != nil {
		return err
	}
	defer batches.Release()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.Header(version))
	fmt.Fprintf(out, "  %s: %d batches, %d rows\n\n", inputFile, len(batches.Records), batches.NumRows())

	batch, rec := firstNonEmpty(batches.Records)
	if rec == nil {
		fmt.Fprintln(out, "  no rows")
		return nil
	}

	cols := inspectBatch(decode.NewFactory(decode.WithLogger(logger)), rec, batch)
	fmt.Fprint(out, tui.RenderColumns(cols))
	return nil
}

func firstNonEmpty(recs []arrow.Record) (int, arrow.Record) {
	for i, r := range recs {
		if r.NumRows() > 0 {
			return i, r
		}
	}
	return -1, nil
}

// inspectBatch builds every column's decoder independently so one bad
// column does not hide the others.
func inspectBatch(f *decode.Factory, rec arrow.Record, batch int) []tui.ColumnInfo {
	schema := rec.Schema()
	cols := make([]tui.ColumnInfo, rec.NumCols())
	for i := range cols {
		field := schema.Field(i)
		info := tui.ColumnInfo{
			Index:    i,
			Name:     field.Name,
			Physical: field.Type.String(),
		}
		if idx := field.Metadata.FindKey(decode.MetaLogicalType); idx >= 0 {
			info.Logical = field.Metadata.Values()[idx]
		}

		dec, err := f.Build(i, field, rec.Column(i), batch)
		if err != nil {
			info.Err = columnError(err)
		} else {
			info.Logical = dec.Logical().String()
			info.Decoder = dec.Kind().String()
			info.Scale = dec.Scale()
			info.Precision = dec.Precision()
		}
		cols[i] = info
	}
	return cols
}

func columnError(err error) string {
	var ce *cerrors.ConversionError
	if errors.As(err, &ce) {
		if ce.Message != "" {
			return fmt.Sprintf("%s %s", string(ce.Code), ce.Message)
		}
		return fmt.Sprintf("%s %s", string(ce.Code), ce.Code.String())
	}
	return err.Error()
}
