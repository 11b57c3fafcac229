package main

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/spf13/cobra"

	"github.com/logflow/arrowrows/internal/fixtures"
	"github.com/logflow/arrowrows/pkg/source"
)

func runSample(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if sampleRows < 1 || sampleBatches < 1 {
		return fmt.Errorf("--rows and --batches must be positive")
	}

	format, err := source.ParseFormat(cfg.Decode.Format)
	if err != nil {
		return err
	}

	recs := make([]arrow.Record, sampleBatches)
	for i := range recs {
		recs[i] = fixtures.Sample(nil, i, sampleRows)
	}
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()

	if err := source.Save(outputFile, format, recs[0].Schema(), recs); err != nil {
		return err
	}
	logger.Info().
		Str("path", outputFile).
		Int("batches", sampleBatches).
		Int("rows", sampleRows*sampleBatches).
		Msg("sample written")
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows in %d batches to %s\n", sampleRows*sampleBatches, sampleBatches, outputFile)
	return nil
}
