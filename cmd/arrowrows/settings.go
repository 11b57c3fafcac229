package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/logflow/arrowrows/pkg/config"
	"github.com/logflow/arrowrows/pkg/logging"
	"github.com/logflow/arrowrows/pkg/source"
)

// loadSettings resolves configuration files and env, then applies the
// flags the user actually set.
func loadSettings(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	m := config.NewManager()
	if err := m.Load(); err != nil {
		return nil, zerolog.Nop(), err
	}
	if configPath != "" {
		if err := m.LoadFile(configPath); err != nil {
			return nil, zerolog.Nop(), err
		}
	}
	cfg := m.Get()

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Decode.Mode = modeFlag
	}
	if flags.Changed("shape") {
		cfg.Decode.Shape = shapeFlag
	}
	if flags.Changed("workers") {
		cfg.Decode.Workers = workersFlag
	}
	if flags.Changed("format") {
		f, err := source.ParseFormat(formatFlag)
		if err != nil {
			return nil, zerolog.Nop(), err
		}
		cfg.Decode.Format = string(f)
	}
	if flags.Changed("batch-size") {
		cfg.Decode.BatchSize = batchSizeFlag
	}
	if flags.Changed("progress") {
		cfg.Output.Progress = progressFlag
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if cfg.Decode.Workers == 0 {
		cfg.Decode.Workers = runtime.NumCPU()
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger.Debug().Strs("config_paths", m.GetPaths()).Msg("configuration loaded")
	return cfg, logger, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
