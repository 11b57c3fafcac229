// Package logging builds the zerolog logger used by the CLI. Library
// packages take a zerolog.Logger and default to zerolog.Nop().
package logging

import (
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/logflow/arrowrows/pkg/config"
)

// New returns a logger writing to stderr at the configured level.
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, cfg config.LogConfig) (zerolog.Logger, error) {
	level := zerolog.WarnLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), err
		}
		level = l
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "time"
	zerolog.CallerMarshalFunc = callerMarshal
	if level < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(level)
	}

	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.Hook(CallerHook{})
	}
	return logger, nil
}

func callerMarshal(pc uintptr, file string, line int) string {
	function := ""
	if fun := runtime.FuncForPC(pc); fun != nil {
		name := fun.Name()
		if slash := strings.LastIndex(name, "/"); slash > 0 {
			name = name[slash+1:]
		}
		function = " " + name + "()"
	}
	return file + ":" + strconv.Itoa(line) + function
}

// CallerHook annotates events with the logging call site.
type CallerHook struct{}

func (h CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Caller(3)
}
