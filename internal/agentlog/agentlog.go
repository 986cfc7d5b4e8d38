// Package agentlog adapts github.com/rs/zerolog to the Debugf/Infof/
// Warnf/Errorf shape telegraf's own telegraf.Logger interface exposes on
// a plugin struct (see the statsd input's Statsd.Log field), so call
// sites throughout this repo read the same way.
package agentlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the logging surface every component in this repo takes,
// mirroring telegraf.Logger.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type zerologAdapter struct {
	logger zerolog.Logger
}

// New builds a Logger writing to w at the given verbosity, 0..2: 0
// suppresses debug output, 2 enables it.
func New(w io.Writer, verbose int) Logger {
	level := zerolog.InfoLevel
	if verbose >= 2 {
		level = zerolog.DebugLevel
	}
	if w == nil {
		w = os.Stderr
	}
	l := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		Level(level).
		With().Timestamp().Str("component", "pmdastatsd").Logger()
	return &zerologAdapter{logger: l}
}

func (z *zerologAdapter) Debugf(format string, args ...interface{}) {
	z.logger.Debug().Msgf(format, args...)
}

func (z *zerologAdapter) Infof(format string, args ...interface{}) {
	z.logger.Info().Msgf(format, args...)
}

func (z *zerologAdapter) Warnf(format string, args ...interface{}) {
	z.logger.Warn().Msgf(format, args...)
}

func (z *zerologAdapter) Errorf(format string, args ...interface{}) {
	z.logger.Error().Msgf(format, args...)
}
