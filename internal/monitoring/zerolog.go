package monitoring

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(name) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger builds a timestamped zerolog logger writing JSON lines, or
// console output when jsonOutput is false.
func NewLogger(w io.Writer, jsonOutput bool, level zerolog.Level) zerolog.Logger {
	out := w
	if !jsonOutput {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// ZerologLogf adapts a zerolog logger to the Logf signature. Messages are
// logged at info level with the given component field.
func ZerologLogf(l zerolog.Logger, component string) func(format string, v ...interface{}) {
	cl := l.With().Str("component", component).Logger()
	return func(format string, v ...interface{}) {
		cl.Info().Msg(strings.TrimRight(fmt.Sprintf(format, v...), "\n"))
	}
}
