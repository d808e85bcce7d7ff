package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds a zerolog logger. format is "json" or "console"; unknown levels
// fall back to info. The result also becomes the global log.Logger.
func New(level, format string) zerolog.Logger {
	return newLogger(os.Stderr, level, format)
}

func newLogger(out io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	w := out
	if strings.ToLower(format) != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return l
}
