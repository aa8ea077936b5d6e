package internal

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the root logger: JSON in prod, console writer in
// dev, level from config with info as the fallback.
func NewLogger(w io.Writer, env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if env != "prod" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
