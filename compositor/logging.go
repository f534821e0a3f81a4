package compositor

import (
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the single zerolog.Logger a running instance carries on
// its State and threads down to every package that logs (§9, matching
// the teacher's one-logger-on-context convention).
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}
