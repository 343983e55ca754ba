package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development) uses a human-friendly console writer;
// LOG_LEVEL overrides the default info level.
func NewLogger(env string) zerolog.Logger {
	level := zerolog.InfoLevel
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		if l, err := zerolog.ParseLevel(s); err == nil {
			level = l
		}
	}
	l := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	}
	return l
}
