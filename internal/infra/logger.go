package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is an alias so packages outside infra do not import zerolog just to
// declare a field.
type Logger = zerolog.Logger

// NewLogger builds the process-wide logger. Development gets pretty console
// output at debug level; everything else emits JSON at info.
func NewLogger(appEnv string) Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	var logger zerolog.Logger
	if appEnv == "development" {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		logger = zerolog.New(writer)
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().
		Timestamp().
		Str("service", "cramdesk").
		Logger()
}
