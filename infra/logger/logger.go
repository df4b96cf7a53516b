package logger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	corelogger "github.com/kilianp07/evcharge/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.NopLogger

// Config controls the process wide log output.
type Config struct {
	// Level is one of trace, debug, info, warn, error. Defaults to info.
	Level string `json:"level"`
	// Format is json or console. Empty follows APP_ENV.
	Format string `json:"format"`
}

// Configure applies the level of cfg globally.
func Configure(cfg Config) error {
	lvl := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
	}
	zerolog.SetGlobalLevel(lvl)
	switch cfg.Format {
	case "", "json", "console":
		defaultFormat = cfg.Format
		return nil
	}
	return fmt.Errorf("unknown log format %q", cfg.Format)
}

// New returns a Logger for the given component. Without an explicit format
// the environment is detected via the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}
