// Package log configures structured logging for the service.
package log

import (
	"log/slog"
	"os"
)

// Config holds logger configuration.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// DefaultConfig returns sensible defaults for logging.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: "fintrack",
	}
}

// New creates a component-tagged slog logger. All records carry a
// "component" attribute so multi-binary deployments stay greppable.
func New(cfg Config) *slog.Logger {
	handler := cfg.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.Level,
		})
	}
	return slog.New(handler).With("component", cfg.Component)
}

// SetDefault installs logger as the process-wide default so package
// level slog calls flow through it.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
