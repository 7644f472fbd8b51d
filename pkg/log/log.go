// Package log configures the process-wide slog logger.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a text handler on the default logger at the given level.
// Unknown levels fall back to info.
func Setup(logLevel string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	})))
}

// WithModule returns the default logger tagged with a module field. Packages
// use it to keep log lines attributable after fan-out.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

func parseLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
