package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLogLevel maps a configuration string to a slog level. Matching is
// case-insensitive; unrecognized values fall back to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogHandler builds the handler used for all application logging. Format
// "json" produces machine-readable records for production; anything else
// produces text for local development. Source locations are added only at
// debug level.
func NewLogHandler(w io.Writer, format, level string) slog.Handler {
	lvl := ParseLogLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SetupLogger installs the configured handler as the process-wide default so
// slog.Info/Warn/Error calls elsewhere use it without carrying a *slog.Logger
// around.
func SetupLogger(format, level string) {
	slog.SetDefault(slog.New(NewLogHandler(os.Stdout, format, level)))
	slog.Info("logger initialised", "format", format, "level", ParseLogLevel(level).String())
}
