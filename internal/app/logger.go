package app

import (
	"io"
	"log/slog"
)

// NewLogger builds the process logger from a validated level and format. It
// does not set the global logger, so tests get isolated instances. Unknown
// levels fall back to info.
func NewLogger(levelStr, formatStr string, logW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(logW, opts))
	}
	return slog.New(slog.NewTextHandler(logW, opts))
}
