package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Init configures the global slog default logger.
// LOG_FORMAT: "json" (default) or "text"
// LOG_LEVEL:  "debug", "info" (default), "warn", "error"
// LOG_FILE:   optional path, rotated, written in addition to stdout
func Init() {
	slog.SetDefault(New(os.Stdout, os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")))
}

// New builds a logger writing to out and, when file is set, to a rotated file.
func New(out io.Writer, format, level, file string) *slog.Logger {
	if file = strings.TrimSpace(file); file != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.ToLower(strings.TrimSpace(format)) == "text" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
