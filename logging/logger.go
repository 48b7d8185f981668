package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const EnvLogLevel = "GHINGEST_LOG_LEVEL"

// LogLevelOff disables logging altogether (the default - ghingest is a
// library and should be silent unless asked otherwise).
const LogLevelOff = slog.Level(-8192)

func Initialize() {
	slog.SetDefault(ghingestLogger())
}

// ghingestLogger returns a logger that writes JSON log lines to stderr
func ghingestLogger() *slog.Logger {
	level := getLogLevel()
	if level == LogLevelOff {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	}

	handlerOptions := &slog.HandlerOptions{
		Level: level,
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, handlerOptions)).With("source", "ghingest")
}

func getLogLevel() slog.Leveler {
	levelEnv := os.Getenv(EnvLogLevel)

	switch strings.ToLower(levelEnv) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return LogLevelOff
	}
}
