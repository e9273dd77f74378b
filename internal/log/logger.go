package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Setup initializes the global logger writing JSON records to stderr.
// Invalid levels fall back to INFO.
func Setup(level string) {
	SetupWithWriter(level, os.Stderr)
}

// SetupWithWriter is Setup with an explicit destination, used by tests to
// capture log output.
func SetupWithWriter(level string, w io.Writer) {
	once.Do(func() {
		var l slog.Level
		switch strings.ToUpper(level) {
		case "DEBUG":
			l = slog.LevelDebug
		case "WARN":
			l = slog.LevelWarn
		case "ERROR":
			l = slog.LevelError
		default:
			l = slog.LevelInfo
		}

		handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l})
		logger = slog.New(handler)
		slog.SetDefault(logger)
	})
}

// Get returns the configured logger, or a default one if Setup hasn't been called.
func Get() *slog.Logger {
	if logger == nil {
		Setup("INFO")
	}
	return logger
}

// WithComponent returns a logger with the component field set.
func WithComponent(name string) *slog.Logger {
	return Get().With(slog.String("component", name))
}

// WithAction returns a logger with the action record id set.
func WithAction(id string) *slog.Logger {
	return Get().With(slog.String("action_id", id))
}

// Info logs at INFO level.
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

// Warn logs at WARN level.
func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

// Error logs at ERROR level.
func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}
