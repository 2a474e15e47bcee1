package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/kodibridge/internal/infrastructure/config"
)

// serviceName is attached to every record.
const serviceName = "kodibridge"

// Redacted replaces the value of a secret attribute.
const Redacted = "[redacted]"

// secretKeys are attribute keys whose values never reach the output,
// wherever they appear in a group.
var secretKeys = map[string]bool{
	"token":    true,
	"password": true,
	"api_key":  true,
	"apikey":   true,
}

// Logger is the bridge's structured logger.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section of the configuration.
// Records carry service and version attributes, and secret attributes
// are redacted.
func New(cfg config.LoggingConfig, version string) *Logger {
	return NewWithWriter(cfg, version, outputFor(cfg.Output))
}

// NewWithWriter is New with an explicit destination. cfg.Output is ignored.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: redact,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler).With("service", serviceName, "version", version),
	}
}

func outputFor(name string) io.Writer {
	if strings.EqualFold(name, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// redact masks secret attributes.
func redact(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, Redacted)
	}
	return a
}

// parseLevel maps debug, info, warn (or warning) and error to a level.
// Anything else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// With returns a child logger carrying args on every record.
//
//	log := logger.With("component", "kodi", "instance", "living-room")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the logger used before the configuration is loaded: JSON to
// stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json"}, "dev")
}

// Discard returns a logger that drops every record.
// Tests use it where log output would only add noise.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
