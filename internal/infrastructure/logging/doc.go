// Package logging provides structured logging for kodibridge.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Secret attributes redacted
//   - NewWithWriter for tests that assert on output
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("listener starting", "port", 8099)
//	logger.Error("kodi call failed", "instance", "living-room", "error", err)
//
// # Security
//
// Attributes named token, password or api_key are replaced with
// "[redacted]" at any depth. Still log presence instead of value:
//
//	logger.Warn("authentication failed", "token_present", token != "")
package logging
