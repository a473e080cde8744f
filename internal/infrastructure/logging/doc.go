// Package logging provides structured logging for the GoHome server and dashboard.
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
//   - Thread-safe for concurrent use
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
//	logger.Info("starting service", "port", 8080)
//	logger.Error("failed to connect", "error", err)
//
// The dashboard cannot share stdout with the terminal UI, so it builds its
// logger with NewWithWriter pointed at a log file:
//
//	logger := logging.NewWithWriter(cfg.Logging, logging.ServiceDashboard, version, f)
//
// # Security
//
// Never log broker passwords or InfluxDB tokens.
package logging
