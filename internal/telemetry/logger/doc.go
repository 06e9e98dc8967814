// Package logger builds the process loggers on top of log/slog.
//
//   - logger.go: handler setup and the shared level
//   - context.go: request id propagation
//   - redact.go: masking of credentials found in table configuration
package logger
