// Package logger configures the process-wide slog logger.
package logger
