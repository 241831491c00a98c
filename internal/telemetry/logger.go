// Package telemetry holds the logging and metrics seams injected into the
// services. Libraries default to no-op implementations; cmd wires the real
// ones.
package telemetry

import (
	"log/slog"
	"os"
)

// Logger is the structured logging seam. Fields come as alternating
// key/value pairs.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// NopLogger discards everything; it is the library default.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// SlogLogger adapts a *slog.Logger to the Logger seam.
type SlogLogger struct {
	L *slog.Logger
}

// NewTextLogger builds an slog-backed logger writing text lines to stderr.
func NewTextLogger(level slog.Level) SlogLogger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return SlogLogger{L: slog.New(handler)}
}

func (s SlogLogger) Debug(msg string, fields ...any) { s.L.Debug(msg, fields...) }
func (s SlogLogger) Info(msg string, fields ...any)  { s.L.Info(msg, fields...) }
func (s SlogLogger) Warn(msg string, fields ...any)  { s.L.Warn(msg, fields...) }
func (s SlogLogger) Error(msg string, fields ...any) { s.L.Error(msg, fields...) }
