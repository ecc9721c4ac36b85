// Package logging provides structured logging for the telemetryd application.
//
// This package wraps the standard library's log/slog package to provide
// consistent logging across all components. It supports both text and JSON
// output formats, configurable log levels, and component-based loggers.
//
// Usage:
//
//	// Initialize at startup
//	logging.Init(slog.LevelInfo, false) // Text format
//	logging.Init(slog.LevelDebug, true) // JSON format for production
//
//	// Get a component logger
//	log := logging.Component("server")
//	log.Info("listening", "address", ":5551")
//
//	// Log with context
//	log.Error("decode failed", "error", err, "peer", addr)
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Logger is the global logger instance.
var Logger *slog.Logger

// output is the handler every logger ultimately writes to. Component
// loggers are usually created in package vars before Init runs, so they
// resolve it on each record instead of capturing it.
var output atomic.Pointer[handlerBox]

type handlerBox struct{ h slog.Handler }

// Init initializes the global logger with the specified level and format.
// If jsonFormat is true, logs are output as JSON; otherwise, human-readable text.
// Logs go to stderr so they do not interleave with console output.
func Init(level slog.Level, jsonFormat bool) {
	InitWithHandler(NewHandler(os.Stderr, level, jsonFormat))
}

// NewHandler builds the handler Init installs, writing to w.
func NewHandler(w io.Writer, level slog.Level, jsonFormat bool) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if jsonFormat {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// InitWithHandler initializes the global logger with a custom handler.
// This is useful for testing or custom output destinations.
func InitWithHandler(handler slog.Handler) {
	output.Store(&handlerBox{h: handler})
	Logger = slog.New(&deferredHandler{})
	slog.SetDefault(slog.New(handler))
}

// deferredHandler forwards to the current output handler, replaying the
// attrs and groups it was derived with. The derived handler is cached per
// output generation.
type deferredHandler struct {
	ops   []func(slog.Handler) slog.Handler
	cache atomic.Pointer[derivedHandler]
}

type derivedHandler struct {
	base *handlerBox
	h    slog.Handler
}

func (h *deferredHandler) resolve() slog.Handler {
	base := output.Load()
	if d := h.cache.Load(); d != nil && d.base == base {
		return d.h
	}

	out := base.h
	for _, op := range h.ops {
		out = op(out)
	}
	h.cache.Store(&derivedHandler{base: base, h: out})
	return out
}

func (h *deferredHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return output.Load().h.Enabled(ctx, level)
}

func (h *deferredHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h *deferredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(out slog.Handler) slog.Handler { return out.WithAttrs(attrs) })
}

func (h *deferredHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(out slog.Handler) slog.Handler { return out.WithGroup(name) })
}

func (h *deferredHandler) derive(op func(slog.Handler) slog.Handler) slog.Handler {
	ops := make([]func(slog.Handler) slog.Handler, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return &deferredHandler{ops: append(ops, op)}
}

// With returns a new logger with additional attributes.
// These attributes are included in every log entry from the returned logger.
func With(args ...any) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	return Logger.With(args...)
}

// Component returns a logger for a specific component.
// The component name is added as an attribute to all log entries.
//
// Example:
//
//	log := logging.Component("discovery")
//	log.Info("started") // Output: time=... level=INFO component=discovery msg=started
func Component(name string) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	return Logger.With("component", name)
}

// WithContext returns a logger that includes context values.
// This is useful for connection-scoped logging.
func WithContext(ctx context.Context) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}

	// Extract common context values if present
	logger := Logger

	if peer, ok := ctx.Value(contextKeyPeer).(string); ok {
		logger = logger.With("peer", peer)
	}
	if connID, ok := ctx.Value(contextKeyConnID).(uint64); ok {
		logger = logger.With("conn_id", connID)
	}

	return logger
}

// Context key types for type-safe context value extraction.
type contextKey int

const (
	contextKeyPeer contextKey = iota
	contextKeyConnID
)

// ContextWithPeer adds the remote peer address to the context for logging.
func ContextWithPeer(ctx context.Context, peer string) context.Context {
	return context.WithValue(ctx, contextKeyPeer, peer)
}

// ContextWithConnID adds a per-connection sequence number to the context for logging.
func ContextWithConnID(ctx context.Context, connID uint64) context.Context {
	return context.WithValue(ctx, contextKeyConnID, connID)
}

// ParseLevel maps a config level name to a slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch name {
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

// =============================================================================
// Convenience Functions
// =============================================================================

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Info(msg, args...)
}

// Warn logs at warning level.
func Warn(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Error(msg, args...)
}
