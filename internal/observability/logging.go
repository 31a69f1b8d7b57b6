// Package observability provides correlation-scoped structured logging and
// Prometheus metrics for the AIDIS daemon.
//
// Logging is built on log/slog. Every tool call runs with a correlation id
// bound into its context; the logger extracts it so all records for one
// request can be stitched together. Logs always go to stderr; stdout is
// reserved for the stdio JSON-RPC framing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// ContextKey is the type for context keys carried through requests.
type ContextKey string

const (
	// CorrelationIDKey is the context key for per-request correlation ids.
	CorrelationIDKey ContextKey = "correlation_id"

	// SessionIDKey is the context key for the caller's session id.
	SessionIDKey ContextKey = "session_id"

	// CallerIDKey is the context key for the transport caller identity.
	CallerIDKey ContextKey = "caller_id"
)

// LogConfig configures the logging behavior.
type LogConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error".
	Level string

	// Format specifies output format: "json" or "text".
	Format string

	// Output is the writer for log output (defaults to os.Stderr).
	Output io.Writer

	// AddSource includes file and line number in log records.
	AddSource bool
}

// Logger provides structured logging with correlation-id extraction and
// redaction of common credential shapes.
type Logger struct {
	logger  *slog.Logger
	redacts []*regexp.Regexp
}

// redactPatterns covers the credential shapes most likely to leak into
// context content or connection errors.
var redactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(password|passwd|secret|token|api[_-]?key)[\s:=]+["']?[^\s"']{8,}["']?`),
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),
}

// NewLogger creates a structured logger. Empty config fields default to
// level info, text format, stderr output.
func NewLogger(cfg LogConfig) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return &Logger{logger: slog.New(handler), redacts: redactPatterns}
}

// NewTestLogger returns a logger that discards output, for use in tests.
func NewTestLogger() *Logger {
	return NewLogger(LogConfig{Output: io.Discard})
}

// With returns a logger carrying fixed key-value pairs, typically a
// component name.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...), redacts: l.redacts}
}

// Debug logs a debug-level message with optional key-value pairs.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args...)
}

// Info logs an info-level message with optional key-value pairs.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args...)
}

// Warn logs a warning-level message with optional key-value pairs.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args...)
}

// Error logs an error-level message with optional key-value pairs.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelError, msg, args...)
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	msg = l.redact(msg)

	attrs := make([]any, 0, len(args)+6)
	if id := CorrelationID(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	if sid, ok := ctx.Value(SessionIDKey).(string); ok && sid != "" {
		attrs = append(attrs, slog.String("session_id", sid))
	}
	if caller, ok := ctx.Value(CallerIDKey).(string); ok && caller != "" {
		attrs = append(attrs, slog.String("caller", caller))
	}

	for i := 0; i+1 < len(args); i += 2 {
		if s, ok := args[i+1].(string); ok {
			args[i+1] = l.redact(s)
		}
		if err, ok := args[i+1].(error); ok && err != nil {
			args[i+1] = l.redact(err.Error())
		}
	}
	attrs = append(attrs, args...)

	l.logger.Log(ctx, level, msg, attrs...)
}

func (l *Logger) redact(s string) string {
	for _, re := range l.redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

// WithCorrelationID binds a correlation id into the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// CorrelationID extracts the correlation id bound to ctx, if any.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithCaller binds the transport caller identity into the context.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, CallerIDKey, caller)
}

// Caller extracts the caller identity bound to ctx, defaulting to "local".
func Caller(ctx context.Context) string {
	if c, ok := ctx.Value(CallerIDKey).(string); ok && c != "" {
		return c
	}
	return "local"
}
