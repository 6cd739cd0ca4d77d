// Package logger provides structured logging with context support.
//
// The Logger interface is backed by zerolog:
//   - JSON output for production, console output for development
//   - Log levels (Debug, Info, Warn, Error, Fatal)
//   - Context propagation (request ID, user ID)
//   - Field-based logging
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level represents the severity of a log entry.
type Level int

const (
	// DebugLevel for debug messages.
	DebugLevel Level = iota
	// InfoLevel for informational messages.
	InfoLevel
	// WarnLevel for warning messages.
	WarnLevel
	// ErrorLevel for error messages.
	ErrorLevel
	// FatalLevel for fatal messages (calls os.Exit(1)).
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a config string into a Level. Unknown values map to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// Logger is the main logger interface.
type Logger interface {
	// Level management
	SetLevel(level Level)
	GetLevel() Level

	// Basic logging
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// Context logging
	WithContext(ctx context.Context) Logger
	WithFields(fields ...Field) Logger

	// Writer interface
	Writer() io.Writer
}

// Config holds logger configuration.
type Config struct {
	Level  Level
	Format string // json or console
	Output io.Writer
	Caller bool // Include caller information
}

// ZeroLogger implements Logger on top of zerolog.
type ZeroLogger struct {
	zl     zerolog.Logger
	output io.Writer
	level  *levelHolder
}

type levelHolder struct {
	level Level
}

// New creates a new logger with the given configuration.
func New(cfg *Config) Logger {
	if cfg == nil {
		cfg = &Config{Level: InfoLevel, Format: "json"}
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var w io.Writer = out
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(w).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.CallerWithSkipFrameCount(3)
	}

	return &ZeroLogger{
		zl:     ctx.Logger().Level(cfg.Level.zerolog()),
		output: out,
		level:  &levelHolder{level: cfg.Level},
	}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &ZeroLogger{zl: zerolog.Nop(), output: io.Discard, level: &levelHolder{level: FatalLevel}}
}

// SetLevel sets the minimum log level.
func (l *ZeroLogger) SetLevel(level Level) {
	l.level.level = level
	l.zl = l.zl.Level(level.zerolog())
}

// GetLevel returns the current log level.
func (l *ZeroLogger) GetLevel() Level {
	return l.level.level
}

// Debug logs a debug message.
func (l *ZeroLogger) Debug(msg string, fields ...Field) {
	emit(l.zl.Debug(), msg, fields)
}

// Info logs an info message.
func (l *ZeroLogger) Info(msg string, fields ...Field) {
	emit(l.zl.Info(), msg, fields)
}

// Warn logs a warning message.
func (l *ZeroLogger) Warn(msg string, fields ...Field) {
	emit(l.zl.Warn(), msg, fields)
}

// Error logs an error message.
func (l *ZeroLogger) Error(msg string, fields ...Field) {
	emit(l.zl.Error(), msg, fields)
}

// Fatal logs a fatal message and exits.
func (l *ZeroLogger) Fatal(msg string, fields ...Field) {
	emit(l.zl.WithLevel(zerolog.FatalLevel), msg, fields)
	os.Exit(1)
}

// WithContext returns a logger with context fields.
func (l *ZeroLogger) WithContext(ctx context.Context) Logger {
	return l.WithFields(extractContextFields(ctx)...)
}

// WithFields returns a logger with additional fields.
func (l *ZeroLogger) WithFields(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	zctx := l.zl.With()
	for _, f := range fields {
		zctx = zctx.Interface(f.Key, f.Value)
	}
	return &ZeroLogger{zl: zctx.Logger(), output: l.output, level: l.level}
}

// Writer returns the logger's output writer.
func (l *ZeroLogger) Writer() io.Writer {
	return l.output
}

func emit(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			e = e.Str(f.Key, v)
		case int:
			e = e.Int(f.Key, v)
		case int64:
			e = e.Int64(f.Key, v)
		case float64:
			e = e.Float64(f.Key, v)
		case bool:
			e = e.Bool(f.Key, v)
		case error:
			e = e.AnErr(f.Key, v)
		default:
			e = e.Interface(f.Key, v)
		}
	}
	e.Msg(msg)
}

// Context keys for logger fields.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

// extractContextFields extracts logger fields from context.
func extractContextFields(ctx context.Context) []Field {
	if ctx == nil {
		return nil
	}
	var fields []Field
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, Field{Key: "request_id", Value: requestID})
	}
	if userID, ok := ctx.Value(userIDKey).(int64); ok && userID != 0 {
		fields = append(fields, Field{Key: "user_id", Value: userID})
	}
	return fields
}

// WithRequestID adds request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithUserID adds user ID to context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Helper functions for creating fields

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a float64 field.
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}
