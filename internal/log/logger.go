// Package log wraps slog with request correlation. Request handlers get a
// logger carrying the correlation ID through the request context.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/natefinch/lumberjack"
)

type contextKey int

const (
	correlationIDKey contextKey = iota
	loggerKey
)

// CorrelationIDAttr is the attribute name every correlated record carries.
const CorrelationIDAttr = "correlation_id"

const (
	// LogLevelEnvKey selects the minimum level: debug, info, warn or error.
	LogLevelEnvKey = "LOG_LEVEL"
	// LogFormatEnvKey selects json (default) or text output.
	LogFormatEnvKey = "LOG_FORMAT"
	// LogFileEnvKey additionally writes records to a size-rotated file.
	LogFileEnvKey = "LOG_FILE"
)

const (
	rotateMaxSizeMB  = 50
	rotateMaxBackups = 7
	rotateMaxAgeDays = 14
)

type Logger struct {
	*slog.Logger
}

type Options struct {
	Level  slog.Level
	Text   bool
	Output io.Writer
	// File, when set, tees output into a rotated log file.
	File string
}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.File != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    rotateMaxSizeMB,
			MaxBackups: rotateMaxBackups,
			MaxAge:     rotateMaxAgeDays,
			Compress:   true,
		})
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var h slog.Handler = slog.NewJSONHandler(out, handlerOpts)
	if opts.Text {
		h = slog.NewTextHandler(out, handlerOpts)
	}
	return &Logger{Logger: slog.New(h)}
}

// NewLoggerWithJSONOutput builds the process logger from LOG_LEVEL,
// LOG_FORMAT and LOG_FILE, writing to stdout.
func NewLoggerWithJSONOutput() *Logger {
	return New(Options{
		Level: ParseLevel(os.Getenv(LogLevelEnvKey)),
		Text:  strings.EqualFold(strings.TrimSpace(os.Getenv(LogFormatEnvKey)), "text"),
		File:  strings.TrimSpace(os.Getenv(LogFileEnvKey)),
	})
}

// ParseLevel falls back to info for empty or unknown values.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
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

func GenerateCorrelationID() string {
	return uuid.NewString()
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the ID stored on ctx, or a fresh one.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok && id != "" {
		return id
	}
	return GenerateCorrelationID()
}

func ContextWithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func (l *Logger) WithCorrelationID(ctx context.Context) *Logger {
	return &Logger{Logger: l.Logger.With(CorrelationIDAttr, CorrelationID(ctx))}
}

// GetLoggerInstanceFromContext prefers the request logger stored on ctx, then
// fallback tagged with ctx's correlation ID, then a fresh process logger.
func GetLoggerInstanceFromContext(ctx context.Context, fallback *Logger) *Logger {
	if ctx == nil {
		if fallback != nil {
			return fallback
		}
		return NewLoggerWithJSONOutput()
	}
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	if fallback == nil {
		fallback = NewLoggerWithJSONOutput()
	}
	return fallback.WithCorrelationID(ctx)
}
