// Package logutil is the logging backbone cmd/saigen and its internal
// packages use to report progress across a generation run. A correlation ID
// carried on context.Context ties together every log line belonging to one
// software name's generation, even once a batch run fans that work out
// across goroutines (internal/batch).
//
// LoggerInterface abstracts over two implementations selected by cmd/saigen's
// -log-format flag: Logger, a plain prefixed writer for interactive use, and
// SlogLogger, a log/slog-backed JSON emitter for piping into a log
// aggregator. Neither logger scrubs secrets on its own — RedactSecrets (see
// redact.go) is applied by internal/genlog before any LLM prompt, response,
// or error text reaches either one, since that's the only place raw
// provider traffic is captured for storage.
package logutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Swapped out in tests so Fatal paths can be exercised.
var osExit = os.Exit

// ContextKey types context keys so they cannot collide with other packages'.
type ContextKey string

// CorrelationIDKey carries the per-generation correlation ID on a context.
const CorrelationIDKey ContextKey = "correlation_id"

// WithCorrelationID returns ctx carrying a correlation ID. With no id
// argument (or an empty one) an existing ID is preserved and a fresh UUID is
// minted only when none is present; a non-empty id always replaces whatever
// the context held.
func WithCorrelationID(ctx context.Context, id ...string) context.Context {
	custom := ""
	if len(id) > 0 {
		custom = id[0]
	}
	if custom != "" {
		return context.WithValue(ctx, CorrelationIDKey, custom)
	}
	if GetCorrelationID(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, CorrelationIDKey, uuid.New().String())
}

// GetCorrelationID returns the context's correlation ID, or "" when none is
// set (including a nil context).
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(CorrelationIDKey).(string)
	return id
}

// LoggerInterface is what every package in this module logs through. The
// *Context variants stamp the context's correlation ID onto the line; the
// bare variants fall back to whatever context the logger was bound to via
// WithContext.
type LoggerInterface interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
	FatalContext(ctx context.Context, msg string, args ...any)

	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	Fatal(format string, v ...interface{})

	Println(v ...interface{})
	Printf(format string, v ...interface{})

	// WithContext returns a logger bound to ctx, so the bare logging
	// methods pick up ctx's correlation ID.
	WithContext(ctx context.Context) LoggerInterface
}

// LogLevel orders message severities; a Logger drops anything below its
// configured level.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger writes timestamped, level-tagged, prefixed lines to a single
// writer. Safe for concurrent use.
type Logger struct {
	mu     sync.Mutex
	level  LogLevel
	writer io.Writer
	prefix string
	ctx    context.Context
}

var _ LoggerInterface = (*Logger)(nil)

// NewLogger creates a Logger at the given threshold. A nil writer defaults
// to os.Stderr.
func NewLogger(level LogLevel, writer io.Writer, prefix string) *Logger {
	if writer == nil {
		writer = os.Stderr
	}
	return &Logger{level: level, writer: writer, prefix: prefix, ctx: context.Background()}
}

// WithContext returns a copy of l bound to ctx; the receiver is unchanged.
func (l *Logger) WithContext(ctx context.Context) LoggerInterface {
	return &Logger{level: l.level, writer: l.writer, prefix: l.prefix, ctx: ctx}
}

// log formats and emits one line if level clears the threshold. The
// correlation ID, when present on ctx, is appended as a structured suffix so
// grep over a batch run's interleaved output can isolate one generation.
func (l *Logger) log(ctx context.Context, level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	line := fmt.Sprintf("%s [%s] %s%s",
		time.Now().Format("2006-01-02 15:04:05.000"), level, l.prefix, fmt.Sprintf(format, args...))
	if id := GetCorrelationID(ctx); id != "" {
		line += fmt.Sprintf(" [correlation_id=%s]", id)
	}
	_, _ = fmt.Fprintln(l.writer, line)
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(l.ctx, DebugLevel, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(l.ctx, InfoLevel, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(l.ctx, WarnLevel, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(l.ctx, ErrorLevel, format, args...) }

// Fatal logs at ERROR level and exits the process.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(l.ctx, ErrorLevel, format, args...)
	osExit(1)
}

func (l *Logger) DebugContext(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, DebugLevel, format, args...)
}

func (l *Logger) InfoContext(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, InfoLevel, format, args...)
}

func (l *Logger) WarnContext(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, WarnLevel, format, args...)
}

func (l *Logger) ErrorContext(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, ErrorLevel, format, args...)
}

func (l *Logger) FatalContext(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, ErrorLevel, format, args...)
	osExit(1)
}

// SetLevel changes the threshold for subsequent messages.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Println logs at INFO level.
func (l *Logger) Println(v ...interface{}) {
	l.Info("%s", strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Printf logs at INFO level.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.Info(format, v...)
}
