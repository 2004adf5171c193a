package logutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// SlogLogger implements LoggerInterface on top of log/slog, emitting one
// JSON record per log line. cmd/saigen selects it with -log-format json so
// a batch run's output can be piped straight into a log aggregator instead
// of the plain-text Logger.
type SlogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

var _ LoggerInterface = (*SlogLogger)(nil)

// NewSlogLogger creates a JSON-structured logger writing to writer (os.Stderr
// if nil) at the given slog level.
func NewSlogLogger(writer io.Writer, level slog.Level) *SlogLogger {
	if writer == nil {
		writer = os.Stderr
	}
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	return &SlogLogger{logger: slog.New(handler), ctx: context.Background()}
}

// NewSlogLoggerFromLogLevel adapts our LogLevel enum to slog.Level so
// cmd/saigen's -log-level flag works the same way for either logger.
func NewSlogLoggerFromLogLevel(writer io.Writer, level LogLevel) *SlogLogger {
	return NewSlogLogger(writer, ConvertLogLevelToSlog(level))
}

// ConvertLogLevelToSlog maps our LogLevel enum onto slog.Level.
func ConvertLogLevelToSlog(level LogLevel) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithContext returns a new logger carrying ctx, used to thread correlation
// IDs through to every subsequent log line.
func (s *SlogLogger) WithContext(ctx context.Context) LoggerInterface {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SlogLogger{logger: s.logger, ctx: ctx}
}

func (s *SlogLogger) Debug(format string, args ...interface{}) { s.DebugContext(s.ctx, format, args...) }
func (s *SlogLogger) Info(format string, args ...interface{})  { s.InfoContext(s.ctx, format, args...) }
func (s *SlogLogger) Warn(format string, args ...interface{})  { s.WarnContext(s.ctx, format, args...) }
func (s *SlogLogger) Error(format string, args ...interface{}) { s.ErrorContext(s.ctx, format, args...) }
func (s *SlogLogger) Fatal(format string, args ...interface{}) { s.FatalContext(s.ctx, format, args...) }

func (s *SlogLogger) DebugContext(ctx context.Context, format string, args ...interface{}) {
	s.log(ctx, slog.LevelDebug, format, args...)
}

func (s *SlogLogger) InfoContext(ctx context.Context, format string, args ...interface{}) {
	s.log(ctx, slog.LevelInfo, format, args...)
}

func (s *SlogLogger) WarnContext(ctx context.Context, format string, args ...interface{}) {
	s.log(ctx, slog.LevelWarn, format, args...)
}

func (s *SlogLogger) ErrorContext(ctx context.Context, format string, args ...interface{}) {
	s.log(ctx, slog.LevelError, format, args...)
}

func (s *SlogLogger) FatalContext(ctx context.Context, format string, args ...interface{}) {
	s.log(ctx, slog.LevelError, format, args...)
	osExit(1)
}

// log formats msg, attaches the correlation ID from ctx (falling back to
// the logger's own context when ctx carries none) and writes one JSON
// record. LLM API keys and bearer tokens embedded in a formatted message
// are the caller's responsibility to scrub first — see RedactSecrets,
// which genlog applies before any prompt/response text reaches this path.
func (s *SlogLogger) log(ctx context.Context, level slog.Level, format string, args ...interface{}) {
	if ctx == nil {
		ctx = s.ctx
	}
	msg := fmt.Sprintf(format, args...)

	var attrs []any
	if id := GetCorrelationID(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	s.logger.Log(ctx, level, msg, attrs...)
}

// Println implements LoggerInterface by logging at info level.
func (s *SlogLogger) Println(v ...interface{}) { s.InfoContext(s.ctx, fmt.Sprintln(v...)) }

// Printf implements LoggerInterface by logging at info level.
func (s *SlogLogger) Printf(format string, v ...interface{}) { s.InfoContext(s.ctx, format, v...) }
