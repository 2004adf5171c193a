package logutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// TestLogger satisfies LoggerInterface for unit tests: every message is
// echoed through t.Logf and captured for assertion via GetTestLogs.
type TestLogger struct {
	t     *testing.T
	mu    sync.Mutex
	logs  []string
	level LogLevel
	ctx   context.Context
}

var _ LoggerInterface = (*TestLogger)(nil)

// NewTestLogger creates a TestLogger capturing everything down to DEBUG.
func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, level: DebugLevel, ctx: context.Background()}
}

// WithContext records ctx and returns the same logger: TestLogger's capture
// buffer is shared regardless of context, so callers that bind a context
// (e.g. internal/genlog.New) still have every message land in GetTestLogs.
func (l *TestLogger) WithContext(ctx context.Context) LoggerInterface {
	if ctx == nil {
		ctx = context.Background()
	}
	l.ctx = ctx
	return l
}

// emit formats, echoes, and captures one message if level clears the
// threshold.
func (l *TestLogger) emit(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	line := fmt.Sprintf("[%s] %s", level, fmt.Sprintf(format, args...))
	l.t.Logf("%s", line)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, line)
}

func (l *TestLogger) Debug(format string, args ...interface{}) { l.emit(DebugLevel, format, args...) }
func (l *TestLogger) Info(format string, args ...interface{})  { l.emit(InfoLevel, format, args...) }
func (l *TestLogger) Warn(format string, args ...interface{})  { l.emit(WarnLevel, format, args...) }
func (l *TestLogger) Error(format string, args ...interface{}) { l.emit(ErrorLevel, format, args...) }

// Fatal captures like Error but never exits the test process.
func (l *TestLogger) Fatal(format string, args ...interface{}) {
	l.emit(ErrorLevel, "FATAL: "+format, args...)
}

func (l *TestLogger) DebugContext(_ context.Context, format string, args ...interface{}) {
	l.Debug(format, args...)
}

func (l *TestLogger) InfoContext(_ context.Context, format string, args ...interface{}) {
	l.Info(format, args...)
}

func (l *TestLogger) WarnContext(_ context.Context, format string, args ...interface{}) {
	l.Warn(format, args...)
}

func (l *TestLogger) ErrorContext(_ context.Context, format string, args ...interface{}) {
	l.Error(format, args...)
}

func (l *TestLogger) FatalContext(_ context.Context, format string, args ...interface{}) {
	l.Fatal(format, args...)
}

func (l *TestLogger) Println(v ...interface{}) {
	l.Info("%s", strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l *TestLogger) Printf(format string, v ...interface{}) {
	l.Info(format, v...)
}

// GetTestLogs returns a copy of every captured message.
func (l *TestLogger) GetTestLogs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	logs := make([]string, len(l.logs))
	copy(logs, l.logs)
	return logs
}

// ClearTestLogs discards the captured messages.
func (l *TestLogger) ClearTestLogs() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = nil
}
