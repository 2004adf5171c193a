package logutil

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogLogger_Basic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(&buf, slog.LevelDebug)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	for _, want := range []string{
		`"level":"DEBUG"`, `"level":"INFO"`, `"level":"WARN"`, `"level":"ERROR"`,
		`"msg":"debug message"`, `"msg":"info message"`, `"msg":"warn message"`, `"msg":"error message"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got: %s", want, output)
		}
	}
}

func TestSlogLogger_FormatWithArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(&buf, slog.LevelDebug)

	logger.Info("formatted %s with %d arguments", "message", 2)

	if !strings.Contains(buf.String(), `"msg":"formatted message with 2 arguments"`) {
		t.Errorf("formatted message not found in output: %s", buf.String())
	}
}

func TestSlogLogger_ContextAwareMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(&buf, slog.LevelDebug)

	ctx := WithCorrelationID(context.Background(), "req-generate-nginx-001")
	logger.DebugContext(ctx, "debug context message")
	logger.InfoContext(ctx, "info context message")
	logger.WarnContext(ctx, "warn context message")
	logger.ErrorContext(ctx, "error context message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 log lines, got %d", len(lines))
	}

	for i, line := range lines {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse JSON log entry %d: %v", i, err)
		}
		if id, ok := entry["correlation_id"].(string); !ok || id != "req-generate-nginx-001" {
			t.Errorf("log entry %d missing/incorrect correlation_id: %v", i, entry["correlation_id"])
		}
	}
}

func TestSlogLogger_WithContextCarriesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(&buf, slog.LevelDebug)

	ctx := WithCorrelationID(context.Background(), "req-update-redis-002")
	contextLogger := logger.WithContext(ctx)

	contextLogger.Info("message using the bound context")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log entry: %v", err)
	}
	if id, ok := entry["correlation_id"].(string); !ok || id != "req-update-redis-002" {
		t.Errorf("expected correlation_id req-update-redis-002, got: %v", entry["correlation_id"])
	}
}

func TestSlogLogger_EmptyContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(&buf, slog.LevelDebug)

	logger.InfoContext(context.TODO(), "message with empty context")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log entry: %v", err)
	}
	if _, ok := entry["correlation_id"]; ok {
		t.Error("correlation_id found in log with empty context, expected none")
	}
	if msg, ok := entry["msg"]; !ok || msg != "message with empty context" {
		t.Errorf("incorrect or missing message, got: %v", msg)
	}
}

func TestConvertLogLevelToSlog(t *testing.T) {
	testCases := []struct {
		level       LogLevel
		expectLevel slog.Level
	}{
		{DebugLevel, slog.LevelDebug},
		{InfoLevel, slog.LevelInfo},
		{WarnLevel, slog.LevelWarn},
		{ErrorLevel, slog.LevelError},
		{LogLevel(99), slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.level.String(), func(t *testing.T) {
			if got := ConvertLogLevelToSlog(tc.level); got != tc.expectLevel {
				t.Errorf("expected level %v, got %v", tc.expectLevel, got)
			}
		})
	}
}

func TestNewSlogLoggerFromLogLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLoggerFromLogLevel(&buf, InfoLevel)

	logger.Debug("debug message")
	logger.Info("info message")

	output := buf.String()
	if strings.Contains(output, `"msg":"debug message"`) {
		t.Error("debug message should have been filtered out")
	}
	if !strings.Contains(output, `"msg":"info message"`) {
		t.Error("info message not found in output")
	}
}
