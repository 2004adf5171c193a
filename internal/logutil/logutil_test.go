package logutil

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "INFO", InfoLevel.String())
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf, "[saigen] ")

	logger.Debug("resolving %s", "nginx")
	logger.Info("context built for %s", "nginx")
	assert.Empty(t, buf.String(), "messages below the threshold must be dropped")

	logger.Warn("provider %q rate limited", "openai-primary")
	logger.Error("generation failed for %s", "nginx")

	out := buf.String()
	assert.Contains(t, out, `[WARN] [saigen] provider "openai-primary" rate limited`)
	assert.Contains(t, out, "[ERROR] [saigen] generation failed for nginx")
	assert.NotContains(t, out, "context built")
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(ErrorLevel, &buf, "")

	logger.Info("skipped")
	logger.SetLevel(DebugLevel)
	logger.Debug("resolved nginx to version 1.27")

	assert.NotContains(t, buf.String(), "skipped")
	assert.Contains(t, buf.String(), "[DEBUG] resolved nginx to version 1.27")
}

func TestLogger_ContextMethodsStampCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf, "")

	ctx := WithCorrelationID(context.Background(), "req-generate-nginx-001")
	logger.InfoContext(ctx, "writing %s", "ng/nginx/default.yaml")

	assert.Contains(t, buf.String(), "writing ng/nginx/default.yaml [correlation_id=req-generate-nginx-001]")

	buf.Reset()
	logger.InfoContext(context.Background(), "no id attached")
	assert.NotContains(t, buf.String(), "correlation_id=")
}

func TestLogger_WithContextBindsID(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(DebugLevel, &buf, "")

	ctx := WithCorrelationID(context.Background(), "req-generate-redis-002")
	bound := base.WithContext(ctx)
	bound.Info("deduplicated providers")

	assert.Contains(t, buf.String(), "[correlation_id=req-generate-redis-002]")

	// The original logger stays unbound.
	buf.Reset()
	base.Info("unbound line")
	assert.NotContains(t, buf.String(), "correlation_id=")
}

func TestLogger_PrintCompatibility(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf, "")

	logger.Printf("resolved %s to version %d", "nginx", 123)
	logger.Println("batch", "complete")

	assert.Contains(t, buf.String(), "[INFO] resolved nginx to version 123")
	assert.Contains(t, buf.String(), "[INFO] batch complete")
}

func TestLogger_Fatal(t *testing.T) {
	exitCode := -1
	orig := osExit
	osExit = func(code int) { exitCode = code }
	defer func() { osExit = orig }()

	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf, "")
	logger.Fatal("fatal %s", "generation aborted")

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, buf.String(), "[ERROR] fatal generation aborted")

	exitCode = -1
	logger.FatalContext(WithCorrelationID(context.Background(), "req-batch-003"), "batch aborted")
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, buf.String(), "batch aborted [correlation_id=req-batch-003]")
}

func TestNewLogger_NilWriterDefaultsToStderr(t *testing.T) {
	logger := NewLogger(InfoLevel, nil, "")
	require.NotNil(t, logger)
	assert.NotNil(t, logger.writer)
}

func TestLogger_ConcurrentWritesStayLineAtomic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf, "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Info("generation %d complete", n)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 50)
	for _, line := range lines {
		assert.Contains(t, line, "[INFO] generation ")
	}
}

func TestWithCorrelationID(t *testing.T) {
	t.Run("generates UUID when absent", func(t *testing.T) {
		ctx := WithCorrelationID(context.Background())
		id := GetCorrelationID(ctx)
		assert.Len(t, id, 36)
	})

	t.Run("preserves existing ID on no-arg call", func(t *testing.T) {
		ctx := WithCorrelationID(context.Background(), "req-generate-nginx-001")
		same := WithCorrelationID(ctx)
		assert.Equal(t, "req-generate-nginx-001", GetCorrelationID(same))
	})

	t.Run("empty custom ID behaves like no-arg", func(t *testing.T) {
		ctx := WithCorrelationID(context.Background(), "req-generate-nginx-001")
		same := WithCorrelationID(ctx, "")
		assert.Equal(t, "req-generate-nginx-001", GetCorrelationID(same))
	})

	t.Run("non-empty custom ID replaces", func(t *testing.T) {
		ctx := WithCorrelationID(context.Background(), "req-generate-nginx-001")
		replaced := WithCorrelationID(ctx, "req-update-nginx-002")
		assert.Equal(t, "req-update-nginx-002", GetCorrelationID(replaced))
	})
}

func TestGetCorrelationID_Absent(t *testing.T) {
	assert.Equal(t, "", GetCorrelationID(context.Background()))
	assert.Equal(t, "", GetCorrelationID(context.TODO()))

	type otherKey string
	ctx := context.WithValue(context.Background(), otherKey("correlation_id"), "not-ours")
	assert.Equal(t, "", GetCorrelationID(ctx))
}
