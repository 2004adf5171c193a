package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(at time.Time) CollectorOption {
	return WithClock(func() time.Time { return at })
}

func TestDefaultCollector_RecordDuration(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	c := NewCollector(nil, fixedClock(at))

	c.RecordDuration("generation_duration_seconds", 150*time.Millisecond, "provider", "openai-primary")

	metrics := c.Metrics()
	require.Len(t, metrics, 1)
	m := metrics[0]
	assert.Equal(t, "generation_duration_seconds", m.Name)
	assert.Equal(t, TypeDuration, m.Type)
	assert.Equal(t, float64(150), m.Value)
	assert.Equal(t, "openai-primary", m.Labels["provider"])
	assert.True(t, m.Timestamp.Equal(at))
}

func TestDefaultCollector_StartTimer(t *testing.T) {
	ticks := []time.Time{
		time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), // timer start
		time.Date(2024, 1, 15, 10, 30, 1, 0, time.UTC), // stop() measures
		time.Date(2024, 1, 15, 10, 30, 1, 0, time.UTC), // record timestamp
	}
	i := 0
	c := NewCollector(nil, WithClock(func() time.Time {
		tick := ticks[min(i, len(ticks)-1)]
		i++
		return tick
	}))

	stop := c.StartTimer("generation_duration_seconds", "software", "nginx")
	stop()

	metrics := c.Metrics()
	require.Len(t, metrics, 1)
	assert.Equal(t, float64(1000), metrics[0].Value)
	assert.Equal(t, "nginx", metrics[0].Labels["software"])
}

func TestDefaultCollector_Counters(t *testing.T) {
	c := NewCollector(nil)

	c.IncrCounter("generation_count", "success", "true")
	c.IncrCounter("generation_count", "success", "true")
	c.AddCounter("batch_items_total", 12, "success", "false")

	metrics := c.Metrics()
	require.Len(t, metrics, 3)
	assert.Equal(t, float64(1), metrics[0].Value)
	assert.Equal(t, TypeCounter, metrics[0].Type)
	assert.Equal(t, float64(12), metrics[2].Value)
	assert.Equal(t, "false", metrics[2].Labels["success"])
}

func TestDefaultCollector_SetGauge(t *testing.T) {
	c := NewCollector(nil)
	c.SetGauge("rate_limit_tokens_available", 75.5, "provider", "anthropic-fallback")

	metrics := c.Metrics()
	require.Len(t, metrics, 1)
	assert.Equal(t, TypeGauge, metrics[0].Type)
	assert.Equal(t, 75.5, metrics[0].Value)
}

func TestDefaultCollector_FlushExportsAndClears(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(NewJSONLinesExporter(&buf),
		fixedClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)))

	c.RecordDuration("generation_duration_seconds", 100*time.Millisecond, "provider", "openai-primary")
	c.IncrCounter("generation_count")

	require.NoError(t, c.Flush())
	assert.Empty(t, c.Metrics(), "flush must clear the buffer")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var m Metric
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &m))
	assert.Equal(t, "generation_duration_seconds", m.Name)
}

func TestDefaultCollector_FlushWithNilExporterKeepsBuffer(t *testing.T) {
	c := NewCollector(nil)
	c.IncrCounter("generation_count")

	require.NoError(t, c.Flush())
	assert.Len(t, c.Metrics(), 1)
}

func TestDefaultCollector_ConcurrentRecording(t *testing.T) {
	// Simulates batch.Engine's worker goroutines all reporting completions
	// at once.
	c := NewCollector(nil)
	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				c.IncrCounter("batch_items_total", "worker", fmt.Sprint(id))
			}
		}(worker)
	}
	wg.Wait()

	assert.Len(t, c.Metrics(), 200)
}

func TestNoopCollector(t *testing.T) {
	c := NewNoopCollector()

	c.RecordDuration("generation_duration_seconds", time.Second)
	c.StartTimer("generation_duration_seconds")()
	c.IncrCounter("generation_count")
	c.AddCounter("batch_items_total", 10)
	c.SetGauge("rate_limit_tokens_available", 1.0)

	assert.NoError(t, c.Flush())
	assert.Nil(t, c.Metrics())
}

func TestJSONLinesExporter_OneJSONObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewJSONLinesExporter(&buf)

	err := exporter.Export([]Metric{
		{Name: "generation_count", Type: TypeCounter, Value: 1},
		{Name: "generation_duration_seconds", Type: TypeDuration, Value: 840, Labels: map[string]string{"software": "redis"}},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var m Metric
		assert.NoError(t, json.Unmarshal([]byte(line), &m))
	}
}

func TestParseLabels(t *testing.T) {
	assert.Nil(t, parseLabels(nil))
	assert.Equal(t, map[string]string{"provider": "openai-primary"}, parseLabels([]string{"provider", "openai-primary"}))
	// An odd count leaves the trailing key's value empty.
	assert.Equal(t, map[string]string{"provider": ""}, parseLabels([]string{"provider"}))
}
