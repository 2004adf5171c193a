package satest

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSuite(name string, ok bool) Suite {
	status := StatusPassed
	if !ok {
		status = StatusFailed
	}
	return Suite{
		Name:      name,
		StartTime: time.Unix(0, 0),
		EndTime:   time.Unix(0, 0).Add(5 * time.Millisecond),
		Results: []Result{
			{Name: "package_managers_resolve", Status: StatusPassed, Message: "all configured provider package managers resolve"},
			{Name: "paths_exist", Status: status, Message: "missing paths: [/tmp/nope]"},
			{Name: "commands_resolve", Status: StatusSkipped, Message: "no commands defined"},
		},
	}
}

func TestReporter_ReportText(t *testing.T) {
	r := NewReporter("text")
	out := r.Report(sampleSuite("nginx.yaml", true))

	assert.Contains(t, out, "nginx.yaml")
	assert.Contains(t, out, "[PASS] package_managers_resolve")
	assert.Contains(t, out, "[SKIP] commands_resolve")
}

func TestReporter_ReportJSON(t *testing.T) {
	r := NewReporter("json")
	out := r.Report(sampleSuite("nginx.yaml", false))

	var dto suiteDTOType
	require.NoError(t, json.Unmarshal([]byte(out), &dto))
	assert.Equal(t, "nginx.yaml", dto.Name)
	assert.False(t, dto.OK)
	assert.Equal(t, 1, dto.Failed)
	assert.Equal(t, 1, dto.Passed)
	assert.Equal(t, 1, dto.Skipped)
}

func TestReporter_ReportBatchText(t *testing.T) {
	r := NewReporter("text")
	out := r.ReportBatch([]Suite{sampleSuite("nginx.yaml", true), sampleSuite("redis.yml", false)})

	assert.True(t, strings.Contains(out, "1/2 documents OK"))
	assert.Contains(t, out, "[OK] nginx.yaml")
	assert.Contains(t, out, "[FAIL] redis.yml")
}

func TestReporter_ReportBatchJSON(t *testing.T) {
	r := NewReporter("json")
	out := r.ReportBatch([]Suite{sampleSuite("nginx.yaml", true), sampleSuite("redis.yml", false)})

	var payload struct {
		Suites  []suiteDTOType `json:"suites"`
		Summary batchSummary   `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.Len(t, payload.Suites, 2)
	assert.Equal(t, 1, payload.Summary.OKDocuments)
	assert.Equal(t, 1, payload.Summary.Failed)
}
