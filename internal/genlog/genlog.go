// Package genlog writes one structured JSON record per generation run, plus
// a sibling human-readable .log file, updated after every event.
// Large values are serialized via a structural projection (ToMap) rather
// than by raw reference, so embeddings and other heavy internals never end
// up on disk.
package genlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example42/saigen/internal/logutil"
)

// StepStatus is the lifecycle state of one process step.
type StepStatus string

const (
	StepStarted   StepStatus = "started"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Step is one named stage of the orchestrator's state machine.
type Step struct {
	Name     string                 `json:"name"`
	Status   StepStatus             `json:"status"`
	Duration time.Duration          `json:"duration"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// LLMInteraction records one call to a provider adapter, successful or not.
type LLMInteraction struct {
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	Prompt       string        `json:"prompt"`
	Response     string        `json:"response,omitempty"`
	TokensUsed   *int          `json:"tokens_used,omitempty"`
	CostEstimate *float64      `json:"cost_estimate,omitempty"`
	Duration     time.Duration `json:"duration"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	RetryAttempt bool          `json:"retry_attempt,omitempty"`
}

// DataOp records a parse/schema-validate/url-filter/save step outcome.
type DataOp struct {
	Name     string        `json:"name"`
	Success  bool          `json:"success"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ContextSummary is a structural projection of the GenerationContext used
// for one run — counts and per-repo summaries, never raw embeddings or the
// full repository payload.
type ContextSummary struct {
	SoftwareName        string   `json:"software_name"`
	TargetProviders     []string `json:"target_providers"`
	RepositoryPackages  int      `json:"repository_packages"`
	RepositorySources   []string `json:"repository_sources"`
	SimilarSaidataCount int      `json:"similar_saidata_count"`
	SampleSaidataCount  int      `json:"sample_saidata_count"`
	SoftwareCategory    string   `json:"software_category,omitempty"`
}

// Record is the full JSON document written for one run.
type Record struct {
	SessionID       string                 `json:"session_id"`
	SoftwareName    string                 `json:"software_name"`
	StartTime       time.Time              `json:"start_time"`
	EndTime         time.Time              `json:"end_time,omitempty"`
	RequestSummary  map[string]interface{} `json:"request_summary"`
	Context         ContextSummary         `json:"context_summary"`
	Steps           []Step                 `json:"steps"`
	LLMInteractions []LLMInteraction       `json:"llm_interactions"`
	DataOps         []DataOp               `json:"data_ops"`
	ResultSummary   map[string]interface{} `json:"result_summary,omitempty"`
	Errors          []string               `json:"errors,omitempty"`
	Warnings        []string               `json:"warnings,omitempty"`
}

// Logger writes one Record to disk, updating it after every event. It owns
// one JSON file and one human-readable .log file per session; concurrent
// batch tasks each get their own Logger and therefore don't contend.
type Logger struct {
	mu       sync.Mutex
	record   Record
	jsonPath string
	textPath string
	textFile *os.File
	humanLog logutil.LoggerInterface
}

// New starts a session for softwareName, writing session-<id>.json and
// session-<id>.log under dir. humanLog, if non-nil, is wrapped with
// logutil.NewRedactingLogger so an LLM API key or bearer token embedded in
// a prompt, response, or error string never reaches the text sink in the
// clear; LogLLMInteraction applies the same scrubbing before the raw
// exchange is stored in the JSON record.
func New(dir, softwareName string, humanLog logutil.LoggerInterface) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("genlog: creating log dir: %w", err)
	}

	sessionID := uuid.New().String()
	base := filepath.Join(dir, "session-"+sessionID)

	textFile, err := os.Create(base + ".log")
	if err != nil {
		return nil, fmt.Errorf("genlog: creating text log: %w", err)
	}

	if humanLog != nil {
		humanLog = logutil.NewRedactingLogger(humanLog)
	}

	l := &Logger{
		record: Record{
			SessionID:    sessionID,
			SoftwareName: softwareName,
			StartTime:    time.Now(),
		},
		jsonPath: base + ".json",
		textPath: base + ".log",
		textFile: textFile,
		humanLog: humanLog,
	}
	l.writeLine("session %s started for %q", sessionID, softwareName)
	if err := l.flush(); err != nil {
		return nil, err
	}
	return l, nil
}

// SetRequestSummary records the inbound request for post-mortem analysis.
func (l *Logger) SetRequestSummary(summary map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record.RequestSummary = summary
	_ = l.flushLocked()
}

// SetContext records a structural projection of the GenerationContext used.
func (l *Logger) SetContext(ctx ContextSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record.Context = ctx
	_ = l.flushLocked()
}

// LogStep appends one process step and flushes immediately.
func (l *Logger) LogStep(step Step) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record.Steps = append(l.record.Steps, step)
	l.writeLineLocked("step %s: %s (%s)", step.Name, step.Status, step.Duration)
	_ = l.flushLocked()
}

// LogLLMInteraction appends one LLM exchange and flushes immediately. The
// prompt, response, and error text are scrubbed of known LLM provider
// credential shapes (logutil.RedactSecrets) before storage: the JSON record
// is written to disk, so raw API keys must never reach it even though
// they're absent from the summary line logged to the text sink.
func (l *Logger) LogLLMInteraction(in LLMInteraction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	in.Prompt = logutil.RedactSecrets(in.Prompt)
	in.Response = logutil.RedactSecrets(in.Response)
	in.Error = logutil.RedactSecrets(in.Error)
	l.record.LLMInteractions = append(l.record.LLMInteractions, in)
	status := "ok"
	if !in.Success {
		status = "failed: " + in.Error
	}
	l.writeLineLocked("llm call provider=%s model=%s retry=%v: %s", in.Provider, in.Model, in.RetryAttempt, status)
	_ = l.flushLocked()
}

// LogDataOp appends one data-pipeline operation outcome and flushes
// immediately.
func (l *Logger) LogDataOp(op DataOp) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record.DataOps = append(l.record.DataOps, op)
	l.writeLineLocked("data op %s: success=%v %s", op.Name, op.Success, op.Detail)
	_ = l.flushLocked()
}

// LogWarning appends a warning string.
func (l *Logger) LogWarning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record.Warnings = append(l.record.Warnings, msg)
	l.writeLineLocked("warning: %s", msg)
	_ = l.flushLocked()
}

// LogError appends an error string.
func (l *Logger) LogError(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record.Errors = append(l.record.Errors, msg)
	l.writeLineLocked("error: %s", msg)
	_ = l.flushLocked()
}

// Finish records the final result summary and end time, then closes the
// text sink.
func (l *Logger) Finish(resultSummary map[string]interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record.ResultSummary = resultSummary
	l.record.EndTime = time.Now()
	l.writeLineLocked("session finished")
	if err := l.flushLocked(); err != nil {
		return err
	}
	return l.textFile.Close()
}

func (l *Logger) writeLine(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeLineLocked(format, args...)
}

func (l *Logger) writeLineLocked(format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] ", time.Now().Format(time.RFC3339))
	line += fmt.Sprintf(format, args...)
	fmt.Fprintln(l.textFile, line)
	if l.humanLog != nil {
		l.humanLog.Info(format, args...)
	}
}

func (l *Logger) flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushLocked()
}

func (l *Logger) flushLocked() error {
	data, err := json.MarshalIndent(l.record, "", "  ")
	if err != nil {
		return fmt.Errorf("genlog: marshaling record: %w", err)
	}
	return os.WriteFile(l.jsonPath, data, 0o644)
}
