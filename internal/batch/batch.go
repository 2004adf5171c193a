// Package batch fans a list of software names out across bounded-concurrency
// generation workers, with per-item retry delegated to the orchestrator,
// skip-existing semantics, and progress reporting.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"

	"github.com/example42/saigen/internal/logutil"
	"github.com/example42/saigen/internal/metrics"
	"github.com/example42/saigen/internal/orchestrator"
	"github.com/example42/saigen/internal/ratelimit"
	"github.com/example42/saigen/internal/saidata"
)

// validSoftwareName is the filter applied to every requested name before dispatch.
var validSoftwareName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Generator is the subset of orchestrator.Orchestrator the batch engine
// depends on (consumer-defined so tests can inject a stub).
type Generator interface {
	Generate(ctx context.Context, req orchestrator.Request) *saidata.GenerationResult
}

// Request is one batch run's input.
type Request struct {
	SoftwareList      []string
	TargetProviders   []string
	PreferredProvider string
	OutputDirectory   string // if empty, generated documents are not written to disk.
	MaxConcurrent     int    // clamped to [1, 20].
	ContinueOnError   bool
	UseRAG            bool
	Force             bool // if true, skip-existing is disabled.
}

// Progress is one snapshot delivered to a Request's progress callback.
type Progress struct {
	Total      int
	Completed  int
	Successful int
	Failed     int
	Elapsed    time.Duration
}

// ItemResult is one software name's outcome within a Result.
type ItemResult struct {
	SoftwareName string
	Result       *saidata.GenerationResult
	OutputPath   string
	Skipped      bool // true if skipped via skip-existing, never dispatched.
	Err          error
}

// Result is the aggregated outcome of one batch run. TotalTokens and
// TotalCost roll up the per-item usage the LLM providers reported; items
// whose provider returned no usage contribute nothing.
type Result struct {
	TotalRequested     int
	Successful         int
	Failed             int
	Results            []ItemResult
	FailedSoftware     []string
	TotalTime          time.Duration
	AverageTimePerItem time.Duration
	TotalTokens        int
	TotalCost          float64
}

// ErrBatchFailed is raised when ContinueOnError is false and an item fails.
type ErrBatchFailed struct {
	SoftwareName string
	Err          error
}

func (e *ErrBatchFailed) Error() string {
	return fmt.Sprintf("batch processing failed on %q: %v", e.SoftwareName, e.Err)
}

func (e *ErrBatchFailed) Unwrap() error { return e.Err }

// Engine drives a bounded-concurrency fan-out of Generator.Generate across a
// validated software list.
type Engine struct {
	gen     Generator
	metrics metrics.Collector
	logger  logutil.LoggerInterface
}

// New constructs an Engine. metrics and logger default to no-ops/a plain
// logger when nil.
func New(gen Generator, m metrics.Collector, logger logutil.LoggerInterface) *Engine {
	if m == nil {
		m = metrics.NewNoopCollector()
	}
	if logger == nil {
		logger = logutil.NewLogger(logutil.InfoLevel, nil, "[batch] ")
	}
	return &Engine{gen: gen, metrics: m, logger: logger}
}

// HierarchicalPath computes the output path for name under root:
// <root>/<first two letters>/<name>/default.yaml. Names shorter than two
// characters are padded with "_", which keeps batch runs from hard-failing
// on a short but valid package name (jq, ed) while keeping the directory
// segment unambiguous.
func HierarchicalPath(root, name string) string {
	prefix := name
	for len(prefix) < 2 {
		prefix += "_"
	}
	prefix = prefix[:2]
	return filepath.Join(root, prefix, name, "default.yaml")
}

// Run validates the list, skips existing outputs, and fans the rest out. progress, if
// non-nil, is invoked after every item completes and roughly every 5
// seconds while items are in flight.
func (e *Engine) Run(ctx context.Context, req Request, progress func(Progress)) (*Result, error) {
	start := time.Now()

	names := e.validate(ctx, req.SoftwareList)

	maxConcurrent := req.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxConcurrent > 20 {
		maxConcurrent = 20
	}

	var runnable []string
	results := make([]ItemResult, 0, len(names))
	for _, name := range names {
		if req.OutputDirectory != "" && !req.Force {
			path := HierarchicalPath(req.OutputDirectory, name)
			if _, err := os.Stat(path); err == nil {
				e.logger.InfoContext(ctx, "skipping %q: output already exists at %s", name, path)
				continue // skip-existing entries never appear in results[].
			}
		}
		runnable = append(runnable, name)
	}

	total := len(runnable)
	itemResults := make([]ItemResult, total)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := ratelimit.NewSemaphore(maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var completed, successful, failed int
	var firstErr error
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	done := make(chan struct{})

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("generating saidata"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)

	reportProgress := func() {
		mu.Lock()
		p := Progress{Total: total, Completed: completed, Successful: successful, Failed: failed, Elapsed: time.Since(start)}
		mu.Unlock()
		if progress != nil {
			progress(p)
		}
	}

	go func() {
		for {
			select {
			case <-ticker.C:
				reportProgress()
			case <-done:
				return
			}
		}
	}()

	for i, name := range runnable {
		if err := sem.Acquire(runCtx); err != nil {
			break // context canceled on first failure; stop dispatching.
		}
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			defer sem.Release()

			item := e.runOne(runCtx, req, name)
			_ = bar.Add(1)

			mu.Lock()
			itemResults[i] = item
			completed++
			if item.Err != nil || (item.Result != nil && !item.Result.Success) {
				failed++
				if firstErr == nil {
					if item.Err != nil {
						firstErr = item.Err
					} else {
						firstErr = fmt.Errorf("generation failed for %q", name)
					}
				}
				if !req.ContinueOnError {
					cancel() // allow in-flight tasks to finish; their results are discarded below.
				}
			} else {
				successful++
			}
			mu.Unlock()

			reportProgress()
		}(i, name)
	}

	wg.Wait()
	close(done)

	if !req.ContinueOnError && firstErr != nil {
		var failedName string
		for _, r := range itemResults {
			if r.SoftwareName != "" && (r.Err != nil || (r.Result != nil && !r.Result.Success)) {
				failedName = r.SoftwareName
				break
			}
		}
		return nil, &ErrBatchFailed{SoftwareName: failedName, Err: firstErr}
	}

	for _, r := range itemResults {
		if r.SoftwareName == "" {
			continue // cancelled before dispatch; result discarded.
		}
		results = append(results, r)
		e.metrics.IncrCounter("batch_items_total", "success", fmt.Sprintf("%v", r.Err == nil && r.Result != nil && r.Result.Success))
	}

	var failedNames []string
	successCount, failCount := 0, 0
	totalTokens, totalCost := 0, 0.0
	for _, r := range results {
		if r.Err != nil || (r.Result != nil && !r.Result.Success) {
			failCount++
			failedNames = append(failedNames, r.SoftwareName)
		} else {
			successCount++
		}
		if r.Result != nil {
			if r.Result.TokensUsed != nil {
				totalTokens += *r.Result.TokensUsed
			}
			if r.Result.CostEstimate != nil {
				totalCost += *r.Result.CostEstimate
			}
		}
	}

	totalTime := time.Since(start)
	avg := time.Duration(0)
	if len(results) > 0 {
		avg = totalTime / time.Duration(len(results))
	}

	return &Result{
		TotalRequested:     len(results),
		Successful:         successCount,
		Failed:             failCount,
		Results:            results,
		FailedSoftware:     failedNames,
		TotalTime:          totalTime,
		AverageTimePerItem: avg,
		TotalTokens:        totalTokens,
		TotalCost:          totalCost,
	}, nil
}

func (e *Engine) runOne(ctx context.Context, req Request, name string) ItemResult {
	result := e.gen.Generate(ctx, orchestrator.Request{
		SoftwareName:      name,
		TargetProviders:   req.TargetProviders,
		PreferredProvider: req.PreferredProvider,
		UseRAG:            req.UseRAG,
		Mode:              orchestrator.ModeGenerate,
	})

	item := ItemResult{SoftwareName: name, Result: result}
	if result == nil || !result.Success {
		return item
	}

	if req.OutputDirectory != "" {
		path := HierarchicalPath(req.OutputDirectory, name)
		if err := WriteAtomic(path, result.Saidata); err != nil {
			item.Err = err
			return item
		}
		item.OutputPath = path
	}
	return item
}

// validate filters software names by validSoftwareName, logging a warning for each dropped entry.
func (e *Engine) validate(ctx context.Context, list []string) []string {
	out := make([]string, 0, len(list))
	for _, name := range list {
		if !validSoftwareName.MatchString(name) {
			e.logger.WarnContext(ctx, "dropping invalid software name %q (must match %s)", name, validSoftwareName.String())
			continue
		}
		out = append(out, name)
	}
	return out
}

// WriteAtomic writes doc as YAML to path via a temp-file-then-rename, so a
// cancelled task (or a crash mid-write) never leaves a partial file visible
// at the final path.
func WriteAtomic(path string, doc *saidata.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".saidata-*.yaml.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
