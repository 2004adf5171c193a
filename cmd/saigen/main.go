// Command saigen generates saidata YAML documents for one or more software
// names, driving the generation pipeline end to end: provider registry,
// RAG-backed context, LLM call, validation, URL filtering, deduplication,
// and (for more than one name) bounded-concurrency batch fan-out.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/example42/saigen/internal/batch"
	gencontext "github.com/example42/saigen/internal/context"
	"github.com/example42/saigen/internal/logutil"
	"github.com/example42/saigen/internal/merge"
	"github.com/example42/saigen/internal/metrics"
	"github.com/example42/saigen/internal/orchestrator"
	"github.com/example42/saigen/internal/prompt"
	"github.com/example42/saigen/internal/providermanager"
	"github.com/example42/saigen/internal/rag"
	"github.com/example42/saigen/internal/registry"
	"github.com/example42/saigen/internal/saidata"
	"github.com/example42/saigen/internal/satest"
	"github.com/example42/saigen/internal/schema"
	"github.com/example42/saigen/internal/urlfilter"
)

type flags struct {
	configPath        string
	softwareList      string
	batchFile         string
	outputDir         string
	targetProviders   string
	preferredProvider string
	maxConcurrent     int
	continueOnError   bool
	useRAG            bool
	force             bool
	ragIndexDir       string
	sampleDir         string
	genLogDir         string
	metricsAddr       string
	metricsOut        string
	logLevel          string
	logFormat         string
	categoryFilter    string
	smokeTest         bool
	smokeTestFormat   string
	update            bool
	mergeStrategy     string
	interactive       bool
}

func parseFlags(args []string) *flags {
	fs := flag.NewFlagSet("saigen", flag.ExitOnError)
	f := &flags{}
	fs.StringVar(&f.configPath, "config", "providers.yaml", "path to the provider configuration YAML file")
	fs.StringVar(&f.softwareList, "software", "", "comma-separated software names to generate")
	fs.StringVar(&f.batchFile, "batch-file", "", "path to a file with one software name per line")
	fs.StringVar(&f.outputDir, "output", "", "output directory for generated saidata documents")
	fs.StringVar(&f.targetProviders, "target-providers", "", "comma-separated provider names to target (e.g. apt,dnf,brew)")
	fs.StringVar(&f.preferredProvider, "preferred-provider", "", "LLM provider name to try first")
	fs.IntVar(&f.maxConcurrent, "max-concurrent", 5, "maximum concurrent generations (clamped to [1,20])")
	fs.BoolVar(&f.continueOnError, "continue-on-error", true, "keep processing the remaining software on a failure")
	fs.BoolVar(&f.useRAG, "use-rag", true, "enrich context with RAG-retrieved packages and saidata")
	fs.BoolVar(&f.force, "force", false, "regenerate even if the output file already exists")
	fs.StringVar(&f.ragIndexDir, "rag-index-dir", "", "directory holding the RAG vector/metadata index")
	fs.StringVar(&f.sampleDir, "sample-dir", "", "directory of curated sample saidata YAML files")
	fs.StringVar(&f.genLogDir, "genlog-dir", "", "directory to write one generation log session per request")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
	fs.StringVar(&f.metricsOut, "metrics-out", "", "if set (and -metrics-addr is not), append buffered metrics as JSON Lines to this file on exit")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "text", "log output format: text or json")
	fs.StringVar(&f.categoryFilter, "category-filter", "", "regular expression matched case-insensitively against '## ' category headers in -batch-file; only names under matching categories are emitted")
	fs.BoolVar(&f.update, "update", false, "refresh existing documents under -output instead of generating from scratch")
	fs.StringVar(&f.mergeStrategy, "merge-strategy", "enhance", "update merge strategy: preserve, enhance, or replace")
	fs.BoolVar(&f.interactive, "interactive", false, "with -update, prompt before overwriting conflicting fields")
	fs.BoolVar(&f.smokeTest, "smoke-test", false, "after the run, structurally check every document under -output (paths exist, commands and package managers resolve) without actuating any package manager")
	fs.StringVar(&f.smokeTestFormat, "smoke-test-format", "text", "smoke test report format: text or json")
	_ = fs.Parse(args)
	return f
}

func main() {
	f := parseFlags(os.Args[1:])

	logger := newLogger(f)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, f, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

// newLogger builds the human-facing logger from -log-format: "json" routes
// through the slog-backed structured logger (for piping into a log
// aggregator), anything else keeps the plain-text prefixed Logger.
func newLogger(f *flags) logutil.LoggerInterface {
	level := parseLevel(f.logLevel)
	if strings.EqualFold(f.logFormat, "json") {
		return logutil.NewSlogLoggerFromLogLevel(os.Stderr, level)
	}
	return logutil.NewLogger(level, os.Stderr, "[saigen] ")
}

func parseLevel(s string) logutil.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return logutil.DebugLevel
	case "warn":
		return logutil.WarnLevel
	case "error":
		return logutil.ErrorLevel
	default:
		return logutil.InfoLevel
	}
}

func run(ctx context.Context, f *flags, logger logutil.LoggerInterface) error {
	names, err := softwareNames(f)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no software names given: pass -software or -batch-file")
	}

	reg := registry.NewRegistry(logger)
	cfg, err := loadProviderConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("loading provider config: %w", err)
	}
	if err := reg.LoadConfig(ctx, cfg); err != nil {
		return fmt.Errorf("loading provider registry: %w", err)
	}

	collector, metricsCleanup := buildMetrics(f.metricsAddr, f.metricsOut, logger)
	defer metricsCleanup()

	manager := providermanager.New(reg, f.maxConcurrent, logger)

	var searcher gencontext.SimilaritySearcher
	if f.useRAG && f.ragIndexDir != "" {
		searcher = rag.New(f.ragIndexDir, rag.NewHashEmbedder(128))
	}
	var samples gencontext.SampleLoader
	if f.sampleDir != "" {
		samples = gencontext.NewDirectorySampleLoader(f.sampleDir)
	}
	builder := gencontext.New(searcher, samples, f.useRAG, logger)

	orch := orchestrator.New(orchestrator.Config{
		Registry:        reg,
		ProviderManager: manager,
		ContextBuilder:  builder,
		Prompts:         prompt.NewManager(logger),
		Validator:       schema.New(),
		URLFilter:       urlfilter.New(urlfilter.Options{}),
		Metrics:         collector,
		Logger:          logger,
		GenLogDir:       f.genLogDir,
	})

	var targetProviders []string
	if f.targetProviders != "" {
		targetProviders = splitCSV(f.targetProviders)
	}

	if f.update {
		return runUpdate(ctx, f, names, targetProviders, orch, logger)
	}

	engine := batch.New(orch, collector, logger)
	result, err := engine.Run(ctx, batch.Request{
		SoftwareList:      names,
		TargetProviders:   targetProviders,
		PreferredProvider: f.preferredProvider,
		OutputDirectory:   f.outputDir,
		MaxConcurrent:     f.maxConcurrent,
		ContinueOnError:   f.continueOnError,
		UseRAG:            f.useRAG,
		Force:             f.force,
	}, func(p batch.Progress) {
		logger.InfoContext(ctx, "progress: %d/%d complete (%d ok, %d failed, %s elapsed)",
			p.Completed, p.Total, p.Successful, p.Failed, p.Elapsed.Round(time.Second))
	})
	if err != nil {
		return err
	}

	printSummary(result)

	if f.smokeTest && f.outputDir != "" {
		if err := runSmokeTest(f.outputDir, f.smokeTestFormat, logger); err != nil {
			logger.Warn("smoke test: %v", err)
		}
	}

	if result.Failed > 0 {
		os.Exit(1)
	}
	return nil
}

// runUpdate refreshes each named document in place: the existing YAML under
// -output seeds the prompt context, the freshly generated document is merged
// back under -merge-strategy, and the merged result replaces the file
// atomically.
func runUpdate(ctx context.Context, f *flags, names, targetProviders []string, orch *orchestrator.Orchestrator, logger logutil.LoggerInterface) error {
	if f.outputDir == "" {
		return fmt.Errorf("-update requires -output (the directory holding the documents to refresh)")
	}
	strategy := merge.Strategy(strings.ToLower(f.mergeStrategy))
	switch strategy {
	case merge.StrategyPreserve, merge.StrategyEnhance, merge.StrategyReplace:
	default:
		return fmt.Errorf("unknown -merge-strategy %q: want preserve, enhance, or replace", f.mergeStrategy)
	}

	var prompter merge.Prompter
	if f.interactive {
		prompter = &terminalPrompter{in: bufio.NewReader(os.Stdin)}
	}
	updater := merge.NewUpdater(orch, merge.New(prompter), logger)

	var failed int
	for _, name := range names {
		path := batch.HierarchicalPath(f.outputDir, name)
		existing, err := loadDocument(path)
		if err != nil {
			logger.Error("update %s: reading %s: %v", name, path, err)
			failed++
			continue
		}
		merged, stats, err := updater.Update(ctx, existing, targetProviders, f.preferredProvider, strategy, f.interactive)
		if err != nil {
			logger.Error("update %s: %v", name, err)
			failed++
			continue
		}
		if err := batch.WriteAtomic(path, merged); err != nil {
			logger.Error("update %s: writing %s: %v", name, path, err)
			failed++
			continue
		}
		fmt.Printf("updated %s (%d added, %d updated, %d conflicts resolved)\n",
			path, stats.FieldsAdded, stats.FieldsUpdated, stats.ConflictsResolved)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d updates failed", failed, len(names))
	}
	return nil
}

func loadDocument(path string) (*saidata.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc saidata.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// terminalPrompter answers the replace strategy's interactive questions from
// stdin.
type terminalPrompter struct {
	in *bufio.Reader
}

func (p *terminalPrompter) KeepExisting(fieldPath string) bool {
	fmt.Printf("keep existing %s? [y/N] ", fieldPath)
	return p.readYes()
}

func (p *terminalPrompter) ChooseLonger(fieldPath, existing, fresh string) bool {
	fmt.Printf("replace %s with the longer generated value? [y/N]\n  existing: %s\n  generated: %s\n> ", fieldPath, existing, fresh)
	return p.readYes()
}

func (p *terminalPrompter) readYes() bool {
	line, err := p.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// runSmokeTest structurally checks every saidata document written to dir: do
// its declared paths exist, do its commands and provider package managers
// resolve on this host. It never actuates a package manager install/remove.
func runSmokeTest(dir, format string, logger logutil.LoggerInterface) error {
	suites, err := satest.NewRunner().RunDir(dir)
	if err != nil {
		return fmt.Errorf("running smoke test over %s: %w", dir, err)
	}
	report := satest.NewReporter(format).ReportBatch(suites)
	fmt.Println(report)

	for _, s := range suites {
		if !s.OK() {
			logger.Warn("smoke test: %s failed structural checks", s.Name)
		}
	}
	return nil
}

func softwareNames(f *flags) ([]string, error) {
	var names []string
	if f.softwareList != "" {
		names = append(names, splitCSV(f.softwareList)...)
	}
	if f.batchFile != "" {
		fromFile, err := readLines(f.batchFile, f.categoryFilter)
		if err != nil {
			return nil, fmt.Errorf("reading -batch-file: %w", err)
		}
		names = append(names, fromFile...)
	}
	return names, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readLines parses the input software list format: one software
// name per line, blank lines ignored, "#" lines are full-line comments,
// "## " lines declare a category header in effect for subsequent names, and
// an inline "#" on a name line strips a trailing comment. When categoryRE is
// non-empty, only names under a category whose header matches it
// (case-insensitively) are emitted.
func readLines(path string, categoryRE string) ([]string, error) {
	var filter *regexp.Regexp
	if categoryRE != "" {
		re, err := regexp.Compile("(?i)" + categoryRE)
		if err != nil {
			return nil, fmt.Errorf("invalid -category-filter: %w", err)
		}
		filter = re
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	var category string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		raw := scanner.Text()
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "## ") {
			category = strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		if idx := strings.IndexByte(trimmed, '#'); idx >= 0 {
			trimmed = strings.TrimSpace(trimmed[:idx])
		}
		if trimmed == "" {
			continue
		}
		if filter != nil && !filter.MatchString(category) {
			continue
		}
		lines = append(lines, trimmed)
	}
	return lines, scanner.Err()
}

func loadProviderConfig(path string) (*registry.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg registry.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// buildMetrics picks the Collector implementation from -metrics-addr /
// -metrics-out: a live Prometheus scrape endpoint takes priority over a
// JSON Lines file, since the two would otherwise double-count every batch's
// metrics against two sinks for no benefit. With neither flag set, metrics
// are discarded.
func buildMetrics(addr, outPath string, logger logutil.LoggerInterface) (metrics.Collector, func()) {
	if addr != "" {
		collector := metrics.NewPrometheusCollector(nil)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))
		server := &http.Server{Addr: addr, Handler: mux}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped: %v", err)
			}
		}()

		return collector, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}
	}

	if outPath != "" {
		f, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.Warn("could not open -metrics-out %q, discarding metrics: %v", outPath, err)
			return metrics.NewNoopCollector(), func() {}
		}
		collector := metrics.NewCollector(metrics.NewJSONLinesExporter(f))
		return collector, func() {
			if err := collector.Flush(); err != nil {
				logger.Warn("flushing metrics to %q: %v", outPath, err)
			}
			_ = f.Close()
		}
	}

	return metrics.NewNoopCollector(), func() {}
}

func printSummary(result *batch.Result) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("\nBatch complete: %d requested, %s, %s in %s (avg %s/item)\n",
		result.TotalRequested,
		green(fmt.Sprintf("%d succeeded", result.Successful)),
		red(fmt.Sprintf("%d failed", result.Failed)),
		result.TotalTime.Round(time.Millisecond),
		result.AverageTimePerItem.Round(time.Millisecond))

	if result.TotalTokens > 0 {
		fmt.Printf("LLM usage: %d tokens, estimated $%.4f\n", result.TotalTokens, result.TotalCost)
	}
	if len(result.FailedSoftware) > 0 {
		fmt.Printf("%s %s\n", red("failed:"), strings.Join(result.FailedSoftware, ", "))
	}
}
