// Package orchestrator implements the generation state machine that wires
// the context builder, prompt engine, provider manager, schema validator,
// URL filter, and deduplicator into one request/response entry point.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	gencontext "github.com/example42/saigen/internal/context"
	"github.com/example42/saigen/internal/dedup"
	"github.com/example42/saigen/internal/genlog"
	"github.com/example42/saigen/internal/llm"
	"github.com/example42/saigen/internal/logutil"
	"github.com/example42/saigen/internal/metrics"
	"github.com/example42/saigen/internal/prompt"
	"github.com/example42/saigen/internal/registry"
	"github.com/example42/saigen/internal/saidata"
	"github.com/example42/saigen/internal/schema"
)

// Mode selects which built-in prompt template drives generation.
type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeUpdate   Mode = "update"
)

const maxFailedYAMLExcerpt = 500

// Request is the single entry point's input.
type Request struct {
	SoftwareName      string
	TargetProviders   []string
	PreferredProvider string
	UserHints         saidata.UserHints
	ExistingSaidata   *saidata.Document
	RepositoryData    []saidata.RepositoryPackage
	UseRAG            bool
	Mode              Mode
}

// GenerationProvider is the subset of providermanager.Manager the
// orchestrator depends on (consumer-defined, so tests can inject a stub
// without a live provider registry).
type GenerationProvider interface {
	GenerateWithFallback(ctx context.Context, genCtx *saidata.GenerationContext, prompt string, preferred string) (*llm.GenerateResponse, string, error)
}

// URLFilter is the subset of urlfilter.Filter the orchestrator depends on.
type URLFilter interface {
	Run(ctx context.Context, doc *saidata.Document) (*saidata.Document, string)
}

// Config bundles the collaborators an Orchestrator needs.
type Config struct {
	Registry        *registry.Registry
	ProviderManager GenerationProvider
	ContextBuilder  *gencontext.Builder
	Prompts         *prompt.Manager
	Validator       *schema.Validator
	URLFilter       URLFilter
	Metrics         metrics.Collector
	Logger          logutil.LoggerInterface
	// GenLogDir, if non-empty, causes one genlog session to be written per
	// request under this directory.
	GenLogDir string
}

// Orchestrator runs the VALIDATE_REQUEST -> BUILD_CONTEXT -> CALL_LLM ->
// PARSE -> SCHEMA_VALIDATE -> MODEL_VALIDATE -> URL_FILTER -> DEDUPLICATE
// state machine, with a single bounded retry-with-feedback pass.
type Orchestrator struct {
	reg       *registry.Registry
	manager   GenerationProvider
	context   *gencontext.Builder
	prompts   *prompt.Manager
	validator *schema.Validator
	urlFilter URLFilter
	metrics   metrics.Collector
	logger    logutil.LoggerInterface
	genLogDir string

	totalGenerations int64
	totalTokens      int64
	totalCostMicros  int64 // accumulated cost * 1e6, for lock-free atomic adds.
}

// New constructs an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopCollector()
	}
	if cfg.Logger == nil {
		cfg.Logger = logutil.NewLogger(logutil.InfoLevel, nil, "[orchestrator] ")
	}
	if cfg.Validator == nil {
		cfg.Validator = schema.New()
	}
	return &Orchestrator{
		reg:       cfg.Registry,
		manager:   cfg.ProviderManager,
		context:   cfg.ContextBuilder,
		prompts:   cfg.Prompts,
		validator: cfg.Validator,
		urlFilter: cfg.URLFilter,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		genLogDir: cfg.GenLogDir,
	}
}

// Totals returns the generations/tokens/cost accumulated across every
// Generate call on this Orchestrator (updated atomically since
// multiple concurrent batch tasks share one orchestrator).
func (o *Orchestrator) Totals() (generations, tokens int64, cost float64) {
	return atomic.LoadInt64(&o.totalGenerations),
		atomic.LoadInt64(&o.totalTokens),
		float64(atomic.LoadInt64(&o.totalCostMicros)) / 1e6
}

// Generate runs the full state machine for one request.
func (o *Orchestrator) Generate(ctx context.Context, req Request) *saidata.GenerationResult {
	start := time.Now()
	stop := o.metrics.StartTimer("generation_duration_seconds")
	defer stop()

	var gl *genlog.Logger
	if o.genLogDir != "" {
		var err error
		gl, err = genlog.New(o.genLogDir, req.SoftwareName, o.logger)
		if err != nil {
			o.logger.WarnContext(ctx, "failed to start generation log: %v", err)
			gl = nil
		}
	}

	result := o.run(ctx, req, gl)
	result.GenerationTime = time.Since(start)

	o.metrics.IncrCounter("generation_count", "success", fmt.Sprintf("%v", result.Success))
	atomic.AddInt64(&o.totalGenerations, 1)
	if result.TokensUsed != nil {
		atomic.AddInt64(&o.totalTokens, int64(*result.TokensUsed))
	}
	if result.CostEstimate != nil {
		atomic.AddInt64(&o.totalCostMicros, int64(*result.CostEstimate*1e6))
	}

	if gl != nil {
		if err := gl.Finish(map[string]interface{}{"success": result.Success}); err != nil {
			o.logger.WarnContext(ctx, "failed to finish generation log: %v", err)
		}
	}

	return result
}

func (o *Orchestrator) run(ctx context.Context, req Request, gl *genlog.Logger) *saidata.GenerationResult {
	step := func(name string, status genlog.StepStatus, dur time.Duration) {
		if gl != nil {
			gl.LogStep(genlog.Step{Name: name, Status: status, Duration: dur})
		}
	}

	t0 := time.Now()
	if err := o.validateRequest(ctx, req); err != nil {
		step("VALIDATE_REQUEST", genlog.StepFailed, time.Since(t0))
		return failureResult(err, nil)
	}
	step("VALIDATE_REQUEST", genlog.StepCompleted, time.Since(t0))

	t0 = time.Now()
	genCtx := o.context.Build(ctx, req.SoftwareName, req.TargetProviders, req.UserHints, req.ExistingSaidata, req.RepositoryData)
	step("BUILD_CONTEXT", genlog.StepCompleted, time.Since(t0))
	if gl != nil {
		gl.SetContext(genlog.ContextSummary{
			SoftwareName:        genCtx.SoftwareName,
			TargetProviders:     genCtx.TargetProviders,
			RepositoryPackages:  len(genCtx.RepositoryData),
			SimilarSaidataCount: len(genCtx.SimilarSaidata),
			SampleSaidataCount:  len(genCtx.SampleSaidata),
			SoftwareCategory:    genCtx.SoftwareCategory,
		})
	}

	templateName := prompt.TemplateGeneration
	if req.Mode == ModeUpdate {
		templateName = prompt.TemplateUpdate
	}

	doc, providerUsed, tokensUsed, costEstimate, warnings, genErr := o.callAndValidate(ctx, req, genCtx, templateName, false, gl, step)
	if genErr != nil && genErr.retryable {
		t0 = time.Now()
		step("RETRY_WITH_FEEDBACK", genlog.StepStarted, 0)
		retryCtx := buildRetryContext(genCtx, genErr)
		doc, providerUsed, tokensUsed, costEstimate, warnings, genErr = o.callAndValidate(ctx, req, retryCtx, prompt.TemplateRetry, true, gl, step)
		step("RETRY_WITH_FEEDBACK", genlog.StepCompleted, time.Since(t0))
	}
	if genErr != nil {
		return failureResult(genErr, genErr.errors)
	}

	t0 = time.Now()
	filtered := doc
	if o.urlFilter != nil {
		var warning string
		filtered, warning = o.urlFilter.Run(ctx, doc)
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}
	step("URL_FILTER", genlog.StepCompleted, time.Since(t0))
	if gl != nil {
		gl.LogDataOp(genlog.DataOp{Name: "url_filter", Success: true, Duration: time.Since(t0)})
	}

	t0 = time.Now()
	deduped := dedup.Deduplicate(filtered)
	step("DEDUPLICATE", genlog.StepCompleted, time.Since(t0))
	if gl != nil {
		gl.LogDataOp(genlog.DataOp{Name: "deduplicate", Success: true, Duration: time.Since(t0)})
	}

	return &saidata.GenerationResult{
		Success:               true,
		Saidata:               deduped,
		Warnings:              warnings,
		LLMProviderUsed:       providerUsed,
		RepositorySourcesUsed: repositorySourceNames(genCtx.RepositoryData),
		TokensUsed:            tokensUsed,
		CostEstimate:          costEstimate,
	}
}

func (o *Orchestrator) validateRequest(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.SoftwareName) == "" {
		return llm.NewError(llm.CategoryConfiguration, "orchestrator.validateRequest", "software name is required", nil)
	}
	if req.PreferredProvider != "" && o.reg != nil {
		if _, err := o.reg.Get(ctx, req.PreferredProvider); err != nil {
			return llm.NewError(llm.CategoryConfiguration, "orchestrator.validateRequest",
				fmt.Sprintf("preferred provider %q is not configured", req.PreferredProvider), err)
		}
	}
	return nil
}

// genFailure carries enough detail from a failed stage to both report the
// error and, if retryable, build the feedback-augmented retry context.
type genFailure struct {
	stage     string
	err       error
	retryable bool
	errors    []saidata.ValidationError
	rawYAML   string
}

func (f *genFailure) Error() string { return fmt.Sprintf("%s: %v", f.stage, f.err) }

// callAndValidate runs CALL_LLM, PARSE, SCHEMA_VALIDATE, and MODEL_VALIDATE
// for one context/template pair.
func (o *Orchestrator) callAndValidate(
	ctx context.Context,
	req Request,
	genCtx *saidata.GenerationContext,
	templateName string,
	isRetry bool,
	gl *genlog.Logger,
	step func(string, genlog.StepStatus, time.Duration),
) (*saidata.Document, string, *int, *float64, []string, *genFailure) {
	var warnings []string

	rendered, err := o.prompts.Render(templateName, genCtx, prompt.RenderOptions{})
	if err != nil {
		step("CALL_LLM", genlog.StepFailed, 0)
		return nil, "", nil, nil, warnings, &genFailure{stage: "CALL_LLM", err: err}
	}

	t0 := time.Now()
	resp, providerUsed, err := o.manager.GenerateWithFallback(ctx, genCtx, rendered, req.PreferredProvider)
	llmDur := time.Since(t0)
	if gl != nil {
		in := genlog.LLMInteraction{Provider: providerUsed, Prompt: rendered, Duration: llmDur, Success: err == nil, RetryAttempt: isRetry}
		if err != nil {
			in.Error = err.Error()
		} else {
			in.Model = resp.ModelUsed
			in.Response = resp.Content
			in.TokensUsed = resp.TokensUsed
			in.CostEstimate = resp.CostEstimate
		}
		gl.LogLLMInteraction(in)
	}
	if err != nil {
		step("CALL_LLM", genlog.StepFailed, llmDur)
		return nil, "", nil, nil, warnings, &genFailure{stage: "CALL_LLM", err: err}
	}
	step("CALL_LLM", genlog.StepCompleted, llmDur)

	t0 = time.Now()
	doc, err := parseYAML(resp.Content)
	if gl != nil {
		gl.LogDataOp(genlog.DataOp{Name: "parse", Success: err == nil, Duration: time.Since(t0)})
	}
	if err != nil {
		step("PARSE", genlog.StepFailed, time.Since(t0))
		return nil, providerUsed, resp.TokensUsed, resp.CostEstimate, warnings, &genFailure{
			stage: "PARSE", err: err, retryable: true, rawYAML: resp.Content,
		}
	}
	step("PARSE", genlog.StepCompleted, time.Since(t0))

	t0 = time.Now()
	result := o.validator.Validate(doc)
	for _, w := range result.Warnings {
		warnings = append(warnings, w.Message)
	}
	dur := time.Since(t0)
	if gl != nil {
		gl.LogDataOp(genlog.DataOp{Name: "schema_validate", Success: result.IsValid, Duration: dur})
		gl.LogDataOp(genlog.DataOp{Name: "model_validate", Success: result.IsValid, Duration: dur})
	}
	if !result.IsValid {
		step("SCHEMA_VALIDATE", genlog.StepFailed, dur)
		return nil, providerUsed, resp.TokensUsed, resp.CostEstimate, warnings, &genFailure{
			stage: "SCHEMA_VALIDATE", err: fmt.Errorf("%d validation errors", len(result.Errors)),
			retryable: true, errors: result.Errors, rawYAML: resp.Content,
		}
	}
	step("SCHEMA_VALIDATE", genlog.StepCompleted, dur)

	return doc, providerUsed, resp.TokensUsed, resp.CostEstimate, warnings, nil
}

func buildRetryContext(prev *saidata.GenerationContext, failure *genFailure) *saidata.GenerationContext {
	next := *prev
	hints := make(saidata.UserHints, len(prev.UserHints)+1)
	for k, v := range prev.UserHints {
		hints[k] = v
	}

	excerpt := failure.rawYAML
	if len(excerpt) > maxFailedYAMLExcerpt {
		excerpt = excerpt[:maxFailedYAMLExcerpt]
	}

	var specific []string
	for _, e := range failure.errors {
		specific = append(specific, fmt.Sprintf("%s: %s", e.Path, e.Message))
	}

	hints["validation_feedback"] = saidata.ValidationFeedback{
		ValidationError:   failure.Error(),
		SpecificErrors:    specific,
		FailedYAMLExcerpt: excerpt,
		RetryInstructions: []string{"Fix the reported validation errors and return a complete, valid document."},
	}
	next.UserHints = hints
	return &next
}

func parseYAML(content string) (*saidata.Document, error) {
	var doc saidata.Document
	if err := yaml.Unmarshal([]byte(stripCodeFence(content)), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// stripCodeFence removes a leading/trailing triple-backtick fence and an
// optional language tag on the opening line.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimSuffix(s, "```")
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[nl+1:])
}

func failureResult(err error, errs []saidata.ValidationError) *saidata.GenerationResult {
	if len(errs) == 0 {
		errs = []saidata.ValidationError{{Path: "$", Severity: "error", Message: err.Error()}}
	}
	return &saidata.GenerationResult{Success: false, ValidationErrors: errs}
}

func repositorySourceNames(pkgs []saidata.RepositoryPackage) []string {
	seen := make(map[string]bool, len(pkgs))
	var out []string
	for _, p := range pkgs {
		if p.RepositoryName == "" || seen[p.RepositoryName] {
			continue
		}
		seen[p.RepositoryName] = true
		out = append(out, p.RepositoryName)
	}
	return out
}
