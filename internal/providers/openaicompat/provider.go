// Package openaicompat adapts the OpenAI chat-completions wire format to
// the llm.Adapter contract, for both OpenAI itself and any backend
// (vLLM included) served over an OpenAI-compatible endpoint.
package openaicompat

import (
	"context"
	"fmt"
	"sync"

	"github.com/example42/saigen/internal/llm"
	"github.com/example42/saigen/internal/logutil"
	"github.com/example42/saigen/internal/openai"
	"github.com/example42/saigen/internal/saidata"
)

// modelPricing is the per-model cost table (USD per 1k
// tokens); unlisted models fall back to defaultCostPer1kTokens.
var modelPricing = map[string]float64{
	"gpt-4o":      0.005,
	"gpt-4o-mini": 0.00015,
	"gpt-4-turbo": 0.01,
	"gpt-4":       0.03,
	"gpt-4.1":     0.01,
	"gpt-4.1-mini": 0.003,
	"gpt-3.5-turbo": 0.002,
}

const defaultCostPer1kTokens = 0.002

var defaultCapabilities = []llm.Capability{
	llm.CapabilityTextGeneration,
	llm.CapabilityCodeGeneration,
	llm.CapabilityStructuredOutput,
	llm.CapabilityFunctionCalling,
	llm.CapabilityLargeContext,
}

// Config is the subset of a registry.ProviderConfigEntry this adapter needs.
type Config struct {
	Name        string
	APIKey      string
	APIBase     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Adapter implements llm.Adapter over the OpenAI chat-completions API.
type Adapter struct {
	name   string
	cfg    Config
	client llm.LLMClient
	logger logutil.LoggerInterface
	mu     sync.Mutex
}

// New constructs an Adapter. Config problems surface here, not at first use.
func New(cfg Config, logger logutil.LoggerInterface) (*Adapter, error) {
	if logger == nil {
		logger = logutil.NewLogger(logutil.InfoLevel, nil, "[openaicompat] ")
	}
	if cfg.Model == "" {
		return nil, llm.NewError(llm.CategoryConfiguration, "openaicompat.New", "model is required", nil)
	}
	if cfg.APIKey == "" {
		return nil, llm.NewError(llm.CategoryConfiguration, "openaicompat.New", "api_key is required", nil)
	}

	client, err := openai.NewClient(cfg.APIKey, cfg.Model, cfg.APIBase)
	if err != nil {
		return nil, llm.NewError(llm.CategoryConfiguration, "openaicompat.New", "failed to construct OpenAI client", err)
	}

	name := cfg.Name
	if name == "" {
		name = "openai"
	}

	return &Adapter{name: name, cfg: cfg, client: client, logger: logger}, nil
}

// Generate renders a generation request against the configured model.
func (a *Adapter) Generate(ctx context.Context, genCtx *saidata.GenerationContext, prompt string) (*llm.GenerateResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	params := map[string]interface{}{
		"temperature": a.temperature(),
	}
	if a.cfg.MaxTokens > 0 {
		params["max_tokens"] = a.cfg.MaxTokens
	}

	result, err := a.client.GenerateContent(ctx, prompt, params)
	if err != nil {
		return nil, err
	}
	if result.Content == "" {
		return nil, llm.NewError(llm.CategoryGeneration, "openaicompat.Generate",
			fmt.Sprintf("empty response from %s", a.name), nil)
	}

	tokens := int(result.TokenCount)
	cost := a.EstimateCost(tokens)

	return &llm.GenerateResponse{
		Content:      result.Content,
		TokensUsed:   &tokens,
		CostEstimate: &cost,
		ModelUsed:    a.cfg.Model,
		FinishReason: result.FinishReason,
		Metadata:     map[string]interface{}{"truncated": result.Truncated},
	}, nil
}

func (a *Adapter) temperature() float64 {
	if a.cfg.Temperature == 0 {
		return 0.1
	}
	return a.cfg.Temperature
}

// IsAvailable reports whether the adapter was constructed with a usable
// configuration. Construction already validated it, so this is always true
// once New has succeeded.
func (a *Adapter) IsAvailable() bool {
	return a.client != nil
}

// ValidateConnection issues a minimal live request to confirm reachability.
func (a *Adapter) ValidateConnection(ctx context.Context) bool {
	result, err := a.client.GenerateContent(ctx, "ping", map[string]interface{}{"max_tokens": 5})
	return err == nil && result != nil
}

// ModelInfoData describes the configured model's capabilities and limits.
func (a *Adapter) ModelInfoData() llm.ModelInfo {
	cost := a.costPer1kTokens()
	maxTokens := a.cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return llm.ModelInfo{
		Name:              a.cfg.Model,
		Provider:          a.name,
		MaxTokens:         maxTokens,
		ContextWindow:     contextWindowFor(a.cfg.Model),
		Capabilities:      defaultCapabilities,
		CostPer1kTokens:   &cost,
		SupportsStreaming: true,
	}
}

// EstimateCost projects the USD cost of consuming tokens at this model's rate.
func (a *Adapter) EstimateCost(tokens int) float64 {
	return (float64(tokens) / 1000) * a.costPer1kTokens()
}

func (a *Adapter) costPer1kTokens() float64 {
	if cost, ok := modelPricing[a.cfg.Model]; ok {
		return cost
	}
	return defaultCostPer1kTokens
}

func contextWindowFor(model string) int {
	switch model {
	case "gpt-4.1", "gpt-4.1-mini", "gpt-4.1-preview", "o4", "o4-mini":
		return 1000000
	case "gpt-4o", "gpt-4o-mini", "gpt-4-turbo":
		return 128000
	case "gpt-3.5-turbo":
		return 16385
	default:
		return 8192
	}
}

// Name returns the configured provider name (distinct from the model name,
// used by the provider manager for fallback bookkeeping).
func (a *Adapter) Name() string {
	return a.name
}

// Close releases the underlying wire client.
func (a *Adapter) Close() error {
	return a.client.Close()
}
