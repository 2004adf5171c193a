// Package vllm adapts a self-hosted vLLM deployment to the llm.Adapter
// contract. vLLM serves an OpenAI-compatible endpoint, so this
// package wraps internal/providers/openaicompat and layers on the
// deployment-shape metadata (tensor_parallel_size, gpu_memory_utilization)
// that a real vLLM operator cares about.
package vllm

import (
	"context"
	"fmt"
	"strings"

	"github.com/example42/saigen/internal/llm"
	"github.com/example42/saigen/internal/logutil"
	"github.com/example42/saigen/internal/providers/openaicompat"
	"github.com/example42/saigen/internal/saidata"
)

const defaultBaseURL = "http://localhost:8000/v1"

// Config is the subset of a registry.ProviderConfigEntry this adapter needs,
// plus the vLLM-specific deployment fields.
type Config struct {
	Name                 string
	BaseURL              string
	Model                string
	MaxTokens            int
	Temperature          float64
	TensorParallelSize   int
	GPUMemoryUtilization float64
}

// Adapter implements llm.Adapter over a vLLM OpenAI-compatible endpoint.
type Adapter struct {
	name   string
	cfg    Config
	inner  *openaicompat.Adapter
	logger logutil.LoggerInterface
}

// New constructs an Adapter, validating cfg at construction. base_url
// is required for vllm.
func New(cfg Config, logger logutil.LoggerInterface) (*Adapter, error) {
	if logger == nil {
		logger = logutil.NewLogger(logutil.InfoLevel, nil, "[vllm] ")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, llm.NewError(llm.CategoryConfiguration, "vllm.New", "base_url must start with http:// or https://", nil)
	}
	if cfg.TensorParallelSize != 0 && cfg.TensorParallelSize < 1 {
		return nil, llm.NewError(llm.CategoryConfiguration, "vllm.New", "tensor_parallel_size must be a positive integer", nil)
	}
	if cfg.GPUMemoryUtilization != 0 && (cfg.GPUMemoryUtilization <= 0 || cfg.GPUMemoryUtilization > 1) {
		return nil, llm.NewError(llm.CategoryConfiguration, "vllm.New",
			fmt.Sprintf("gpu_memory_utilization must be between 0 and 1, got %f", cfg.GPUMemoryUtilization), nil)
	}

	name := cfg.Name
	if name == "" {
		name = "vllm"
	}

	// vLLM's OpenAI-compatible server accepts any non-empty bearer token;
	// the deployment itself is the access boundary, not the key.
	inner, err := openaicompat.New(openaicompat.Config{
		Name:        name,
		APIKey:      "vllm-local",
		APIBase:     baseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &Adapter{name: name, cfg: cfg, inner: inner, logger: logger}, nil
}

// Generate renders a generation request against the deployed model, then
// surfaces the deployment shape in the response metadata.
func (a *Adapter) Generate(ctx context.Context, genCtx *saidata.GenerationContext, prompt string) (*llm.GenerateResponse, error) {
	resp, err := a.inner.Generate(ctx, genCtx, prompt)
	if err != nil {
		return nil, err
	}
	if resp.Metadata == nil {
		resp.Metadata = map[string]interface{}{}
	}
	resp.Metadata["tensor_parallel_size"] = a.tensorParallelSize()
	resp.Metadata["gpu_memory_utilization"] = a.gpuMemoryUtilization()
	return resp, nil
}

func (a *Adapter) tensorParallelSize() int {
	if a.cfg.TensorParallelSize <= 0 {
		return 1
	}
	return a.cfg.TensorParallelSize
}

func (a *Adapter) gpuMemoryUtilization() float64 {
	if a.cfg.GPUMemoryUtilization <= 0 {
		return 0.9
	}
	return a.cfg.GPUMemoryUtilization
}

// IsAvailable delegates to the wrapped OpenAI-compatible client.
func (a *Adapter) IsAvailable() bool {
	return a.inner.IsAvailable()
}

// ValidateConnection delegates to the wrapped OpenAI-compatible client.
func (a *Adapter) ValidateConnection(ctx context.Context) bool {
	return a.inner.ValidateConnection(ctx)
}

// ModelInfoData describes the deployed model; self-hosted deployments carry
// no per-token billing.
func (a *Adapter) ModelInfoData() llm.ModelInfo {
	info := a.inner.ModelInfoData()
	info.Provider = a.name
	cost := 0.0
	info.CostPer1kTokens = &cost
	return info
}

// EstimateCost is always zero: vLLM deployments are self-hosted.
func (a *Adapter) EstimateCost(tokens int) float64 {
	return 0.0
}

// Name returns the configured provider name.
func (a *Adapter) Name() string {
	return a.name
}

// Close releases the wrapped OpenAI-compatible client.
func (a *Adapter) Close() error {
	return a.inner.Close()
}
