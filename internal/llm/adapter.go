package llm

import (
	"context"

	"github.com/example42/saigen/internal/saidata"
)

// Capability names an Adapter's declared capability.
type Capability string

const (
	CapabilityTextGeneration   Capability = "text_generation"
	CapabilityCodeGeneration   Capability = "code_generation"
	CapabilityStructuredOutput Capability = "structured_output"
	CapabilityFunctionCalling  Capability = "function_calling"
	CapabilityLargeContext     Capability = "large_context"
)

// ModelInfo describes a model's capabilities and limits.
type ModelInfo struct {
	Name              string
	Provider          string
	MaxTokens         int
	ContextWindow     int
	Capabilities      []Capability
	CostPer1kTokens   *float64
	SupportsStreaming bool
}

// GenerateResponse is the result of one Adapter.Generate call.
type GenerateResponse struct {
	Content      string
	TokensUsed   *int
	CostEstimate *float64
	ModelUsed    string
	FinishReason string
	Metadata     map[string]interface{}
}

// Adapter is the uniform contract every LLM provider implements, exposed to
// the provider manager (E) and orchestrator (J). Capability is a field on
// ModelInfo, not a method override — adapters are plain values, never a
// class hierarchy.
type Adapter interface {
	// Generate renders nothing itself; callers pass an already-rendered
	// prompt plus the context it came from (adapters may read context
	// fields such as TargetProviders for provider-specific shaping).
	Generate(ctx context.Context, genCtx *saidata.GenerationContext, prompt string) (*GenerateResponse, error)

	// IsAvailable is a cheap config-level check (no network call).
	IsAvailable() bool

	// ValidateConnection performs a live probe; may block on the network.
	ValidateConnection(ctx context.Context) bool

	// ModelInfoData describes this adapter's configured model.
	ModelInfoData() ModelInfo

	// EstimateCost projects the cost of consuming the given number of tokens.
	EstimateCost(tokens int) float64

	// Name returns the adapter's configured provider name (used for
	// fallback bookkeeping and logging).
	Name() string

	// Close releases any held resources (HTTP transports, etc).
	Close() error
}
