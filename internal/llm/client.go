// Package llm's LLMClient is the low-level wire-protocol client one
// provider SDK binding (currently internal/openai, backed by
// github.com/openai/openai-go) implements; internal/providers/openaicompat
// wraps it to satisfy the higher-level Adapter contract (adapter.go) that
// providermanager actually drives. Keeping the two separate lets a second
// wire client (a native Anthropic or Ollama SDK binding, say) plug into the
// same Adapter without providermanager knowing the difference.
package llm

import (
	"context"
)

// ProviderResult holds one GenerateContent call's raw response, before
// openaicompat.Adapter.Generate reshapes it into a GenerateResponse with
// cost/model bookkeeping attached.
type ProviderResult struct {
	Content      string   // The generated content
	FinishReason string   // Why generation stopped, e.g., "stop", "length", "content_filter"
	TokenCount   int32    // Number of tokens in the response
	Truncated    bool     // Whether the response was truncated
	SafetyInfo   []Safety // Moderation categories flagged by the provider, if any
}

// Safety is one moderation category a provider flagged on a response.
type Safety struct {
	Category string  // Moderation category name (provider-specific)
	Blocked  bool    // Whether content was blocked due to this category
	Score    float32 // Severity score (provider-specific scale)
}

// ProviderTokenCount holds the result of a token counting operation
type ProviderTokenCount struct {
	Total int32 // Total token count
}

// ProviderModelInfo holds model capabilities and limits
type ProviderModelInfo struct {
	Name             string // Model name
	InputTokenLimit  int32  // Maximum input tokens allowed
	OutputTokenLimit int32  // Maximum output tokens allowed
}

// LLMClient is the wire-protocol contract a provider SDK binding
// implements: internal/openai.NewClient is the only production
// implementation, wrapped by internal/providers/openaicompat.Adapter.
type LLMClient interface {
	// GenerateContent sends a text prompt to the LLM and returns the generated content
	// If params is provided, these parameters will override the default model parameters
	GenerateContent(ctx context.Context, prompt string, params map[string]interface{}) (*ProviderResult, error)

	// CountTokens counts the tokens in a given prompt
	CountTokens(ctx context.Context, prompt string) (*ProviderTokenCount, error)

	// GetModelInfo retrieves information about the current model
	GetModelInfo(ctx context.Context) (*ProviderModelInfo, error)

	// GetModelName returns the name of the model being used
	GetModelName() string

	// Close releases resources used by the client
	Close() error
}
