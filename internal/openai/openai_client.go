// Package openai binds github.com/openai/openai-go to the llm.LLMClient
// wire contract. The same client serves api.openai.com and any
// OpenAI-compatible endpoint (a vLLM server, a self-hosted gateway) by
// overriding the base URL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/example42/saigen/internal/llm"
)

// openaiAPI seams out the SDK call so tests can fake completions without a
// live endpoint.
type openaiAPI interface {
	createChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type tokenizerAPI interface {
	countTokens(text string, model string) (int, error)
}

// openaiClient implements llm.LLMClient for OpenAI-compatible backends.
type openaiClient struct {
	api       openaiAPI
	tokenizer tokenizerAPI
	modelName string
}

type realOpenAIAPI struct {
	client openai.Client
}

func (api *realOpenAIAPI) createChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	completion, err := api.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, FormatAPIError(err, 0)
	}
	return completion, nil
}

type realTokenizer struct{}

func (t *realTokenizer) countTokens(text string, model string) (int, error) {
	// cl100k_base covers every chat model this pipeline is configured with.
	tokenizer, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return 0, llm.NewError(llm.CategoryGeneration, "openai.countTokens",
			fmt.Sprintf("failed to get encoding for model %s", model), err)
	}
	return len(tokenizer.Encode(text, nil, nil)), nil
}

// usesMaxCompletionTokens reports whether model belongs to a family that
// rejects the legacy max_tokens parameter in favor of max_completion_tokens.
func usesMaxCompletionTokens(model string) bool {
	lower := strings.ToLower(model)
	for _, family := range []string{"gpt-4o", "o1", "o3", "o4", "gpt-5"} {
		if strings.Contains(lower, family) {
			return true
		}
	}
	return false
}

// NewClient creates an llm.LLMClient speaking the OpenAI chat-completions
// protocol. An empty apiKey falls back to OPENAI_API_KEY; apiBase overrides
// the default endpoint for self-hosted gateways and vLLM servers.
func NewClient(apiKey, modelName, apiBase string) (llm.LLMClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if apiKey == "" {
		return nil, errors.New("no OpenAI API key provided in configuration or OPENAI_API_KEY")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if apiBase != "" {
		opts = append(opts, option.WithBaseURL(apiBase))
	}

	return &openaiClient{
		api:       &realOpenAIAPI{client: openai.NewClient(opts...)},
		tokenizer: &realTokenizer{},
		modelName: modelName,
	}, nil
}

// contextLimits maps a model to its input/output token limits; models not
// listed get conservative defaults from GetModelInfo.
var contextLimits = map[string]llm.ProviderModelInfo{
	"gpt-4":         {InputTokenLimit: 8192, OutputTokenLimit: 2048},
	"gpt-4-turbo":   {InputTokenLimit: 128000, OutputTokenLimit: 4096},
	"gpt-4o":        {InputTokenLimit: 128000, OutputTokenLimit: 4096},
	"gpt-4o-mini":   {InputTokenLimit: 128000, OutputTokenLimit: 16384},
	"gpt-4.1":       {InputTokenLimit: 1000000, OutputTokenLimit: 32768},
	"gpt-4.1-mini":  {InputTokenLimit: 1000000, OutputTokenLimit: 32768},
	"o4":            {InputTokenLimit: 1000000, OutputTokenLimit: 32768},
	"o4-mini":       {InputTokenLimit: 1000000, OutputTokenLimit: 32768},
	"gpt-3.5-turbo": {InputTokenLimit: 16385, OutputTokenLimit: 4096},
}

// GenerateContent sends prompt to the configured model. Recognized params:
// "temperature", "top_p", and "max_tokens" (routed to max_completion_tokens
// for model families that demand it). Unrecognized keys are ignored so a
// caller tuned for one backend doesn't break another.
func (c *openaiClient) GenerateContent(ctx context.Context, prompt string, params map[string]interface{}) (*llm.ProviderResult, error) {
	req := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:    c.modelName,
	}

	if temp, ok := floatParam(params, "temperature"); ok {
		if temp < 0.0 || temp > 2.0 {
			return nil, llm.NewError(llm.CategoryGeneration, "openai.GenerateContent",
				fmt.Sprintf("temperature must be between 0.0 and 2.0, got %f", temp), nil)
		}
		req.Temperature = openai.Float(temp)
	}

	if topP, ok := floatParam(params, "top_p"); ok {
		if topP < 0.0 || topP > 1.0 {
			return nil, llm.NewError(llm.CategoryGeneration, "openai.GenerateContent",
				fmt.Sprintf("top_p must be between 0.0 and 1.0, got %f", topP), nil)
		}
		req.TopP = openai.Float(topP)
	}

	if maxTokens, ok := intParam(params, "max_tokens"); ok {
		if maxTokens <= 0 {
			return nil, llm.NewError(llm.CategoryGeneration, "openai.GenerateContent",
				fmt.Sprintf("max_tokens must be positive, got %d", maxTokens), nil)
		}
		if usesMaxCompletionTokens(c.modelName) {
			req.MaxCompletionTokens = openai.Int(int64(maxTokens))
		} else {
			req.MaxTokens = openai.Int(int64(maxTokens))
		}
	}

	completion, err := c.api.createChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("no completion choices returned")
	}

	choice := completion.Choices[0]
	finishReason := string(choice.FinishReason)

	return &llm.ProviderResult{
		Content:      choice.Message.Content,
		FinishReason: finishReason,
		TokenCount:   int32(completion.Usage.CompletionTokens),
		Truncated:    finishReason == "length",
	}, nil
}

// floatParam reads params[key] as a float64, tolerating the numeric types a
// YAML-loaded config or a literal map can carry.
func floatParam(params map[string]interface{}, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func intParam(params map[string]interface{}, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// CountTokens counts prompt tokens locally with tiktoken, without a network
// round trip.
func (c *openaiClient) CountTokens(ctx context.Context, text string) (*llm.ProviderTokenCount, error) {
	count, err := c.tokenizer.countTokens(text, c.modelName)
	if err != nil {
		return nil, err
	}
	return &llm.ProviderTokenCount{Total: int32(count)}, nil
}

// GetModelInfo reports the configured model's token limits.
func (c *openaiClient) GetModelInfo(ctx context.Context) (*llm.ProviderModelInfo, error) {
	info, ok := contextLimits[c.modelName]
	if !ok {
		info = llm.ProviderModelInfo{InputTokenLimit: 8192, OutputTokenLimit: 2048}
	}
	info.Name = c.modelName
	return &info, nil
}

func (c *openaiClient) GetModelName() string {
	return c.modelName
}

// Close is a no-op; the SDK client holds no resources needing release.
func (c *openaiClient) Close() error {
	return nil
}
