// Package anthropic adapts the Anthropic Messages API to the llm.Adapter
// contract with a plain net/http wire client.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/example42/saigen/internal/llm"
	"github.com/example42/saigen/internal/logutil"
	"github.com/example42/saigen/internal/saidata"
)

const (
	defaultAPIBase       = "https://api.anthropic.com/v1"
	anthropicVersion     = "2023-06-01"
	defaultTimeoutSecond = 30
)

// modelPricing is the per-model cost table (USD per 1k tokens).
var modelPricing = map[string]float64{
	"claude-3-5-sonnet-20241022": 0.003,
	"claude-3-haiku-20240307":    0.00025,
	"claude-3-opus-20240229":     0.015,
}

var modelContextWindows = map[string]int{
	"claude-3-5-sonnet-20241022": 200000,
	"claude-3-haiku-20240307":    200000,
	"claude-3-opus-20240229":     200000,
}

const defaultCostPer1kTokens = 0.003

var defaultCapabilities = []llm.Capability{
	llm.CapabilityTextGeneration,
	llm.CapabilityCodeGeneration,
	llm.CapabilityStructuredOutput,
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
	TimeoutSecs int
}

// Adapter implements llm.Adapter over the Anthropic Messages API.
type Adapter struct {
	name    string
	cfg     Config
	http    *http.Client
	apiBase string
	logger  logutil.LoggerInterface
}

// New constructs an Adapter, validating cfg at construction.
func New(cfg Config, logger logutil.LoggerInterface) (*Adapter, error) {
	if logger == nil {
		logger = logutil.NewLogger(logutil.InfoLevel, nil, "[anthropic] ")
	}
	if cfg.Model == "" {
		return nil, llm.NewError(llm.CategoryConfiguration, "anthropic.New", "model is required", nil)
	}
	if cfg.APIKey == "" {
		return nil, llm.NewError(llm.CategoryConfiguration, "anthropic.New", "api_key is required", nil)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 1 {
		return nil, llm.NewError(llm.CategoryConfiguration, "anthropic.New",
			fmt.Sprintf("temperature must be between 0 and 1 for anthropic, got %f", cfg.Temperature), nil)
	}

	timeout := cfg.TimeoutSecs
	if timeout <= 0 {
		timeout = defaultTimeoutSecond
	}
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = defaultAPIBase
	}

	name := cfg.Name
	if name == "" {
		name = "anthropic"
	}

	return &Adapter{
		name:    name,
		cfg:     cfg,
		apiBase: apiBase,
		http:    &http.Client{Timeout: time.Duration(timeout) * time.Second},
		logger:  logger,
	}, nil
}

type messageRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
	Messages    []messagePayload `json:"messages"`
}

type messagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type messageResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      usage          `json:"usage"`
}

type apiErrorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate renders a generation request against the configured Claude model.
func (a *Adapter) Generate(ctx context.Context, genCtx *saidata.GenerationContext, prompt string) (*llm.GenerateResponse, error) {
	maxTokens := a.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	reqBody := messageRequest{
		Model:       a.cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: a.temperature(),
		Messages:    []messagePayload{{Role: "user", Content: prompt}},
	}

	resp, err := a.call(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return nil, llm.NewError(llm.CategoryGeneration, "anthropic.Generate", "empty response from anthropic", nil)
	}

	tokens := resp.Usage.InputTokens + resp.Usage.OutputTokens
	cost := a.EstimateCost(tokens)

	return &llm.GenerateResponse{
		Content:      resp.Content[0].Text,
		TokensUsed:   &tokens,
		CostEstimate: &cost,
		ModelUsed:    a.cfg.Model,
		FinishReason: resp.StopReason,
		Metadata: map[string]interface{}{
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
		},
	}, nil
}

func (a *Adapter) temperature() float64 {
	if a.cfg.Temperature == 0 {
		return 0.1
	}
	return a.cfg.Temperature
}

func (a *Adapter) call(ctx context.Context, body messageRequest) (*messageResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, llm.NewError(llm.CategoryGeneration, "anthropic.call", "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, llm.NewError(llm.CategoryConnection, "anthropic.call", "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := a.http.Do(req)
	if err != nil {
		return nil, llm.NewError(llm.CategoryConnection, "anthropic.call", "request failed", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, llm.NewError(llm.CategoryConnection, "anthropic.call", "failed to read response body", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.formatError(httpResp.StatusCode, respBody)
	}

	var parsed messageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, llm.NewError(llm.CategoryGeneration, "anthropic.call", "failed to decode response", err)
	}
	return &parsed, nil
}

func (a *Adapter) formatError(statusCode int, body []byte) error {
	var envelope apiErrorEnvelope
	message := string(body)
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	var cat llm.ErrorCategory
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		cat = llm.CategoryAuthentication
	case statusCode == http.StatusTooManyRequests:
		cat = llm.CategoryRateLimit
	case statusCode >= 500:
		cat = llm.CategoryConnection
	default:
		cat = llm.CategoryGeneration
	}

	return llm.NewError(cat, "anthropic.call", message, nil)
}

// IsAvailable reports whether the adapter was constructed with usable config.
func (a *Adapter) IsAvailable() bool {
	return a.cfg.APIKey != "" && a.cfg.Model != ""
}

// ValidateConnection issues a minimal live request to confirm reachability.
func (a *Adapter) ValidateConnection(ctx context.Context) bool {
	resp, err := a.call(ctx, messageRequest{
		Model:       a.cfg.Model,
		MaxTokens:   5,
		Temperature: a.temperature(),
		Messages:    []messagePayload{{Role: "user", Content: "ping"}},
	})
	return err == nil && resp != nil
}

// ModelInfoData describes the configured model's capabilities and limits.
func (a *Adapter) ModelInfoData() llm.ModelInfo {
	cost := a.costPer1kTokens()
	maxTokens := a.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	contextWindow, ok := modelContextWindows[a.cfg.Model]
	if !ok {
		contextWindow = 200000
	}

	return llm.ModelInfo{
		Name:              a.cfg.Model,
		Provider:          a.name,
		MaxTokens:         maxTokens,
		ContextWindow:     contextWindow,
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

// Name returns the configured provider name.
func (a *Adapter) Name() string {
	return a.name
}

// Close is a no-op: the underlying http.Client owns no resources to release.
func (a *Adapter) Close() error {
	return nil
}
