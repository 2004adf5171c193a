// Package ollama adapts a local Ollama server's /api/generate endpoint to
// the llm.Adapter contract. Local models are free to run and report
// no pricing, so EstimateCost is always zero.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example42/saigen/internal/llm"
	"github.com/example42/saigen/internal/logutil"
	"github.com/example42/saigen/internal/saidata"
)

const (
	defaultBaseURL     = "http://localhost:11434"
	defaultTimeoutSecs = 60
)

var defaultCapabilities = []llm.Capability{
	llm.CapabilityTextGeneration,
	llm.CapabilityCodeGeneration,
}

// Config is the subset of a registry.ProviderConfigEntry this adapter needs.
type Config struct {
	Name        string
	BaseURL     string
	Model       string
	Temperature float64
	TimeoutSecs int
}

// Adapter implements llm.Adapter over a local Ollama server.
type Adapter struct {
	name    string
	cfg     Config
	baseURL string
	http    *http.Client
	logger  logutil.LoggerInterface
}

// New constructs an Adapter, validating cfg at construction. base_url
// is required for ollama.
func New(cfg Config, logger logutil.LoggerInterface) (*Adapter, error) {
	if logger == nil {
		logger = logutil.NewLogger(logutil.InfoLevel, nil, "[ollama] ")
	}
	if cfg.Model == "" {
		return nil, llm.NewError(llm.CategoryConfiguration, "ollama.New", "model is required", nil)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, llm.NewError(llm.CategoryConfiguration, "ollama.New", "base_url must start with http:// or https://", nil)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, llm.NewError(llm.CategoryConfiguration, "ollama.New",
			fmt.Sprintf("temperature must be between 0 and 2, got %f", cfg.Temperature), nil)
	}

	timeout := cfg.TimeoutSecs
	if timeout <= 0 {
		timeout = defaultTimeoutSecs
	}

	name := cfg.Name
	if name == "" {
		name = "ollama"
	}

	return &Adapter{
		name:    name,
		cfg:     cfg,
		baseURL: baseURL,
		http:    &http.Client{Timeout: time.Duration(timeout) * time.Second},
		logger:  logger,
	}, nil
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Generate renders a generation request against the configured local model.
func (a *Adapter) Generate(ctx context.Context, genCtx *saidata.GenerationContext, prompt string) (*llm.GenerateResponse, error) {
	req := generateRequest{
		Model:  a.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: a.temperature(),
		},
	}

	resp, err := a.post(ctx, "/api/generate", req)
	if err != nil {
		return nil, err
	}

	var parsed generateResponse
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return nil, llm.NewError(llm.CategoryGeneration, "ollama.Generate", "failed to decode response", err)
	}
	if parsed.Response == "" {
		return nil, llm.NewError(llm.CategoryGeneration, "ollama.Generate", "empty response from ollama", nil)
	}

	tokens := parsed.PromptEvalCount + parsed.EvalCount
	if tokens == 0 {
		// Backend omitted usage counters; fall back to a whitespace estimate.
		tokens = len(strings.Fields(prompt)) + len(strings.Fields(parsed.Response))
	}
	cost := 0.0

	return &llm.GenerateResponse{
		Content:      parsed.Response,
		TokensUsed:   &tokens,
		CostEstimate: &cost,
		ModelUsed:    a.cfg.Model,
		FinishReason: "stop",
		Metadata: map[string]interface{}{
			"prompt_eval_count": parsed.PromptEvalCount,
			"eval_count":        parsed.EvalCount,
		},
	}, nil
}

func (a *Adapter) temperature() float64 {
	if a.cfg.Temperature == 0 {
		return 0.1
	}
	return a.cfg.Temperature
}

func (a *Adapter) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, llm.NewError(llm.CategoryGeneration, "ollama.post", "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, llm.NewError(llm.CategoryConnection, "ollama.post", "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := a.http.Do(req)
	if err != nil {
		return nil, llm.NewError(llm.CategoryConnection, "ollama.post", "request failed", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, llm.NewError(llm.CategoryConnection, "ollama.post", "failed to read response body", err)
	}

	if httpResp.StatusCode == http.StatusNotFound {
		return nil, llm.NewError(llm.CategoryGeneration, "ollama.post",
			fmt.Sprintf("model %q not found; make sure it's installed in ollama", a.cfg.Model), nil)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, llm.NewError(llm.CategoryConnection, "ollama.post",
			fmt.Sprintf("ollama returned status %d: %s", httpResp.StatusCode, string(respBody)), nil)
	}

	return respBody, nil
}

// IsAvailable reports whether the adapter was constructed with usable config.
func (a *Adapter) IsAvailable() bool {
	return a.cfg.Model != ""
}

// ValidateConnection checks the server is up and the model responds.
func (a *Adapter) ValidateConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	tagsResp, err := a.http.Do(req)
	if err != nil {
		return false
	}
	defer tagsResp.Body.Close()
	if tagsResp.StatusCode != http.StatusOK {
		return false
	}

	_, err = a.post(ctx, "/api/generate", generateRequest{
		Model:  a.cfg.Model,
		Prompt: "Hello",
		Stream: false,
		Options: generateOptions{
			Temperature: a.temperature(),
			NumPredict:  1,
		},
	})
	return err == nil
}

// ModelInfoData describes the configured model's capabilities and limits.
func (a *Adapter) ModelInfoData() llm.ModelInfo {
	cost := 0.0
	return llm.ModelInfo{
		Name:              a.cfg.Model,
		Provider:          a.name,
		MaxTokens:         4096,
		ContextWindow:     4096,
		Capabilities:      defaultCapabilities,
		CostPer1kTokens:   &cost,
		SupportsStreaming: true,
	}
}

// EstimateCost is always zero: Ollama serves locally-hosted models.
func (a *Adapter) EstimateCost(tokens int) float64 {
	return 0.0
}

// Name returns the configured provider name.
func (a *Adapter) Name() string {
	return a.name
}

// Close is a no-op: the underlying http.Client owns no resources to release.
func (a *Adapter) Close() error {
	return nil
}
