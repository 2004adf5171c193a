package providermanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example42/saigen/internal/llm"
	"github.com/example42/saigen/internal/registry"
	"github.com/example42/saigen/internal/saidata"
)

func twoProviderConfig() *registry.Config {
	return &registry.Config{
		Providers: map[string]registry.ProviderConfigEntry{
			"openai-primary": {
				Kind:     registry.KindOpenAI,
				APIKey:   "sk-test",
				Model:    "gpt-4o-mini",
				Priority: registry.PriorityHigh,
				Enabled:  true,
			},
			"ollama-local": {
				Kind:     registry.KindOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "llama3",
				Priority: registry.PriorityLow,
				Enabled:  true,
			},
		},
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	reg := registry.NewRegistry(nil)
	require.NoError(t, reg.LoadConfig(context.Background(), twoProviderConfig()))
	return New(reg, 0, nil)
}

func TestSelectBest_PrefersHighPriority(t *testing.T) {
	m := newTestManager(t)
	name := m.SelectBest(context.Background(), "", nil)
	assert.Equal(t, "openai-primary", name)
}

func TestSelectBest_HonorsPreferredWhenAvailable(t *testing.T) {
	m := newTestManager(t)
	name := m.SelectBest(context.Background(), "ollama-local", nil)
	assert.Equal(t, "ollama-local", name)
}

func TestSelectBest_FallsBackWhenExcluded(t *testing.T) {
	m := newTestManager(t)
	name := m.SelectBest(context.Background(), "", []string{"openai-primary"})
	assert.Equal(t, "ollama-local", name)
}

func TestSelectBest_ReturnsEmptyWhenAllExcluded(t *testing.T) {
	m := newTestManager(t)
	name := m.SelectBest(context.Background(), "", []string{"openai-primary", "ollama-local"})
	assert.Equal(t, "", name)
}

func TestGenerateWithFallback_UnknownPreferredStillFallsBack(t *testing.T) {
	m := newTestManager(t)
	// Both real providers will fail (no live server), but the call should
	// exhaust fallback rather than panic, and report every attempted name.
	_, _, err := m.GenerateWithFallback(context.Background(), nil, "hi", "nonexistent-provider")
	assert.Error(t, err)
}

func TestClose_NoAdaptersBuiltYet(t *testing.T) {
	m := newTestManager(t)
	assert.NoError(t, m.Close())
}

func TestRateLimiterFor_CachesPerProviderBucket(t *testing.T) {
	m := newTestManager(t)

	first := m.rateLimiterFor("openai-primary", 60)
	second := m.rateLimiterFor("openai-primary", 60)
	assert.Same(t, first, second, "expected the same token bucket instance to be reused for a provider")

	unlimited := m.rateLimiterFor("ollama-local", 0)
	assert.Nil(t, unlimited, "a provider with requests_per_minute unset should get an unlimited (nil) bucket")
}

// stubAdapter satisfies llm.Adapter with canned responses for fallback tests.
type stubAdapter struct {
	name  string
	err   error
	calls int
}

func (s *stubAdapter) Generate(context.Context, *saidata.GenerationContext, string) (*llm.GenerateResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &llm.GenerateResponse{Content: "version: \"0.3\"", ModelUsed: s.name}, nil
}

func (s *stubAdapter) IsAvailable() bool { return true }
func (s *stubAdapter) ValidateConnection(context.Context) bool { return true }
func (s *stubAdapter) ModelInfoData() llm.ModelInfo { return llm.ModelInfo{Name: s.name} }
func (s *stubAdapter) EstimateCost(int) float64 { return 0 }
func (s *stubAdapter) Name() string { return s.name }
func (s *stubAdapter) Close() error { return nil }

func TestGenerateWithFallback_RateLimitedPrimaryFallsBackToSecondary(t *testing.T) {
	m := newTestManager(t)
	primary := &stubAdapter{
		name: "openai-primary",
		err:  llm.NewError(llm.CategoryRateLimit, "test", "quota exhausted", nil),
	}
	secondary := &stubAdapter{name: "ollama-local"}
	m.adapters["openai-primary"] = primary
	m.adapters["ollama-local"] = secondary

	resp, used, err := m.GenerateWithFallback(context.Background(), nil, "generate nginx", "")
	require.NoError(t, err)
	assert.Equal(t, "ollama-local", used)
	assert.Equal(t, "version: \"0.3\"", resp.Content)
	assert.GreaterOrEqual(t, primary.calls, 1, "primary must have been attempted before the switch")
}

func TestGenerateWithFallback_AuthenticationErrorSwitchesWithoutRetry(t *testing.T) {
	m := newTestManager(t)
	primary := &stubAdapter{
		name: "openai-primary",
		err:  llm.NewError(llm.CategoryAuthentication, "test", "bad api key", nil),
	}
	secondary := &stubAdapter{name: "ollama-local"}
	m.adapters["openai-primary"] = primary
	m.adapters["ollama-local"] = secondary

	_, used, err := m.GenerateWithFallback(context.Background(), nil, "generate nginx", "")
	require.NoError(t, err)
	assert.Equal(t, "ollama-local", used)
	assert.Equal(t, 1, primary.calls, "authentication failures must never be retried on the same provider")
}

func TestGenerateWithFallback_AllProvidersFailingReportsAttempts(t *testing.T) {
	m := newTestManager(t)
	rateLimited := llm.NewError(llm.CategoryRateLimit, "test", "quota exhausted", nil)
	m.adapters["openai-primary"] = &stubAdapter{name: "openai-primary", err: rateLimited}
	m.adapters["ollama-local"] = &stubAdapter{name: "ollama-local", err: rateLimited}

	_, _, err := m.GenerateWithFallback(context.Background(), nil, "generate nginx", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai-primary")
	assert.Contains(t, err.Error(), "ollama-local")
}
