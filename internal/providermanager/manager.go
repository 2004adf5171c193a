// Package providermanager selects an LLM adapter by priority and drives
// generation with per-provider retry and automatic fallback.
package providermanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example42/saigen/internal/llm"
	"github.com/example42/saigen/internal/logutil"
	"github.com/example42/saigen/internal/providers/anthropic"
	"github.com/example42/saigen/internal/providers/ollama"
	"github.com/example42/saigen/internal/providers/openaicompat"
	"github.com/example42/saigen/internal/providers/vllm"
	"github.com/example42/saigen/internal/ratelimit"
	"github.com/example42/saigen/internal/registry"
	"github.com/example42/saigen/internal/saidata"
)

const defaultMaxFallbackAttempts = 3

// Manager owns a lazily-built cache of provider adapters, selecting among
// them by priority and falling back across providers on failure.
type Manager struct {
	mu        sync.Mutex
	reg       *registry.Registry
	adapters  map[string]llm.Adapter
	logger    logutil.LoggerInterface
	semaphore *ratelimit.Semaphore

	limitersMu sync.Mutex
	limiters   map[string]*ratelimit.TokenBucket
}

// New constructs a Manager backed by reg. maxConcurrent bounds how many
// generations may be in flight across all providers at once; 0 disables
// the limit. Each provider additionally gets its own requests_per_minute
// token bucket, built lazily from the registry entry on first use.
func New(reg *registry.Registry, maxConcurrent int, logger logutil.LoggerInterface) *Manager {
	if logger == nil {
		logger = logutil.NewLogger(logutil.InfoLevel, nil, "[providermanager] ")
	}
	return &Manager{
		reg:       reg,
		adapters:  make(map[string]llm.Adapter),
		logger:    logger,
		semaphore: ratelimit.NewSemaphore(maxConcurrent),
		limiters:  make(map[string]*ratelimit.TokenBucket),
	}
}

// rateLimiterFor returns (building and caching if needed) the token bucket
// for a single provider, sized from its configured requests_per_minute. A
// provider with no limit configured gets a nil bucket, which TokenBucket's
// own nil-receiver handling treats as unlimited.
func (m *Manager) rateLimiterFor(name string, requestsPerMinute int) *ratelimit.TokenBucket {
	m.limitersMu.Lock()
	defer m.limitersMu.Unlock()

	if tb, ok := m.limiters[name]; ok {
		return tb
	}
	tb := ratelimit.NewTokenBucket(requestsPerMinute, 0)
	m.limiters[name] = tb
	return tb
}

// getAdapter returns the cached adapter for name, building and caching it on
// first use from the registry's current configuration.
func (m *Manager) getAdapter(ctx context.Context, name string) (llm.Adapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if adapter, ok := m.adapters[name]; ok {
		return adapter, nil
	}

	entry, err := m.reg.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	adapter, err := buildAdapter(*entry, m.logger)
	if err != nil {
		return nil, err
	}

	m.adapters[name] = adapter
	return adapter, nil
}

func buildAdapter(entry registry.ProviderConfigEntry, logger logutil.LoggerInterface) (llm.Adapter, error) {
	switch entry.Kind {
	case registry.KindOpenAI:
		return openaicompat.New(openaicompat.Config{
			Name:        entry.Name,
			APIKey:      entry.APIKey,
			APIBase:     entry.APIBase,
			Model:       entry.Model,
			MaxTokens:   entry.MaxTokens,
			Temperature: entry.Temperature,
		}, logger)
	case registry.KindAnthropic:
		return anthropic.New(anthropic.Config{
			Name:        entry.Name,
			APIKey:      entry.APIKey,
			APIBase:     entry.APIBase,
			Model:       entry.Model,
			MaxTokens:   entry.MaxTokens,
			Temperature: entry.Temperature,
			TimeoutSecs: entry.Timeout,
		}, logger)
	case registry.KindOllama:
		return ollama.New(ollama.Config{
			Name:        entry.Name,
			BaseURL:     entry.BaseURL,
			Model:       entry.Model,
			Temperature: entry.Temperature,
			TimeoutSecs: entry.Timeout,
		}, logger)
	case registry.KindVLLM:
		return vllm.New(vllm.Config{
			Name:        entry.Name,
			BaseURL:     entry.BaseURL,
			Model:       entry.Model,
			MaxTokens:   entry.MaxTokens,
			Temperature: entry.Temperature,
		}, logger)
	default:
		return nil, llm.NewError(llm.CategoryConfiguration, "providermanager.buildAdapter",
			fmt.Sprintf("unsupported provider kind %q", entry.Kind), nil)
	}
}

// SelectBest picks the highest-priority available, enabled provider not in
// exclude. preferred, if set and not excluded, is returned immediately when
// available. Returns "" if no provider qualifies.
func (m *Manager) SelectBest(ctx context.Context, preferred string, exclude []string) string {
	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}

	if preferred != "" && !excluded[preferred] {
		if entry, err := m.reg.Get(ctx, preferred); err == nil && entry.Enabled {
			if adapter, err := m.getAdapter(ctx, preferred); err == nil && adapter.IsAvailable() {
				return preferred
			}
		}
	}

	for _, entry := range m.reg.EnabledByPriority(ctx) {
		if excluded[entry.Name] {
			continue
		}
		adapter, err := m.getAdapter(ctx, entry.Name)
		if err != nil {
			m.logger.WarnContext(ctx, "provider %q unavailable: %v", entry.Name, err)
			continue
		}
		if adapter.IsAvailable() {
			return entry.Name
		}
	}

	return ""
}

// GenerateWithFallback attempts generation starting from preferred (or the
// highest-priority provider if preferred is empty), retrying transient
// failures on each provider and moving to the next provider on exhaustion or
// a non-retryable error, up to maxFallbackAttempts distinct providers.
func (m *Manager) GenerateWithFallback(ctx context.Context, genCtx *saidata.GenerationContext, prompt string, preferred string) (*llm.GenerateResponse, string, error) {
	var attempted []string
	var lastErr error

	for attempt := 0; attempt < defaultMaxFallbackAttempts; attempt++ {
		pref := ""
		if attempt == 0 {
			pref = preferred
		}

		name := m.SelectBest(ctx, pref, attempted)
		if name == "" {
			break
		}
		attempted = append(attempted, name)

		adapter, err := m.getAdapter(ctx, name)
		if err != nil {
			lastErr = err
			continue
		}

		entry, err := m.reg.Get(ctx, name)
		if err != nil {
			lastErr = err
			continue
		}

		m.logger.InfoContext(ctx, "attempting generation with provider %q", name)
		resp, err := m.generateWithRetry(ctx, adapter, genCtx, prompt, name, entry.MaxRetries, entry.RequestsPerMinute)
		if err == nil {
			m.logger.InfoContext(ctx, "generation succeeded with provider %q", name)
			return resp, name, nil
		}

		m.logger.WarnContext(ctx, "provider %q failed: %v", name, err)
		lastErr = err
	}

	msg := fmt.Sprintf("all providers failed, attempted: %v", attempted)
	return nil, "", llm.NewError(llm.CategoryGeneration, "providermanager.GenerateWithFallback", msg, lastErr)
}

// generateWithRetry retries a single provider: RateLimit
// backs off exponentially (2^retry seconds), Connection/Generation wait a
// fixed second, and Authentication/Configuration never retry. Each attempt
// first acquires the manager's overall concurrency semaphore and then
// name's own requests_per_minute token, so a provider configured with a low
// RPM backs off even when -max-concurrent would otherwise allow more
// parallel calls.
func (m *Manager) generateWithRetry(ctx context.Context, adapter llm.Adapter, genCtx *saidata.GenerationContext, prompt, name string, maxRetries, requestsPerMinute int) (*llm.GenerateResponse, error) {
	if err := m.semaphore.Acquire(ctx); err != nil {
		return nil, err
	}
	defer m.semaphore.Release()

	if err := m.rateLimiterFor(name, requestsPerMinute).Acquire(ctx, name); err != nil {
		return nil, err
	}

	var lastErr error
	for retry := 0; retry <= maxRetries; retry++ {
		resp, err := adapter.Generate(ctx, genCtx, prompt)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		catErr, ok := llm.IsCategorizedError(err)
		if !ok || !catErr.Category().Retryable() {
			return nil, err
		}
		if retry == maxRetries {
			return nil, err
		}

		wait := time.Second
		if catErr.Category() == llm.CategoryRateLimit {
			wait = time.Duration(1<<uint(retry)) * time.Second
		}
		m.logger.InfoContext(ctx, "retrying %q after %s (attempt %d/%d): %v",
			adapter.Name(), wait, retry+1, maxRetries, err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// Close releases every cached adapter.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, adapter := range m.adapters {
		if err := adapter.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing provider %q: %w", name, err)
		}
	}
	return firstErr
}
