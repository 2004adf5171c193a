package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example42/saigen/internal/apikey"
	"github.com/example42/saigen/internal/llm"
	"github.com/example42/saigen/internal/logutil"
)

// Registry holds validated, key-resolved provider configuration entries and
// hands them to the provider manager in priority order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]ProviderConfigEntry
	logger  logutil.LoggerInterface
	keys    *apikey.Resolver
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger logutil.LoggerInterface) *Registry {
	if logger == nil {
		logger = logutil.NewLogger(logutil.InfoLevel, nil, "[registry] ")
	}
	return &Registry{
		entries: make(map[string]ProviderConfigEntry),
		logger:  logger,
		keys:    apikey.NewResolver(logger),
	}
}

// LoadConfig validates every entry in cfg, resolves missing API keys from
// the environment, and replaces the registry's contents. A malformed entry
// raises CategoryConfiguration and aborts the whole load: partial
// configuration is never installed.
func (r *Registry) LoadConfig(ctx context.Context, cfg *Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg == nil {
		return llm.NewError(llm.CategoryConfiguration, "registry.LoadConfig", "nil configuration", nil)
	}

	if len(cfg.APIKeySources) > 0 {
		r.keys = apikey.NewResolverWithConfig(r.logger, cfg.APIKeySources)
	}

	resolved := make(map[string]ProviderConfigEntry, len(cfg.Providers))
	order := make([]string, 0, len(cfg.Providers))

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := cfg.Providers[name]
		entry.Name = name

		if errs := validateEntry(name, entry); len(errs) > 0 {
			return llm.NewError(llm.CategoryConfiguration, "registry.LoadConfig",
				fmt.Sprintf("provider %q: %s", name, errs[0]), nil)
		}

		if needsAPIKey(entry.Kind) && entry.APIKey == "" {
			result, err := r.keys.Resolve(ctx, string(entry.Kind), "")
			if err != nil {
				return llm.NewError(llm.CategoryConfiguration, "registry.LoadConfig",
					fmt.Sprintf("provider %q: %v", name, err), err)
			}
			entry.APIKey = result.Key
		}

		resolved[name] = entry
		order = append(order, name)
		r.logger.DebugContext(ctx, "registered provider %q (kind=%s, priority=%s, enabled=%v)",
			name, entry.Kind, entry.Priority, entry.Enabled)
	}

	r.entries = resolved
	r.order = order
	r.logger.InfoContext(ctx, "provider configuration loaded: %d providers", len(resolved))
	return nil
}

func needsAPIKey(kind ProviderKind) bool {
	return kind == KindOpenAI || kind == KindAnthropic
}

// validateEntry checks one provider entry against its kind's required
// fields, returning human-readable messages (not wrapped, since the caller
// attaches the category and stops at the first one).
func validateEntry(name string, e ProviderConfigEntry) []string {
	var errs []string

	if !ValidKinds[e.Kind] {
		errs = append(errs, fmt.Sprintf("unknown provider kind %q", e.Kind))
	}
	if e.Model == "" {
		errs = append(errs, "model is required")
	}
	if e.Priority != "" && !ValidPriorities[e.Priority] {
		errs = append(errs, fmt.Sprintf("invalid priority %q", e.Priority))
	}
	if e.MaxTokens < 0 {
		errs = append(errs, "max_tokens must be non-negative")
	}
	if e.Temperature < 0 || e.Temperature > 2 {
		errs = append(errs, "temperature must be in [0, 2]")
	}
	if e.Timeout < 0 {
		errs = append(errs, "timeout must be non-negative")
	}
	if e.MaxRetries < 0 {
		errs = append(errs, "max_retries must be non-negative")
	}
	if e.RequestsPerMinute < 0 {
		errs = append(errs, "requests_per_minute must be non-negative")
	}

	switch e.Kind {
	case KindOllama, KindVLLM:
		if e.BaseURL == "" {
			errs = append(errs, "base_url is required for ollama/vllm providers")
		}
	case KindOpenAI, KindAnthropic:
		if e.APIKey == "" {
			// Resolved later from the environment; absence here is not yet
			// an error, only an unresolved-key error at resolution time.
		}
	}

	_ = name
	return errs
}

// Get returns the named provider entry.
func (r *Registry) Get(ctx context.Context, name string) (*ProviderConfigEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, llm.NewError(llm.CategoryConfiguration, "registry.Get",
			fmt.Sprintf("provider %q not configured", name), nil)
	}
	return &entry, nil
}

// EnabledByPriority returns every enabled provider entry ordered high,
// medium, low; entries sharing a priority keep the order they were declared
// in the configuration file.
func (r *Registry) EnabledByPriority(ctx context.Context) []ProviderConfigEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderConfigEntry, 0, len(r.order))
	for _, name := range r.order {
		entry := r.entries[name]
		if entry.Enabled {
			out = append(out, entry)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
	})

	r.logger.DebugContext(ctx, "resolved %d enabled providers by priority", len(out))
	return out
}

// All returns every configured entry, enabled or not, in declaration order.
func (r *Registry) All() []ProviderConfigEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderConfigEntry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}
