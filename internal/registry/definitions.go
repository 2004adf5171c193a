// Package registry loads and validates LLM provider configuration and
// hands out priority-ordered, enabled provider entries to the provider
// manager.
package registry

// ProviderKind identifies which adapter family a provider entry targets.
type ProviderKind string

const (
	KindOpenAI    ProviderKind = "openai"
	KindAnthropic ProviderKind = "anthropic"
	KindOllama    ProviderKind = "ollama"
	KindVLLM      ProviderKind = "vllm"
)

// ValidKinds is the set of provider kinds the registry accepts.
var ValidKinds = map[ProviderKind]bool{
	KindOpenAI:    true,
	KindAnthropic: true,
	KindOllama:    true,
	KindVLLM:      true,
}

// Priority orders providers within the manager's fallback chain.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// ValidPriorities is the set of priority values the registry accepts.
var ValidPriorities = map[Priority]bool{
	PriorityHigh:   true,
	PriorityMedium: true,
	PriorityLow:    true,
}

// ProviderConfigEntry is one provider's configuration as loaded from providers.yaml.
type ProviderConfigEntry struct {
	Name              string       `yaml:"-" json:"name"`
	Kind              ProviderKind `yaml:"kind" json:"kind"`
	APIKey            string       `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	APIBase           string       `yaml:"api_base,omitempty" json:"api_base,omitempty"`
	BaseURL           string       `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Model             string       `yaml:"model" json:"model"`
	MaxTokens         int          `yaml:"max_tokens" json:"max_tokens"`
	Temperature       float64      `yaml:"temperature" json:"temperature"`
	Timeout           int          `yaml:"timeout" json:"timeout"`
	MaxRetries        int          `yaml:"max_retries" json:"max_retries"`
	Priority          Priority     `yaml:"priority" json:"priority"`
	Enabled           bool         `yaml:"enabled" json:"enabled"`
	RequestsPerMinute int          `yaml:"requests_per_minute,omitempty" json:"requests_per_minute,omitempty"`
}

// Config is the full provider configuration loaded from YAML: a name-keyed
// map of provider entries plus an optional override of which environment
// variable supplies each provider's API key.
type Config struct {
	APIKeySources map[string]string              `yaml:"api_key_sources,omitempty" json:"api_key_sources,omitempty"`
	Providers     map[string]ProviderConfigEntry `yaml:"providers" json:"providers"`
}
