package registry

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigDirName is the user config directory searched by LoadDefault.
	ConfigDirName = ".config/saigen"
	// ProvidersConfigFileName is the provider configuration file name.
	ProvidersConfigFileName = "providers.yaml"

	// EnvProviderKind overrides the single-provider fallback's kind.
	EnvProviderKind = "SAIGEN_PROVIDER_KIND"
	// EnvProviderModel overrides the single-provider fallback's model.
	EnvProviderModel = "SAIGEN_PROVIDER_MODEL"
	// EnvProviderAPIBase overrides the single-provider fallback's api_base/base_url.
	EnvProviderAPIBase = "SAIGEN_PROVIDER_API_BASE"
)

// Load reads and parses a provider configuration file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	for name, entry := range cfg.Providers {
		entry.Name = name
		cfg.Providers[name] = entry
	}
	return &cfg, nil
}

// LoadDefault resolves the provider configuration from, in order: the
// standard per-user config path (~/.config/saigen/providers.yaml), a
// minimal single-provider configuration built from SAIGEN_PROVIDER_*
// environment variables, or finally a bare OpenAI default so the generator
// can still run in a container that only sets OPENAI_API_KEY.
func LoadDefault() (*Config, error) {
	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, ConfigDirName, ProvidersConfigFileName)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return Load(candidate)
		}
	}

	if cfg, ok := loadFromEnvironment(); ok {
		return cfg, nil
	}

	return defaultConfig(), nil
}

func loadFromEnvironment() (*Config, bool) {
	kind := os.Getenv(EnvProviderKind)
	model := os.Getenv(EnvProviderModel)
	if kind == "" || model == "" {
		return nil, false
	}

	entry := ProviderConfigEntry{
		Name:        kind,
		Kind:        ProviderKind(kind),
		Model:       model,
		APIBase:     os.Getenv(EnvProviderAPIBase),
		BaseURL:     os.Getenv(EnvProviderAPIBase),
		MaxTokens:   4096,
		Temperature: 0.1,
		Timeout:     60,
		MaxRetries:  3,
		Priority:    PriorityHigh,
		Enabled:     true,
	}

	return &Config{Providers: map[string]ProviderConfigEntry{kind: entry}}, true
}

// defaultConfig is used when no configuration file and no override
// environment variables are present; it yields a single OpenAI entry that
// resolves its key from OPENAI_API_KEY at validation time.
func defaultConfig() *Config {
	return &Config{
		APIKeySources: map[string]string{
			"openai":    "OPENAI_API_KEY",
			"anthropic": "ANTHROPIC_API_KEY",
		},
		Providers: map[string]ProviderConfigEntry{
			"openai": {
				Name:        "openai",
				Kind:        KindOpenAI,
				Model:       "gpt-4.1",
				MaxTokens:   4096,
				Temperature: 0.1,
				Timeout:     60,
				MaxRetries:  3,
				Priority:    PriorityHigh,
				Enabled:     true,
			},
		},
	}
}
