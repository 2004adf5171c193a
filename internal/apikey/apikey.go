// Package apikey provides centralized API key resolution for LLM providers
// that require one (openai and anthropic; ollama/vllm use
// base_url instead and never reach this package).
package apikey

import (
	"context"
	"os"
	"strings"

	"github.com/example42/saigen/internal/llm"
	"github.com/example42/saigen/internal/logutil"
)

// Source identifies where a resolved API key came from.
type Source int

const (
	SourceNone Source = iota
	SourceEnvironment
	SourceParameter
)

// Result is the resolved API key plus metadata about its origin.
type Result struct {
	Key                 string
	Source              Source
	EnvironmentVariable string
	Provider            string
}

// Resolver resolves an API key for a provider kind with a clear precedence:
// environment variable first, then an explicitly configured value.
type Resolver struct {
	logger  logutil.LoggerInterface
	sources map[string]string // provider kind -> env var name
}

// NewResolver creates a Resolver using the built-in env var mapping.
func NewResolver(logger logutil.LoggerInterface) *Resolver {
	if logger == nil {
		logger = logutil.NewLogger(logutil.InfoLevel, nil, "[apikey] ")
	}
	return &Resolver{logger: logger}
}

// NewResolverWithConfig creates a Resolver with a caller-supplied
// provider-kind -> env-var-name override, for configurations that name the
// environment variable an API key should be read from.
func NewResolverWithConfig(logger logutil.LoggerInterface, sources map[string]string) *Resolver {
	r := NewResolver(logger)
	r.sources = sources
	return r
}

// Resolve resolves the API key for providerKind, preferring the environment
// variable and falling back to providedKey. Returns a Configuration error if
// neither source yields a value.
func (r *Resolver) Resolve(ctx context.Context, providerKind, providedKey string) (*Result, error) {
	result := &Result{Provider: providerKind, Source: SourceNone}

	envVar := r.envVarName(providerKind)
	if envVar != "" {
		if v := os.Getenv(envVar); v != "" {
			result.Key = v
			result.Source = SourceEnvironment
			result.EnvironmentVariable = envVar
			r.logger.DebugContext(ctx, "using API key from environment variable %s for provider %q", envVar, providerKind)
			return result, nil
		}
		r.logger.DebugContext(ctx, "environment variable %s not set for provider %q", envVar, providerKind)
	}

	if providedKey != "" {
		result.Key = providedKey
		result.Source = SourceParameter
		return result, nil
	}

	return nil, llm.NewError(llm.CategoryConfiguration, "apikey.Resolve",
		"API key is required for provider "+providerKind+"; set "+r.envVarName(providerKind), nil)
}

// envVarName returns the environment variable name for a provider kind,
// honoring any configured override before falling back to the default
// <KIND>_API_KEY convention.
func (r *Resolver) envVarName(providerKind string) string {
	if r.sources != nil {
		if v, ok := r.sources[providerKind]; ok && v != "" {
			return v
		}
	}
	switch strings.ToLower(providerKind) {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	default:
		return strings.ToUpper(providerKind) + "_API_KEY"
	}
}
