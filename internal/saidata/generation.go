package saidata

import "time"

// InstallMethod names the 0.3 installation-method sections, used by the
// targeted single-method generation helpers (GenerateSources etc).
type InstallMethod string

const (
	MethodSources  InstallMethod = "sources"
	MethodBinaries InstallMethod = "binaries"
	MethodScripts  InstallMethod = "scripts"
)

// UserHints is the free-form request-supplied mapping. Recognized keys are
// "validation_feedback", "category", and any user override the context
// builder chooses to honor; everything else passes through untouched.
type UserHints map[string]interface{}

// ValidationFeedback is the shape stashed under UserHints["validation_feedback"]
// when the orchestrator builds a retry context.
type ValidationFeedback struct {
	ValidationError   string   `yaml:"validation_error"`
	SpecificErrors    []string `yaml:"specific_errors"`
	FailedYAMLExcerpt string   `yaml:"failed_yaml_excerpt"`
	RetryInstructions []string `yaml:"retry_instructions"`
}

// GenerationContext is the full set of inputs assembled for one LLM call.
type GenerationContext struct {
	SoftwareName    string
	TargetProviders []string
	UserHints       UserHints
	ExistingSaidata *Document
	RepositoryData  []RepositoryPackage
	SimilarSaidata  []Document
	SampleSaidata   []Document

	// 0.3-enhancement fields, populated by the context builder (G).
	LikelyInstallationMethods   []InstallMethod
	SecurityMetadataTemplate    map[string]interface{}
	CompatibilityMatrixTemplate []CompatibilityEntry
	URLTemplatingExamples       []string
	InstallationMethodExamples  map[InstallMethod]string
	ProviderEnhancementExamples map[string]string
	SoftwareCategory            string
}

// HasRepositoryData reports the has_repository_data prompt condition.
func (c *GenerationContext) HasRepositoryData() bool { return len(c.RepositoryData) > 0 }

// HasSimilarSaidata reports the has_similar_saidata prompt condition.
func (c *GenerationContext) HasSimilarSaidata() bool { return len(c.SimilarSaidata) > 0 }

// HasSampleSaidata reports the has_sample_saidata prompt condition.
func (c *GenerationContext) HasSampleSaidata() bool { return len(c.SampleSaidata) > 0 }

// HasUserHints reports the has_user_hints prompt condition.
func (c *GenerationContext) HasUserHints() bool { return len(c.UserHints) > 0 }

// HasExistingSaidata reports the has_existing_saidata prompt condition.
func (c *GenerationContext) HasExistingSaidata() bool { return c.ExistingSaidata != nil }

// HasValidationFeedback reports the has_validation_feedback prompt condition.
func (c *GenerationContext) HasValidationFeedback() bool {
	_, ok := c.UserHints["validation_feedback"]
	return ok
}

// ValidationError is one structural or model-level validation finding.
type ValidationError struct {
	Path       string
	Message    string
	Severity   string // "error", "warning", "info"
	Code       string
	Suggestion string
}

// GenerationResult is the outcome of one orchestrator run.
type GenerationResult struct {
	Success               bool
	Saidata               *Document
	ValidationErrors      []ValidationError
	Warnings              []string
	GenerationTime        time.Duration
	LLMProviderUsed       string
	RepositorySourcesUsed []string
	TokensUsed            *int
	CostEstimate          *float64
}
