package prompt

// Built-in template names.
const (
	TemplateGeneration = "generation"
	TemplateUpdate     = "update"
	TemplateRetry      = "retry"
)

// Generation is the default template used for a fresh saidata request.
func Generation() *Template {
	return &Template{
		Name: TemplateGeneration,
		Sections: []Section{
			{
				Name:     "instructions",
				Required: true,
				Template: "Generate a saidata 0.3 YAML document for \"$software_name\" covering providers: $target_providers.",
			},
			{
				Name:      "repository_context",
				Condition: CondHasRepositoryData,
				Template:  "Repository data found:\n$repository_context",
			},
			{
				Name:      "similar_saidata",
				Condition: CondHasSimilarSaidata,
				Template:  "Similar saidata documents for reference:\n$similar_saidata_examples",
			},
			{
				Name:      "sample_saidata",
				Condition: CondHasSampleSaidata,
				Template:  "Sample saidata documents for reference:\n$sample_saidata_examples",
			},
			{
				Name:      "user_hints",
				Condition: CondHasUserHints,
				Template:  "Additional user-provided hints:\n$user_hints",
			},
			{
				Name:      "json_schema",
				Condition: CondIncludeJSONSchema,
				Template:  "Conform to this JSON schema:\n$json_schema",
			},
			{
				Name:     "output_format",
				Required: true,
				Template: "Return only the YAML document, with no commentary and no surrounding code fences.",
			},
		},
	}
}

// Update is used when generating a fresh document that will subsequently be
// merged with an existing one.
func Update() *Template {
	return &Template{
		Name: TemplateUpdate,
		Sections: []Section{
			{
				Name:     "instructions",
				Required: true,
				Template: "Generate an updated saidata 0.3 YAML document for \"$software_name\" covering providers: $target_providers.",
			},
			{
				Name:      "existing_saidata",
				Condition: CondHasExistingSaidata,
				Required:  true,
				Template:  "The existing document for reference (do not copy verbatim; regenerate fully):\n$existing_saidata",
			},
			{
				Name:      "repository_context",
				Condition: CondHasRepositoryData,
				Template:  "Repository data found:\n$repository_context",
			},
			{
				Name:      "similar_saidata",
				Condition: CondHasSimilarSaidata,
				Template:  "Similar saidata documents for reference:\n$similar_saidata_examples",
			},
			{
				Name:     "output_format",
				Required: true,
				Template: "Return only the YAML document, with no commentary and no surrounding code fences.",
			},
		},
	}
}

// Retry is rendered for the single retry-with-feedback attempt. It
// adds a validation_feedback section carrying the prior error list, a
// ≤500-char excerpt of the failed output, and an instruction to return
// corrected YAML only.
func Retry() *Template {
	return &Template{
		Name: TemplateRetry,
		Sections: []Section{
			{
				Name:     "instructions",
				Required: true,
				Template: "Generate a saidata 0.3 YAML document for \"$software_name\" covering providers: $target_providers.",
			},
			{
				Name:      "repository_context",
				Condition: CondHasRepositoryData,
				Template:  "Repository data found:\n$repository_context",
			},
			{
				Name:      "validation_feedback",
				Condition: CondHasValidationFeedback,
				Required:  true,
				Template:  "Your previous attempt failed validation:\n$validation_feedback\n\nCorrect these issues.",
			},
			{
				Name:     "output_format",
				Required: true,
				Template: "Return only the corrected YAML document, with no commentary and no surrounding code fences.",
			},
		},
	}
}

// TruncateExcerpt trims s to at most n characters, the shape the
// orchestrator uses to build ValidationFeedback.FailedYAMLExcerpt (≤500
// chars).
func TruncateExcerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
