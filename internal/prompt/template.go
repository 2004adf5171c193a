// Package prompt renders conditional, variable-substituted LLM prompts from
// a GenerationContext. A Template is a named ordered list of
// Sections; each section is included only if its Condition (when set)
// evaluates true against the context, and its text has $variables
// substituted in before being joined into the final prompt.
package prompt

import (
	"fmt"
	"strings"

	"github.com/example42/saigen/internal/saidata"
)

// Condition is one of the fixed predicates a section may gate on.
type Condition string

const (
	CondHasRepositoryData    Condition = "has_repository_data"
	CondHasSimilarSaidata    Condition = "has_similar_saidata"
	CondHasSampleSaidata     Condition = "has_sample_saidata"
	CondHasUserHints         Condition = "has_user_hints"
	CondHasExistingSaidata   Condition = "has_existing_saidata"
	CondHasValidationFeedback Condition = "has_validation_feedback"
	CondIncludeJSONSchema    Condition = "include_json_schema"
)

// Section is one named, optionally conditional, templated block of a prompt.
type Section struct {
	Name      string
	Template  string
	Required  bool
	Condition Condition // empty means "always included"
}

// Template is a named ordered list of sections.
type Template struct {
	Name     string
	Sections []Section
}

// RenderOptions control behavior that depends on something other than the
// context itself (currently: whether to append the JSON schema section).
type RenderOptions struct {
	IncludeJSONSchema bool
	JSONSchema        string
}

// Render evaluates every section's condition against ctx, substitutes
// variables into the sections that survive, and joins them with a blank
// line.
func (t *Template) Render(ctx *saidata.GenerationContext, opts RenderOptions) (string, error) {
	vars := buildVariables(ctx, opts)

	var parts []string
	for _, sec := range t.Sections {
		include, err := shouldInclude(sec.Condition, ctx, opts)
		if err != nil {
			return "", fmt.Errorf("section %q: %w", sec.Name, err)
		}
		if !include {
			continue
		}

		rendered, missing := substitute(sec.Template, vars)
		if sec.Required && len(missing) > 0 {
			return "", fmt.Errorf("section %q: missing required variables: %s", sec.Name, strings.Join(missing, ", "))
		}
		parts = append(parts, rendered)
	}
	return strings.Join(parts, "\n\n"), nil
}

func shouldInclude(cond Condition, ctx *saidata.GenerationContext, opts RenderOptions) (bool, error) {
	switch cond {
	case "":
		return true, nil
	case CondHasRepositoryData:
		return ctx.HasRepositoryData(), nil
	case CondHasSimilarSaidata:
		return ctx.HasSimilarSaidata(), nil
	case CondHasSampleSaidata:
		return ctx.HasSampleSaidata(), nil
	case CondHasUserHints:
		return ctx.HasUserHints(), nil
	case CondHasExistingSaidata:
		return ctx.HasExistingSaidata(), nil
	case CondHasValidationFeedback:
		return ctx.HasValidationFeedback(), nil
	case CondIncludeJSONSchema:
		return opts.IncludeJSONSchema, nil
	default:
		return false, fmt.Errorf("unknown condition %q", cond)
	}
}
