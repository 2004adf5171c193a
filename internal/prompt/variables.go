package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/example42/saigen/internal/saidata"
)

var varPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// recognized variable names.
const (
	varSoftwareName           = "software_name"
	varTargetProviders        = "target_providers"
	varRepositoryContext      = "repository_context"
	varSimilarSaidataExamples = "similar_saidata_examples"
	varSampleSaidataExamples  = "sample_saidata_examples"
	varUserHints              = "user_hints"
	varExistingSaidata        = "existing_saidata"
	varValidationFeedback     = "validation_feedback"
	varJSONSchema             = "json_schema"
)

func buildVariables(ctx *saidata.GenerationContext, opts RenderOptions) map[string]string {
	vars := map[string]string{
		varSoftwareName:           ctx.SoftwareName,
		varTargetProviders:        strings.Join(ctx.TargetProviders, ", "),
		varRepositoryContext:      FormatRepositoryContext(ctx.RepositoryData),
		varSimilarSaidataExamples: FormatSaidataExamples(ctx.SimilarSaidata),
		varSampleSaidataExamples:  FormatSaidataExamples(ctx.SampleSaidata),
		varUserHints:              formatUserHints(ctx.UserHints),
		varExistingSaidata:        formatExistingSaidata(ctx.ExistingSaidata),
		varValidationFeedback:     formatValidationFeedback(ctx.UserHints),
		varJSONSchema:             opts.JSONSchema,
	}
	return vars
}

// substitute replaces every $var occurrence with its value from vars.
// Variables absent from vars substitute to empty; the list of names
// that had no entry at all in vars (as opposed to an empty string value) is
// returned so callers can enforce "missing variable in a required section
// raises a render error".
func substitute(tmpl string, vars map[string]string) (string, []string) {
	var missing []string
	seen := map[string]bool{}
	out := varPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[1:]
		val, ok := vars[name]
		if !ok {
			if !seen[name] {
				missing = append(missing, name)
				seen[name] = true
			}
			return ""
		}
		return val
	})
	return out, missing
}

func formatUserHints(hints saidata.UserHints) string {
	if len(hints) == 0 {
		return ""
	}
	keys := make([]string, 0, len(hints))
	for k := range hints {
		if k == "validation_feedback" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var lines []string
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %v", k, hints[k]))
	}
	return strings.Join(lines, "\n")
}

func formatExistingSaidata(doc *saidata.Document) string {
	if doc == nil {
		return ""
	}
	return summarizeDocument(doc)
}

func formatValidationFeedback(hints saidata.UserHints) string {
	raw, ok := hints["validation_feedback"]
	if !ok {
		return ""
	}
	fb, ok := raw.(saidata.ValidationFeedback)
	if !ok {
		return fmt.Sprintf("%v", raw)
	}
	var b strings.Builder
	b.WriteString("Validation failed: ")
	b.WriteString(fb.ValidationError)
	b.WriteString("\n")
	for _, e := range fb.SpecificErrors {
		b.WriteString("- ")
		b.WriteString(e)
		b.WriteString("\n")
	}
	if fb.FailedYAMLExcerpt != "" {
		b.WriteString("Previous output (excerpt):\n")
		b.WriteString(fb.FailedYAMLExcerpt)
		b.WriteString("\n")
	}
	for _, instr := range fb.RetryInstructions {
		b.WriteString("- ")
		b.WriteString(instr)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
