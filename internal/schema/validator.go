// Package schema validates a parsed saidata document, first structurally
// against the embedded JSON schema shape and then against the model-level
// invariants saidata.Document.Validate already expresses. The orchestrator
// treats any Errors entry as fatal; Warnings and Info are surfaced but do
// not block emission.
package schema

import (
	"fmt"

	"github.com/example42/saigen/internal/saidata"
)

// Result is the outcome of a schema validation pass.
type Result struct {
	IsValid  bool
	Errors   []saidata.ValidationError
	Warnings []saidata.ValidationError
	Info     []saidata.ValidationError
}

// Validator validates documents against the embedded 0.3 schema plus
// model-level invariants.
type Validator struct {
	schema *documentSchema
}

// New constructs a Validator using the embedded schema document.
func New() *Validator {
	return &Validator{schema: embeddedSchema}
}

// Validate runs the two-phase check (structural, then model-level) and returns a Result
// bucketed by severity.
func (v *Validator) Validate(doc *saidata.Document) Result {
	var res Result

	structural := v.schema.checkStructure(doc)
	modelLevel := doc.Validate()

	all := append(structural, modelLevel...)
	for _, e := range all {
		switch e.Severity {
		case "warning":
			res.Warnings = append(res.Warnings, e)
		case "info":
			res.Info = append(res.Info, e)
		default:
			res.Errors = append(res.Errors, e)
		}
	}
	res.IsValid = len(res.Errors) == 0
	return res
}

// documentSchema expresses the required-field closure of the 0.3 schema.
// The checks are evaluated directly against the typed Document rather than
// through a generic JSON-schema engine: the document is already strongly
// typed by the time it reaches this package, so re-encoding it to JSON just
// to walk a schema interpreter would buy nothing.
type documentSchema struct{}

var embeddedSchema = &documentSchema{}

func (s *documentSchema) checkStructure(doc *saidata.Document) []saidata.ValidationError {
	var errs []saidata.ValidationError

	if doc == nil {
		return []saidata.ValidationError{{
			Path: "$", Severity: "error", Code: "empty_document",
			Message: "document is nil",
		}}
	}

	for i, pkg := range doc.Packages {
		if pkg.Name == "" {
			errs = append(errs, required(fmt.Sprintf("packages[%d].name", i)))
		}
		if pkg.PackageName == "" {
			errs = append(errs, required(fmt.Sprintf("packages[%d].package_name", i)))
		}
	}
	for i, svc := range doc.Services {
		if svc.Name == "" {
			errs = append(errs, required(fmt.Sprintf("services[%d].name", i)))
		}
		if svc.ServiceName == "" {
			errs = append(errs, required(fmt.Sprintf("services[%d].service_name", i)))
		}
	}
	for i, f := range doc.Files {
		if f.Name == "" {
			errs = append(errs, required(fmt.Sprintf("files[%d].name", i)))
		}
		if f.Path == "" {
			errs = append(errs, required(fmt.Sprintf("files[%d].path", i)))
		}
	}
	for i, src := range doc.Sources {
		if src.Name == "" {
			errs = append(errs, required(fmt.Sprintf("sources[%d].name", i)))
		}
		if src.URL == "" {
			errs = append(errs, required(fmt.Sprintf("sources[%d].url", i)))
		}
	}
	for i, bin := range doc.Binaries {
		if bin.Name == "" {
			errs = append(errs, required(fmt.Sprintf("binaries[%d].name", i)))
		}
		if bin.URL == "" {
			errs = append(errs, required(fmt.Sprintf("binaries[%d].url", i)))
		}
	}
	for i, scr := range doc.Scripts {
		if scr.Name == "" {
			errs = append(errs, required(fmt.Sprintf("scripts[%d].name", i)))
		}
		if scr.URL == "" {
			errs = append(errs, required(fmt.Sprintf("scripts[%d].url", i)))
		} else if len(scr.URL) > 5 && scr.URL[:5] != "https" {
			errs = append(errs, saidata.ValidationError{
				Path: fmt.Sprintf("scripts[%d].url", i), Severity: "warning", Code: "insecure_url",
				Message: "script URL should be https", Suggestion: "use an https:// URL",
			})
		}
	}

	return errs
}

func required(path string) saidata.ValidationError {
	return saidata.ValidationError{
		Path: path, Severity: "error", Code: "required",
		Message: "required field is missing",
	}
}
