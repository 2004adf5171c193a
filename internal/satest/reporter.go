package satest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reporter formats one or more Suite results as text or JSON.
type Reporter struct {
	Format string // "text" or "json"
}

// NewReporter constructs a Reporter for the given format ("json" selects
// JSON output; anything else, including "", is plain text).
func NewReporter(format string) *Reporter {
	return &Reporter{Format: format}
}

var statusSymbol = map[Status]string{
	StatusPassed:  "PASS",
	StatusFailed:  "FAIL",
	StatusSkipped: "SKIP",
	StatusError:   "ERR ",
}

// Report formats a single suite.
func (r *Reporter) Report(suite Suite) string {
	if strings.EqualFold(r.Format, "json") {
		data, _ := json.MarshalIndent(suiteDTO(suite), "", "  ")
		return string(data)
	}
	return formatSuiteText(suite)
}

// ReportBatch formats a set of suites, e.g. one per generated document in a
// batch run.
func (r *Reporter) ReportBatch(suites []Suite) string {
	if strings.EqualFold(r.Format, "json") {
		dtos := make([]suiteDTOType, 0, len(suites))
		for _, s := range suites {
			dtos = append(dtos, suiteDTO(s))
		}
		data, _ := json.MarshalIndent(struct {
			Suites  []suiteDTOType `json:"suites"`
			Summary batchSummary   `json:"summary"`
		}{dtos, summarize(suites)}, "", "  ")
		return string(data)
	}

	var b strings.Builder
	summary := summarize(suites)
	fmt.Fprintf(&b, "smoke test: %d/%d documents OK (%d checks passed, %d failed, %d skipped, %d errors)\n",
		summary.OKDocuments, len(suites), summary.Passed, summary.Failed, summary.Skipped, summary.Errors)
	for _, s := range suites {
		status := "OK"
		if !s.OK() {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "  [%s] %s (%d/%d passed)\n", status, s.Name, s.Passed(), s.Total())
	}
	return b.String()
}

func formatSuiteText(suite Suite) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d passed, %d failed, %d skipped, %d errors (%s)\n",
		suite.Name, suite.Passed(), suite.Failed(), suite.Skipped(), suite.Errors(), suite.Duration())
	for _, res := range suite.Results {
		fmt.Fprintf(&b, "  [%s] %s", statusSymbol[res.Status], res.Name)
		if res.Message != "" {
			fmt.Fprintf(&b, ": %s", res.Message)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type resultDTO struct {
	Name     string            `json:"name"`
	Status   Status            `json:"status"`
	Duration string            `json:"duration"`
	Message  string            `json:"message,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
}

type suiteDTOType struct {
	Name    string      `json:"name"`
	OK      bool        `json:"ok"`
	Total   int         `json:"total"`
	Passed  int         `json:"passed"`
	Failed  int         `json:"failed"`
	Skipped int         `json:"skipped"`
	Errors  int         `json:"errors"`
	Results []resultDTO `json:"results"`
}

func suiteDTO(s Suite) suiteDTOType {
	results := make([]resultDTO, 0, len(s.Results))
	for _, r := range s.Results {
		results = append(results, resultDTO{
			Name: r.Name, Status: r.Status, Duration: r.Duration.String(),
			Message: r.Message, Details: r.Details,
		})
	}
	return suiteDTOType{
		Name: s.Name, OK: s.OK(), Total: s.Total(),
		Passed: s.Passed(), Failed: s.Failed(), Skipped: s.Skipped(), Errors: s.Errors(),
		Results: results,
	}
}

type batchSummary struct {
	OKDocuments int `json:"ok_documents"`
	Passed      int `json:"passed"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
	Errors      int `json:"errors"`
}

func summarize(suites []Suite) batchSummary {
	var s batchSummary
	for _, suite := range suites {
		if suite.OK() {
			s.OKDocuments++
		}
		s.Passed += suite.Passed()
		s.Failed += suite.Failed()
		s.Skipped += suite.Skipped()
		s.Errors += suite.Errors()
	}
	return s
}
