// Package urlfilter concurrently probes every URL-valued field of a saidata
// document and removes the ones that are not reachable. A probe
// failure never blocks emission: any error in the filter leaves the
// original document untouched and is surfaced as a warning to the caller.
package urlfilter

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/example42/saigen/internal/saidata"
)

const (
	// DefaultTimeout bounds a single probe.
	DefaultTimeout = 5 * time.Second
	// DefaultMaxConcurrent bounds how many probes run at once.
	DefaultMaxConcurrent = 10
)

// Options configures a Filter.
type Options struct {
	Timeout       time.Duration
	MaxConcurrent int
	Client        *http.Client
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: o.Timeout}
	}
	return o
}

// Filter probes candidate URLs and removes unreachable ones.
type Filter struct {
	opts Options
}

// New constructs a Filter. A zero Options uses the package defaults.
func New(opts Options) *Filter {
	return &Filter{opts: opts.withDefaults()}
}

// Run removes every unreachable URL field from doc and returns the
// (possibly mutated) document plus any warning raised along the way. doc is
// mutated in place; callers that need the pre-filter document should copy
// it first. A probing error for a single URL only drops that URL — it does
// not abort the whole pass; only a panic-class failure in Run itself falls
// back to returning doc unchanged (see the deferred recover).
func (f *Filter) Run(ctx context.Context, doc *saidata.Document) (out *saidata.Document, warning string) {
	if doc == nil {
		return doc, ""
	}

	defer func() {
		if r := recover(); r != nil {
			out = doc
			warning = "url filter failed unexpectedly; document emitted unchanged"
		}
	}()

	fields := collectFields(doc)
	if len(fields) == 0 {
		return doc, ""
	}

	results := f.probeAll(ctx, fields)

	for i, field := range fields {
		if !results[i] {
			field.clear()
		}
	}

	pruneEmptyURLMaps(doc)
	return doc, ""
}

// urlField is a settable pointer to one candidate URL-valued string.
type urlField struct {
	url   string
	clear func()
}

func collectFields(doc *saidata.Document) []urlField {
	var fields []urlField

	for key, val := range doc.Metadata.URLs {
		key, val := key, val
		if isCandidate(val) {
			fields = append(fields, urlField{
				url:   val,
				clear: func() { delete(doc.Metadata.URLs, key) },
			})
		}
	}

	if doc.Metadata.Security != nil {
		sec := doc.Metadata.Security
		if isCandidate(sec.VulnerabilityDisclosure) {
			fields = append(fields, urlField{sec.VulnerabilityDisclosure, func() { sec.VulnerabilityDisclosure = "" }})
		}
		if isCandidate(sec.SBOMURL) {
			fields = append(fields, urlField{sec.SBOMURL, func() { sec.SBOMURL = "" }})
		}
		if isCandidate(sec.SigningKey) {
			fields = append(fields, urlField{sec.SigningKey, func() { sec.SigningKey = "" }})
		}
	}

	return fields
}

// isCandidate reports whether a URL should be probed at all: non-empty and
// free of {{...}} templating placeholders. A partially templated URL is
// skipped in its entirety, not just the placeholder span.
func isCandidate(url string) bool {
	return url != "" && !strings.Contains(url, "{{")
}

// probeAll runs one goroutine per field, bounded by opts.MaxConcurrent, and
// returns a parallel slice of reachability verdicts.
func (f *Filter) probeAll(ctx context.Context, fields []urlField) []bool {
	results := make([]bool, len(fields))
	sem := make(chan struct{}, f.opts.MaxConcurrent)
	var wg sync.WaitGroup

	for i, field := range fields {
		i, field := i, field
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = f.reachable(ctx, field.url)
		}()
	}
	wg.Wait()
	return results
}

// reachable performs a HEAD request, falling back to GET on a 405, and
// reports whether the final status is in [200, 399].
func (f *Filter) reachable(ctx context.Context, url string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	status, err := f.do(probeCtx, http.MethodHead, url)
	if err == nil && status == http.StatusMethodNotAllowed {
		status, err = f.do(probeCtx, http.MethodGet, url)
	}
	if err != nil {
		return false
	}
	return status >= 200 && status < 400
}

func (f *Filter) do(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.opts.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// pruneEmptyURLMaps leaves metadata.urls as an empty mapping (never nil)
// when every entry was removed, so the emitter still produces `urls: {}` rather than omitting
// the key outright.
func pruneEmptyURLMaps(doc *saidata.Document) {
	if doc.Metadata.URLs == nil {
		doc.Metadata.URLs = map[string]string{}
	}
}
