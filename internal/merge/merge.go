// Package merge combines an existing saidata document with a freshly
// generated one under one of three strategies.
package merge

import (
	"reflect"
	"sync"

	"github.com/example42/saigen/internal/saidata"
)

// Strategy selects how existing and fresh documents are combined.
type Strategy string

const (
	StrategyPreserve Strategy = "preserve"
	StrategyEnhance  Strategy = "enhance"
	StrategyReplace  Strategy = "replace"
)

// Stats summarizes what a merge changed.
type Stats struct {
	FieldsAdded       int
	FieldsUpdated     int
	ConflictsResolved int
}

func (s *Stats) add(o Stats) {
	s.FieldsAdded += o.FieldsAdded
	s.FieldsUpdated += o.FieldsUpdated
	s.ConflictsResolved += o.ConflictsResolved
}

// Prompter lets the replace strategy's interactive mode ask an operator
// whether to keep an existing value, without the engine depending on a TTY
// directly.
type Prompter interface {
	// KeepExisting asks whether to preserve the existing value of the named
	// top-level field instead of adopting the fresh one.
	KeepExisting(fieldPath string) bool
	// ChooseLonger asks whether to adopt the longer fresh description.
	ChooseLonger(fieldPath, existing, fresh string) bool
}

// Engine runs Merge and accumulates Stats across every call for reporting,
// across the engine's lifetime.
type Engine struct {
	mu       sync.Mutex
	lifetime Stats
	prompter Prompter
}

// New constructs an Engine. prompter may be nil; interactive mode is then
// silently skipped (every conflict resolves to the non-interactive default).
func New(prompter Prompter) *Engine {
	return &Engine{prompter: prompter}
}

// LifetimeStats returns the statistics accumulated across every Merge call
// this Engine has performed.
func (e *Engine) LifetimeStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lifetime
}

// Merge combines existing and fresh per strategy. existing and fresh are
// never mutated; the returned document is independent of both.
func (e *Engine) Merge(existing, fresh *saidata.Document, strategy Strategy, interactive bool) (*saidata.Document, Stats) {
	var merged *saidata.Document
	var stats Stats

	switch strategy {
	case StrategyEnhance:
		merged, stats = mergeEnhance(existing, fresh, interactive, e.prompter)
	case StrategyReplace:
		merged, stats = mergeReplace(existing, fresh, interactive, e.prompter)
	default:
		merged, stats = mergePreserve(existing, fresh)
	}

	e.mu.Lock()
	e.lifetime.add(stats)
	e.mu.Unlock()

	return merged, stats
}

// mergePreserve keeps every existing leaf and adds keys from fresh that are
// absent in existing. Provider configs that do not yet exist are added
// wholesale; overlapping provider configs are left untouched.
func mergePreserve(existing, fresh *saidata.Document) (*saidata.Document, Stats) {
	stats := Stats{}
	merged := cloneDocument(existing)

	if merged.Version == "" && fresh.Version != "" {
		merged.Version = fresh.Version
		stats.FieldsAdded++
	}

	merged.Metadata = mergeMetadataPreserve(merged.Metadata, fresh.Metadata, &stats)

	merged.Packages = mergeSequence(merged.Packages, fresh.Packages, saidata.Package.IdentityKey, &stats)
	merged.Services = mergeSequence(merged.Services, fresh.Services, saidata.Service.IdentityKey, &stats)
	merged.Files = mergeSequence(merged.Files, fresh.Files, saidata.File.IdentityKey, &stats)
	merged.Directories = mergeSequence(merged.Directories, fresh.Directories, saidata.Directory.IdentityKey, &stats)
	merged.Commands = mergeSequence(merged.Commands, fresh.Commands, saidata.Command.IdentityKey, &stats)
	merged.Ports = mergeSequence(merged.Ports, fresh.Ports, saidata.Port.IdentityKey, &stats)

	merged.Sources = mergeSequence1(merged.Sources, fresh.Sources, saidata.Source.IdentityKey, &stats)
	merged.Binaries = mergeSequence1(merged.Binaries, fresh.Binaries, saidata.Binary.IdentityKey, &stats)
	merged.Scripts = mergeSequence1(merged.Scripts, fresh.Scripts, saidata.Script.IdentityKey, &stats)

	if len(merged.Containers) == 0 && len(fresh.Containers) > 0 {
		merged.Containers = append([]map[string]interface{}(nil), fresh.Containers...)
		stats.FieldsAdded++
	}

	merged.Providers = mergeProvidersPreserve(merged.Providers, fresh.Providers, &stats)

	if merged.Compatibility == nil && fresh.Compatibility != nil {
		c := *fresh.Compatibility
		c.Matrix = append([]saidata.CompatibilityEntry(nil), fresh.Compatibility.Matrix...)
		merged.Compatibility = &c
		stats.FieldsAdded++
	}

	return merged, stats
}

// mergeEnhance layers the enhance-only behaviors on top of preserve: the
// longer description wins, tags union, and overlapping provider resource
// sequences merge by identity key instead of being left untouched.
func mergeEnhance(existing, fresh *saidata.Document, interactive bool, prompter Prompter) (*saidata.Document, Stats) {
	merged, stats := mergePreserve(existing, fresh)

	enhanceDescription(&merged.Metadata, fresh.Metadata, interactive, prompter, &stats)
	enhanceTags(&merged.Metadata, fresh.Metadata, &stats)

	merged.Providers = enhanceOverlappingProviders(merged.Providers, existing.Providers, fresh.Providers, &stats)

	return merged, stats
}

// mergeReplace uses fresh verbatim; in interactive mode the operator is
// asked, per top-level field present and differing in both, whether to keep
// the existing value instead.
func mergeReplace(existing, fresh *saidata.Document, interactive bool, prompter Prompter) (*saidata.Document, Stats) {
	stats := Stats{FieldsUpdated: len(documentFields)}
	merged := cloneDocument(fresh)

	if interactive && prompter != nil {
		for _, f := range documentFields {
			exVal := f.get(existing)
			frVal := f.get(fresh)
			if isZero(exVal) || isZero(frVal) || reflect.DeepEqual(exVal, frVal) {
				continue
			}
			if prompter.KeepExisting(f.path) {
				f.apply(merged, existing)
				stats.ConflictsResolved++
			}
		}
	}

	return merged, stats
}

func enhanceDescription(m *saidata.Metadata, fresh saidata.Metadata, interactive bool, prompter Prompter, stats *Stats) {
	if fresh.Description == "" || len(fresh.Description) <= len(m.Description) {
		return
	}
	if interactive && prompter != nil {
		stats.ConflictsResolved++
		if !prompter.ChooseLonger("metadata.description", m.Description, fresh.Description) {
			return
		}
	}
	m.Description = fresh.Description
	stats.FieldsUpdated++
}

func enhanceTags(m *saidata.Metadata, fresh saidata.Metadata, stats *Stats) {
	if len(fresh.Tags) == 0 {
		return
	}
	union := unionStrings(m.Tags, fresh.Tags)
	if !setEqual(m.Tags, union) {
		m.Tags = union
		stats.FieldsUpdated++
	}
}

func enhanceOverlappingProviders(merged, existing, fresh map[string]saidata.ProviderConfig, stats *Stats) map[string]saidata.ProviderConfig {
	for name, freshCfg := range fresh {
		existingCfg, ok := existing[name]
		if !ok {
			continue // mergePreserve already added this provider wholesale.
		}
		mergedCfg := merged[name]
		mergedCfg.Packages = mergeSequence(append([]saidata.Package(nil), existingCfg.Packages...), freshCfg.Packages, saidata.Package.IdentityKey, stats)
		mergedCfg.Services = mergeSequence(append([]saidata.Service(nil), existingCfg.Services...), freshCfg.Services, saidata.Service.IdentityKey, stats)
		mergedCfg.Files = mergeSequence(append([]saidata.File(nil), existingCfg.Files...), freshCfg.Files, saidata.File.IdentityKey, stats)
		mergedCfg.Directories = mergeSequence(append([]saidata.Directory(nil), existingCfg.Directories...), freshCfg.Directories, saidata.Directory.IdentityKey, stats)
		mergedCfg.Commands = mergeSequence(append([]saidata.Command(nil), existingCfg.Commands...), freshCfg.Commands, saidata.Command.IdentityKey, stats)
		mergedCfg.Ports = mergeSequence(append([]saidata.Port(nil), existingCfg.Ports...), freshCfg.Ports, saidata.Port.IdentityKey, stats)
		merged[name] = mergedCfg
	}
	return merged
}

func mergeProvidersPreserve(existing, fresh map[string]saidata.ProviderConfig, stats *Stats) map[string]saidata.ProviderConfig {
	merged := make(map[string]saidata.ProviderConfig, len(existing)+len(fresh))
	for name, cfg := range existing {
		merged[name] = cfg
	}
	for name, cfg := range fresh {
		if _, ok := existing[name]; !ok {
			merged[name] = cfg
			stats.FieldsAdded++
		}
	}
	return merged
}

func mergeMetadataPreserve(m, fresh saidata.Metadata, stats *Stats) saidata.Metadata {
	if m.DisplayName == "" && fresh.DisplayName != "" {
		m.DisplayName = fresh.DisplayName
		stats.FieldsAdded++
	}
	if m.Description == "" && fresh.Description != "" {
		m.Description = fresh.Description
		stats.FieldsAdded++
	}
	if m.Version == "" && fresh.Version != "" {
		m.Version = fresh.Version
		stats.FieldsAdded++
	}
	if m.Category == "" && fresh.Category != "" {
		m.Category = fresh.Category
		stats.FieldsAdded++
	}
	if m.Subcategory == "" && fresh.Subcategory != "" {
		m.Subcategory = fresh.Subcategory
		stats.FieldsAdded++
	}
	if m.License == "" && fresh.License != "" {
		m.License = fresh.License
		stats.FieldsAdded++
	}
	if m.Language == "" && fresh.Language != "" {
		m.Language = fresh.Language
		stats.FieldsAdded++
	}
	if m.Maintainer == "" && fresh.Maintainer != "" {
		m.Maintainer = fresh.Maintainer
		stats.FieldsAdded++
	}
	if len(m.Tags) == 0 && len(fresh.Tags) > 0 {
		m.Tags = append([]string(nil), fresh.Tags...)
		stats.FieldsAdded++
	}
	m.URLs = mergeStringMap(m.URLs, fresh.URLs, stats)
	m.Security = mergeSecurity(m.Security, fresh.Security, stats)
	return m
}

func mergeStringMap(existing, fresh map[string]string, stats *Stats) map[string]string {
	if len(fresh) == 0 {
		return existing
	}
	merged := existing
	for k, v := range fresh {
		if _, ok := merged[k]; !ok {
			if merged == nil {
				merged = make(map[string]string, len(fresh))
			}
			merged[k] = v
			stats.FieldsAdded++
		}
	}
	return merged
}

func mergeSecurity(existing, fresh *saidata.Security, stats *Stats) *saidata.Security {
	if fresh == nil {
		return existing
	}
	if existing == nil {
		sec := *fresh
		sec.CVEExceptions = append([]string(nil), fresh.CVEExceptions...)
		stats.FieldsAdded++
		return &sec
	}
	if existing.SecurityContact == "" && fresh.SecurityContact != "" {
		existing.SecurityContact = fresh.SecurityContact
		stats.FieldsAdded++
	}
	if existing.VulnerabilityDisclosure == "" && fresh.VulnerabilityDisclosure != "" {
		existing.VulnerabilityDisclosure = fresh.VulnerabilityDisclosure
		stats.FieldsAdded++
	}
	if existing.SBOMURL == "" && fresh.SBOMURL != "" {
		existing.SBOMURL = fresh.SBOMURL
		stats.FieldsAdded++
	}
	if existing.SigningKey == "" && fresh.SigningKey != "" {
		existing.SigningKey = fresh.SigningKey
		stats.FieldsAdded++
	}
	if len(existing.CVEExceptions) == 0 && len(fresh.CVEExceptions) > 0 {
		existing.CVEExceptions = append([]string(nil), fresh.CVEExceptions...)
		stats.FieldsAdded++
	}
	return existing
}

// mergeSequence appends items from fresh whose two-part identity key is not
// already present in existing. Order of existing items is preserved; new
// items are appended in fresh's order.
func mergeSequence[T any](existing, fresh []T, key func(T) [2]string, stats *Stats) []T {
	seen := make(map[[2]string]bool, len(existing))
	for _, item := range existing {
		seen[key(item)] = true
	}
	merged := existing
	for _, item := range fresh {
		k := key(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		merged = append(merged, item)
		stats.FieldsAdded++
	}
	return merged
}

func mergeSequence1[T any](existing, fresh []T, key func(T) string, stats *Stats) []T {
	seen := make(map[string]bool, len(existing))
	for _, item := range existing {
		seen[key(item)] = true
	}
	merged := existing
	for _, item := range fresh {
		k := key(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		merged = append(merged, item)
		stats.FieldsAdded++
	}
	return merged
}

// unionStrings returns the set union of a and b, preserving a's order and
// appending b's novel elements in b's order — so a union b equals a exactly
// when b contributes nothing new (needed for P2, merge identity).
func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func setEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if !set[s] {
			return false
		}
	}
	return true
}

func isZero(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.IsZero()
}

// docField describes one top-level Document section for the replace
// strategy's interactive prompt loop.
type docField struct {
	path  string
	get   func(*saidata.Document) interface{}
	apply func(merged, existing *saidata.Document)
}

var documentFields = []docField{
	{"version", func(d *saidata.Document) interface{} { return d.Version },
		func(m, e *saidata.Document) { m.Version = e.Version }},
	{"metadata", func(d *saidata.Document) interface{} { return d.Metadata },
		func(m, e *saidata.Document) { m.Metadata = e.Metadata }},
	{"packages", func(d *saidata.Document) interface{} { return d.Packages },
		func(m, e *saidata.Document) { m.Packages = e.Packages }},
	{"services", func(d *saidata.Document) interface{} { return d.Services },
		func(m, e *saidata.Document) { m.Services = e.Services }},
	{"files", func(d *saidata.Document) interface{} { return d.Files },
		func(m, e *saidata.Document) { m.Files = e.Files }},
	{"directories", func(d *saidata.Document) interface{} { return d.Directories },
		func(m, e *saidata.Document) { m.Directories = e.Directories }},
	{"commands", func(d *saidata.Document) interface{} { return d.Commands },
		func(m, e *saidata.Document) { m.Commands = e.Commands }},
	{"ports", func(d *saidata.Document) interface{} { return d.Ports },
		func(m, e *saidata.Document) { m.Ports = e.Ports }},
	{"containers", func(d *saidata.Document) interface{} { return d.Containers },
		func(m, e *saidata.Document) { m.Containers = e.Containers }},
	{"sources", func(d *saidata.Document) interface{} { return d.Sources },
		func(m, e *saidata.Document) { m.Sources = e.Sources }},
	{"binaries", func(d *saidata.Document) interface{} { return d.Binaries },
		func(m, e *saidata.Document) { m.Binaries = e.Binaries }},
	{"scripts", func(d *saidata.Document) interface{} { return d.Scripts },
		func(m, e *saidata.Document) { m.Scripts = e.Scripts }},
	{"providers", func(d *saidata.Document) interface{} { return d.Providers },
		func(m, e *saidata.Document) { m.Providers = e.Providers }},
	{"compatibility", func(d *saidata.Document) interface{} {
		if d.Compatibility == nil {
			return nil
		}
		return *d.Compatibility
	}, func(m, e *saidata.Document) { m.Compatibility = e.Compatibility }},
}

func cloneDocument(d *saidata.Document) *saidata.Document {
	if d == nil {
		return &saidata.Document{}
	}
	clone := *d
	clone.Packages = append([]saidata.Package(nil), d.Packages...)
	clone.Services = append([]saidata.Service(nil), d.Services...)
	clone.Files = append([]saidata.File(nil), d.Files...)
	clone.Directories = append([]saidata.Directory(nil), d.Directories...)
	clone.Commands = append([]saidata.Command(nil), d.Commands...)
	clone.Ports = append([]saidata.Port(nil), d.Ports...)
	clone.Containers = append([]map[string]interface{}(nil), d.Containers...)
	clone.Sources = append([]saidata.Source(nil), d.Sources...)
	clone.Binaries = append([]saidata.Binary(nil), d.Binaries...)
	clone.Scripts = append([]saidata.Script(nil), d.Scripts...)

	if d.Providers != nil {
		clone.Providers = make(map[string]saidata.ProviderConfig, len(d.Providers))
		for k, v := range d.Providers {
			clone.Providers[k] = v
		}
	}

	clone.Metadata = cloneMetadata(d.Metadata)

	if d.Compatibility != nil {
		c := *d.Compatibility
		c.Matrix = append([]saidata.CompatibilityEntry(nil), d.Compatibility.Matrix...)
		if d.Compatibility.Versions != nil {
			c.Versions = make(map[string]string, len(d.Compatibility.Versions))
			for k, v := range d.Compatibility.Versions {
				c.Versions[k] = v
			}
		}
		clone.Compatibility = &c
	}

	return &clone
}

func cloneMetadata(m saidata.Metadata) saidata.Metadata {
	clone := m
	clone.Tags = append([]string(nil), m.Tags...)
	if m.URLs != nil {
		clone.URLs = make(map[string]string, len(m.URLs))
		for k, v := range m.URLs {
			clone.URLs[k] = v
		}
	}
	if m.Security != nil {
		sec := *m.Security
		sec.CVEExceptions = append([]string(nil), m.Security.CVEExceptions...)
		clone.Security = &sec
	}
	return clone
}
