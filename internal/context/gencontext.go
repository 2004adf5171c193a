// Package gencontext builds a GenerationContext by combining RAG lookups,
// sample-saidata backfill, category detection, and installation-method
// heuristics. There is a single builder, parameterized by nothing but its
// collaborators.
package gencontext

import (
	"context"
	"strings"

	"github.com/example42/saigen/internal/logutil"
	"github.com/example42/saigen/internal/saidata"
)

// SimilaritySearcher is the subset of the RAG indexer (F) the context
// builder consults. Defined here, consumer-side, so gencontext never
// imports internal/rag directly — it depends only on the shape it needs.
type SimilaritySearcher interface {
	SearchSimilarPackages(ctx context.Context, query string, limit int, minScore float32) ([]saidata.RepositoryPackage, error)
	FindSimilarSaidata(ctx context.Context, softwareName string, limit int, minScore float32) ([]saidata.Document, error)
}

// SampleLoader loads up to n previously curated saidata samples, used to
// backfill SampleSaidata when RAG returns fewer than 3 similar documents.
type SampleLoader interface {
	LoadSamples(ctx context.Context, n int) ([]saidata.Document, error)
}

const (
	similarPackagesLimit = 5
	similarSaidataLimit  = 3
	defaultMinScore      = 0.5
)

// Builder assembles a GenerationContext. A nil Searcher or
// SampleLoader simply skips RAG enrichment and sample backfill — the
// context always remains usable.
type Builder struct {
	Searcher   SimilaritySearcher
	Samples    SampleLoader
	RAGEnabled bool
	Logger     logutil.LoggerInterface
}

// New constructs a Builder. ragEnabled mirrors the per-request use_rag
// option; searcher/samples may be nil even when ragEnabled is true, in
// which case enrichment is skipped and logged.
func New(searcher SimilaritySearcher, samples SampleLoader, ragEnabled bool, logger logutil.LoggerInterface) *Builder {
	return &Builder{Searcher: searcher, Samples: samples, RAGEnabled: ragEnabled, Logger: logger}
}

// Build seeds a GenerationContext from softwareName/targetProviders and
// enriches it step by step. Any enrichment failure is logged and
// skipped rather than propagated.
func (b *Builder) Build(ctx context.Context, softwareName string, targetProviders []string, userHints saidata.UserHints, existing *saidata.Document, repoData []saidata.RepositoryPackage) *saidata.GenerationContext {
	gc := &saidata.GenerationContext{
		SoftwareName:    softwareName,
		TargetProviders: targetProviders,
		UserHints:       userHints,
		ExistingSaidata: existing,
		RepositoryData:  repoData,
	}

	b.attachRAG(ctx, gc)
	gc.SoftwareCategory = detectCategory(gc)
	gc.LikelyInstallationMethods = detectInstallationMethods(gc)
	b.attachTemplates(gc)

	return gc
}

// attachRAG performs step 1: similar packages, similar saidata, and sample
// backfill when similar saidata falls short of similarSaidataLimit.
func (b *Builder) attachRAG(ctx context.Context, gc *saidata.GenerationContext) {
	if !b.RAGEnabled || b.Searcher == nil {
		return
	}

	packages, err := b.Searcher.SearchSimilarPackages(ctx, gc.SoftwareName, similarPackagesLimit, defaultMinScore)
	if err != nil {
		b.warn(ctx, "search_similar_packages failed for %q: %v", gc.SoftwareName, err)
	} else if len(packages) > 0 {
		gc.RepositoryData = append(gc.RepositoryData, packages...)
	}

	similar, err := b.Searcher.FindSimilarSaidata(ctx, gc.SoftwareName, similarSaidataLimit, defaultMinScore)
	if err != nil {
		b.warn(ctx, "find_similar_saidata failed for %q: %v", gc.SoftwareName, err)
	} else {
		gc.SimilarSaidata = similar
	}

	deficit := similarSaidataLimit - len(gc.SimilarSaidata)
	if deficit > 0 && b.Samples != nil {
		samples, err := b.Samples.LoadSamples(ctx, deficit)
		if err != nil {
			b.warn(ctx, "sample saidata backfill failed: %v", err)
		} else {
			gc.SampleSaidata = samples
		}
	}
}

func (b *Builder) warn(ctx context.Context, format string, args ...interface{}) {
	if b.Logger != nil {
		b.Logger.WarnContext(ctx, format, args...)
	}
}

// Software categories recognized by keyword detection, in priority order.
const (
	CategoryWebServer   = "web_server"
	CategoryDatabase    = "database"
	CategoryContainer   = "container"
	CategoryProgramming = "programming"
)

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{CategoryDatabase, []string{"sql", "db", "database", "postgres", "mysql", "mongo", "redis", "sqlite", "cassandra"}},
	{CategoryContainer, []string{"docker", "container", "kubernetes", "k8s", "podman", "containerd"}},
	{CategoryProgramming, []string{"python", "node", "golang", "ruby", "java", "compiler", "interpreter", "sdk", "runtime"}},
	{CategoryWebServer, []string{"nginx", "apache", "httpd", "web", "server", "proxy"}},
}

// detectCategory applies the name-keyword lexicon first, then repository
// category hints, defaulting to web_server.
func detectCategory(gc *saidata.GenerationContext) string {
	name := strings.ToLower(gc.SoftwareName)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(name, kw) {
				return c.category
			}
		}
	}
	for _, pkg := range gc.RepositoryData {
		switch strings.ToLower(pkg.Category) {
		case "database", "db":
			return CategoryDatabase
		case "container", "containers":
			return CategoryContainer
		case "programming", "development", "devel":
			return CategoryProgramming
		case "web", "httpd", "web servers", "web_server":
			return CategoryWebServer
		}
	}
	return CategoryWebServer
}

var sourceIndicators = []string{"source", "compile", "build", "from-source", "git"}
var binaryIndicators = []string{"binary", "release", "prebuilt", "standalone", "portable"}
var scriptIndicators = []string{"install.sh", "installer", "get.", "script", "curl"}

// detectInstallationMethods applies the three keyword lexicons to the
// software name and any repository package name/description, always
// returning at least one method (defaulting to sources).
func detectInstallationMethods(gc *saidata.GenerationContext) []saidata.InstallMethod {
	haystack := strings.ToLower(gc.SoftwareName)
	for _, pkg := range gc.RepositoryData {
		haystack += " " + strings.ToLower(pkg.Name) + " " + strings.ToLower(pkg.Description)
	}

	var methods []saidata.InstallMethod
	if containsAny(haystack, sourceIndicators) {
		methods = append(methods, saidata.MethodSources)
	}
	if containsAny(haystack, binaryIndicators) {
		methods = append(methods, saidata.MethodBinaries)
	}
	if containsAny(haystack, scriptIndicators) {
		methods = append(methods, saidata.MethodScripts)
	}

	if len(methods) == 0 {
		methods = append(methods, saidata.MethodSources)
	}
	return methods
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// attachTemplates performs step 4: per-method example snippets, a
// security-metadata template keyed by category, a compatibility-matrix
// template filtered by target providers, URL-templating examples, and
// provider-enhancement examples.
func (b *Builder) attachTemplates(gc *saidata.GenerationContext) {
	gc.InstallationMethodExamples = installationMethodExamples(gc.LikelyInstallationMethods)
	gc.SecurityMetadataTemplate = securityTemplateFor(gc.SoftwareCategory)
	gc.CompatibilityMatrixTemplate = compatibilityTemplateFor(gc.TargetProviders)
	gc.URLTemplatingExamples = urlTemplatingExamples
	gc.ProviderEnhancementExamples = providerEnhancementExamples(gc.TargetProviders)
}

var urlTemplatingExamples = []string{
	"https://github.com/org/repo/releases/download/v{{version}}/app-{{platform}}-{{architecture}}.tar.gz",
	"https://dl.example.com/{{version}}/{{platform}}/binary",
}

func installationMethodExamples(methods []saidata.InstallMethod) map[saidata.InstallMethod]string {
	out := make(map[saidata.InstallMethod]string, len(methods))
	for _, m := range methods {
		switch m {
		case saidata.MethodSources:
			out[m] = "sources:\n  - name: default\n    url: https://example.com/src.tar.gz\n    build_system: autotools"
		case saidata.MethodBinaries:
			out[m] = "binaries:\n  - name: default\n    url: https://example.com/{{version}}/{{platform}}/{{architecture}}/app\n    install_path: /usr/local/bin"
		case saidata.MethodScripts:
			out[m] = "scripts:\n  - name: default\n    url: https://example.com/install.sh\n    interpreter: bash\n    timeout: 300"
		}
	}
	return out
}

func securityTemplateFor(category string) map[string]interface{} {
	template := map[string]interface{}{
		"cve_exceptions":   []string{},
		"security_contact": "",
	}
	if category == CategoryDatabase || category == CategoryWebServer {
		template["vulnerability_disclosure"] = "https://example.com/security"
	}
	return template
}

func compatibilityTemplateFor(targetProviders []string) []saidata.CompatibilityEntry {
	entries := make([]saidata.CompatibilityEntry, 0, len(targetProviders))
	for _, p := range targetProviders {
		entries = append(entries, saidata.CompatibilityEntry{
			Provider: p,
			Platform: []string{"linux"},
		})
	}
	return entries
}

func providerEnhancementExamples(targetProviders []string) map[string]string {
	out := make(map[string]string, len(targetProviders))
	for _, p := range targetProviders {
		switch p {
		case "apt", "dnf", "yum", "zypper":
			out[p] = "Use the distribution's native package name; prefer repository over download_url."
		case "brew":
			out[p] = "Reference the Homebrew formula name as package_name."
		case "winget":
			out[p] = "package_name is the winget package identifier (Publisher.Product)."
		default:
			out[p] = ""
		}
	}
	return out
}
