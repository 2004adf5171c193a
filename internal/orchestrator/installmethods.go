package orchestrator

import (
	"strings"

	"github.com/example42/saigen/internal/saidata"
)

// GenerateInstallMethod derives a single installation-method section
// (sources, binaries, or scripts) straight from repository data, without an
// LLM call, for callers that only need one section refreshed. Repository
// ingestion is expected to populate the well-known "source_url",
// "download_url", and "install_script_url" keys on RepositoryPackage.Extra
// when available; packages that carry none of them contribute nothing.
func (o *Orchestrator) GenerateInstallMethod(genCtx *saidata.GenerationContext, method saidata.InstallMethod) interface{} {
	switch method {
	case saidata.MethodSources:
		return generateSources(genCtx)
	case saidata.MethodBinaries:
		return generateBinaries(genCtx)
	case saidata.MethodScripts:
		return generateScripts(genCtx)
	default:
		return nil
	}
}

func generateSources(genCtx *saidata.GenerationContext) []saidata.Source {
	var out []saidata.Source
	for _, pkg := range genCtx.RepositoryData {
		url, ok := stringExtra(pkg.Extra, "source_url")
		if !ok || url == "" {
			continue
		}
		out = append(out, saidata.Source{
			Name:          "main",
			URL:           url,
			BuildSystem:   detectBuildSystem(genCtx.SoftwareName, pkg),
			Prerequisites: stringsExtra(pkg.Extra, "prerequisites"),
		})
	}
	return out
}

func generateBinaries(genCtx *saidata.GenerationContext) []saidata.Binary {
	var out []saidata.Binary
	for _, pkg := range genCtx.RepositoryData {
		url, ok := stringExtra(pkg.Extra, "download_url")
		if !ok || url == "" {
			continue
		}
		out = append(out, saidata.Binary{Name: "main", URL: url})
	}
	return out
}

func generateScripts(genCtx *saidata.GenerationContext) []saidata.Script {
	var out []saidata.Script
	for _, pkg := range genCtx.RepositoryData {
		url, ok := stringExtra(pkg.Extra, "install_script_url")
		if !ok || url == "" {
			continue
		}
		out = append(out, saidata.Script{Name: "official", URL: url, Interpreter: "bash", Timeout: 600})
	}
	return out
}

// detectBuildSystem guesses a source package's build system from whatever
// naming hints are available, falling back to autotools.
func detectBuildSystem(softwareName string, pkg saidata.RepositoryPackage) saidata.BuildSystem {
	lower := strings.ToLower(pkg.Name + " " + pkg.Description + " " + softwareName)
	switch {
	case strings.Contains(lower, "cmake"):
		return saidata.BuildCMake
	case strings.Contains(lower, "meson"):
		return saidata.BuildMeson
	case strings.Contains(lower, "ninja"):
		return saidata.BuildNinja
	case strings.Contains(lower, "cargo") || strings.Contains(lower, "rust"):
		return saidata.BuildCustom
	default:
		return saidata.BuildAutotools
	}
}

func stringExtra(extra map[string]interface{}, key string) (string, bool) {
	if extra == nil {
		return "", false
	}
	v, ok := extra[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func stringsExtra(extra map[string]interface{}, key string) []string {
	if extra == nil {
		return nil
	}
	v, ok := extra[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
