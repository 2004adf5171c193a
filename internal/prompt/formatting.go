package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example42/saigen/internal/saidata"
)

const (
	maxPerRepo   = 3
	maxTotalRepo = 8
)

// FormatRepositoryContext groups packages by repository_name, emitting at
// most maxPerRepo per repository and maxTotalRepo overall, in the exact
// line shape: "— name (vVERSION): DESCRIPTION [Homepage: …]".
func FormatRepositoryContext(pkgs []saidata.RepositoryPackage) string {
	if len(pkgs) == 0 {
		return ""
	}

	byRepo := map[string][]saidata.RepositoryPackage{}
	var repoOrder []string
	for _, p := range pkgs {
		if _, seen := byRepo[p.RepositoryName]; !seen {
			repoOrder = append(repoOrder, p.RepositoryName)
		}
		byRepo[p.RepositoryName] = append(byRepo[p.RepositoryName], p)
	}

	var lines []string
	total := 0
	for _, repo := range repoOrder {
		if total >= maxTotalRepo {
			break
		}
		lines = append(lines, fmt.Sprintf("%s:", repo))
		list := byRepo[repo]
		count := 0
		for _, p := range list {
			if count >= maxPerRepo || total >= maxTotalRepo {
				break
			}
			lines = append(lines, formatPackageLine(p))
			count++
			total++
		}
	}
	return strings.Join(lines, "\n")
}

func formatPackageLine(p saidata.RepositoryPackage) string {
	line := fmt.Sprintf("— %s (v%s): %s", p.Name, p.Version, p.Description)
	if p.Homepage != "" {
		line += fmt.Sprintf(" [Homepage: %s]", p.Homepage)
	}
	return line
}

// FormatSaidataExamples summarizes a list of saidata documents — name,
// category, provider list, sample package/service identity keys — the
// compact form the prompt templates embed for similar/sample saidata.
func FormatSaidataExamples(docs []saidata.Document) string {
	if len(docs) == 0 {
		return ""
	}
	var out []string
	for _, d := range docs {
		out = append(out, summarizeDocument(&d))
	}
	return strings.Join(out, "\n\n")
}

func summarizeDocument(d *saidata.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (category: %s)\n", d.Metadata.Name, d.Metadata.Category)

	if len(d.Providers) > 0 {
		names := make([]string, 0, len(d.Providers))
		for name := range d.Providers {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "providers: %s\n", strings.Join(names, ", "))
	}

	if len(d.Packages) > 0 {
		var keys []string
		for _, p := range d.Packages {
			k := p.IdentityKey()
			keys = append(keys, fmt.Sprintf("(%s, %s)", k[0], k[1]))
		}
		fmt.Fprintf(&b, "packages: %s\n", strings.Join(keys, ", "))
	}
	if len(d.Services) > 0 {
		var keys []string
		for _, s := range d.Services {
			k := s.IdentityKey()
			keys = append(keys, fmt.Sprintf("(%s, %s)", k[0], k[1]))
		}
		fmt.Fprintf(&b, "services: %s", strings.Join(keys, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
