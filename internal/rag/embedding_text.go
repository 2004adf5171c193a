package rag

import (
	"sort"
	"strings"

	"github.com/example42/saigen/internal/saidata"
)

// packageEmbeddingText builds the encoded string for a repository package
// by concatenating name, description, category, tags, maintainer, repository,
// platform.
func packageEmbeddingText(p saidata.RepositoryPackage) string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteString(" ")
	b.WriteString(p.Description)
	b.WriteString(" category: ")
	b.WriteString(p.Category)
	b.WriteString(" tags: ")
	b.WriteString(strings.Join(p.Tags, ", "))
	b.WriteString(" maintainer: ")
	b.WriteString(p.Maintainer)
	b.WriteString(" repository: ")
	b.WriteString(p.RepositoryName)
	b.WriteString(" platform: ")
	b.WriteString(p.Platform)
	return b.String()
}

// saidataEmbeddingText builds the encoded string for a saidata document by
// concatenating name, display_name, description, category, subcategory, tags,
// language, providers, flattened per-provider package names.
func saidataEmbeddingText(d saidata.Document) string {
	var b strings.Builder
	b.WriteString(d.Metadata.Name)
	b.WriteString(" ")
	b.WriteString(d.Metadata.DisplayName)
	b.WriteString(" ")
	b.WriteString(d.Metadata.Description)
	b.WriteString(" category: ")
	b.WriteString(d.Metadata.Category)
	b.WriteString(" subcategory: ")
	b.WriteString(d.Metadata.Subcategory)
	b.WriteString(" tags: ")
	b.WriteString(strings.Join(d.Metadata.Tags, ", "))
	b.WriteString(" language: ")
	b.WriteString(d.Metadata.Language)

	providerNames := make([]string, 0, len(d.Providers))
	for name := range d.Providers {
		providerNames = append(providerNames, name)
	}
	sort.Strings(providerNames)
	b.WriteString(" providers: ")
	b.WriteString(strings.Join(providerNames, ", "))

	var pkgNames []string
	for _, name := range providerNames {
		for _, pkg := range d.Providers[name].Packages {
			pkgNames = append(pkgNames, pkg.PackageName)
		}
	}
	for _, pkg := range d.Packages {
		pkgNames = append(pkgNames, pkg.PackageName)
	}
	b.WriteString(" packages: ")
	b.WriteString(strings.Join(pkgNames, ", "))

	return b.String()
}
