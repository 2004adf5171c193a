package dedup

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example42/saigen/internal/saidata"
)

func scenarioDoc() *saidata.Document {
	return &saidata.Document{
		Version: saidata.SchemaVersion,
		Metadata: saidata.Metadata{Name: "nginx"},
		Packages: []saidata.Package{
			{Name: "default", PackageName: "apache2"},
		},
		Providers: map[string]saidata.ProviderConfig{
			"apt": {
				Packages: []saidata.Package{
					{Name: "default", PackageName: "apache2"},
				},
			},
			"dnf": {
				Packages: []saidata.Package{
					{Name: "default", PackageName: "httpd"},
				},
			},
		},
	}
}

func TestDeduplicate_DropsRedundantProviderOverride(t *testing.T) {
	doc := scenarioDoc()
	Deduplicate(doc)

	assert.Nil(t, doc.Providers["apt"].Packages)
	require.Len(t, doc.Providers["dnf"].Packages, 1)
	assert.Equal(t, "httpd", doc.Providers["dnf"].Packages[0].PackageName)
}

func TestDeduplicate_KeepsDifferingNonIdentityFields(t *testing.T) {
	doc := &saidata.Document{
		Packages: []saidata.Package{{Name: "default", PackageName: "redis", Version: "1.0"}},
		Providers: map[string]saidata.ProviderConfig{
			"apt": {Packages: []saidata.Package{{Name: "default", PackageName: "redis", Version: "2.0"}}},
		},
	}
	Deduplicate(doc)
	require.Len(t, doc.Providers["apt"].Packages, 1)
}

// Deduplicating twice changes nothing beyond the first pass.
func TestDeduplicate_Idempotent(t *testing.T) {
	doc := scenarioDoc()
	Deduplicate(doc)
	first := *doc
	Deduplicate(doc)
	assert.Equal(t, first.Providers["dnf"].Packages, doc.Providers["dnf"].Packages)
	assert.Nil(t, doc.Providers["apt"].Packages)
}

func docWithOneOverride(topVersion, aptVersion string) *saidata.Document {
	return &saidata.Document{
		Version:  saidata.SchemaVersion,
		Metadata: saidata.Metadata{Name: "nginx"},
		Packages: []saidata.Package{{Name: "default", PackageName: "nginx", Version: topVersion}},
		Providers: map[string]saidata.ProviderConfig{
			"apt": {Packages: []saidata.Package{{Name: "default", PackageName: "nginx", Version: aptVersion}}},
		},
	}
}

// Deduplicate(Deduplicate(D)) == Deduplicate(D) for arbitrary top-level
// and per-provider package versions, whether or not the provider override
// ends up redundant.
func TestDeduplicate_IdempotentProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("re-running dedup is a no-op", prop.ForAll(
		func(topVersion, aptVersion string) bool {
			once := Deduplicate(docWithOneOverride(topVersion, aptVersion))
			twice := Deduplicate(docWithOneOverride(topVersion, aptVersion))
			Deduplicate(twice)
			return saidata.Equal(once, twice)
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// A provider override whose non-identity fields differ from the
// top-level record (an "active", semantically meaningful override) survives
// dedup unchanged; only true duplicates are dropped.
func TestDeduplicate_PreservesDifferingRecordsProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("differing override is preserved, matching override is dropped", prop.ForAll(
		func(topVersion, aptVersion string) bool {
			doc := docWithOneOverride(topVersion, aptVersion)
			Deduplicate(doc)

			pkgs := doc.Providers["apt"].Packages
			if topVersion == aptVersion {
				return len(pkgs) == 0
			}
			return len(pkgs) == 1 && pkgs[0].Version == aptVersion
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
