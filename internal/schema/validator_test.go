package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example42/saigen/internal/saidata"
)

func TestValidator_Valid(t *testing.T) {
	doc := &saidata.Document{
		Version:  saidata.SchemaVersion,
		Metadata: saidata.Metadata{Name: "nginx"},
		Packages: []saidata.Package{{Name: "nginx", PackageName: "nginx"}},
	}
	res := New().Validate(doc)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
}

func TestValidator_MissingPackageName(t *testing.T) {
	doc := &saidata.Document{
		Version:  saidata.SchemaVersion,
		Metadata: saidata.Metadata{Name: "nginx"},
		Packages: []saidata.Package{{Name: "nginx"}},
	}
	res := New().Validate(doc)
	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.Errors)
}

func TestValidator_InsecureScriptURLIsWarningNotError(t *testing.T) {
	doc := &saidata.Document{
		Version:  saidata.SchemaVersion,
		Metadata: saidata.Metadata{Name: "tool"},
		Scripts:  []saidata.Script{{Name: "installer", URL: "http://example.com/install.sh"}},
	}
	res := New().Validate(doc)
	assert.True(t, res.IsValid)
	assert.NotEmpty(t, res.Warnings)
}

func TestValidator_NilDocument(t *testing.T) {
	res := New().Validate(nil)
	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.Errors)
}
