package satest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example42/saigen/internal/saidata"
)

func requireUnixShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("LookPath(\"sh\") isn't meaningful on windows")
	}
}

func TestValidatePackageManagersResolve_NoProviders(t *testing.T) {
	v := NewValidator()
	res := v.ValidatePackageManagersResolve(&saidata.Document{})
	assert.Equal(t, StatusSkipped, res.Status)
}

func TestValidatePackageManagersResolve_UnknownProviderFails(t *testing.T) {
	v := NewValidator()
	doc := &saidata.Document{
		Providers: map[string]saidata.ProviderConfig{
			"sh":                       {},
			"definitely-not-a-real-pm": {},
		},
	}
	res := v.ValidatePackageManagersResolve(doc)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Message, "definitely-not-a-real-pm")
}

func TestValidatePackageManagersResolve_AllAvailable(t *testing.T) {
	requireUnixShell(t)
	v := NewValidator()
	doc := &saidata.Document{
		Providers: map[string]saidata.ProviderConfig{"sh": {}},
	}
	res := v.ValidatePackageManagersResolve(doc)
	assert.Equal(t, StatusPassed, res.Status)
}

func TestValidateFilesExist_NoFilesOrDirectories(t *testing.T) {
	v := NewValidator()
	res := v.ValidateFilesExist(&saidata.Document{})
	assert.Equal(t, StatusSkipped, res.Status)
}

func TestValidateFilesExist_MissingPathFails(t *testing.T) {
	v := NewValidator()
	doc := &saidata.Document{
		Files: []saidata.File{{Name: "config", Path: "/definitely/does/not/exist/nginx.conf"}},
	}
	res := v.ValidateFilesExist(doc)
	assert.Equal(t, StatusFailed, res.Status)
}

func TestValidateFilesExist_ExistingPathPasses(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator()
	doc := &saidata.Document{
		Directories: []saidata.Directory{{Name: "data", Path: dir}},
		Providers: map[string]saidata.ProviderConfig{
			"apt": {Files: []saidata.File{{Name: "config", Path: filepath.Join(dir, "file.txt")}}},
		},
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0o644))

	res := v.ValidateFilesExist(doc)
	assert.Equal(t, StatusPassed, res.Status)
}

func TestValidateCommandsResolve_NoCommands(t *testing.T) {
	v := NewValidator()
	res := v.ValidateCommandsResolve(&saidata.Document{})
	assert.Equal(t, StatusSkipped, res.Status)
}

func TestValidateCommandsResolve_BareNameResolves(t *testing.T) {
	requireUnixShell(t)
	v := NewValidator()
	doc := &saidata.Document{Commands: []saidata.Command{{Name: "shell", Path: "sh"}}}
	res := v.ValidateCommandsResolve(doc)
	assert.Equal(t, StatusPassed, res.Status)
}

func TestValidateCommandsResolve_AbsoluteMissingPathFails(t *testing.T) {
	v := NewValidator()
	doc := &saidata.Document{Commands: []saidata.Command{{Name: "nope", Path: "/definitely/not/a/binary"}}}
	res := v.ValidateCommandsResolve(doc)
	assert.Equal(t, StatusFailed, res.Status)
}
