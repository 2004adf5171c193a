package satest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunner_RunFile_EmptyDocumentSkipsEverything(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "nginx.yaml", "version: \"0.3\"\nmetadata:\n  name: nginx\n")

	r := NewRunner()
	suite, err := r.RunFile(path)
	require.NoError(t, err)

	assert.Equal(t, "nginx.yaml", suite.Name)
	assert.Equal(t, 3, suite.Total())
	assert.Equal(t, 3, suite.Skipped())
	assert.True(t, suite.OK())
}

func TestRunner_RunFile_MalformedYAMLReportsError(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "broken.yaml", "not: [valid: yaml")

	r := NewRunner()
	suite, err := r.RunFile(path)
	require.NoError(t, err)

	require.Len(t, suite.Results, 1)
	assert.Equal(t, StatusError, suite.Results[0].Status)
	assert.False(t, suite.OK())
}

func TestRunner_RunFile_MissingFileErrors(t *testing.T) {
	r := NewRunner()
	_, err := r.RunFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunner_RunDir_FindsEveryDocument(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "nginx.yaml", "version: \"0.3\"\nmetadata:\n  name: nginx\n")
	writeDoc(t, dir, "redis.yml", "version: \"0.3\"\nmetadata:\n  name: redis\n")
	writeDoc(t, dir, "notes.txt", "ignored")

	r := NewRunner()
	suites, err := r.RunDir(dir)
	require.NoError(t, err)
	require.Len(t, suites, 2)
	assert.Equal(t, "nginx.yaml", suites[0].Name)
	assert.Equal(t, "redis.yml", suites[1].Name)
}
