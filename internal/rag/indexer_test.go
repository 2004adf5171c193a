package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/example42/saigen/internal/saidata"
)

func TestIndexer_BuildAndSearchPackages(t *testing.T) {
	dir := t.TempDir()
	idx := New(dir, NewHashEmbedder(32))
	ctx := context.Background()

	pkgs := []saidata.RepositoryPackage{
		{Name: "nginx", Description: "web server", RepositoryName: "apt", Category: "web_server"},
		{Name: "postgresql", Description: "relational database", RepositoryName: "apt", Category: "database"},
	}
	require.NoError(t, idx.BuildPackages(ctx, pkgs))

	results, err := idx.SearchSimilarPackages(ctx, "nginx web server", 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "nginx", results[0].Name)

	_, err = os.Stat(filepath.Join(dir, packagesVecFile))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, modelInfoFile))
	assert.NoError(t, err)
}

func TestIndexer_BuildAndFindSaidata(t *testing.T) {
	dir := t.TempDir()
	idx := New(dir, NewHashEmbedder(32))
	ctx := context.Background()

	doc := saidata.Document{Version: saidata.SchemaVersion, Metadata: saidata.Metadata{Name: "nginx", Category: "web_server"}}
	docPath := filepath.Join(dir, "nginx.yaml")
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(docPath, data, 0o644))

	require.NoError(t, idx.BuildSaidata(ctx, []saidata.Document{doc}, []string{docPath}))

	found, err := idx.FindSimilarSaidata(ctx, "nginx", 1, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "nginx", found[0].Metadata.Name)
}

func TestIndexer_ClearIndices(t *testing.T) {
	dir := t.TempDir()
	idx := New(dir, NewHashEmbedder(32))
	ctx := context.Background()

	require.NoError(t, idx.BuildPackages(ctx, []saidata.RepositoryPackage{{Name: "redis", RepositoryName: "apt"}}))
	require.NoError(t, idx.ClearIndices())

	_, err := os.Stat(filepath.Join(dir, packagesVecFile))
	assert.True(t, os.IsNotExist(err))

	results, err := idx.SearchSimilarPackages(ctx, "redis", 1, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndexer_LazyLoadPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := New(dir, NewHashEmbedder(32))
	require.NoError(t, first.BuildPackages(ctx, []saidata.RepositoryPackage{{Name: "redis", RepositoryName: "apt"}}))

	second := New(dir, NewHashEmbedder(32))
	results, err := second.SearchSimilarPackages(ctx, "redis", 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "redis", results[0].Name)
}
