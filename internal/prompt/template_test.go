package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example42/saigen/internal/saidata"
)

func TestGeneration_MinimalContext(t *testing.T) {
	ctx := &saidata.GenerationContext{SoftwareName: "nginx", TargetProviders: []string{"apt", "brew"}}
	out, err := Generation().Render(ctx, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "nginx")
	assert.Contains(t, out, "apt, brew")
	assert.NotContains(t, out, "Repository data found")
}

func TestGeneration_WithRepositoryData(t *testing.T) {
	ctx := &saidata.GenerationContext{
		SoftwareName: "nginx",
		RepositoryData: []saidata.RepositoryPackage{
			{Name: "nginx", Version: "1.25.0", Description: "HTTP server", RepositoryName: "apt", Homepage: "https://nginx.org"},
		},
	}
	out, err := Generation().Render(ctx, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "Repository data found")
	assert.Contains(t, out, "v1.25.0")
	assert.Contains(t, out, "Homepage: https://nginx.org")
}

func TestRetry_WithoutFeedbackSkipsSection(t *testing.T) {
	ctx := &saidata.GenerationContext{SoftwareName: "nginx"}
	out, err := Retry().Render(ctx, RenderOptions{})
	require.NoError(t, err)
	assert.NotContains(t, out, "Your previous attempt failed validation")
}

func TestRetry_WithFeedback(t *testing.T) {
	ctx := &saidata.GenerationContext{
		SoftwareName: "nginx",
		UserHints: saidata.UserHints{
			"validation_feedback": saidata.ValidationFeedback{
				ValidationError:   "schema validation failed",
				SpecificErrors:    []string{"version must be 0.3"},
				FailedYAMLExcerpt: "version: bad",
				RetryInstructions: []string{"set version to 0.3"},
			},
		},
	}
	out, err := Retry().Render(ctx, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "schema validation failed")
	assert.Contains(t, out, "version must be 0.3")
}

func TestManager_Render(t *testing.T) {
	m := NewManager(nil)
	ctx := &saidata.GenerationContext{SoftwareName: "redis"}
	out, err := m.Render(TemplateGeneration, ctx, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "redis")

	_, err = m.Render("nonexistent", ctx, RenderOptions{})
	assert.Error(t, err)
}

func TestTruncateExcerpt(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, TruncateExcerpt(string(long), 500), 500)
	assert.Equal(t, "short", TruncateExcerpt("short", 500))
}
