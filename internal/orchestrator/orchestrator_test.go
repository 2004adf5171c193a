package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gencontext "github.com/example42/saigen/internal/context"
	"github.com/example42/saigen/internal/llm"
	"github.com/example42/saigen/internal/prompt"
	"github.com/example42/saigen/internal/saidata"
)

const validYAML = `
version: "0.3"
metadata:
  name: nginx
  description: a web server
packages:
  - name: default
    package_name: nginx
`

const invalidYAML = `not: [valid`

type fakeProvider struct {
	responses []string
	calls     int
}

func (f *fakeProvider) GenerateWithFallback(ctx context.Context, genCtx *saidata.GenerationContext, prompt string, preferred string) (*llm.GenerateResponse, string, error) {
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	tokens := 100
	cost := 0.001
	return &llm.GenerateResponse{Content: f.responses[idx], ModelUsed: "fake-model", TokensUsed: &tokens, CostEstimate: &cost}, "fake", nil
}

type erroringProvider struct{ err error }

func (p *erroringProvider) GenerateWithFallback(ctx context.Context, genCtx *saidata.GenerationContext, promptStr string, preferred string) (*llm.GenerateResponse, string, error) {
	return nil, "", p.err
}

type passthroughFilter struct{}

func (passthroughFilter) Run(ctx context.Context, doc *saidata.Document) (*saidata.Document, string) {
	return doc, ""
}

func newTestOrchestrator(provider GenerationProvider) *Orchestrator {
	return New(Config{
		ProviderManager: provider,
		ContextBuilder:  gencontext.New(nil, nil, false, nil),
		Prompts:         prompt.NewManager(nil),
		URLFilter:       passthroughFilter{},
	})
}

func TestGenerate_SuccessPath(t *testing.T) {
	o := newTestOrchestrator(&fakeProvider{responses: []string{validYAML}})

	result := o.Generate(context.Background(), Request{SoftwareName: "nginx", Mode: ModeGenerate})

	require.True(t, result.Success)
	require.NotNil(t, result.Saidata)
	assert.Equal(t, "nginx", result.Saidata.Metadata.Name)
	assert.Equal(t, "fake", result.LLMProviderUsed)
	require.NotNil(t, result.TokensUsed)
	assert.Equal(t, 100, *result.TokensUsed)

	gens, tokens, cost := o.Totals()
	assert.Equal(t, int64(1), gens)
	assert.Equal(t, int64(100), tokens)
	assert.InDelta(t, 0.001, cost, 1e-9)
}

func TestGenerate_ParseFailureThenRetrySucceeds(t *testing.T) {
	o := newTestOrchestrator(&fakeProvider{responses: []string{invalidYAML, validYAML}})

	result := o.Generate(context.Background(), Request{SoftwareName: "nginx", Mode: ModeGenerate})

	require.True(t, result.Success)
	assert.Equal(t, "nginx", result.Saidata.Metadata.Name)
}

func TestGenerate_SchemaValidationFailsTwiceIsTerminal(t *testing.T) {
	// Missing metadata.name fails schema/model validation both times.
	const missingName = `
version: "0.3"
metadata:
  description: nothing here
`
	o := newTestOrchestrator(&fakeProvider{responses: []string{missingName, missingName}})

	result := o.Generate(context.Background(), Request{SoftwareName: "nginx", Mode: ModeGenerate})

	require.False(t, result.Success)
	assert.NotEmpty(t, result.ValidationErrors)
}

func TestGenerate_LLMFailureIsNotRetried(t *testing.T) {
	o := newTestOrchestrator(&erroringProvider{err: llm.NewError(llm.CategoryConnection, "fake.Generate", "boom", nil)})

	result := o.Generate(context.Background(), Request{SoftwareName: "nginx", Mode: ModeGenerate})

	require.False(t, result.Success)
}

func TestGenerate_RejectsEmptySoftwareName(t *testing.T) {
	o := newTestOrchestrator(&fakeProvider{responses: []string{validYAML}})

	result := o.Generate(context.Background(), Request{SoftwareName: "   "})

	require.False(t, result.Success)
	require.NotEmpty(t, result.ValidationErrors)
}

func TestGenerate_AccumulatesTotalsAcrossRequests(t *testing.T) {
	o := newTestOrchestrator(&fakeProvider{responses: []string{validYAML}})

	o.Generate(context.Background(), Request{SoftwareName: "nginx"})
	o.Generate(context.Background(), Request{SoftwareName: "nginx"})

	gens, tokens, _ := o.Totals()
	assert.Equal(t, int64(2), gens)
	assert.Equal(t, int64(200), tokens)
}

func TestStripCodeFence(t *testing.T) {
	fenced := "```yaml\nmetadata:\n  name: x\n```"
	assert.Equal(t, "metadata:\n  name: x", stripCodeFence(fenced))
	assert.Equal(t, "metadata:\n  name: x", stripCodeFence("metadata:\n  name: x"))
}
