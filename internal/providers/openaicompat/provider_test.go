package openaicompat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MissingModel(t *testing.T) {
	_, err := New(Config{APIKey: "sk-test"}, nil)
	assert.Error(t, err)
}

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := New(Config{Model: "gpt-4o"}, nil)
	assert.Error(t, err)
}

func TestNew_Valid(t *testing.T) {
	a, err := New(Config{Name: "openai", APIKey: "sk-test", Model: "gpt-4o-mini"}, nil)
	require.NoError(t, err)
	assert.True(t, a.IsAvailable())
	assert.Equal(t, "openai", a.Name())
}

func TestModelInfoData_KnownModel(t *testing.T) {
	a, err := New(Config{APIKey: "sk-test", Model: "gpt-4.1"}, nil)
	require.NoError(t, err)

	info := a.ModelInfoData()
	assert.Equal(t, "gpt-4.1", info.Name)
	assert.Equal(t, 1000000, info.ContextWindow)
	require.NotNil(t, info.CostPer1kTokens)
	assert.Equal(t, 0.01, *info.CostPer1kTokens)
}

func TestModelInfoData_UnknownModelUsesDefaults(t *testing.T) {
	a, err := New(Config{APIKey: "sk-test", Model: "some-future-model"}, nil)
	require.NoError(t, err)

	info := a.ModelInfoData()
	require.NotNil(t, info.CostPer1kTokens)
	assert.Equal(t, defaultCostPer1kTokens, *info.CostPer1kTokens)
	assert.Equal(t, 8192, info.ContextWindow)
}

func TestEstimateCost(t *testing.T) {
	a, err := New(Config{APIKey: "sk-test", Model: "gpt-4"}, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.03, a.EstimateCost(1000), 0.0001)
}

func TestValidateConnection_NetworkFailureReturnsFalse(t *testing.T) {
	a, err := New(Config{APIKey: "sk-test", Model: "gpt-4o-mini", APIBase: "http://127.0.0.1:1"}, nil)
	require.NoError(t, err)

	assert.False(t, a.ValidateConnection(context.Background()))
}

func TestClose(t *testing.T) {
	a, err := New(Config{APIKey: "sk-test", Model: "gpt-4o-mini"}, nil)
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}
