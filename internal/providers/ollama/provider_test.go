package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MissingModel(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New(Config{Model: "llama3", BaseURL: "not-a-url"}, nil)
	assert.Error(t, err)
}

func TestNew_TemperatureOutOfRange(t *testing.T) {
	_, err := New(Config{Model: "llama3", Temperature: 3}, nil)
	assert.Error(t, err)
}

func TestNew_Valid(t *testing.T) {
	a, err := New(Config{Name: "ollama", Model: "llama3"}, nil)
	require.NoError(t, err)
	assert.True(t, a.IsAvailable())
	assert.Equal(t, "ollama", a.Name())
}

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{
			Response:        "local model output",
			Done:            true,
			PromptEvalCount: 4,
			EvalCount:       6,
		})
	}))
	defer server.Close()

	a, err := New(Config{Model: "llama3", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	resp, err := a.Generate(context.Background(), nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, "local model output", resp.Content)
	require.NotNil(t, resp.TokensUsed)
	assert.Equal(t, 10, *resp.TokensUsed)
	require.NotNil(t, resp.CostEstimate)
	assert.Equal(t, 0.0, *resp.CostEstimate)
}

func TestGenerate_FallsBackToWhitespaceTokenEstimate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "one two three", Done: true})
	}))
	defer server.Close()

	a, err := New(Config{Model: "llama3", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	resp, err := a.Generate(context.Background(), nil, "a b")
	require.NoError(t, err)
	require.NotNil(t, resp.TokensUsed)
	assert.Equal(t, 5, *resp.TokensUsed)
}

func TestGenerate_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	a, err := New(Config{Model: "missing-model", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = a.Generate(context.Background(), nil, "hi")
	assert.Error(t, err)
}

func TestEstimateCost_AlwaysZero(t *testing.T) {
	a, err := New(Config{Model: "llama3"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.EstimateCost(100000))
}

func TestClose(t *testing.T) {
	a, err := New(Config{Model: "llama3"}, nil)
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}
