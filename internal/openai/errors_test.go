package openai

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example42/saigen/internal/llm"
)

func TestFormatAPIError_MapsStatusCodes(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		expected llm.ErrorCategory
	}{
		{"unauthorized", http.StatusUnauthorized, llm.CategoryAuthentication},
		{"forbidden", http.StatusForbidden, llm.CategoryAuthentication},
		{"rate limited", http.StatusTooManyRequests, llm.CategoryRateLimit},
		{"server error", http.StatusInternalServerError, llm.CategoryConnection},
		{"bad request", http.StatusBadRequest, llm.CategoryGeneration},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := FormatAPIError(errors.New("boom"), tc.status)
			assert.Equal(t, tc.expected, err.Category())
		})
	}
}

func TestFormatAPIError_Nil(t *testing.T) {
	assert.Nil(t, FormatAPIError(nil, 0))
}

func TestFormatAPIError_PreservesExistingCategorizedError(t *testing.T) {
	original := llm.NewError(llm.CategoryAuthentication, "openai.GenerateContent", "bad key", nil)
	wrapped := FormatAPIError(original, 500)
	assert.Equal(t, llm.CategoryAuthentication, wrapped.Category())
}

func TestIsOpenAIError(t *testing.T) {
	err := llm.NewError(llm.CategoryRateLimit, "openai.GenerateContent", "429", nil)
	got, ok := IsOpenAIError(err)
	assert.True(t, ok)
	assert.Equal(t, llm.CategoryRateLimit, got.Category())

	_, ok = IsOpenAIError(errors.New("plain"))
	assert.False(t, ok)
}
