// Package openai provides a client for interacting with the OpenAI API.
package openai

import (
	"errors"
	"net/http"

	"github.com/example42/saigen/internal/llm"
)

// IsOpenAIError reports whether err (or something it wraps) is a
// categorized error this package raised.
func IsOpenAIError(err error) (*llm.Error, bool) {
	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return llmErr, true
	}
	return nil, false
}

// detectCategory maps an HTTP status code from the OpenAI API to the
// pipeline-wide error taxonomy.
func detectCategory(statusCode int) llm.ErrorCategory {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return llm.CategoryAuthentication
	case statusCode == http.StatusTooManyRequests:
		return llm.CategoryRateLimit
	case statusCode >= 500:
		return llm.CategoryConnection
	case statusCode >= 400:
		return llm.CategoryGeneration
	default:
		return llm.CategoryConnection
	}
}

// FormatAPIError creates a standardized categorized error from an OpenAI
// API failure, preserving the original error as its cause.
func FormatAPIError(err error, statusCode int) *llm.Error {
	if err == nil {
		return nil
	}
	var existing *llm.Error
	if errors.As(err, &existing) {
		return existing
	}
	return llm.NewError(detectCategory(statusCode), "openai.GenerateContent", err.Error(), err)
}
