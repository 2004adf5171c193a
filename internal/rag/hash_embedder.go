package rag

import (
	"context"
	"hash/fnv"
	"strings"
)

// HashEmbedder is a dependency-free Embedder that hashes whitespace tokens
// into a fixed-dimension bag-of-words vector. It is not a semantic
// embedding — it exists so the indexer is exercisable offline and in tests
// without a live embedding provider; production deployments inject a
// provider-backed Embedder instead.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder constructs a HashEmbedder producing vectors of dimension
// dim.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 128
	}
	return &HashEmbedder{dim: dim}
}

// Embed implements Embedder.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embedOne(t)
	}
	return out, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[int(h.Sum32())%e.dim]++
	}
	return vec
}

// Dimension implements Embedder.
func (e *HashEmbedder) Dimension() int { return e.dim }

// Name implements Embedder.
func (e *HashEmbedder) Name() string { return "hash-bow" }
