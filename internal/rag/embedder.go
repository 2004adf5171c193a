package rag

import "context"

// Embedder turns text into a fixed-dimension dense vector. Production
// deployments plug in a provider-backed embedding model; the indexer itself
// has no opinion on how embeddings are produced, the same way LLM backends
// are injected behind llm.Adapter.
type Embedder interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension reports the length of vectors this embedder produces.
	Dimension() int
	// Name identifies the embedding model, recorded in model_info.json.
	Name() string
}
