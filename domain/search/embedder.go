package search

import "context"

// Embedder converts text into embedding vectors.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	// Empty input yields an empty result.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
