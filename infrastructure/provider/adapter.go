package provider

import (
	"context"
	"fmt"

	"github.com/helixml/scholar/domain/search"
)

// EmbedderAdapter exposes a provider as the domain search.Embedder.
// It splits inputs into capacity-sized batches, issues them sequentially,
// and narrows vectors to float32 for the index and relational layers.
type EmbedderAdapter struct {
	inner     Embedder
	batchSize int
}

// NewEmbedderAdapter creates an adapter batching by the provider's capacity.
func NewEmbedderAdapter(p Provider) *EmbedderAdapter {
	size := p.Capacity()
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &EmbedderAdapter{inner: p, batchSize: size}
}

// Embed returns one float32 vector per input text, in input order.
func (a *EmbedderAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += a.batchSize {
		end := min(start+a.batchSize, len(texts))
		batch := texts[start:end]

		resp, err := a.inner.Embed(ctx, NewEmbeddingRequest(batch))
		if err != nil {
			return nil, fmt.Errorf("embed batch at offset %d: %w", start, err)
		}

		vectors := resp.Embeddings()
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embed batch at offset %d: got %d vectors for %d texts", start, len(vectors), len(batch))
		}

		for _, vec := range vectors {
			narrow := make([]float32, len(vec))
			for i, v := range vec {
				narrow[i] = float32(v)
			}
			out = append(out, narrow)
		}
	}

	return out, nil
}

var _ search.Embedder = (*EmbedderAdapter)(nil)
