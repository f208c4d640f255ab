package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubProvider records Embed calls and returns one vector per text where
// every component equals the text's global position, so ordering across
// batches is verifiable.
type stubProvider struct {
	capacity int
	calls    [][]string
	err      error
	short    bool
	next     float64
}

func (s *stubProvider) Embed(_ context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	texts := req.Texts()
	s.calls = append(s.calls, texts)
	if s.err != nil {
		return EmbeddingResponse{}, s.err
	}

	n := len(texts)
	if s.short && n > 0 {
		n--
	}
	vectors := make([][]float64, n)
	for i := range vectors {
		vectors[i] = []float64{s.next, s.next}
		s.next++
	}
	return NewEmbeddingResponse(vectors, NewUsage(n, n)), nil
}

func (s *stubProvider) ModelName() string { return "stub" }
func (s *stubProvider) Runtime() string   { return "test" }
func (s *stubProvider) Available() bool   { return true }
func (s *stubProvider) Capacity() int     { return s.capacity }
func (s *stubProvider) Close() error      { return nil }

func TestEmbedderAdapter_SplitsIntoBatches(t *testing.T) {
	stub := &stubProvider{capacity: 10}
	adapter := NewEmbedderAdapter(stub)

	texts := make([]string, 25)
	for i := range texts {
		texts[i] = "text"
	}

	got, err := adapter.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, got, 25)

	require.Len(t, stub.calls, 3)
	require.Len(t, stub.calls[0], 10)
	require.Len(t, stub.calls[1], 10)
	require.Len(t, stub.calls[2], 5)

	// Vectors come back in input order across batch boundaries.
	for i, vec := range got {
		require.InDelta(t, float64(i), float64(vec[0]), 1e-6)
	}
}

func TestEmbedderAdapter_NarrowsToFloat32(t *testing.T) {
	stub := &stubProvider{capacity: 10}
	adapter := NewEmbedderAdapter(stub)

	got, err := adapter.Embed(context.Background(), []string{"one"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.IsType(t, []float32{}, got[0])
	require.Len(t, got[0], 2)
}

func TestEmbedderAdapter_EmptyInput(t *testing.T) {
	stub := &stubProvider{capacity: 10}
	adapter := NewEmbedderAdapter(stub)

	got, err := adapter.Embed(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Empty(t, stub.calls, "no provider call for empty input")
}

func TestEmbedderAdapter_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	stub := &stubProvider{capacity: 10, err: boom}
	adapter := NewEmbedderAdapter(stub)

	_, err := adapter.Embed(context.Background(), []string{"one", "two"})
	require.ErrorIs(t, err, boom)
}

func TestEmbedderAdapter_CountMismatch(t *testing.T) {
	stub := &stubProvider{capacity: 10, short: true}
	adapter := NewEmbedderAdapter(stub)

	_, err := adapter.Embed(context.Background(), []string{"one", "two"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "got 1 vectors for 2 texts")
}

func TestEmbedderAdapter_DefaultsBatchSize(t *testing.T) {
	stub := &stubProvider{capacity: 0}
	adapter := NewEmbedderAdapter(stub)

	texts := make([]string, DefaultBatchSize+1)
	for i := range texts {
		texts[i] = "text"
	}

	_, err := adapter.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, stub.calls, 2)
}
