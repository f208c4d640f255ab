// Package provider implements embedding backends: an OpenAI-compatible API
// client and a local ONNX model via hugot. Providers exchange value-object
// requests and responses; the domain-facing adapter in this package handles
// batching and float conversion.
package provider

import "context"

// Usage represents token usage information.
type Usage struct {
	promptTokens int
	totalTokens  int
}

// NewUsage creates a new Usage.
func NewUsage(prompt, total int) Usage {
	return Usage{
		promptTokens: prompt,
		totalTokens:  total,
	}
}

// PromptTokens returns the number of prompt tokens.
func (u Usage) PromptTokens() int { return u.promptTokens }

// TotalTokens returns the total number of tokens.
func (u Usage) TotalTokens() int { return u.totalTokens }

// Add returns the sum of two usage records.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		promptTokens: u.promptTokens + other.promptTokens,
		totalTokens:  u.totalTokens + other.totalTokens,
	}
}

// EmbeddingRequest represents a request for embeddings.
type EmbeddingRequest struct {
	texts []string
}

// NewEmbeddingRequest creates a new EmbeddingRequest.
func NewEmbeddingRequest(texts []string) EmbeddingRequest {
	t := make([]string, len(texts))
	copy(t, texts)
	return EmbeddingRequest{texts: t}
}

// Texts returns the texts to embed.
func (r EmbeddingRequest) Texts() []string {
	t := make([]string, len(r.texts))
	copy(t, r.texts)
	return t
}

// EmbeddingResponse represents an embedding response.
type EmbeddingResponse struct {
	embeddings [][]float64
	usage      Usage
}

// NewEmbeddingResponse creates a new EmbeddingResponse.
func NewEmbeddingResponse(embeddings [][]float64, usage Usage) EmbeddingResponse {
	embs := make([][]float64, len(embeddings))
	for i, e := range embeddings {
		embs[i] = make([]float64, len(e))
		copy(embs[i], e)
	}
	return EmbeddingResponse{
		embeddings: embs,
		usage:      usage,
	}
}

// Embeddings returns the embedding vectors.
func (r EmbeddingResponse) Embeddings() [][]float64 {
	embs := make([][]float64, len(r.embeddings))
	for i, e := range r.embeddings {
		embs[i] = make([]float64, len(e))
		copy(embs[i], e)
	}
	return embs
}

// Usage returns token usage information.
func (r EmbeddingResponse) Usage() Usage { return r.usage }

// Embedder generates embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error)
}

// Provider is an embedding backend with identity and lifecycle.
type Provider interface {
	Embedder

	// ModelName returns the identifier of the model serving Embed calls.
	ModelName() string

	// Runtime names the execution backend, such as "api", "go" or "ort".
	Runtime() string

	// Available reports whether the provider can serve Embed calls.
	Available() bool

	// Capacity returns the maximum number of texts per Embed call.
	Capacity() int

	// Close releases any resources held by the provider.
	Close() error
}

// ProviderError wraps provider errors with additional context.
type ProviderError struct {
	operation  string
	statusCode int
	message    string
	cause      error
}

// NewProviderError creates a new ProviderError.
func NewProviderError(operation string, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{
		operation:  operation,
		statusCode: statusCode,
		message:    message,
		cause:      cause,
	}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.cause
}

// Operation returns the operation that failed.
func (e *ProviderError) Operation() string { return e.operation }

// StatusCode returns the HTTP status code if available.
func (e *ProviderError) StatusCode() int { return e.statusCode }

// Message returns the error message.
func (e *ProviderError) Message() string { return e.message }

// IsRateLimited returns true if the error is due to rate limiting.
func (e *ProviderError) IsRateLimited() bool {
	return e.statusCode == 429
}

// IsContextTooLong returns true if the error is due to input length.
func (e *ProviderError) IsContextTooLong() bool {
	return e.statusCode == 400 && e.message != ""
}
