package embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrRateLimited       = errors.New("embedding provider rate limited the request")
	ErrMalformedResponse = errors.New("malformed embedding response")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedding represents a vector embedding with metadata
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string // Content hash for caching
}

// clone returns a deep copy so cached vectors are never shared
func (e *Embedding) clone() *Embedding {
	c := *e
	c.Vector = append([]float32(nil), e.Vector...)
	return &c
}

// EmbeddingRequest represents a request to generate embeddings
type EmbeddingRequest struct {
	Text  string
	Model string // Optional: override default model
}

// BatchEmbeddingRequest represents a batch request
type BatchEmbeddingRequest struct {
	Texts []string
	Model string // Optional: override default model
}

// BatchEmbeddingResponse represents a batch response
type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder interface defines methods for generating embeddings.
// Implementations report ErrEmptyText, ErrRateLimited and ErrMalformedResponse
// distinctly so callers can tell input, throttling and protocol failures apart.
type Embedder interface {
	// GenerateEmbedding generates a single embedding for the given text
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error)

	// GenerateBatch generates embeddings for multiple texts
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)

	// Dimension returns the embedding dimension for this provider
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the embedder
	Close() error
}

// ValidateRequest rejects empty and whitespace-only text
func ValidateRequest(req EmbeddingRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return ErrEmptyText
	}
	return nil
}

// ValidateBatchRequest validates a batch embedding request
func ValidateBatchRequest(req BatchEmbeddingRequest) error {
	if len(req.Texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}

	for i, text := range req.Texts {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: text at index %d", ErrEmptyText, i)
		}
	}

	return nil
}

// modelOr returns override when set, otherwise def
func modelOr(override, def string) string {
	if override != "" {
		return override
	}
	return def
}

// batchOneByOne implements GenerateBatch over GenerateEmbedding for providers without a batch API
func batchOneByOne(ctx context.Context, e Embedder, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := e.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   e.Provider(),
		Model:      e.Model(),
	}, nil
}

// checkVector rejects empty vectors and dimension mismatches
func checkVector(v []float32, want int) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", ErrMalformedResponse)
	}
	if want > 0 && len(v) != want {
		return fmt.Errorf("%w: dimension %d, expected %d", ErrMalformedResponse, len(v), want)
	}
	return nil
}
