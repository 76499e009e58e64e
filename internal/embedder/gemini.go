package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"google.golang.org/genai"
)

// GeminiProvider implements Embedder using the Gemini embedding API
type GeminiProvider struct {
	client    *genai.Client
	model     string
	dimension int
	taskType  string
	cache     *Cache
}

// NewGeminiProvider creates a Gemini embedder. An empty apiKey falls back to
// GEMINI_API_KEY / GOOGLE_API_KEY as read by the genai client.
func NewGeminiProvider(ctx context.Context, apiKey, model string, cache *Cache) (*GeminiProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvGeminiAPIKey)
	}
	if apiKey == "" {
		apiKey = os.Getenv(EnvGoogleAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvGeminiAPIKey)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	dim := GeminiDimension
	if model == "" {
		model = DefaultGeminiModel
	} else if model != DefaultGeminiModel {
		dim = 0
	}

	return &GeminiProvider{
		client:    client,
		model:     model,
		dimension: dim,
		taskType:  "RETRIEVAL_DOCUMENT",
		cache:     cache,
	}, nil
}

func (g *GeminiProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = g.model
	}

	return cached(g.cache, model, req.Text, func() (*Embedding, error) {
		resp, err := g.client.Models.EmbedContent(ctx, model, genai.Text(req.Text), &genai.EmbedContentConfig{
			TaskType: g.taskType,
		})
		if err != nil {
			return nil, classifyGeminiError(err)
		}
		if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
			return nil, fmt.Errorf("%w: gemini returned no embeddings", ErrMalformedResponse)
		}
		values := resp.Embeddings[0].Values
		if err := checkVector(values, g.dimension); err != nil {
			return nil, err
		}
		return &Embedding{
			Vector:    values,
			Dimension: len(values),
			Provider:  ProviderGemini,
			Model:     model,
		}, nil
	})
}

func (g *GeminiProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	return batchOneByOne(ctx, g, req)
}

func (g *GeminiProvider) Dimension() int {
	return g.dimension
}

func (g *GeminiProvider) Provider() string {
	return ProviderGemini
}

func (g *GeminiProvider) Model() string {
	return g.model
}

func (g *GeminiProvider) Close() error {
	return nil
}

// classifyGeminiError maps 429 / RESOURCE_EXHAUSTED to ErrRateLimited
func classifyGeminiError(err error) error {
	code, status := 0, ""
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, status = apiErr.Code, apiErr.Status
	case errors.As(err, &apiErrPtr):
		code, status = apiErrPtr.Code, apiErrPtr.Status
	}
	if code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED" {
		return fmt.Errorf("%w: gemini: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("%w: gemini: %v", ErrProviderFailed, err)
}
