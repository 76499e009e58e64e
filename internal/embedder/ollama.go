package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/ollama/ollama/api"
)

// OllamaProvider implements Embedder using a local or remote Ollama server
type OllamaProvider struct {
	client    *api.Client
	model     string
	dimension atomic.Int64 // learned from the first response
	cache     *Cache
}

// NewOllamaProvider creates an Ollama embedder. An empty baseURL uses OLLAMA_HOST.
func NewOllamaProvider(baseURL, model string, cache *Cache) (*OllamaProvider, error) {
	var client *api.Client
	if baseURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		client = c
	} else {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse ollama url: %w", err)
		}
		client = api.NewClient(u, &http.Client{Timeout: DefaultTimeout})
	}

	if model == "" {
		model = DefaultOllamaModel
	}

	return &OllamaProvider{
		client: client,
		model:  model,
		cache:  cache,
	}, nil
}

func (o *OllamaProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	return cached(o.cache, model, req.Text, func() (*Embedding, error) {
		resp, err := o.client.Embed(ctx, &api.EmbedRequest{
			Model: model,
			Input: req.Text,
		})
		if err != nil {
			var statusErr api.StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
				return nil, fmt.Errorf("%w: ollama: %v", ErrRateLimited, err)
			}
			return nil, fmt.Errorf("%w: ollama: %v", ErrProviderFailed, err)
		}
		if len(resp.Embeddings) == 0 {
			return nil, fmt.Errorf("%w: ollama returned no embeddings", ErrMalformedResponse)
		}

		vector := resp.Embeddings[0]
		if err := checkVector(vector, int(o.dimension.Load())); err != nil {
			return nil, err
		}
		o.dimension.CompareAndSwap(0, int64(len(vector)))

		return &Embedding{
			Vector:    vector,
			Dimension: len(vector),
			Provider:  ProviderOllama,
			Model:     model,
		}, nil
	})
}

func (o *OllamaProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	return batchOneByOne(ctx, o, req)
}

// Dimension returns the vector size seen so far, 0 before the first call
func (o *OllamaProvider) Dimension() int {
	return int(o.dimension.Load())
}

func (o *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (o *OllamaProvider) Model() string {
	return o.model
}

func (o *OllamaProvider) Close() error {
	return nil
}
