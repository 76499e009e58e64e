package embedder

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Environment variables read by the factory and providers
const (
	EnvProvider     = "CODEINDEX_EMBEDDING_PROVIDER"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvGoogleAPIKey = "GOOGLE_API_KEY"
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string // Ollama host or OpenAI-compatible endpoint
	CacheSize int
}

// New creates an embedder from cfg. An empty provider is resolved by
// DetectProvider: CODEINDEX_EMBEDDING_PROVIDER if set, otherwise the first
// provider whose API key is present, otherwise local.
func New(ctx context.Context, cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = DetectProvider()
	}

	switch provider {
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model, cache)
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cache)
	case ProviderJina:
		p, err := NewJinaProvider(cfg.APIKey, cache)
		if err != nil {
			return nil, err
		}
		return withOverrides(p, cfg), nil
	case ProviderOpenAI:
		p, err := NewOpenAIProvider(cfg.APIKey, cache)
		if err != nil {
			return nil, err
		}
		return withOverrides(p, cfg), nil
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

func withOverrides(p *HTTPProvider, cfg Config) *HTTPProvider {
	if cfg.BaseURL != "" {
		p.WithBaseURL(cfg.BaseURL)
	}
	return p.WithModel(cfg.Model)
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}

	switch {
	case os.Getenv(EnvGeminiAPIKey) != "", os.Getenv(EnvGoogleAPIKey) != "":
		return ProviderGemini
	case os.Getenv(EnvJinaAPIKey) != "":
		return ProviderJina
	case os.Getenv(EnvOpenAIAPIKey) != "":
		return ProviderOpenAI
	}

	return ProviderLocal
}
