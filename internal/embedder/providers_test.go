package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPProvider(t *testing.T, handler http.HandlerFunc) *HTTPProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	p, err := NewOpenAIProvider("test-key", NewCache(10))
	require.NoError(t, err)
	return p.WithBaseURL(server.URL).WithModel("test-model")
}

func TestHTTPProvider_Success(t *testing.T) {
	var calls atomic.Int32
	p := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)

		data := make([]map[string]interface{}, len(body.Input))
		for i := range body.Input {
			data[i] = map[string]interface{}{"index": i, "embedding": []float32{float32(i), 1, 2}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"model": body.Model, "data": data})
	})

	ctx := context.Background()
	emb, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 2}, emb.Vector)
	assert.Equal(t, 3, emb.Dimension)
	assert.Equal(t, ProviderOpenAI, emb.Provider)

	_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second call served from cache")

	batch, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "b"}})
	require.NoError(t, err)
	require.Len(t, batch.Embeddings, 2)
	assert.Equal(t, float32(1), batch.Embeddings[1].Vector[0])
}

func TestHTTPProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: ErrRateLimited,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want: ErrProviderFailed,
		},
		{
			name: "undecodable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
			want: ErrMalformedResponse,
		},
		{
			name: "missing data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"data": []}`))
			},
			want: ErrMalformedResponse,
		},
		{
			name: "empty vector",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"data": [{"index": 0, "embedding": []}]}`))
			},
			want: ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestHTTPProvider(t, tt.handler)
			_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("empty text never reaches the server", func(t *testing.T) {
		p := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		})
		_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "  "})
		assert.ErrorIs(t, err, ErrEmptyText)
	})
}

func TestHTTPProvider_BatchTooLarge(t *testing.T) {
	p := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	texts := make([]string, MaxBatchSize+1)
	for i := range texts {
		texts[i] = "t"
	}
	_, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: texts})
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{"explicit provider wins", map[string]string{EnvProvider: "OLLAMA", EnvGeminiAPIKey: "k"}, ProviderOllama},
		{"gemini key", map[string]string{EnvGeminiAPIKey: "k", EnvJinaAPIKey: "k"}, ProviderGemini},
		{"google key", map[string]string{EnvGoogleAPIKey: "k"}, ProviderGemini},
		{"jina key", map[string]string{EnvJinaAPIKey: "k", EnvOpenAIAPIKey: "k"}, ProviderJina},
		{"openai key", map[string]string{EnvOpenAIAPIKey: "k"}, ProviderOpenAI},
		{"nothing set", map[string]string{}, ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{EnvProvider, EnvGeminiAPIKey, EnvGoogleAPIKey, EnvJinaAPIKey, EnvOpenAIAPIKey} {
				t.Setenv(key, tt.env[key])
			}
			assert.Equal(t, tt.expected, DetectProvider())
		})
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	emb, err := New(ctx, Config{Provider: "local", CacheSize: 5})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())

	_, err = New(ctx, Config{Provider: "nope"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)

	t.Setenv(EnvJinaAPIKey, "")
	_, err = New(ctx, Config{Provider: "jina"})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	emb, err = New(ctx, Config{Provider: "openai", APIKey: "k", Model: "custom", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.Equal(t, "custom", emb.Model())
	assert.Equal(t, 0, emb.Dimension())
}
