package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	t.Run("lookup returns a copy", func(t *testing.T) {
		cache := NewCache(10)
		stored := &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3}
		cache.Store("m", "text", stored)
		stored.Vector[1] = 42

		got, ok := cache.Lookup("m", "text")
		require.True(t, ok)
		assert.Equal(t, []float32{1, 2, 3}, got.Vector)
		got.Vector[0] = 99

		again, ok := cache.Lookup("m", "text")
		require.True(t, ok)
		assert.Equal(t, float32(1), again.Vector[0])
	})

	t.Run("keyed by model", func(t *testing.T) {
		cache := NewCache(10)
		cache.Store("small", "text", &Embedding{Vector: []float32{1}})

		_, ok := cache.Lookup("large", "text")
		assert.False(t, ok)
		_, ok = cache.Lookup("small", "text")
		assert.True(t, ok)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		cache := NewCache(2)
		cache.Store("m", "a", &Embedding{})
		cache.Store("m", "b", &Embedding{})
		_, _ = cache.Lookup("m", "a")
		cache.Store("m", "c", &Embedding{})

		_, ok := cache.Lookup("m", "b")
		assert.False(t, ok)
		_, ok = cache.Lookup("m", "a")
		assert.True(t, ok)
		assert.Equal(t, 2, cache.Len())
	})

	t.Run("purge", func(t *testing.T) {
		cache := NewCache(0)
		cache.Store("m", "a", &Embedding{})
		cache.Purge()
		assert.Equal(t, 0, cache.Len())
	})
}

func TestCached(t *testing.T) {
	cache := NewCache(10)
	calls := 0
	gen := func() (*Embedding, error) {
		calls++
		return &Embedding{Vector: []float32{0.5}}, nil
	}

	first, err := cached(cache, "m", "hello", gen)
	require.NoError(t, err)
	second, err := cached(cache, "m", "hello", gen)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, ComputeHash("hello"), first.Hash)
	assert.Equal(t, first, second)

	_, err = cached(nil, "m", "hello", gen)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	_, err = cached(cache, "m", "boom", func() (*Embedding, error) { return nil, assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, cache.Len())
}

func TestComputeHash(t *testing.T) {
	assert.Equal(t, ComputeHash("abc"), ComputeHash("abc"))
	assert.NotEqual(t, ComputeHash("abc"), ComputeHash("abd"))
	assert.Len(t, ComputeHash(""), 64)
}

func TestValidateRequest(t *testing.T) {
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{Text: ""}), ErrEmptyText)
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{Text: " \n\t"}), ErrEmptyText)
	assert.NoError(t, ValidateRequest(EmbeddingRequest{Text: "x"}))

	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a", ""}}), ErrEmptyText)
}

func TestLocalProvider(t *testing.T) {
	p, err := NewLocalProvider(NewCache(10))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "func main() {}"})
	require.NoError(t, err)
	assert.Len(t, first.Vector, LocalDimension)
	assert.Equal(t, ProviderLocal, first.Provider)
	assert.NotEmpty(t, first.Hash)

	second, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "func main() {}"})
	require.NoError(t, err)
	assert.Equal(t, first.Vector, second.Vector)

	other, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "class A: pass"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Vector, other.Vector)

	_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: ""})
	assert.ErrorIs(t, err, ErrEmptyText)

	batch, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Len(t, batch.Embeddings, 2)
	assert.Equal(t, ProviderLocal, batch.Provider)
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}
