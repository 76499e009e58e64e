package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedCheck_LocalProvider(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CODEINDEX_EMBEDDING_PROVIDER", "local")
	t.Setenv("CODEINDEX_LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"embed-check", "--workers", "2"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Embedder: local")
	assert.Contains(t, out.String(), "Embeddings in index: 2")
	assert.Contains(t, out.String(), "OK: embeddings were generated and stored")
	assert.Equal(t, 2, v.GetInt("workers"))
}

func TestFlagKeys(t *testing.T) {
	for name := range flagKeys {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}
