package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/HelixDB/codebase-index/internal/config"
	"github.com/HelixDB/codebase-index/internal/embedder"
	"github.com/HelixDB/codebase-index/internal/index"
	"github.com/HelixDB/codebase-index/internal/indexer"
	"github.com/HelixDB/codebase-index/internal/parser"
	"github.com/HelixDB/codebase-index/internal/policy"
)

const sampleSource = `package main

// Add adds two numbers
func Add(a, b int) int {
	return a + b
}

func main() {
	result := Add(1, 2)
	println(result)
}
`

var embedCheckCmd = &cobra.Command{
	Use:   "embed-check",
	Short: "Ingest a sample file into a scratch index and verify embeddings are stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		logger, err := config.NewLogger(cfg.Log, os.Stderr)
		if err != nil {
			return err
		}

		tmpDir, err := os.MkdirTemp("", "codeindex-check-*")
		if err != nil {
			return fmt.Errorf("failed to create temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		project := filepath.Join(tmpDir, "sample")
		if err := os.Mkdir(project, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(project, "main.go"), []byte(sampleSource), 0o644); err != nil {
			return fmt.Errorf("failed to write sample file: %w", err)
		}

		idx, err := index.NewSQLiteIndex(":memory:")
		if err != nil {
			return err
		}
		defer idx.Close()

		emb, err := embedder.New(ctx, cfg.EmbedderConfig())
		if err != nil {
			return fmt.Errorf("failed to initialize embedder: %w", err)
		}
		defer emb.Close()
		fmt.Fprintf(out, "Embedder: %s (%s), dimension %d\n", emb.Provider(), emb.Model(), emb.Dimension())

		pol, err := policy.New(map[string][]string{"go": {"func_decl", "gen_decl"}})
		if err != nil {
			return err
		}

		ix := indexer.New(idx, emb, pol, parser.NewRegistry(), cfg.IndexerConfig(), logger)
		stats, err := ix.Ingest(ctx, project)
		if err != nil {
			return err
		}
		if err := printStats(out, stats); err != nil {
			return err
		}

		counts, err := idx.Counts(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Entities in index: %d\nEmbeddings in index: %d\n", counts.Entities, counts.Embeddings)

		if counts.Embeddings == 0 || stats.EmbeddingsFailed > 0 {
			logger.Error("embedding check failed", slog.Int("failed", stats.EmbeddingsFailed))
			return fmt.Errorf("embeddings were not stored: %d of %d failed", stats.EmbeddingsFailed, stats.EmbeddingsPending)
		}
		fmt.Fprintln(out, "OK: embeddings were generated and stored")
		return nil
	},
}
