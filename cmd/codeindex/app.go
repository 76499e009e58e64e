package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/HelixDB/codebase-index/internal/config"
	"github.com/HelixDB/codebase-index/internal/embedder"
	"github.com/HelixDB/codebase-index/internal/index"
	"github.com/HelixDB/codebase-index/internal/indexer"
	"github.com/HelixDB/codebase-index/internal/parser"
	"github.com/HelixDB/codebase-index/internal/policy"
)

// app holds the wired pipeline for one command invocation
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	idx     index.Index
	emb     embedder.Embedder
	indexer *indexer.Indexer
}

// newApp resolves the configuration and connects every component.
// Logs always go to stderr so stdout stays free for results and MCP.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	pol, err := policy.Load(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	idx, err := openIndex(ctx, cfg.Index, logger)
	if err != nil {
		return nil, err
	}

	emb, err := embedder.New(ctx, cfg.EmbedderConfig())
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	logger.Info("pipeline ready",
		slog.String("index", fmt.Sprint(idx)),
		slog.String("embedder", emb.Provider()),
		slog.String("model", emb.Model()),
		slog.Int("workers", cfg.Workers))

	return &app{
		cfg:     cfg,
		logger:  logger,
		idx:     idx,
		emb:     emb,
		indexer: indexer.New(idx, emb, pol, parser.NewRegistry(), cfg.IndexerConfig(), logger),
	}, nil
}

func openIndex(ctx context.Context, cfg config.IndexConfig, logger *slog.Logger) (index.Index, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		idx, err := index.NewSQLiteIndex(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}
		return idx, nil
	default:
		client := index.NewHTTPClient(cfg.Address)
		logger.Debug("waiting for index service", slog.String("address", client.Address()))
		if err := client.Ping(ctx, index.DefaultRetryConfig()); err != nil {
			return nil, fmt.Errorf("index service unreachable at %s: %w", client.Address(), err)
		}
		return client, nil
	}
}

func (a *app) Close() {
	if err := a.emb.Close(); err != nil {
		a.logger.Warn("failed to close embedder", slog.String("error", err.Error()))
	}
	if err := a.idx.Close(); err != nil {
		a.logger.Warn("failed to close index", slog.String("error", err.Error()))
	}
}

// printStats writes pass statistics as indented JSON
func printStats(w io.Writer, stats *indexer.Statistics) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
