package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/HelixDB/codebase-index/internal/mcp"
	"github.com/HelixDB/codebase-index/internal/watcher"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Ingest a directory as a new root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.indexer.Ingest(cmd.Context(), args[0])
		if stats != nil {
			if perr := printStats(cmd.OutOrStdout(), stats); perr != nil {
				return perr
			}
		}
		return err
	},
}

var updateRoot string

var updateCmd = &cobra.Command{
	Use:   "update <path>",
	Short: "Reconcile an existing root with its directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.indexer.Update(cmd.Context(), args[0], updateRoot)
		if stats != nil {
			if perr := printStats(cmd.OutOrStdout(), stats); perr != nil {
				return perr
			}
		}
		return err
	},
}

var watchRoot string

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Keep a root in sync with its directory",
	Long: `watch runs an update whenever the directory changes and the changes have
settled for the configured debounce period. Without --root the directory is
ingested first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		rootID := watchRoot
		if rootID == "" {
			stats, err := a.indexer.Ingest(ctx, dir)
			if err != nil {
				return err
			}
			rootID = stats.RootID
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %s as root %s\n", dir, rootID)
		}

		w, err := watcher.New(dir, a.cfg.Debounce, []string{".git"}, func(ctx context.Context) error {
			stats, err := a.indexer.Update(ctx, dir, rootID)
			if err != nil {
				return err
			}
			a.logger.Info("tree synced",
				slog.Int("files_updated", stats.FilesUpdated),
				slog.Int("files_created", stats.FilesCreated),
				slog.Int("files_deleted", stats.FilesDeleted))
			return nil
		}, a.logger)
		if err != nil {
			return err
		}

		a.logger.Info("watching", slog.String("path", dir), slog.String("root_id", rootID))
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve ingest, update and status tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		server := mcp.NewServer(a.indexer, a.logger)

		errChan := make(chan error, 1)
		go func() {
			errChan <- server.Serve(ctx)
		}()

		select {
		case <-ctx.Done():
			a.logger.Info("shutting down")
			return nil
		case err := <-errChan:
			return err
		}
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateRoot, "root", "", "ID of the root to update (required)")
	_ = updateCmd.MarkFlagRequired("root")

	watchCmd.Flags().StringVar(&watchRoot, "root", "", "ID of an existing root; ingests first when empty")
}
