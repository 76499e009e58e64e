package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/HelixDB/codebase-index/internal/index"
	"github.com/HelixDB/codebase-index/pkg/types"
)

// ErrRootMismatch is returned when the indexed root's name differs from the directory being updated
var ErrRootMismatch = errors.New("root name does not match directory")

// checkRoot verifies that rootID names the directory at path
func checkRoot(ctx context.Context, idx index.Index, path, rootID string) error {
	root, err := idx.GetRoot(ctx, rootID)
	if err != nil {
		return fmt.Errorf("get root %s: %w", rootID, err)
	}
	if base := filepath.Base(path); root.Name != base {
		return fmt.Errorf("%w: root %s is %q, directory is %q", ErrRootMismatch, rootID, root.Name, base)
	}
	return nil
}

// isStale reports whether a file modified at mtime needs re-extraction.
// A zero extractedAt (missing or unparsable) is always stale.
func isStale(mtime, extractedAt time.Time, threshold time.Duration) bool {
	if extractedAt.IsZero() {
		return true
	}
	return mtime.Sub(extractedAt) > threshold
}

// diff reconciles one directory level against its remote counterpart under parent
func (p *pass) diff(dir string, parent types.Parent) {
	log := p.logger.With(slog.String("path", dir))

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Without a listing nothing can be told apart from deleted
		log.Error("failed to read directory, skipping level", slog.Any("error", err))
		return
	}
	remoteFolders, err := p.idx.ListFolders(p.ctx, parent)
	if err != nil {
		log.Error("failed to list remote folders, skipping level", slog.Any("error", err))
		return
	}
	remoteFiles, err := p.idx.ListFiles(p.ctx, parent)
	if err != nil {
		log.Error("failed to list remote files, skipping level", slog.Any("error", err))
		return
	}

	folders := make(map[string]string, len(remoteFolders))
	for _, f := range remoteFolders {
		if _, dup := folders[f.Name]; dup {
			log.Warn("duplicate remote folder name, ignoring", slog.String("name", f.Name), slog.String("folder_id", f.ID))
			continue
		}
		folders[f.Name] = f.ID
	}
	files := make(map[string]types.FileRef, len(remoteFiles))
	for _, f := range remoteFiles {
		if _, dup := files[f.Name]; dup {
			log.Warn("duplicate remote file name, ignoring", slog.String("name", f.Name), slog.String("file_id", f.ID))
			continue
		}
		files[f.Name] = f
	}

	localDirs := make(map[string]bool)
	localFiles := make(map[string]bool)
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		switch p.classify(path, entry) {
		case entryDir:
			localDirs[name] = true
			if id, ok := folders[name]; ok {
				p.pool.Go(func() { p.diff(path, types.FolderParent(id)) })
			} else {
				p.pool.Go(func() { p.createFolder(path, parent) })
			}
		case entryFile:
			localFiles[name] = true
			if ref, ok := files[name]; ok {
				p.pool.Go(func() { p.refreshFile(path, ref) })
			} else {
				p.pool.Go(func() { p.processFile(path, parent) })
			}
		}
	}

	for name, id := range folders {
		if !localDirs[name] {
			p.removeFolder(id, name)
		}
	}
	for name, ref := range files {
		if !localFiles[name] {
			p.removeFile(ref.ID, name)
		}
	}
}

// refreshFile re-extracts a known file when it changed since its last extraction
func (p *pass) refreshFile(path string, ref types.FileRef) {
	log := p.logger.With(slog.String("path", path), slog.String("file_id", ref.ID))

	info, statErr := os.Stat(path)
	if statErr == nil && !isStale(info.ModTime(), ref.ExtractedAt, p.staleness) {
		p.run.filesSkipped.Add(1)
		return
	}

	src, err := os.ReadFile(path)
	if err != nil {
		p.run.filesFailed.Add(1)
		log.Warn("failed to read file, skipping", slog.Any("error", err))
		return
	}

	// Entities are always rebuilt from scratch
	if err := p.deleteFileEntities(ref.ID); err != nil {
		p.run.filesFailed.Add(1)
		log.Error("failed to delete stale entities", slog.Any("error", err))
		return
	}
	if err := p.idx.UpdateFile(p.ctx, ref.ID, string(src), p.now()); err != nil {
		p.run.filesFailed.Add(1)
		log.Error("failed to update file", slog.Any("error", err))
		return
	}
	p.run.filesUpdated.Add(1)

	entities := p.extract(src, extension(filepath.Base(path)), log)
	log.Debug("file re-extracted", slog.Int("entities", len(entities)))
	p.ingestEntities(ref.ID, entities)
}
