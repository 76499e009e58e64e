package indexer

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/HelixDB/codebase-index/pkg/types"
)

// skipDirs are never walked or indexed
var skipDirs = map[string]bool{
	".git": true,
}

type entryKind int

const (
	entrySkip entryKind = iota
	entryDir
	entryFile
)

// classify decides how a directory entry is indexed. Symlinks to regular
// files count as files; symlinks to directories are not followed, so a link
// back up the tree cannot loop the walk. Anything else that is not a regular
// file or directory, such as a FIFO, socket or device, is skipped.
func (p *pass) classify(path string, entry fs.DirEntry) entryKind {
	mode := entry.Type()
	if mode&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil {
			p.logger.Debug("skipping dangling symlink", slog.String("path", path), slog.Any("error", err))
			return entrySkip
		}
		if info.IsDir() {
			p.logger.Debug("skipping symlinked directory", slog.String("path", path))
			return entrySkip
		}
		mode = info.Mode().Type()
	}

	switch {
	case mode.IsDir():
		if skipDirs[entry.Name()] {
			return entrySkip
		}
		return entryDir
	case mode.IsRegular():
		return entryFile
	default:
		p.logger.Debug("skipping non-regular file", slog.String("path", path), slog.String("mode", mode.String()))
		return entrySkip
	}
}

// populate creates index records for the immediate entries of dir under
// parent. Each entry becomes its own pool task; subdirectories recurse by
// submitting further tasks.
func (p *pass) populate(dir string, parent types.Parent) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		p.logger.Error("failed to read directory", slog.String("path", dir), slog.Any("error", err))
		return
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		switch p.classify(path, entry) {
		case entryDir:
			p.pool.Go(func() { p.createFolder(path, parent) })
		case entryFile:
			p.pool.Go(func() { p.processFile(path, parent) })
		}
	}
}

// createFolder creates the folder record for dir and populates it
func (p *pass) createFolder(dir string, parent types.Parent) {
	name := filepath.Base(dir)
	id, err := p.idx.CreateFolder(p.ctx, parent, name)
	if err != nil {
		p.run.foldersFailed.Add(1)
		p.logger.Error("failed to create folder", slog.String("path", dir), slog.Any("error", err))
		return
	}
	p.run.foldersCreated.Add(1)
	p.logger.Debug("folder created", slog.String("path", dir), slog.String("folder_id", id), slog.Bool("super", parent.IsRoot))

	p.populate(dir, types.FolderParent(id))
}
