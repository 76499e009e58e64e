package indexer

import (
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/HelixDB/codebase-index/pkg/types"
)

// deleteFanout bounds concurrent sibling deletions at each level
const deleteFanout = 8

// Cascading deletes remove children before their parent. When any child
// fails the parent is left in place, so no record is ever orphaned; the next
// update retries the remaining subtree.

// deleteFolder removes subfolders, then files, then the folder itself
func (p *pass) deleteFolder(id string) error {
	parent := types.FolderParent(id)

	folders, err := p.idx.ListFolders(p.ctx, parent)
	if err != nil {
		return fmt.Errorf("list subfolders of %s: %w", id, err)
	}
	var g errgroup.Group
	g.SetLimit(deleteFanout)
	for _, f := range folders {
		g.Go(func() error { return p.deleteFolder(f.ID) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("folder %s: %w", id, err)
	}

	files, err := p.idx.ListFiles(p.ctx, parent)
	if err != nil {
		return fmt.Errorf("list files of %s: %w", id, err)
	}
	var fg errgroup.Group
	fg.SetLimit(deleteFanout)
	for _, f := range files {
		fg.Go(func() error { return p.deleteFile(f.ID) })
	}
	if err := fg.Wait(); err != nil {
		return fmt.Errorf("folder %s: %w", id, err)
	}

	if err := p.idx.DeleteFolder(p.ctx, id); err != nil {
		return err
	}
	p.run.foldersDeleted.Add(1)
	return nil
}

// deleteFile removes the file's entities, then the file
func (p *pass) deleteFile(id string) error {
	if err := p.deleteFileEntities(id); err != nil {
		return err
	}
	if err := p.idx.DeleteFile(p.ctx, id); err != nil {
		return err
	}
	p.run.filesDeleted.Add(1)
	return nil
}

// deleteFileEntities removes every super entity of a file with its subtree
func (p *pass) deleteFileEntities(fileID string) error {
	supers, err := p.idx.ListEntities(p.ctx, fileID, true)
	if err != nil {
		return fmt.Errorf("list entities of file %s: %w", fileID, err)
	}
	var g errgroup.Group
	g.SetLimit(deleteFanout)
	for _, e := range supers {
		g.Go(func() error { return p.deleteEntity(e.ID, true) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("file %s: %w", fileID, err)
	}
	return nil
}

// deleteEntity removes sub entities depth-first, then the entity
func (p *pass) deleteEntity(id string, super bool) error {
	subs, err := p.idx.ListEntities(p.ctx, id, false)
	if err != nil {
		return fmt.Errorf("list sub entities of %s: %w", id, err)
	}
	var g errgroup.Group
	g.SetLimit(deleteFanout)
	for _, e := range subs {
		g.Go(func() error { return p.deleteEntity(e.ID, false) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("entity %s: %w", id, err)
	}

	if err := p.idx.DeleteEntity(p.ctx, id, super); err != nil {
		return err
	}
	p.run.entitiesDeleted.Add(1)
	return nil
}

// removeFolder runs a folder cascade as a pool task
func (p *pass) removeFolder(id, name string) {
	p.pool.Go(func() {
		if err := p.deleteFolder(id); err != nil {
			p.run.deleteFailures.Add(1)
			p.logger.Error("failed to delete folder", slog.String("name", name), slog.String("folder_id", id), slog.Any("error", err))
		}
	})
}

// removeFile runs a file cascade as a pool task
func (p *pass) removeFile(id, name string) {
	p.pool.Go(func() {
		if err := p.deleteFile(id); err != nil {
			p.run.deleteFailures.Add(1)
			p.logger.Error("failed to delete file", slog.String("name", name), slog.String("file_id", id), slog.Any("error", err))
		}
	})
}
