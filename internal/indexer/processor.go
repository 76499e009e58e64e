package indexer

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/HelixDB/codebase-index/internal/extractor"
	"github.com/HelixDB/codebase-index/internal/policy"
	"github.com/HelixDB/codebase-index/pkg/types"
)

// extension returns the lower-cased extension of a file name without the dot.
// Names without one, dotfiles included, get the default extension.
func extension(name string) string {
	ext := filepath.Ext(strings.TrimLeft(name, "."))
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return policy.DefaultExtension
	}
	return ext
}

// processFile reads path, creates its file record under parent and submits
// its super entities.
func (p *pass) processFile(path string, parent types.Parent) {
	log := p.logger.With(slog.String("path", path))

	src, err := os.ReadFile(path)
	if err != nil {
		p.run.filesFailed.Add(1)
		log.Warn("failed to read file, skipping", slog.Any("error", err))
		return
	}

	name := filepath.Base(path)
	ext := extension(name)
	entities := p.extract(src, ext, log)

	file := &types.File{
		Name:        name,
		Extension:   ext,
		Text:        string(src),
		ExtractedAt: p.now(),
		IsSuper:     parent.IsRoot,
	}
	id, err := p.idx.CreateFile(p.ctx, parent, file)
	if err != nil {
		p.run.filesFailed.Add(1)
		log.Error("failed to create file", slog.Any("error", err))
		return
	}
	p.run.filesCreated.Add(1)
	log.Debug("file created", slog.String("file_id", id), slog.Int("entities", len(entities)))

	p.ingestEntities(id, entities)
}

// extract parses src when both a policy entry and a grammar exist for ext.
// Anything else is stored as an opaque file without entities.
func (p *pass) extract(src []byte, ext string, log *slog.Logger) []*types.Entity {
	if !p.pol.Has(ext) {
		return nil
	}
	grammar, ok := p.parsers.Lookup(ext)
	if !ok {
		return nil
	}
	root, err := grammar.Parse(src)
	if err != nil {
		log.Warn("parse failed, storing file without entities", slog.Any("error", err))
		return nil
	}
	return extractor.Extract(root, src, ext, p.pol)
}

// ingestEntities submits one pool task per super entity of fileID
func (p *pass) ingestEntities(fileID string, entities []*types.Entity) {
	for _, e := range entities {
		p.pool.Go(func() { p.processEntity(fileID, e) })
	}
}

// processEntity creates e under parentID. Super entities are chunked and
// queued for embedding; children are submitted as their own tasks.
func (p *pass) processEntity(parentID string, e *types.Entity) {
	id, err := p.idx.CreateEntity(p.ctx, parentID, e)
	if err != nil {
		p.run.entitiesFailed.Add(1)
		p.logger.Warn("failed to create entity, dropping subtree",
			slog.String("parent_id", parentID),
			slog.String("kind", e.Kind),
			slog.Int("order", e.Order),
			slog.Any("error", err))
		return
	}
	p.run.entitiesCreated.Add(1)

	if e.IsSuper {
		chunks := p.chunker.Split(e.Text)
		p.run.chunks.Add(int64(len(chunks)))
		for i, text := range chunks {
			p.embed.Submit(types.EmbeddingJob{EntityID: id, ChunkIndex: i, Text: text})
		}
	}

	for _, child := range e.Children {
		p.pool.Go(func() { p.processEntity(id, child) })
	}
}
