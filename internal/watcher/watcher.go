// Package watcher re-runs incremental updates when a watched tree changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before an update runs
const DefaultDebounce = 2 * time.Second

// UpdateFunc reconciles the index with the tree
type UpdateFunc func(ctx context.Context) error

// Watcher monitors a directory tree and calls its UpdateFunc once changes settle
type Watcher struct {
	root     string
	debounce time.Duration
	update   UpdateFunc
	skip     map[string]bool
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// New creates a watcher with every directory under root already registered.
// Directories named in skip are not descended into.
func New(root string, debounce time.Duration, skip []string, update UpdateFunc, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		update:   update,
		skip:     make(map[string]bool, len(skip)),
		logger:   logger.With("component", "watcher"),
		fsw:      fsw,
	}
	for _, name := range skip {
		w.skip[name] = true
	}

	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers dir and its subdirectories
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The directory may vanish between the event and the walk
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skip[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// ignored reports whether path lies inside a skipped directory
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for dir := filepath.Dir(rel); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if w.skip[filepath.Base(dir)] {
			return true
		}
	}
	return w.skip[filepath.Base(rel)]
}

// Run blocks until ctx is cancelled, calling the update function once per
// burst of changes. Updates run on this goroutine, so at most one is active.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("failed to watch new directory",
							slog.String("path", event.Name), slog.String("error", err.Error()))
					}
				}
			}
			w.logger.Debug("change detected", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			w.logger.Info("changes settled, updating", slog.String("path", w.root))
			if err := w.update(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.Error("update failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return !w.ignored(event.Name)
}

// Close releases the underlying watcher without running
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
