package indexer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Statistics summarizes one ingest or update pass
type Statistics struct {
	RunID  string `json:"run_id"`
	RootID string `json:"root_id,omitempty"`

	FoldersCreated  int `json:"folders_created"`
	FoldersFailed   int `json:"folders_failed"`
	FilesCreated    int `json:"files_created"`
	FilesUpdated    int `json:"files_updated"`
	FilesSkipped    int `json:"files_skipped"`
	FilesFailed     int `json:"files_failed"`
	EntitiesCreated int `json:"entities_created"`
	EntitiesFailed  int `json:"entities_failed"`
	ChunksCreated   int `json:"chunks_created"`

	EmbeddingsPending   int `json:"embeddings_pending"`
	EmbeddingsCompleted int `json:"embeddings_completed"`
	EmbeddingsFailed    int `json:"embeddings_failed"`

	FoldersDeleted  int `json:"folders_deleted"`
	FilesDeleted    int `json:"files_deleted"`
	EntitiesDeleted int `json:"entities_deleted"`
	DeleteFailures  int `json:"delete_failures"`

	ActiveTasks int           `json:"active_tasks"`
	Duration    time.Duration `json:"duration"`
}

// Run tracks the outstanding work of one pass. Every task is registered with
// Begin before it is spawned and ends with a deferred End, so the active
// count cannot reach zero while a parent is still fanning out.
//
// Run also implements embedder.Progress.
type Run struct {
	id      string
	started time.Time

	wg     sync.WaitGroup
	active atomic.Int64

	// signalled (non-blocking) whenever an embedding completes
	drained chan struct{}

	foldersCreated  atomic.Int64
	foldersFailed   atomic.Int64
	filesCreated    atomic.Int64
	filesUpdated    atomic.Int64
	filesSkipped    atomic.Int64
	filesFailed     atomic.Int64
	entitiesCreated atomic.Int64
	entitiesFailed  atomic.Int64
	chunks          atomic.Int64

	pending   atomic.Int64
	completed atomic.Int64
	embedFail atomic.Int64

	foldersDeleted  atomic.Int64
	filesDeleted    atomic.Int64
	entitiesDeleted atomic.Int64
	deleteFailures  atomic.Int64
}

func newRun() *Run {
	return &Run{
		id:      uuid.NewString(),
		started: time.Now(),
		drained: make(chan struct{}, 1),
	}
}

// ID returns the run identifier
func (r *Run) ID() string {
	return r.id
}

// Begin registers a task about to be spawned
func (r *Run) Begin() {
	r.wg.Add(1)
	r.active.Add(1)
}

// End marks a task finished
func (r *Run) End() {
	r.active.Add(-1)
	r.wg.Done()
}

// Active returns the number of registered, unfinished tasks
func (r *Run) Active() int {
	return int(r.active.Load())
}

// Join blocks until every task has ended
func (r *Run) Join() {
	r.wg.Wait()
}

func (r *Run) EmbeddingQueued() {
	r.pending.Add(1)
}

func (r *Run) EmbeddingDone(ok bool) {
	if !ok {
		r.embedFail.Add(1)
	}
	r.completed.Add(1)
	select {
	case r.drained <- struct{}{}:
	default:
	}
}

// Wait blocks until the pass is quiescent: all tasks have ended and every
// queued embedding has completed. onTick, if set, is called every poll
// interval with a snapshot for progress reporting.
func (r *Run) Wait(ctx context.Context, poll time.Duration, onTick func(Statistics)) error {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	joined := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(joined)
	}()

	tick := func() {
		if onTick != nil {
			onTick(r.Statistics())
		}
	}

	for waiting := true; waiting; {
		select {
		case <-joined:
			waiting = false
		case <-ticker.C:
			tick()
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// No task is left to queue embeddings, so pending is final
	for r.completed.Load() < r.pending.Load() {
		select {
		case <-r.drained:
		case <-ticker.C:
			tick()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Statistics returns a snapshot of the run counters
func (r *Run) Statistics() Statistics {
	return Statistics{
		RunID:               r.id,
		FoldersCreated:      int(r.foldersCreated.Load()),
		FoldersFailed:       int(r.foldersFailed.Load()),
		FilesCreated:        int(r.filesCreated.Load()),
		FilesUpdated:        int(r.filesUpdated.Load()),
		FilesSkipped:        int(r.filesSkipped.Load()),
		FilesFailed:         int(r.filesFailed.Load()),
		EntitiesCreated:     int(r.entitiesCreated.Load()),
		EntitiesFailed:      int(r.entitiesFailed.Load()),
		ChunksCreated:       int(r.chunks.Load()),
		EmbeddingsPending:   int(r.pending.Load()),
		EmbeddingsCompleted: int(r.completed.Load()),
		EmbeddingsFailed:    int(r.embedFail.Load()),
		FoldersDeleted:      int(r.foldersDeleted.Load()),
		FilesDeleted:        int(r.filesDeleted.Load()),
		EntitiesDeleted:     int(r.entitiesDeleted.Load()),
		DeleteFailures:      int(r.deleteFailures.Load()),
		ActiveTasks:         int(r.active.Load()),
		Duration:            time.Since(r.started),
	}
}
