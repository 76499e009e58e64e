package embedder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/HelixDB/codebase-index/pkg/types"
)

// Worker defaults
const (
	DefaultQueueSize   = 1024
	DefaultMaxInFlight = 64
)

// VectorSink stores a chunk vector on its entity
type VectorSink interface {
	AttachEmbedding(ctx context.Context, entityID string, chunkIndex int, vector []float32) error
}

// Progress receives job accounting. Every queued job is reported done exactly once.
type Progress interface {
	EmbeddingQueued()
	EmbeddingDone(ok bool)
}

// WorkerConfig sizes the job queue and the in-flight limit
type WorkerConfig struct {
	QueueSize   int
	MaxInFlight int
}

// WorkerStats is a snapshot of worker counters
type WorkerStats struct {
	Submitted int64
	Succeeded int64
	Failed    int64
	Spilled   int64 // submissions that found the queue full
}

// Worker drains embedding jobs from a bounded queue through the rate limiter
// into the embedder and writes vectors back through the sink. Failed jobs are
// logged and dropped.
type Worker struct {
	emb      Embedder
	sink     VectorSink
	limiter  *RateLimiter
	progress Progress
	logger   *slog.Logger

	queue       chan types.EmbeddingJob
	maxInFlight int
	done        chan struct{}

	mu     sync.RWMutex // guards closed against Submit
	closed bool
	spill  sync.WaitGroup

	submitted atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	spilled   atomic.Int64
}

// NewWorker creates a worker; call Start before submitting
func NewWorker(emb Embedder, sink VectorSink, limiter *RateLimiter, progress Progress, cfg WorkerConfig, logger *slog.Logger) *Worker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	if limiter == nil {
		limiter = NewRateLimiter(DefaultRequestsPerMinute)
	}
	if progress == nil {
		progress = noopProgress{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		emb:         emb,
		sink:        sink,
		limiter:     limiter,
		progress:    progress,
		logger:      logger.With("component", "embedding-worker"),
		queue:       make(chan types.EmbeddingJob, cfg.QueueSize),
		maxInFlight: cfg.MaxInFlight,
		done:        make(chan struct{}),
	}
}

// Start launches the single consumer
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	// Plain group: one job's failure must not cancel the others
	var g errgroup.Group
	g.SetLimit(w.maxInFlight)

	for job := range w.queue {
		g.Go(func() error {
			w.process(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
}

// Submit enqueues a job without blocking the caller. When the queue is full
// the send is handed to a separate goroutine.
func (w *Worker) Submit(job types.EmbeddingJob) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	w.submitted.Add(1)
	w.progress.EmbeddingQueued()

	if w.closed {
		w.logger.Warn("embedding job submitted after close, dropping", slog.String("entity_id", job.EntityID))
		w.failed.Add(1)
		w.progress.EmbeddingDone(false)
		return
	}

	select {
	case w.queue <- job:
	default:
		w.spilled.Add(1)
		w.spill.Add(1)
		go func() {
			defer w.spill.Done()
			w.queue <- job
		}()
	}
}

func (w *Worker) process(ctx context.Context, job types.EmbeddingJob) {
	ok := false
	defer func() {
		if ok {
			w.succeeded.Add(1)
		} else {
			w.failed.Add(1)
		}
		w.progress.EmbeddingDone(ok)
	}()

	log := w.logger.With(slog.String("entity_id", job.EntityID), slog.Int("chunk", job.ChunkIndex))

	if err := w.limiter.Wait(ctx); err != nil {
		log.Warn("rate limiter wait aborted", slog.Any("error", err))
		return
	}

	emb, err := w.emb.GenerateEmbedding(ctx, EmbeddingRequest{Text: job.Text})
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			w.limiter.RecordRateLimitError(0)
		}
		log.Warn("embedding failed, dropping job", slog.Any("error", err))
		return
	}

	if err := w.sink.AttachEmbedding(ctx, job.EntityID, job.ChunkIndex, emb.Vector); err != nil {
		log.Warn("attach embedding failed, dropping job", slog.Any("error", err))
		return
	}
	ok = true
}

// Close stops accepting jobs and waits until every queued job has been processed
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.mu.Unlock()

	w.spill.Wait()
	close(w.queue)
	<-w.done
}

// Stats returns current counters
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Submitted: w.submitted.Load(),
		Succeeded: w.succeeded.Load(),
		Failed:    w.failed.Load(),
		Spilled:   w.spilled.Load(),
	}
}

type noopProgress struct{}

func (noopProgress) EmbeddingQueued()   {}
func (noopProgress) EmbeddingDone(bool) {}
