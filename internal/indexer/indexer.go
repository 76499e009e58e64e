package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/HelixDB/codebase-index/internal/chunker"
	"github.com/HelixDB/codebase-index/internal/embedder"
	"github.com/HelixDB/codebase-index/internal/index"
	"github.com/HelixDB/codebase-index/internal/parser"
	"github.com/HelixDB/codebase-index/internal/policy"
	"github.com/HelixDB/codebase-index/pkg/types"
)

// Defaults for Config
const (
	DefaultWorkers      = 48
	DefaultStaleness    = time.Second
	DefaultPollInterval = 10 * time.Millisecond
)

// Config contains configuration for the indexer
type Config struct {
	Workers           int           // Concurrent pool tasks (default: 48)
	Staleness         time.Duration // mtime - extracted_at above which a file is re-extracted
	PollInterval      time.Duration // Progress reporting interval while waiting for quiescence
	MaxChunkChars     int           // Chunk size for embedding (default: chunker.DefaultMaxChunkChars)
	RequestsPerMinute int           // Embedding rate limit (default: embedder.DefaultRequestsPerMinute)
	Embedding         embedder.WorkerConfig
}

// DefaultConfig returns the default indexer configuration
func DefaultConfig() Config {
	return Config{
		Workers:           DefaultWorkers,
		Staleness:         DefaultStaleness,
		PollInterval:      DefaultPollInterval,
		MaxChunkChars:     chunker.DefaultMaxChunkChars,
		RequestsPerMinute: embedder.DefaultRequestsPerMinute,
		Embedding: embedder.WorkerConfig{
			QueueSize:   embedder.DefaultQueueSize,
			MaxInFlight: embedder.DefaultMaxInFlight,
		},
	}
}

// Indexer coordinates the ingestion pipeline: walk -> parse -> extract -> index -> embed
type Indexer struct {
	idx     index.Index
	emb     embedder.Embedder
	pol     *policy.Policy
	parsers *parser.Registry
	chunker *chunker.Chunker
	limiter *embedder.RateLimiter
	cfg     Config
	logger  *slog.Logger

	lock IndexLock
	last atomic.Pointer[Statistics]
	now  func() time.Time
}

// New creates a new Indexer. The rate limiter is shared by all passes.
func New(idx index.Index, emb embedder.Embedder, pol *policy.Policy, parsers *parser.Registry, cfg Config, logger *slog.Logger) *Indexer {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Staleness < 0 {
		cfg.Staleness = DefaultStaleness
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if parsers == nil {
		parsers = parser.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		idx:     idx,
		emb:     emb,
		pol:     pol,
		parsers: parsers,
		chunker: chunker.New(cfg.MaxChunkChars),
		limiter: embedder.NewRateLimiter(cfg.RequestsPerMinute),
		cfg:     cfg,
		logger:  logger.With("component", "indexer"),
		now:     time.Now,
	}
}

// submitter accepts embedding jobs without blocking
type submitter interface {
	Submit(job types.EmbeddingJob)
}

// pass holds everything one ingest or update run shares across its tasks
type pass struct {
	ctx       context.Context
	idx       index.Index
	pol       *policy.Policy
	parsers   *parser.Registry
	chunker   *chunker.Chunker
	embed     submitter
	pool      *pool
	run       *Run
	logger    *slog.Logger
	staleness time.Duration
	now       func() time.Time
}

// Ingest creates a new root for the directory at path and indexes everything below it
func (ix *Indexer) Ingest(ctx context.Context, path string) (*Statistics, error) {
	if !ix.lock.TryAcquire("ingest " + path) {
		return nil, ErrIndexingInProgress
	}
	defer ix.lock.Release()

	dir, err := resolveDir(path)
	if err != nil {
		return nil, err
	}

	rootID, err := ix.idx.CreateRoot(ctx, filepath.Base(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to create root: %w", err)
	}
	ix.logger.Info("ingest started", slog.String("path", dir), slog.String("root_id", rootID))

	return ix.runPass(ctx, rootID, func(p *pass) {
		p.populate(dir, types.RootParent(rootID))
	})
}

// Update reconciles an existing root with the directory at path: new entries
// are ingested, stale files re-extracted and vanished ones deleted.
// A root whose name differs from the directory fails with ErrRootMismatch
// before anything is changed.
func (ix *Indexer) Update(ctx context.Context, path, rootID string) (*Statistics, error) {
	if !ix.lock.TryAcquire("update " + path) {
		return nil, ErrIndexingInProgress
	}
	defer ix.lock.Release()

	dir, err := resolveDir(path)
	if err != nil {
		return nil, err
	}
	if err := checkRoot(ctx, ix.idx, dir, rootID); err != nil {
		return nil, err
	}
	ix.logger.Info("update started", slog.String("path", dir), slog.String("root_id", rootID))

	return ix.runPass(ctx, rootID, func(p *pass) {
		p.pool.Go(func() { p.diff(dir, types.RootParent(rootID)) })
	})
}

// runPass executes one pass with a fresh tracker, pool and embedding worker
// and returns once the pass is quiescent and the worker has shut down.
func (ix *Indexer) runPass(ctx context.Context, rootID string, start func(p *pass)) (*Statistics, error) {
	run := newRun()
	logger := ix.logger.With(slog.String("run_id", run.ID()))

	worker := embedder.NewWorker(ix.emb, ix.idx, ix.limiter, run, ix.cfg.Embedding, logger)
	worker.Start(ctx)

	p := &pass{
		ctx:       ctx,
		idx:       ix.idx,
		pol:       ix.pol,
		parsers:   ix.parsers,
		chunker:   ix.chunker,
		embed:     worker,
		pool:      newPool(ctx, ix.cfg.Workers, run),
		run:       run,
		logger:    logger,
		staleness: ix.cfg.Staleness,
		now:       ix.now,
	}
	start(p)

	lastLog := time.Now()
	err := run.Wait(ctx, ix.cfg.PollInterval, func(s Statistics) {
		if time.Since(lastLog) < time.Second {
			return
		}
		lastLog = time.Now()
		logger.Info("indexing progress",
			slog.Int("active_tasks", s.ActiveTasks),
			slog.Int("files", s.FilesCreated+s.FilesUpdated),
			slog.Int("entities", s.EntitiesCreated),
			slog.Int("embeddings_pending", s.EmbeddingsPending-s.EmbeddingsCompleted))
	})
	if err != nil {
		// Let in-flight tasks observe the cancellation before the worker closes
		run.Join()
	}
	worker.Close()

	stats := run.Statistics()
	stats.RootID = rootID
	ix.last.Store(&stats)

	logger.Info("pass finished",
		slog.Duration("duration", stats.Duration),
		slog.Int("folders_created", stats.FoldersCreated),
		slog.Int("files_created", stats.FilesCreated),
		slog.Int("files_updated", stats.FilesUpdated),
		slog.Int("files_skipped", stats.FilesSkipped),
		slog.Int("files_failed", stats.FilesFailed),
		slog.Int("entities_created", stats.EntitiesCreated),
		slog.Int("embeddings_completed", stats.EmbeddingsCompleted),
		slog.Int("embeddings_failed", stats.EmbeddingsFailed),
		slog.Int("deleted", stats.FoldersDeleted+stats.FilesDeleted+stats.EntitiesDeleted))

	if err != nil {
		return &stats, fmt.Errorf("pass interrupted: %w", err)
	}
	return &stats, nil
}

// LastRun returns the statistics of the most recent pass, or nil
func (ix *Indexer) LastRun() *Statistics {
	return ix.last.Load()
}

// Running returns the operation currently holding the index lock, if any
func (ix *Indexer) Running() (string, bool) {
	return ix.lock.Holder()
}

// Index returns the backing index
func (ix *Indexer) Index() index.Index {
	return ix.idx
}

func resolveDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("invalid path %q: not a directory", path)
	}
	return abs, nil
}
