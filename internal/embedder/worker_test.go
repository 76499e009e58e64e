package embedder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HelixDB/codebase-index/pkg/types"
)

// mockEmbedder returns a one-element vector holding the call number
type mockEmbedder struct {
	mu        sync.Mutex
	callCount int
	delay     time.Duration
	failOn    map[string]error
	inFlight  atomic.Int32
	maxSeen   atomic.Int32
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		prev := m.maxSeen.Load()
		if cur <= prev || m.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if err, ok := m.failOn[req.Text]; ok {
		return nil, err
	}
	return &Embedding{Vector: []float32{float32(m.callCount)}, Dimension: 1}, nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	return batchOneByOne(ctx, m, req)
}
func (m *mockEmbedder) Dimension() int   { return 1 }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "mock-v1" }
func (m *mockEmbedder) Close() error     { return nil }

type vectorKey struct {
	entityID string
	chunk    int
}

type mockSink struct {
	mu      sync.Mutex
	vectors map[vectorKey][]float32
	writes  int
	fail    error
}

func newMockSink() *mockSink {
	return &mockSink{vectors: make(map[vectorKey][]float32)}
}

func (s *mockSink) AttachEmbedding(ctx context.Context, entityID string, chunkIndex int, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.writes++
	s.vectors[vectorKey{entityID, chunkIndex}] = vector
	return nil
}

type countingProgress struct {
	queued    atomic.Int64
	completed atomic.Int64
}

func (p *countingProgress) EmbeddingQueued()   { p.queued.Add(1) }
func (p *countingProgress) EmbeddingDone(bool) { p.completed.Add(1) }

func startWorker(t *testing.T, emb Embedder, sink VectorSink, progress Progress, cfg WorkerConfig) *Worker {
	t.Helper()
	w := NewWorker(emb, sink, NewRateLimiter(600000), progress, cfg, nil)
	w.Start(context.Background())
	return w
}

func TestWorker_ProcessesAllJobs(t *testing.T) {
	emb := &mockEmbedder{}
	sink := newMockSink()
	progress := &countingProgress{}
	w := startWorker(t, emb, sink, progress, WorkerConfig{QueueSize: 8, MaxInFlight: 4})

	for i := 0; i < 50; i++ {
		w.Submit(types.EmbeddingJob{EntityID: fmt.Sprintf("e%d", i), Text: "text"})
	}
	w.Close()

	stats := w.Stats()
	assert.Equal(t, int64(50), stats.Submitted)
	assert.Equal(t, int64(50), stats.Succeeded)
	assert.Equal(t, int64(0), stats.Failed)
	assert.Equal(t, int64(50), progress.queued.Load())
	assert.Equal(t, int64(50), progress.completed.Load())
	assert.Len(t, sink.vectors, 50)
}

func TestWorker_FailuresAreDroppedAndCounted(t *testing.T) {
	emb := &mockEmbedder{failOn: map[string]error{
		"broken": ErrMalformedResponse,
	}}
	sink := newMockSink()
	progress := &countingProgress{}
	w := startWorker(t, emb, sink, progress, WorkerConfig{})

	w.Submit(types.EmbeddingJob{EntityID: "ok", Text: "fine"})
	w.Submit(types.EmbeddingJob{EntityID: "bad", Text: "broken"})
	w.Close()

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Succeeded)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, progress.queued.Load(), progress.completed.Load())
	assert.Contains(t, sink.vectors, vectorKey{"ok", 0})
	assert.NotContains(t, sink.vectors, vectorKey{"bad", 0})

	emb.mu.Lock()
	assert.Equal(t, 2, emb.callCount, "failed job is not retried")
	emb.mu.Unlock()
}

func TestWorker_SinkFailureDropsJob(t *testing.T) {
	sink := newMockSink()
	sink.fail = errors.New("index unavailable")
	w := startWorker(t, &mockEmbedder{}, sink, nil, WorkerConfig{})

	w.Submit(types.EmbeddingJob{EntityID: "e", Text: "t"})
	w.Close()

	assert.Equal(t, int64(1), w.Stats().Failed)
}

func TestWorker_BoundsInFlight(t *testing.T) {
	emb := &mockEmbedder{delay: 5 * time.Millisecond}
	w := startWorker(t, emb, newMockSink(), nil, WorkerConfig{QueueSize: 64, MaxInFlight: 3})

	for i := 0; i < 30; i++ {
		w.Submit(types.EmbeddingJob{EntityID: fmt.Sprintf("e%d", i), Text: "t"})
	}
	w.Close()

	assert.LessOrEqual(t, emb.maxSeen.Load(), int32(3))
	assert.Equal(t, int64(30), w.Stats().Succeeded)
}

func TestWorker_SubmitNeverBlocks(t *testing.T) {
	emb := &mockEmbedder{delay: 20 * time.Millisecond}
	w := startWorker(t, emb, newMockSink(), nil, WorkerConfig{QueueSize: 1, MaxInFlight: 1})

	start := time.Now()
	for i := 0; i < 10; i++ {
		w.Submit(types.EmbeddingJob{EntityID: fmt.Sprintf("e%d", i), Text: "t"})
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond, "full queue spills instead of blocking")
	assert.Greater(t, w.Stats().Spilled, int64(0))

	w.Close()
	assert.Equal(t, int64(10), w.Stats().Succeeded)
}

func TestWorker_SameEntityLastWriteWins(t *testing.T) {
	sink := newMockSink()
	w := startWorker(t, &mockEmbedder{}, sink, nil, WorkerConfig{MaxInFlight: 1})

	w.Submit(types.EmbeddingJob{EntityID: "e", ChunkIndex: 0, Text: "first"})
	w.Close()
	w2 := startWorker(t, &mockEmbedder{callCount: 10}, sink, nil, WorkerConfig{MaxInFlight: 1})
	w2.Submit(types.EmbeddingJob{EntityID: "e", ChunkIndex: 0, Text: "second"})
	w2.Close()

	require.Len(t, sink.vectors, 1)
	assert.Equal(t, []float32{11}, sink.vectors[vectorKey{"e", 0}])
	assert.Equal(t, 2, sink.writes)
}

func TestWorker_SubmitAfterClose(t *testing.T) {
	progress := &countingProgress{}
	w := startWorker(t, &mockEmbedder{}, newMockSink(), progress, WorkerConfig{})
	w.Close()
	w.Close()

	w.Submit(types.EmbeddingJob{EntityID: "late", Text: "t"})
	assert.Equal(t, int64(1), w.Stats().Failed)
	assert.Equal(t, int64(1), progress.completed.Load())
}
