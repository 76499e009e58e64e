package indexer

import (
	"errors"
	"sync/atomic"
)

// ErrIndexingInProgress is returned when a pass is requested while another one runs
var ErrIndexingInProgress = errors.New("indexing already in progress")

// IndexLock admits one ingest or update pass at a time without blocking.
// A caller that loses the race gets ErrIndexingInProgress instead of queueing.
type IndexLock struct {
	holder atomic.Pointer[string]
}

// TryAcquire takes the lock for op, returning false if it is already held
func (l *IndexLock) TryAcquire(op string) bool {
	return l.holder.CompareAndSwap(nil, &op)
}

// Release frees the lock. Only the successful acquirer may call it.
func (l *IndexLock) Release() {
	l.holder.Store(nil)
}

// Holder returns the operation holding the lock, if any
func (l *IndexLock) Holder() (string, bool) {
	op := l.holder.Load()
	if op == nil {
		return "", false
	}
	return *op, true
}
