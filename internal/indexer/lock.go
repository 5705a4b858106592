package indexer

import "sync/atomic"

// IndexLock is a non-blocking guard ensuring at most one indexing pass
// runs at a time. Callers that lose the race get ErrPassInProgress
// instead of queueing behind a long pass.
type IndexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking. Returns
// true if the lock was acquired.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock. Must only be called by the goroutine that
// acquired it.
func (l *IndexLock) Release() {
	l.state.Store(0)
}
