package scanner

import "sync/atomic"

// ScanLock provides non-blocking lock semantics using atomic operations.
// Only one scan may run per process; a second request is rejected rather
// than queued.
type ScanLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *ScanLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *ScanLock) Release() {
	l.state.Store(0)
}

// Held reports whether the lock is currently held.
func (l *ScanLock) Held() bool {
	return l.state.Load() == 1
}
