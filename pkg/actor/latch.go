package actor

import "sync/atomic"

// Latch is a non-blocking single-flight guard. TryAcquire returns false
// immediately if another caller
// already holds the latch; the holder must call Release exactly once when
// finished, including on every error path.
type Latch struct {
	held int32
}

// TryAcquire attempts to acquire the latch without blocking. It returns true
// if the caller now holds it.
func (l *Latch) TryAcquire() bool {
	return atomic.CompareAndSwapInt32(&l.held, 0, 1)
}

// Release frees the latch for the next TryAcquire.
func (l *Latch) Release() {
	atomic.StoreInt32(&l.held, 0)
}

// Held reports whether the latch is currently held (diagnostic use only —
// racy by nature, do not gate correctness on it).
func (l *Latch) Held() bool {
	return atomic.LoadInt32(&l.held) == 1
}
