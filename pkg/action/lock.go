package action

import "sync/atomic"

// Lock admits one action at a time. A failed TryAcquire is a rejection, not
// a wait.
type Lock struct {
	busy atomic.Bool
}

// TryAcquire takes the lock if it is free.
func (l *Lock) TryAcquire() bool {
	return l.busy.CompareAndSwap(false, true)
}

// Release frees the lock.
func (l *Lock) Release() {
	l.busy.Store(false)
}

// Busy reports whether an action holds the lock.
func (l *Lock) Busy() bool {
	return l.busy.Load()
}
