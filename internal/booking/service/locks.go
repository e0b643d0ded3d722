package service

import "sync"

// streamLocks serializes command handling per stream identity. The journal's
// load-decide-append cycle is not a single transaction, so two concurrent
// commands for one stream could both decide against the same state; taking
// the stream's lock for the whole cycle rules that out.
type streamLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newStreamLocks() *streamLocks {
	return &streamLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the stream's mutex and returns its release function.
func (l *streamLocks) acquire(streamID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[streamID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[streamID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
