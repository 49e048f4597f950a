// Package lock implements the reader-writer lock used by map shards.
//
// The standard sync.RWMutex cannot atomically exchange a held write lock
// for a read lock, which the guard downgrade protocol requires, so the
// shard lock is built here on top of sync.Mutex and sync.Cond.
package lock

import "sync"

// RWMutex is a reader-writer mutual exclusion lock with writer preference
// and write-to-read downgrade.
//
// A writer waiting for the lock parks newly arriving readers, so writers
// do not starve under read-heavy load. The zero value is unusable; use New.
type RWMutex struct {
	mu             sync.Mutex
	readers        int
	writing        bool
	waitingWriters int
	readerPass     *sync.Cond
	writerPass     *sync.Cond
}

func New() *RWMutex {
	l := &RWMutex{}
	l.readerPass = sync.NewCond(&l.mu)
	l.writerPass = sync.NewCond(&l.mu)
	return l
}

// RLock acquires the lock in shared mode, blocking while a writer holds
// it or waits for it.
func (l *RWMutex) RLock() {
	l.mu.Lock()
	for l.writing || l.waitingWriters > 0 {
		l.readerPass.Wait()
	}
	l.readers++
	l.mu.Unlock()
}

// TryRLock acquires the lock in shared mode without blocking.
// It fails if a writer holds the lock or is waiting for it.
func (l *RWMutex) TryRLock() bool {
	l.mu.Lock()
	if l.writing || l.waitingWriters > 0 {
		l.mu.Unlock()
		return false
	}
	l.readers++
	l.mu.Unlock()
	return true
}

// RUnlock releases one shared hold. Calling it without a matching RLock
// panics.
func (l *RWMutex) RUnlock() {
	l.mu.Lock()
	if l.readers <= 0 {
		l.mu.Unlock()
		panic("lock: RUnlock of unlocked RWMutex")
	}
	l.readers--
	if l.readers == 0 && l.waitingWriters > 0 {
		l.writerPass.Signal()
	}
	l.mu.Unlock()
}

// Lock acquires the lock in exclusive mode, blocking until all readers
// and any current writer are gone.
func (l *RWMutex) Lock() {
	l.mu.Lock()
	l.waitingWriters++
	for l.writing || l.readers > 0 {
		l.writerPass.Wait()
	}
	l.waitingWriters--
	l.writing = true
	l.mu.Unlock()
}

// TryLock acquires the lock in exclusive mode without blocking.
func (l *RWMutex) TryLock() bool {
	l.mu.Lock()
	if l.writing || l.readers > 0 {
		l.mu.Unlock()
		return false
	}
	l.writing = true
	l.mu.Unlock()
	return true
}

// Unlock releases the exclusive hold. A waiting writer is preferred over
// parked readers.
func (l *RWMutex) Unlock() {
	l.mu.Lock()
	if !l.writing {
		l.mu.Unlock()
		panic("lock: Unlock of unlocked RWMutex")
	}
	l.writing = false
	if l.waitingWriters > 0 {
		l.writerPass.Signal()
	} else {
		l.readerPass.Broadcast()
	}
	l.mu.Unlock()
}

// Downgrade atomically exchanges a held write lock for a read lock.
// There is no window in which another writer can acquire the lock
// between the two states. Other parked readers are admitted unless a
// writer is already waiting.
func (l *RWMutex) Downgrade() {
	l.mu.Lock()
	if !l.writing {
		l.mu.Unlock()
		panic("lock: Downgrade of RWMutex not held for writing")
	}
	l.writing = false
	l.readers = 1
	if l.waitingWriters == 0 {
		l.readerPass.Broadcast()
	}
	l.mu.Unlock()
}
