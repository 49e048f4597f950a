package lock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadersShareWritersExclude(t *testing.T) {
	l := New()

	l.RLock()
	require.True(t, l.TryRLock(), "second reader must be admitted")
	require.False(t, l.TryLock(), "writer must not be admitted while readers hold the lock")
	l.RUnlock()
	l.RUnlock()

	l.Lock()
	require.False(t, l.TryRLock(), "reader must not be admitted while a writer holds the lock")
	require.False(t, l.TryLock(), "second writer must not be admitted")
	l.Unlock()

	require.True(t, l.TryLock())
	l.Unlock()
}

func TestWriterPreference(t *testing.T) {
	l := New()
	l.RLock()

	writerIn := make(chan struct{})
	go func() {
		l.Lock()
		close(writerIn)
		l.Unlock()
	}()

	// Give the writer time to start waiting, then new readers must be parked.
	require.Eventually(t, func() bool {
		if l.TryRLock() {
			l.RUnlock()
			return false
		}
		return true
	}, time.Second, time.Millisecond, "new readers must be parked while a writer waits")

	l.RUnlock()
	select {
	case <-writerIn:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired the lock after the last reader left")
	}
}

func TestDowngradeAdmitsReaders(t *testing.T) {
	l := New()
	l.Lock()
	l.Downgrade()

	require.True(t, l.TryRLock(), "readers must progress after downgrade")
	l.RUnlock()
	require.False(t, l.TryLock(), "downgraded lock is still held shared")
	l.RUnlock()
	require.True(t, l.TryLock())
	l.Unlock()
}

func TestDowngradeHasNoUnlockedWindow(t *testing.T) {
	l := New()
	var stolen atomic.Bool

	l.Lock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// If downgrade ever fully released the lock, this writer could
		// acquire it before the downgrading thread reads its own state.
		l.Lock()
		stolen.Store(true)
		l.Unlock()
	}()

	time.Sleep(10 * time.Millisecond)
	l.Downgrade()
	require.False(t, stolen.Load(), "writer slipped in during downgrade")
	l.RUnlock()
	wg.Wait()
	require.True(t, stolen.Load())
}

func TestUnlockPanicsWhenNotHeld(t *testing.T) {
	l := New()
	require.Panics(t, func() { l.Unlock() })
	require.Panics(t, func() { l.RUnlock() })
	require.Panics(t, func() { l.Downgrade() })
}

func TestConcurrentCounter(t *testing.T) {
	l := New()
	var counter int

	const writers, increments = 8, 1000
	var writersWg, readersWg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < writers; i++ {
		writersWg.Add(1)
		go func() {
			defer writersWg.Done()
			for j := 0; j < increments; j++ {
				l.Lock()
				counter++
				l.Unlock()
			}
		}()
	}

	for i := 0; i < 4; i++ {
		readersWg.Add(1)
		go func() {
			defer readersWg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				l.RLock()
				_ = counter
				l.RUnlock()
			}
		}()
	}

	writersWg.Wait()
	close(stop)
	readersWg.Wait()
	require.Equal(t, writers*increments, counter)
}
