package osthread

import (
	"runtime"
	"sync"
	"testing"
	"time"
)

func TestID_StableWhileLocked(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	first := ID()
	for i := 0; i < 100; i++ {
		runtime.Gosched()
		if got := ID(); got != first {
			t.Fatalf("ID changed while locked: %d -> %d", first, got)
		}
	}
}

func TestID_DistinctAcrossLockedGoroutines(t *testing.T) {
	const n = 4
	ids := make([]int64, n)
	var ready, done sync.WaitGroup
	ready.Add(n)
	done.Add(n)
	release := make(chan struct{})

	for i := 0; i < n; i++ {
		go func(i int) {
			defer done.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			ids[i] = ID()
			ready.Done()
			<-release
		}(i)
	}
	ready.Wait()
	close(release)
	done.Wait()

	seen := make(map[int64]bool)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate thread id %d among locked goroutines", id)
		}
		seen[id] = true
	}
}

func TestAlive(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if !Alive(ID()) {
		t.Fatal("current thread reported dead")
	}
	if runtime.GOOS != "linux" {
		return
	}

	ids := make(chan int64)
	go func() {
		// Exiting while locked terminates the thread.
		runtime.LockOSThread()
		ids <- ID()
	}()
	id := <-ids

	deadline := time.Now().Add(5 * time.Second)
	for Alive(id) {
		if time.Now().After(deadline) {
			t.Fatalf("thread %d still reported alive after its goroutine exited", id)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
