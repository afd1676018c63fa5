//go:build !linux

package osthread

import "github.com/petermattis/goid"

// Without a portable thread id, the goroutine id stands in. Callers hold
// runtime.LockOSThread, so goroutine and thread identities coincide for the
// duration of the lock.
func currentID() int64 {
	return goid.Get()
}

func alive(int64) bool {
	return true
}
