// Package osthread identifies the operating system thread running the caller.
//
// Identity is only stable while the calling goroutine is locked to its thread
// with runtime.LockOSThread; every caller in this module holds that lock.
package osthread

// ID returns the identity of the current thread.
func ID() int64 {
	return currentID()
}

// Alive reports whether the thread with the given id still exists. Where
// that cannot be determined it reports true.
func Alive(id int64) bool {
	return alive(id)
}
