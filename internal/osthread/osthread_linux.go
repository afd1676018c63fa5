//go:build linux

package osthread

import "golang.org/x/sys/unix"

func currentID() int64 {
	return int64(unix.Gettid())
}

// Signal 0 only checks that the target exists in this thread group.
func alive(id int64) bool {
	return unix.Tgkill(unix.Getpid(), int(id), 0) != unix.ESRCH
}
