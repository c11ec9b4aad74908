//go:build linux

package relay

import "golang.org/x/sys/unix"

// currentThreadID returns the kernel thread id of the calling OS
// thread. Meaningful only while the goroutine stays locked to it.
func currentThreadID() uint64 {
	return uint64(unix.Gettid())
}
