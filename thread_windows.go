//go:build windows

package relay

import "golang.org/x/sys/windows"

// currentThreadID returns the Win32 thread id of the calling OS thread.
// Meaningful only while the goroutine stays locked to it.
func currentThreadID() uint64 {
	return uint64(windows.GetCurrentThreadId())
}
