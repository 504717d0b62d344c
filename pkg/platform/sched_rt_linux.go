//go:build linux && rootful

package platform

import (
	"sync"

	"golang.org/x/sys/unix"
)

var (
	schedSetSchedulerMu sync.RWMutex
	schedSetScheduler   = unix.SchedSetScheduler
)

// PinRealtime moves the calling OS thread onto SCHED_FIFO at the given
// priority so the dispatcher goroutine is not preempted by normal-priority
// host processes. Callers must have first called runtime.LockOSThread.
func PinRealtime(priority int) error {
	schedSetSchedulerMu.RLock()
	fn := schedSetScheduler
	schedSetSchedulerMu.RUnlock()

	return fn(0, unix.SCHED_FIFO, &unix.SchedParam{Priority: priority})
}
