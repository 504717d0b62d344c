package kernel

import "rtkernel/pkg/platform"

// TaskContext is the per-task API surface handed to every Entry. It wraps
// the hosted context-switch primitive (platform.Context) with the
// kernel-level operations a task performs on itself: ID, Yield, and Wfi.
// Delay/Suspend/Resume/SetPriority take a
// TaskID, may be called from any goroutine, and are exposed directly on
// Kernel; a task wanting to delay itself calls Kernel.Delay(tc.ID(), n)
// followed by tc.Checkpoint() to actually hand back control.
type TaskContext struct {
	*platform.Context

	id TaskID
	k  *Kernel
}

// ID returns the calling task's own identifier.
func (tc *TaskContext) ID() TaskID { return tc.id }

// Yield voluntarily hands control back to the dispatcher. It is Checkpoint
// under the name task code calls it by.
func (tc *TaskContext) Yield() {
	tc.Checkpoint()
}

// Wfi blocks the calling task until the kernel's context-switch counter
// has advanced at least once beyond its value as of this call, i.e.
// until some dispatch, not necessarily this task's own, has happened.
// Task code on bare metal would spin in a "wait for interrupt" primitive;
// here that wait is itself expressed as a sequence of Checkpoints so the
// dispatcher is never blocked on it.
func (tc *TaskContext) Wfi() {
	target := tc.k.ctxSwitchesSnapshot() + 1

	for tc.k.ctxSwitchesSnapshot() < target {
		tc.Checkpoint()
	}
}
