package kernel

import "rtkernel/pkg/platform"

// ensureIdleTask guarantees the RR fallback is never empty by injecting a
// synthetic idle task if no aperiodic task was registered before Start.
// Must be called with k.mu held.
func (k *Kernel) ensureIdleTask() {
	for _, t := range k.table.all() {
		if !t.isPeriodic {
			return
		}
	}

	task := &Task{
		entry:    idleEntry,
		state:    StateStopped,
		ctx:      platform.NewContext(),
		guard:    platform.NewGuard(k.defaultGuardSize),
		priority: packPriority(PriorityIdle),
	}

	k.table.add(task)
}

// idleEntry never does real work; it exists only so the RR selector always
// has a candidate to fall back to.
func idleEntry(tc *TaskContext) {
	for {
		tc.Checkpoint()
	}
}
