package kernel

// tickBookkeeper advances every periodic task's period and deadline
// counters by one tick, handling period rollover and deadline-miss
// detection, and returns the ids of tasks that missed their deadline this
// tick.
//
// Order matters: decrement, then rollover, then miss-check. Rollover is
// evaluated first so that a period boundary coinciding with a deadline
// boundary starts the next period fresh instead of being flagged as
// missed. A miss is only counted when the task still had capacity left:
// a task that already finished its work for the period and is legitimately
// idling until rollover must not be reported twice.
func (k *Kernel) tickBookkeeper() []TaskID {
	var missed []TaskID

	for _, task := range k.table.all() {
		if !task.isPeriodic {
			continue
		}

		task.remainingPeriod--
		task.remainingDeadline--

		if task.remainingPeriod <= 0 {
			task.remainingPeriod = task.period
			task.remainingDeadline = task.deadline
			task.remainingCapacity = task.capacity
		}

		if task.remainingDeadline <= 0 && task.remainingCapacity > 0 {
			task.remainingCapacity = 0
			k.deadlineMisses++

			missed = append(missed, task.id)
		}
	}

	return missed
}
