package kernel

// runDelayUpdate decrements the delay countdown of every Blocked task,
// transitioning it to Ready once the countdown reaches zero. This runs
// before guard checking and bookkeeping so a task unblocked this tick is
// already eligible for this same tick's selection.
func (k *Kernel) runDelayUpdate() {
	for _, t := range k.table.all() {
		if t.state != StateBlocked {
			continue
		}

		if t.delay > 0 {
			t.delay--
		}

		if t.delay <= 0 {
			t.state = StateReady
		}
	}
}

// Suspend moves a task to Suspended, removing it from EDF/RR eligibility
// until Resume is called. Safe to call from any goroutine.
func (k *Kernel) Suspend(id TaskID) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	task, ok := k.table.get(id)
	if !ok {
		return ErrTaskNotFound
	}

	if task.state == StateSuspended || task.state == StateStopped {
		return ErrInvalidState
	}

	task.state = StateSuspended

	return nil
}

// Resume moves a Suspended task back to Ready.
func (k *Kernel) Resume(id TaskID) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	task, ok := k.table.get(id)
	if !ok {
		return ErrTaskNotFound
	}

	if task.state != StateSuspended {
		return ErrInvalidState
	}

	task.state = StateReady

	return nil
}

// SetPriority updates the RR reload weight of an aperiodic task. The
// current countdown is reloaded immediately so the new weight takes effect
// starting with the task's next selection.
func (k *Kernel) SetPriority(id TaskID, level PriorityLevel) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	task, ok := k.table.get(id)
	if !ok {
		return ErrTaskNotFound
	}

	if task.isPeriodic {
		return ErrInvalidState
	}

	task.priority = packPriority(level)

	return nil
}

// Delay blocks the given task for the given number of ticks. Task code
// calls this from within its own Entry goroutine immediately before a
// Checkpoint.
func (k *Kernel) Delay(id TaskID, ticks int) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	task, ok := k.table.get(id)
	if !ok {
		return ErrTaskNotFound
	}

	if ticks <= 0 {
		return nil
	}

	task.delay = ticks
	task.state = StateBlocked

	return nil
}

// TaskState returns the current state of the given task.
func (k *Kernel) TaskState(id TaskID) (State, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	task, ok := k.table.get(id)
	if !ok {
		return StateStopped, ErrTaskNotFound
	}

	return task.state, nil
}
