package kernel

import "testing"

func newAperiodicTask(level PriorityLevel) *Task {
	return &Task{
		state:    StateReady,
		priority: packPriority(level),
	}
}

func TestSelectRRReloadsCountdownOnSelection(t *testing.T) {
	t.Parallel()

	k := NewKernel()
	task := newAperiodicTask(PriorityLow)
	k.table.add(task)

	reload := task.reloadWeight()

	winner, _, found := k.selectRR(-1)
	if !found || winner.id != task.id {
		t.Fatalf("expected the only candidate to be selected, got %v", winner)
	}

	if winner.countdown() != reload {
		t.Fatalf("expected countdown reloaded to %d, got %d", reload, winner.countdown())
	}
}

func TestSelectRRIgnoresPeriodicTasks(t *testing.T) {
	t.Parallel()

	k := NewKernel()
	periodic := newPeriodicTask(100, 30, 90)
	k.table.add(periodic)
	aperiodic := newAperiodicTask(PriorityNormal)
	k.table.add(aperiodic)

	winner, _, found := k.selectRR(-1)
	if !found || winner.id != aperiodic.id {
		t.Fatalf("expected aperiodic task %d, got %v", aperiodic.id, winner)
	}
}

func TestSelectRRSkipsSuspendedAndBlockedTasks(t *testing.T) {
	t.Parallel()

	k := NewKernel()

	suspended := newAperiodicTask(PriorityHigh)
	suspended.state = StateSuspended
	k.table.add(suspended)

	blocked := newAperiodicTask(PriorityHigh)
	blocked.state = StateBlocked
	k.table.add(blocked)

	ready := newAperiodicTask(PriorityHigh)
	k.table.add(ready)

	winner, _, found := k.selectRR(-1)
	if !found || winner.id != ready.id {
		t.Fatalf("expected ready task %d, got %v", ready.id, winner)
	}
}

func TestSelectRRHigherWeightWinsMoreOftenOverASweep(t *testing.T) {
	t.Parallel()

	k := NewKernel()

	high := newAperiodicTask(PriorityHigh)
	low := newAperiodicTask(PriorityLow)
	k.table.add(high)
	k.table.add(low)

	wins := map[TaskID]int{}
	pos := -1

	const rounds = 500

	for i := 0; i < rounds; i++ {
		winner, next, found := k.selectRR(pos)
		if !found {
			t.Fatal("expected a winner every round")
		}

		wins[winner.id]++
		pos = next
	}

	if wins[high.id] <= wins[low.id] {
		t.Fatalf("expected high priority task to win more often: wins=%v", wins)
	}
}

func TestSelectRRReturnsFalseWhenNoAperiodicCandidates(t *testing.T) {
	t.Parallel()

	k := NewKernel()
	k.table.add(newPeriodicTask(100, 30, 90))

	_, _, found := k.selectRR(-1)
	if found {
		t.Fatal("expected no RR candidate among purely periodic tasks")
	}
}
