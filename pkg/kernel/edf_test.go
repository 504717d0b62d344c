package kernel

import "testing"

func TestSelectEDFPicksSmallestRemainingDeadline(t *testing.T) {
	t.Parallel()

	k := NewKernel()

	far := newPeriodicTask(100, 30, 80)
	near := newPeriodicTask(100, 30, 20)
	k.table.add(far)
	k.table.add(near)

	winner, found := k.selectEDF(-1)
	if !found {
		t.Fatal("expected a winner")
	}

	if winner.id != near.id {
		t.Fatalf("expected nearest-deadline task %d, got %d", near.id, winner.id)
	}
}

func TestSelectEDFSkipsExhaustedCapacity(t *testing.T) {
	t.Parallel()

	k := NewKernel()

	exhausted := newPeriodicTask(100, 30, 20)
	exhausted.remainingCapacity = 0
	eligible := newPeriodicTask(100, 30, 80)
	k.table.add(exhausted)
	k.table.add(eligible)

	winner, found := k.selectEDF(-1)
	if !found || winner.id != eligible.id {
		t.Fatalf("expected eligible task %d, got %v (found=%v)", eligible.id, winner, found)
	}
}

func TestSelectEDFSkipsSuspendedTasks(t *testing.T) {
	t.Parallel()

	k := NewKernel()

	suspended := newPeriodicTask(100, 30, 10)
	suspended.state = StateSuspended
	other := newPeriodicTask(100, 30, 90)
	k.table.add(suspended)
	k.table.add(other)

	winner, found := k.selectEDF(-1)
	if !found || winner.id != other.id {
		t.Fatalf("expected non-suspended task %d, got %v", other.id, winner)
	}
}

func TestSelectEDFReturnsFalseWhenNoPeriodicTasks(t *testing.T) {
	t.Parallel()

	k := NewKernel()
	k.table.add(&Task{state: StateReady})

	_, found := k.selectEDF(-1)
	if found {
		t.Fatal("expected no EDF candidate among purely aperiodic tasks")
	}
}

func TestSelectEDFTiesBreakByTraversalOrderFromOutgoingSuccessor(t *testing.T) {
	t.Parallel()

	k := NewKernel()

	first := newPeriodicTask(100, 30, 50)
	second := newPeriodicTask(100, 30, 50)
	k.table.add(first)
	k.table.add(second)

	winner, found := k.selectEDF(k.table.indexOf(first.id))
	if !found || winner.id != second.id {
		t.Fatalf("expected round-robin tie-break to favor %d, got %v", second.id, winner)
	}
}

func TestDecrementOutgoingOnlyAffectsThatTask(t *testing.T) {
	t.Parallel()

	k := NewKernel()

	outgoing := newPeriodicTask(100, 30, 50)
	outgoing.state = StateRunning
	other := newPeriodicTask(100, 30, 50)
	k.table.add(outgoing)
	k.table.add(other)

	k.decrementOutgoing(outgoing)

	if outgoing.remainingCapacity != 29 {
		t.Fatalf("expected outgoing capacity decremented to 29, got %d", outgoing.remainingCapacity)
	}

	if other.remainingCapacity != 30 {
		t.Fatalf("expected other task's capacity untouched, got %d", other.remainingCapacity)
	}

	if outgoing.state != StateReady {
		t.Fatalf("expected outgoing task demoted to Ready, got %v", outgoing.state)
	}
}

func TestDecrementOutgoingHandlesNil(t *testing.T) {
	t.Parallel()

	k := NewKernel()
	k.decrementOutgoing(nil) // must not panic
}
