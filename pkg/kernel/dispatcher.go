package kernel

import (
	"fmt"

	"go.uber.org/zap"
)

// Tick drives the kernel through exactly one dispatch cycle: hyperperiod
// report counter, delay update, guard check, bookkeeping, outgoing-capacity
// decrement, EDF selection with RR fallback, and the context switch into
// the chosen task. Callers own the timing source: a ticker via Run, or
// direct calls from a test or a simulated clock.
//
// The hyperperiod counter update runs immediately after capturing the
// outgoing task and before any of this tick's own bookkeeping or selection:
// a report emitted on the closing tick of a hyperperiod reflects the counts
// as they stood at the *start* of that tick, not this tick's own
// deadline-miss or dispatch outcome, which instead accrue to the
// hyperperiod that just opened.
//
// The dispatch bookkeeping (up to and including selection) runs with the
// kernel mutex held, the hosted analogue of running with the timer
// disabled. The mutex is released before handing control to the winning
// task so that task code calling Suspend/Resume/SetPriority/Delay, on
// itself or another task, does not deadlock against the dispatcher.
func (k *Kernel) Tick() error {
	k.mu.Lock()

	if !k.started {
		k.mu.Unlock()

		return ErrInvalidState
	}

	if k.halted {
		err := k.haltErr
		k.mu.Unlock()

		return err
	}

	outgoing, _ := k.table.get(k.currentID)
	outIdx := k.table.indexOf(k.currentID)

	report, emitted := k.hyperperiodTick()

	k.runDelayUpdate()

	if outgoing != nil {
		if err := outgoing.guard.Check(); err != nil {
			wrapped := fmt.Errorf("%w: task %d: %w", ErrGuardViolation, outgoing.id, err)
			k.logger.Error("guard region contents",
				zap.Uint16("taskID", uint16(outgoing.id)),
				zap.String("hexdump", outgoing.guard.Dump()),
			)
			k.haltLocked(wrapped)
			k.mu.Unlock()

			return wrapped
		}
	}

	missed := k.tickBookkeeper()
	for _, id := range missed {
		k.logger.Warn("deadline miss", zap.Uint16("taskID", uint16(id)))

		if k.notifier != nil {
			notifier := k.notifier

			go notifier.NotifyDeadlineMiss(id)
		}
	}

	k.decrementOutgoing(outgoing)

	winner, found := k.selectEDF(outIdx)
	if found {
		k.cursor = k.table.indexOf(winner.id)
	} else {
		winner, k.cursor, found = k.selectRR(outIdx)
	}

	if !found {
		k.haltLocked(ErrEmptyReadySet)
		k.mu.Unlock()

		return ErrEmptyReadySet
	}

	winner.state = StateRunning
	winner.hasRunInLCM = true
	k.ctxSwitches++
	k.currentID = winner.id

	k.refreshMetricsLocked(winner)

	timeout := k.forcedPreemptionTimeout

	k.mu.Unlock()

	if emitted {
		k.emitReport(report)
	}

	for _, id := range missed {
		fmt.Fprintf(k.reportWriter, "dm:%d\n", id)
	}

	if !winner.ctx.Resume(timeout) {
		k.logger.Warn("task did not checkpoint within forced-preemption window",
			zap.Uint16("taskID", uint16(winner.id)))
	}

	return nil
}
