// Package kernel implements the dual-policy real-time task scheduler: an
// Earliest-Deadline-First selector for periodic hard-real-time tasks and a
// weighted round-robin fallback for aperiodic background tasks, driven by a
// tick-synchronous dispatcher.
package kernel

// PriorityLevel is the reload weight assigned to an aperiodic task. The high
// byte of a TCB's packed priority field is reloaded into the countdown
// whenever the countdown reaches zero. The RR selector picks a candidate
// the moment its countdown hits zero, so a smaller reload weight means a
// task reaches selection sooner and wins more dispatch slots.
type PriorityLevel uint16

// Priority levels, ordered from most to least favored by the RR fallback.
// Idle carries the largest reload weight and therefore the longest gaps
// between selections.
const (
	PriorityCritical PriorityLevel = 0x0100
	PriorityHigh     PriorityLevel = 0x3F00
	PriorityNormal   PriorityLevel = 0x7F00
	PriorityLow      PriorityLevel = 0xBF00
	PriorityIdle     PriorityLevel = 0xFF00
)

// State is a task's position in the scheduler's state machine.
type State int

const (
	StateStopped State = iota
	StateReady
	StateRunning
	StateBlocked
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// TaskID identifies a task within a Kernel's task table. IDs are assigned
// in registration order starting at 1; zero is never a valid ID.
type TaskID uint16

// Entry is a task's entry routine. It runs on its own goroutine and is
// handed a TaskContext bound to its own TCB, through which it calls
// Checkpoint/Yield whenever it is willing to hand control back to the
// dispatcher (the cooperative, hosted analogue of a setjmp/longjmp-style
// context switch) and ID/Wfi to query its own identity and wait for a
// context switch.
type Entry func(tc *TaskContext)
