package kernel

import "errors"

var (
	// ErrTaskTableFull is returned when AddTask/AddPeriodicTask would exceed
	// the kernel's configured task capacity.
	ErrTaskTableFull = errors.New("kernel: task table full")

	// ErrInvalidPeriodicParameters is returned when a periodic task's
	// timing parameters violate 0 < capacity <= min(period, deadline), or
	// when an entry routine is missing.
	ErrInvalidPeriodicParameters = errors.New("kernel: invalid periodic task parameters")

	// ErrTaskNotFound is returned by id-addressed operations when no task
	// with that id is registered.
	ErrTaskNotFound = errors.New("kernel: task not found")

	// ErrInvalidState is returned when an operation is attempted against a
	// task in a state that does not permit it (e.g. resuming a task that is
	// not suspended, or registering a task after Start).
	ErrInvalidState = errors.New("kernel: invalid state for requested operation")

	// ErrGuardViolation indicates a task's stack guard canary was
	// corrupted; the kernel halts rather than continue scheduling.
	ErrGuardViolation = errors.New("kernel: stack guard violation")

	// ErrHyperperiodOverflow indicates the LCM of registered periods would
	// overflow; this is a configuration error surfaced at Start.
	ErrHyperperiodOverflow = errors.New("kernel: hyperperiod computation overflowed")

	// ErrEmptyReadySet indicates neither EDF nor RR produced a candidate.
	// Idle injection guarantees this cannot happen in practice; encountering
	// it is treated as an invariant violation and halts the kernel.
	ErrEmptyReadySet = errors.New("kernel: no eligible task to schedule")
)
