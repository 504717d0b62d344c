package kernel

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"rtkernel/pkg/platform"
)

const (
	defaultMaxTasks        = 256
	defaultGuardSizeBytes  = 64
	defaultTickGranularity = time.Millisecond

	// defaultForcedPreemptionTimeout bounds how long a dispatch waits for
	// the outgoing task to reach a Checkpoint before proceeding without
	// it, the hosted analogue of a timer ISR reclaiming the CPU from a
	// task regardless of whether it cooperates. See platform.Context.Resume.
	defaultForcedPreemptionTimeout = 5 * time.Millisecond
)

// MetricsRecorder receives kernel observability updates on every dispatch
// and at the close of every hyperperiod. Implemented by
// rtkernel/pkg/http/metrics.Exporter.
type MetricsRecorder interface {
	SetCtxSwitches(uint64)
	SetDeadlineMisses(int)
	SetJobsRun(int)
	SetRunningTask(id TaskID, periodic bool)
	SetHyperperiodRemaining(int)
}

// ReportNotifier receives hyperperiod reports and individual deadline-miss
// events for optional external delivery. Implemented by
// rtkernel/pkg/alert.Notifier.
type ReportNotifier interface {
	NotifyReport(Report)
	NotifyDeadlineMiss(TaskID)
}

// Stats is a point-in-time snapshot of kernel counters, safe to read
// concurrently with ticking.
type Stats struct {
	CtxSwitches      uint64
	DeadlineMisses   int
	Hyperperiod      int
	TicksUntilReport int
	CurrentTask      TaskID
	Halted           bool
}

// Kernel owns the task table and drives the tick-synchronous dispatcher.
// The zero value is not usable; construct with NewKernel.
type Kernel struct {
	mu sync.Mutex

	table     *table
	cursor    int
	currentID TaskID

	maxTasks         int
	defaultGuardSize int

	forcedPreemptionTimeout time.Duration

	started bool
	halted  bool
	haltErr error

	ctxSwitches      uint64
	deadlineMisses   int
	hyperperiod      int
	ticksUntilReport int

	logger       *zap.Logger
	recorder     MetricsRecorder
	notifier     ReportNotifier
	reportWriter io.Writer
}

// Option configures a Kernel at construction time.
type Option func(*Kernel)

// WithLogger overrides the kernel's structured logger. A nil logger is
// ignored; the default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(k *Kernel) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// WithMetricsRecorder wires an observability sink for counters and gauges.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(k *Kernel) { k.recorder = recorder }
}

// WithReportNotifier wires an optional external delivery sink for
// hyperperiod reports and deadline-miss events.
func WithReportNotifier(notifier ReportNotifier) Option {
	return func(k *Kernel) { k.notifier = notifier }
}

// WithMaxTasks overrides the task table capacity (default 256).
func WithMaxTasks(n int) Option {
	return func(k *Kernel) {
		if n > 0 {
			k.maxTasks = n
		}
	}
}

// WithDefaultGuardSize overrides the stack guard region size, in bytes,
// used when a caller passes guardSize <= 0 to AddTask/AddPeriodicTask.
func WithDefaultGuardSize(n int) Option {
	return func(k *Kernel) {
		if n > 0 {
			k.defaultGuardSize = n
		}
	}
}

// WithReportWriter overrides where the human-readable hyperperiod report
// block and per-miss "dm:<id>" lines are written. Defaults to stdout; a
// nil writer is ignored.
func WithReportWriter(w io.Writer) Option {
	return func(k *Kernel) {
		if w != nil {
			k.reportWriter = w
		}
	}
}

// WithForcedPreemptionTimeout overrides how long a dispatch waits for the
// outgoing task to reach a Checkpoint before proceeding without it. The
// default is 5ms; a non-positive value is ignored.
func WithForcedPreemptionTimeout(d time.Duration) Option {
	return func(k *Kernel) {
		if d > 0 {
			k.forcedPreemptionTimeout = d
		}
	}
}

// NewKernel constructs a Kernel ready to accept task registrations.
func NewKernel(opts ...Option) *Kernel {
	k := &Kernel{
		table:                   newTable(),
		maxTasks:                defaultMaxTasks,
		defaultGuardSize:        defaultGuardSizeBytes,
		logger:                  zap.NewNop(),
		reportWriter:            os.Stdout,
		forcedPreemptionTimeout: defaultForcedPreemptionTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(k)
		}
	}

	return k
}

// AddTask registers an aperiodic task at the given RR priority level.
// guardSize <= 0 uses the kernel's configured default. Must be called
// before Start.
func (k *Kernel) AddTask(entry Entry, priority PriorityLevel, guardSize int) (TaskID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return 0, ErrInvalidState
	}

	if entry == nil {
		return 0, fmt.Errorf("%w: nil entry", ErrInvalidPeriodicParameters)
	}

	if k.table.len() >= k.maxTasks {
		return 0, ErrTaskTableFull
	}

	if guardSize <= 0 {
		guardSize = k.defaultGuardSize
	}

	task := &Task{
		entry:    entry,
		state:    StateStopped,
		ctx:      platform.NewContext(),
		guard:    platform.NewGuard(guardSize),
		priority: packPriority(priority),
	}

	return k.table.add(task), nil
}

// AddPeriodicTask registers a periodic hard-real-time task. period,
// capacity and deadline are all in ticks; 0 < capacity <= deadline and
// capacity <= period are required. deadline > period is accepted with a
// logged warning: rollover resets the deadline counter regardless, so a
// deadline reaching into the next period is truncated at each period
// boundary. Must be called before Start.
func (k *Kernel) AddPeriodicTask(entry Entry, period, capacity, deadline, guardSize int) (TaskID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return 0, ErrInvalidState
	}

	if entry == nil || period <= 0 || capacity <= 0 || capacity > period || deadline <= 0 || capacity > deadline {
		return 0, ErrInvalidPeriodicParameters
	}

	if k.table.len() >= k.maxTasks {
		return 0, ErrTaskTableFull
	}

	if deadline > period {
		k.logger.Warn("periodic task deadline exceeds period; deadline truncates at each rollover",
			zap.Int("period", period),
			zap.Int("deadline", deadline),
		)
	}

	if guardSize <= 0 {
		guardSize = k.defaultGuardSize
	}

	task := &Task{
		entry:             entry,
		state:             StateStopped,
		ctx:               platform.NewContext(),
		guard:             platform.NewGuard(guardSize),
		isPeriodic:        true,
		period:            period,
		capacity:          capacity,
		deadline:          deadline,
		remainingPeriod:   period,
		remainingCapacity: capacity,
		remainingDeadline: deadline,
	}

	return k.table.add(task), nil
}

// Start computes the hyperperiod, injects the idle task if needed, launches
// every task's goroutine, and performs the initial dispatch. It must be
// called exactly once, after all tasks are registered and before Tick/Run.
func (k *Kernel) Start(_ context.Context) error {
	k.mu.Lock()

	if k.started {
		k.mu.Unlock()

		return ErrInvalidState
	}

	k.ensureIdleTask()

	hyperperiod, err := computeHyperperiod(k.table.all())
	if err != nil {
		k.mu.Unlock()

		return err
	}

	k.hyperperiod = hyperperiod
	k.ticksUntilReport = hyperperiod

	// A freshly registered TCB starts STOPPED and only becomes eligible
	// for selection once its first-time init has run. Every task's
	// goroutine launches here, before the first selection, so there is no
	// observable STOPPED window for the selectors to trip over.
	for _, t := range k.table.all() {
		task := t

		tc := &TaskContext{Context: task.ctx, id: task.id, k: k}
		task.ctx.Start(func(c *platform.Context) { task.entry(tc) })

		if task.state == StateStopped {
			task.state = StateReady
		}
	}

	winner, found := k.selectEDF(-1)
	if found {
		k.cursor = k.table.indexOf(winner.id)
	} else {
		winner, k.cursor, found = k.selectRR(-1)
	}

	if !found {
		k.mu.Unlock()

		return ErrEmptyReadySet
	}

	winner.state = StateRunning
	winner.hasRunInLCM = true
	k.currentID = winner.id
	k.started = true

	k.logger.Info("kernel started",
		zap.Int("tasks", k.table.len()),
		zap.Int("hyperperiod", k.hyperperiod),
	)

	timeout := k.forcedPreemptionTimeout

	k.mu.Unlock()

	winner.ctx.Resume(timeout)

	return nil
}

// Run drives the kernel continuously at the given tick interval until the
// context is cancelled or the kernel halts.
func (k *Kernel) Run(ctx context.Context, tickInterval time.Duration) error {
	if tickInterval <= 0 {
		tickInterval = defaultTickGranularity
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := k.Tick()
			if err != nil {
				return err
			}
		}
	}
}

// Halted reports whether the kernel has stopped dispatching following an
// unrecoverable error (a guard violation or an empty ready set).
func (k *Kernel) Halted() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.halted
}

// HaltReason returns the error that halted the kernel, or nil if it is
// still running.
func (k *Kernel) HaltReason() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.haltErr
}

// Stats returns a snapshot of the kernel's counters.
func (k *Kernel) Stats() Stats {
	k.mu.Lock()
	defer k.mu.Unlock()

	return Stats{
		CtxSwitches:      k.ctxSwitches,
		DeadlineMisses:   k.deadlineMisses,
		Hyperperiod:      k.hyperperiod,
		TicksUntilReport: k.ticksUntilReport,
		CurrentTask:      k.currentID,
		Halted:           k.halted,
	}
}

// ctxSwitchesSnapshot returns the current context-switch counter. Used by
// TaskContext.Wfi to detect that a dispatch has happened.
func (k *Kernel) ctxSwitchesSnapshot() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.ctxSwitches
}

func (k *Kernel) haltLocked(err error) {
	k.halted = true
	k.haltErr = err
	k.logger.Error("kernel halted", zap.Error(err))
}

func (k *Kernel) emitReport(r Report) {
	fmt.Fprintf(k.reportWriter,
		"=================================================\n"+
			"Report:\n"+
			"Deadline misses: %d\n"+
			"Jobs run: %d\n"+
			"=================================================\n",
		r.DeadlineMisses, r.JobsRun)

	k.logger.Info("hyperperiod report",
		zap.Int("deadlineMisses", r.DeadlineMisses),
		zap.Int("jobsRun", r.JobsRun),
	)

	if k.recorder != nil {
		k.recorder.SetDeadlineMisses(r.DeadlineMisses)
		k.recorder.SetJobsRun(r.JobsRun)
	}

	if k.notifier != nil {
		go k.notifier.NotifyReport(r)
	}
}

func (k *Kernel) refreshMetricsLocked(winner *Task) {
	if k.recorder == nil {
		return
	}

	k.recorder.SetCtxSwitches(k.ctxSwitches)
	k.recorder.SetRunningTask(winner.id, winner.isPeriodic)
	k.recorder.SetHyperperiodRemaining(k.ticksUntilReport)
}
