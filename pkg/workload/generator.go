// Package workload simulates task CPU consumption for demo and test tasks
// registered with the kernel: a configurable duty cycle of busy-waiting
// followed by idling, so a task can be made to look "busy" without doing
// any real work.
package workload

import (
	"math"
	"runtime"
	"sync/atomic"
	"time"
)

// DefaultQuantum bounds a single busy/idle cycle to a responsive interval.
const DefaultQuantum = time.Millisecond

const (
	minQuantum = time.Millisecond
	maxQuantum = 5 * time.Millisecond
)

// Generator simulates a task's CPU consumption by busy-waiting for a
// fraction of each quantum proportional to its configured duty cycle, then
// idling for the remainder. A single Generator drives the simulated body
// of one task's Entry.
type Generator struct {
	quantum time.Duration

	busyFunc  func(time.Duration)
	sleepFunc func(time.Duration)
	yieldFunc func()

	targetBits atomic.Uint64
}

// NewGenerator constructs a Generator with the given quantum, clamped to
// [1ms, 5ms].
func NewGenerator(quantum time.Duration) *Generator {
	if quantum <= 0 {
		quantum = DefaultQuantum
	}

	if quantum < minQuantum {
		quantum = minQuantum
	}

	if quantum > maxQuantum {
		quantum = maxQuantum
	}

	g := &Generator{
		quantum:   quantum,
		busyFunc:  busyWait,
		sleepFunc: time.Sleep,
		yieldFunc: runtime.Gosched,
	}
	g.SetDutyCycle(0)

	return g
}

// SetDutyCycle updates the simulated duty-cycle ratio, clamped to [0,1].
func (g *Generator) SetDutyCycle(target float64) {
	if math.IsNaN(target) {
		target = 0
	}

	if target < 0 {
		target = 0
	} else if target > 1 {
		target = 1
	}

	g.targetBits.Store(math.Float64bits(target))
}

// DutyCycle returns the current simulated duty-cycle ratio.
func (g *Generator) DutyCycle() float64 {
	return math.Float64frombits(g.targetBits.Load())
}

// Simulate runs one busy/idle cycle for the configured duty cycle. Callers
// (typically a task's Entry, between calls to Context.Checkpoint) use this
// to occupy roughly one quantum's worth of wall-clock time without
// performing any real work.
func (g *Generator) Simulate() {
	target := g.DutyCycle()

	busyDuration := time.Duration(target * float64(g.quantum))
	if busyDuration > g.quantum {
		busyDuration = g.quantum
	}

	idleDuration := g.quantum - busyDuration

	if busyDuration > 0 {
		g.busyFunc(busyDuration)
	} else {
		g.yieldFunc()
	}

	if idleDuration > 0 {
		g.sleepFunc(idleDuration)
	} else {
		g.yieldFunc()
	}
}

func busyWait(duration time.Duration) {
	if duration <= 0 {
		return
	}

	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		runtime.Gosched()
	}
}
