// Package metrics renders kernel dispatch counters as OpenMetrics text
// for scraping by a Prometheus-compatible collector.
package metrics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"

	"rtkernel/pkg/kernel"
)

const (
	contentType    = "application/openmetrics-text; version=1.0.0; charset=utf-8"
	hundredPercent = 100.0
)

var errNilWriter = errors.New("metrics: writer is nil")

// Exporter tracks kernel dispatch counters and exposes them via HTTP. It
// implements kernel.MetricsRecorder.
type Exporter struct {
	mu sync.RWMutex

	ctxSwitches         float64
	deadlineMisses      float64
	jobsRun             float64
	runningTaskID       float64
	runningTaskPeriodic float64
	hyperperiodRemain   float64
	hostCPUPercent      float64
}

// NewExporter constructs an Exporter with zeroed metrics.
func NewExporter() *Exporter {
	return new(Exporter)
}

// SetCtxSwitches records the cumulative count of context switches performed
// by the dispatcher.
func (e *Exporter) SetCtxSwitches(count uint64) {
	e.mu.Lock()
	e.ctxSwitches = float64(count)
	e.mu.Unlock()
}

// SetDeadlineMisses records the number of periodic deadline misses
// observed during the most recently completed hyperperiod.
func (e *Exporter) SetDeadlineMisses(count int) {
	e.mu.Lock()
	e.deadlineMisses = float64(count)
	e.mu.Unlock()
}

// SetJobsRun records the number of tasks, periodic or aperiodic, dispatched
// at least once during the most recently completed hyperperiod.
func (e *Exporter) SetJobsRun(count int) {
	e.mu.Lock()
	e.jobsRun = float64(count)
	e.mu.Unlock()
}

// SetRunningTask records the identity of the task currently selected to
// run, and whether it is a periodic (EDF) or aperiodic (round-robin) task.
func (e *Exporter) SetRunningTask(id kernel.TaskID, periodic bool) {
	e.mu.Lock()
	e.runningTaskID = float64(id)

	if periodic {
		e.runningTaskPeriodic = 1
	} else {
		e.runningTaskPeriodic = 0
	}

	e.mu.Unlock()
}

// SetHyperperiodRemaining records the number of ticks remaining until the
// current hyperperiod closes and a new report is produced.
func (e *Exporter) SetHyperperiodRemaining(ticks int) {
	value := float64(ticks)
	if value < 0 {
		value = 0
	}

	e.mu.Lock()
	e.hyperperiodRemain = value
	e.mu.Unlock()
}

// ObserveHostCPU records the latest host CPU utilisation ratio in [0,1],
// independent of the kernel's own simulated capacity bookkeeping.
func (e *Exporter) ObserveHostCPU(utilisation float64) {
	if math.IsNaN(utilisation) || math.IsInf(utilisation, 0) {
		utilisation = 0
	}

	if utilisation < 0 {
		utilisation = 0
	}

	percent := utilisation * hundredPercent
	if percent > hundredPercent {
		percent = hundredPercent
	}

	e.mu.Lock()
	e.hostCPUPercent = percent
	e.mu.Unlock()
}

// ServeHTTP implements http.Handler for the metrics exporter.
func (e *Exporter) ServeHTTP(writer http.ResponseWriter, _ *http.Request) {
	data, err := e.Render()
	if err != nil {
		http.Error(writer, err.Error(), http.StatusInternalServerError)

		return
	}

	writer.Header().Set("Content-Type", contentType)
	_, _ = writer.Write(data)
}

// Render returns the current metrics snapshot encoded as OpenMetrics text.
func (e *Exporter) Render() ([]byte, error) {
	var buffer bytes.Buffer

	_, err := e.WriteTo(&buffer)
	if err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

// WriteTo writes the current metrics snapshot to the provided writer.
func (e *Exporter) WriteTo(dst io.Writer) (int64, error) {
	if dst == nil {
		return 0, errNilWriter
	}

	snapshot := e.snapshot()

	lines := []string{
		"# HELP rtkernel_ctx_switches_total Cumulative number of dispatcher context switches.\n",
		"# TYPE rtkernel_ctx_switches_total counter\n",
		fmt.Sprintf("rtkernel_ctx_switches_total %.0f\n", snapshot.ctxSwitches),
		"# HELP rtkernel_deadline_misses Periodic deadline misses during the most recent hyperperiod.\n",
		"# TYPE rtkernel_deadline_misses gauge\n",
		fmt.Sprintf("rtkernel_deadline_misses %.0f\n", snapshot.deadlineMisses),
		"# HELP rtkernel_jobs_run Tasks dispatched at least once during the most recent hyperperiod.\n",
		"# TYPE rtkernel_jobs_run gauge\n",
		fmt.Sprintf("rtkernel_jobs_run %.0f\n", snapshot.jobsRun),
		"# HELP rtkernel_running_task_id Identifier of the task currently selected to run.\n",
		"# TYPE rtkernel_running_task_id gauge\n",
		fmt.Sprintf("rtkernel_running_task_id %.0f\n", snapshot.runningTaskID),
		"# HELP rtkernel_running_task_periodic Whether the running task is periodic (1) or aperiodic (0).\n",
		"# TYPE rtkernel_running_task_periodic gauge\n",
		fmt.Sprintf("rtkernel_running_task_periodic %.0f\n", snapshot.runningTaskPeriodic),
		"# HELP rtkernel_hyperperiod_ticks_remaining Ticks remaining until the current hyperperiod closes.\n",
		"# TYPE rtkernel_hyperperiod_ticks_remaining gauge\n",
		fmt.Sprintf("rtkernel_hyperperiod_ticks_remaining %.0f\n", snapshot.hyperperiodRemain),
		"# HELP rtkernel_host_cpu_percent Host CPU utilisation percentage observed outside the kernel.\n",
		"# TYPE rtkernel_host_cpu_percent gauge\n",
		fmt.Sprintf("rtkernel_host_cpu_percent %.2f\n", snapshot.hostCPUPercent),
		"# EOF\n",
	}

	var total int64

	for _, line := range lines {
		n, err := io.WriteString(dst, line)

		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("write metrics: %w", err)
		}
	}

	return total, nil
}

type exporterSnapshot struct {
	ctxSwitches         float64
	deadlineMisses      float64
	jobsRun             float64
	runningTaskID       float64
	runningTaskPeriodic float64
	hyperperiodRemain   float64
	hostCPUPercent      float64
}

func (e *Exporter) snapshot() exporterSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return exporterSnapshot{
		ctxSwitches:         e.ctxSwitches,
		deadlineMisses:      e.deadlineMisses,
		jobsRun:             e.jobsRun,
		runningTaskID:       e.runningTaskID,
		runningTaskPeriodic: e.runningTaskPeriodic,
		hyperperiodRemain:   e.hyperperiodRemain,
		hostCPUPercent:      e.hostCPUPercent,
	}
}
