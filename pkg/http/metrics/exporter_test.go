package metrics_test

import (
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rtkernel/pkg/http/metrics"
	"rtkernel/pkg/kernel"
)

const openMetricsContentType = "application/openmetrics-text; version=1.0.0; charset=utf-8"

var errFailingWriter = errors.New("metrics: failing writer")

func TestExporterRenderProducesOpenMetrics(t *testing.T) {
	t.Parallel()

	exporter := metrics.NewExporter()
	exporter.SetCtxSwitches(42)
	exporter.SetDeadlineMisses(3)
	exporter.SetJobsRun(10)
	exporter.SetRunningTask(kernel.TaskID(2), true)
	exporter.SetHyperperiodRemaining(150)
	exporter.ObserveHostCPU(0.6789)

	body, err := exporter.Render()
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}

	got := string(body)
	expected := strings.Join([]string{
		"# HELP rtkernel_ctx_switches_total Cumulative number of dispatcher context switches.",
		"# TYPE rtkernel_ctx_switches_total counter",
		"rtkernel_ctx_switches_total 42",
		"# HELP rtkernel_deadline_misses Periodic deadline misses during the most recent hyperperiod.",
		"# TYPE rtkernel_deadline_misses gauge",
		"rtkernel_deadline_misses 3",
		"# HELP rtkernel_jobs_run Tasks dispatched at least once during the most recent hyperperiod.",
		"# TYPE rtkernel_jobs_run gauge",
		"rtkernel_jobs_run 10",
		"# HELP rtkernel_running_task_id Identifier of the task currently selected to run.",
		"# TYPE rtkernel_running_task_id gauge",
		"rtkernel_running_task_id 2",
		"# HELP rtkernel_running_task_periodic Whether the running task is periodic (1) or aperiodic (0).",
		"# TYPE rtkernel_running_task_periodic gauge",
		"rtkernel_running_task_periodic 1",
		"# HELP rtkernel_hyperperiod_ticks_remaining Ticks remaining until the current hyperperiod closes.",
		"# TYPE rtkernel_hyperperiod_ticks_remaining gauge",
		"rtkernel_hyperperiod_ticks_remaining 150",
		"# HELP rtkernel_host_cpu_percent Host CPU utilisation percentage observed outside the kernel.",
		"# TYPE rtkernel_host_cpu_percent gauge",
		"rtkernel_host_cpu_percent 67.89",
		"# EOF",
		"",
	}, "\n")

	if got != expected {
		t.Fatalf("unexpected metrics output:\nexpected:\n%s\n\nactual:\n%s", expected, got)
	}
}

func TestExporterServeHTTPWritesContentType(t *testing.T) {
	t.Parallel()

	exporter := metrics.NewExporter()
	exporter.SetRunningTask(kernel.TaskID(1), false)

	recorder := httptest.NewRecorder()
	exporter.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", recorder.Code)
	}

	if got := recorder.Header().Get("Content-Type"); got != openMetricsContentType {
		t.Fatalf("unexpected content type: %q", got)
	}
}

func TestExporterWriteToPropagatesWriterErrors(t *testing.T) {
	t.Parallel()

	exporter := metrics.NewExporter()
	exporter.SetJobsRun(1)

	_, err := exporter.WriteTo(failingWriter{})
	if err == nil {
		t.Fatal("expected error from WriteTo")
	}

	if !strings.Contains(err.Error(), "write metrics") {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestExporterGuardsAgainstInvalidInputs(t *testing.T) {
	t.Parallel()

	exporter := metrics.NewExporter()
	exporter.SetHyperperiodRemaining(-5)
	exporter.ObserveHostCPU(math.Inf(1))
	exporter.ObserveHostCPU(math.NaN())

	data, err := exporter.Render()
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}

	output := string(data)
	if !strings.Contains(output, "rtkernel_hyperperiod_ticks_remaining 0") {
		t.Fatalf("expected clamped remaining ticks, got %s", output)
	}

	if !strings.Contains(output, "rtkernel_host_cpu_percent 0.00") {
		t.Fatalf("expected clamped host cpu percent, got %s", output)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errFailingWriter
}
