// Package status renders kernel health as JSON for liveness/readiness
// probes.
package status

import (
	"encoding/json"
	"net/http"

	"rtkernel/pkg/kernel"
)

// Controller exposes the status surface required by the health handler.
type Controller interface {
	Halted() bool
	HaltReason() error
	Stats() kernel.Stats
}

// Snapshot captures the kernel status returned by the handler.
type Snapshot struct {
	Halted           bool   `json:"halted"`
	HaltReason       string `json:"haltReason,omitempty"`
	CtxSwitches      uint64 `json:"ctxSwitches"`
	DeadlineMisses   int    `json:"deadlineMisses"`
	Hyperperiod      int    `json:"hyperperiod"`
	TicksUntilReport int    `json:"ticksUntilReport"`
	CurrentTask      uint16 `json:"currentTask"`
}

// Handler renders kernel health information as JSON.
type Handler struct {
	controller Controller
}

// NewHandler constructs a Handler that proxies kernel status.
func NewHandler(controller Controller) *Handler {
	return &Handler{controller: controller}
}

// ServeHTTP implements http.Handler. It reports HTTP 503 whenever the
// handler has no controller wired or the kernel has halted, so the
// surface doubles as a readiness probe.
func (h *Handler) ServeHTTP(writer http.ResponseWriter, _ *http.Request) {
	if h == nil || h.controller == nil {
		http.Error(writer, "controller unavailable", http.StatusServiceUnavailable)

		return
	}

	stats := h.controller.Stats()

	snapshot := Snapshot{
		Halted:           h.controller.Halted(),
		CtxSwitches:      stats.CtxSwitches,
		DeadlineMisses:   stats.DeadlineMisses,
		Hyperperiod:      stats.Hyperperiod,
		TicksUntilReport: stats.TicksUntilReport,
		CurrentTask:      uint16(stats.CurrentTask),
	}

	if reason := h.controller.HaltReason(); reason != nil {
		snapshot.HaltReason = reason.Error()
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		http.Error(writer, "marshal status", http.StatusInternalServerError)

		return
	}

	writer.Header().Set("Content-Type", "application/json")

	if snapshot.Halted {
		writer.WriteHeader(http.StatusServiceUnavailable)
	}

	_, _ = writer.Write(payload)
}
