package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/server/responses"
	"git.home.luguber.info/inful/pagebuilder/internal/version"
)

// MonitoringHandlers serves the health and readiness probes.
type MonitoringHandlers struct {
	ready        func() bool
	startTime    time.Time
	errorAdapter *errors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates monitoring handlers. ready reports whether the
// static home snapshot has been attempted.
func NewMonitoringHandlers(ready func() bool, logger *slog.Logger) *MonitoringHandlers {
	return &MonitoringHandlers{
		ready:        ready,
		startTime:    time.Now(),
		errorAdapter: errors.NewHTTPErrorAdapter(logger),
	}
}

// HandleHealth answers while the process serves requests.
func (h *MonitoringHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.errorAdapter, http.MethodGet) {
		return
	}
	health := &responses.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(h.startTime).Seconds(),
	}
	if err := writeJSONPretty(w, r, http.StatusOK, health); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write health response").Build())
	}
}

// HandleReady answers 503 until the home snapshot has been attempted.
func (h *MonitoringHandlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.errorAdapter, http.MethodGet) {
		return
	}
	ready := h.ready == nil || h.ready()
	resp := &responses.ReadyResponse{Status: "ready", Ready: ready, Timestamp: time.Now().UTC()}
	status := http.StatusOK
	if !ready {
		resp.Status = "starting"
		status = http.StatusServiceUnavailable
	}
	if err := writeJSONPretty(w, r, status, resp); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write readiness response").Build())
	}
}
