package handler

import (
	"net/http"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// StatusSource produces the current system snapshot. The engine implements
// it; the report it returns is already sanitized.
type StatusSource interface {
	Status() domain.StatusReport
}

// StatusHandler serves the full system snapshot for dashboards.
type StatusHandler struct {
	source StatusSource
}

// NewStatusHandler creates a StatusHandler over the given source.
func NewStatusHandler(source StatusSource) *StatusHandler {
	return &StatusHandler{source: source}
}

// GetStatus responds with the current status report.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.Status())
}
