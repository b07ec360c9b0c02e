package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// OutcomeSource lists recent trade outcomes, newest first. The Postgres
// store satisfies it directly; without persistence the app wraps the
// ledger's in-memory log.
type OutcomeSource interface {
	ListRecent(ctx context.Context, limit int) ([]domain.TradeOutcome, error)
}

// OutcomeHandler serves the trade-outcome history endpoints.
type OutcomeHandler struct {
	source OutcomeSource
	logger *slog.Logger
}

// NewOutcomeHandler creates an OutcomeHandler over the given source.
func NewOutcomeHandler(source OutcomeSource, logger *slog.Logger) *OutcomeHandler {
	return &OutcomeHandler{source: source, logger: logger}
}

// listOutcomesResponse wraps the outcome list response.
type listOutcomesResponse struct {
	Outcomes []domain.TradeOutcome `json:"outcomes"`
}

// ListOutcomes returns the most recent trade outcomes.
// GET /api/outcomes?limit=50
func (h *OutcomeHandler) ListOutcomes(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.source.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list outcomes failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list outcomes")
		return
	}

	if outcomes == nil {
		outcomes = []domain.TradeOutcome{}
	}
	writeJSON(w, http.StatusOK, listOutcomesResponse{Outcomes: outcomes})
}
