// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SummaryDependencies defines the interface for summary generation.
type SummaryDependencies interface {
	Summarize(ctx context.Context, sessionID string) (Outcome, error)
}

// SummaryHandler handles summary requests.
type SummaryHandler struct {
	deps SummaryDependencies
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps SummaryDependencies) *SummaryHandler {
	return &SummaryHandler{deps: deps}
}

// HandleGetSummary handles GET /api/sessions/{id}/summary requests. Reading
// the summary is what completes a session: the aggregated risk and score
// persist onto it, and further results are rejected afterwards.
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.summary"
	out, err := h.deps.Summarize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDependencyError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
