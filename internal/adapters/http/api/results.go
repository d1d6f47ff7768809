// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/virtualmirror/kinescreen/internal/domain/task"
)

// ResultDependencies defines the interface for task result operations.
type ResultDependencies interface {
	RecordResult(ctx context.Context, sessionID string, in ResultInput) (TaskResult, error)
	Results(ctx context.Context, sessionID string) ([]TaskResult, error)
}

// ResultsHandler handles task result requests.
type ResultsHandler struct {
	deps ResultDependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// HandleRecordResult handles POST /api/sessions/{id}/results requests. The
// task name must come from the screening set; score, level and notes are
// derived server-side from the posted metrics.
func (h *ResultsHandler) HandleRecordResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_result"
	var req resultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	kind, err := task.ParseKind(req.Task)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.RecordResult(r.Context(), chi.URLParam(r, "id"), ResultInput{
		Kind:      kind,
		Metrics:   req.Metrics,
		DurationS: req.DurationSeconds,
		Notes:     req.Notes,
	})
	if err != nil {
		writeDependencyError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// HandleListResults handles GET /api/sessions/{id}/results requests.
func (h *ResultsHandler) HandleListResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_results"
	results, err := h.deps.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDependencyError(w, op, err)
		return
	}
	if results == nil {
		results = []TaskResult{}
	}
	writeJSON(w, http.StatusOK, results)
}
