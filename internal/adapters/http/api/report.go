// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/virtualmirror/kinescreen/internal/adapters/export"
)

// ReportDependencies defines the interface for report assembly.
type ReportDependencies interface {
	Report(ctx context.Context, sessionID string) (Report, error)
}

// ReportHandler handles report requests.
type ReportHandler struct {
	deps ReportDependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps ReportDependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

// HandleGetReport handles GET /api/sessions/{id}/report?format=F requests.
// The format selects json, csv or text; json is the default. CSV and text
// responses carry a download filename built from the session's display id.
func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.report"
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	rep, err := h.deps.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDependencyError(w, op, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format != export.FormatJSON {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", format.Filename(rep.Session.DisplayID)))
	}
	_ = export.Render(w, format, rep)
}
