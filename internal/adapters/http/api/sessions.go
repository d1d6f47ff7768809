// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/virtualmirror/kinescreen/internal/domain/model"
)

// SessionDependencies defines the interface for session lifecycle operations.
type SessionDependencies interface {
	CreateSession(ctx context.Context, child model.Child, typ model.SessionType, parentID string) (Session, error)
	Session(ctx context.Context, id string) (Session, error)
	Sessions(ctx context.Context, limit int) ([]Session, error)
	Followups(ctx context.Context, parentID string) ([]Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// SessionsHandler handles session lifecycle requests.
type SessionsHandler struct {
	deps    SessionDependencies
	maxList int
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies, maxList int) *SessionsHandler {
	return &SessionsHandler{deps: deps, maxList: maxList}
}

// HandleCreateSession handles POST /api/sessions requests.
func (h *SessionsHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	typ, err := model.ParseSessionType(req.SessionType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	child := model.Child{
		Name:     strings.TrimSpace(req.Name),
		AgeYears: req.AgeYears,
		HeightCM: req.HeightCM,
		WeightKG: req.WeightKG,
		Gender:   strings.TrimSpace(req.Gender),
		Notes:    strings.TrimSpace(req.Notes),
	}
	sess, err := h.deps.CreateSession(r.Context(), child, typ, strings.TrimSpace(req.ParentSessionID))
	if err != nil {
		writeDependencyError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// HandleListSessions handles GET /api/sessions?limit=N requests. The limit
// defaults to the configured cap and may not exceed it.
func (h *SessionsHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_sessions"
	limit := h.maxList
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxList {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	sessions, err := h.deps.Sessions(r.Context(), limit)
	if err != nil {
		writeDependencyError(w, op, err)
		return
	}
	if sessions == nil {
		sessions = []Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// HandleGetSession handles GET /api/sessions/{id} requests.
func (h *SessionsHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	sess, err := h.deps.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDependencyError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// deleteSessionResponse confirms which session was removed.
type deleteSessionResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// HandleDeleteSession handles DELETE /api/sessions/{id} requests. Recorded
// results go with the session; follow-ups survive with the parent link
// cleared.
func (h *SessionsHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_session"
	id := chi.URLParam(r, "id")
	if err := h.deps.DeleteSession(r.Context(), id); err != nil {
		writeDependencyError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteSessionResponse{Message: "session deleted", SessionID: id})
}

// HandleListFollowups handles GET /api/sessions/{id}/followups requests.
// A session without follow-ups yields an empty list, not an error.
func (h *SessionsHandler) HandleListFollowups(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_followups"
	followups, err := h.deps.Followups(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDependencyError(w, op, err)
		return
	}
	if followups == nil {
		followups = []Session{}
	}
	writeJSON(w, http.StatusOK, followups)
}
