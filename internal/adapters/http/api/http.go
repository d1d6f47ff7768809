// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/virtualmirror/kinescreen/internal/adapters/export"
	"github.com/virtualmirror/kinescreen/internal/adapters/repository"
	service "github.com/virtualmirror/kinescreen/internal/app"
	"github.com/virtualmirror/kinescreen/internal/domain/model"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
	"github.com/virtualmirror/kinescreen/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	ResultDependencies
	SummaryDependencies
	ReportDependencies
	StatsDependencies
}

// Wire shapes are aliases of the owning packages' types so handlers and
// clients of this package agree on a single definition.
type (
	Session      = model.Session
	TaskResult   = model.TaskResult
	SessionStats = model.SessionStats
	ResultInput  = service.ResultInput
	Outcome      = service.Outcome
	Report       = export.Report
)

// Validation bounds for the child snapshot. Zero values read as unknown, so
// only clearly impossible inputs are rejected.
const (
	maxChildAge      = 18
	maxChildHeightCM = 220
	maxChildWeightKG = 150
)

const defaultMaxSessionList = 100

// Config carries the router-level settings for the server.
type Config struct {
	// CORSOrigins lists allowed browser origins. Empty means any.
	CORSOrigins []string

	// MaxSessionList caps the limit parameter on session listings.
	MaxSessionList int
}

// Server wires HTTP routes for the screening API.
type Server struct {
	router *chi.Mux

	sessionsHandler *SessionsHandler
	resultsHandler  *ResultsHandler
	summaryHandler  *SummaryHandler
	reportHandler   *ReportHandler
	statsHandler    *StatsHandler
	healthHandler   *HealthHandler

	corsOrigins []string
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, cfg Config) *Server {
	maxList := cfg.MaxSessionList
	if maxList <= 0 {
		maxList = defaultMaxSessionList
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		sessionsHandler: NewSessionsHandler(deps, maxList),
		resultsHandler:  NewResultsHandler(deps),
		summaryHandler:  NewSummaryHandler(deps),
		reportHandler:   NewReportHandler(deps),
		statsHandler:    NewStatsHandler(deps),
		healthHandler:   NewHealthHandler(),
		corsOrigins:     origins,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", MetricsMiddleware(s.sessionsHandler.HandleCreateSession, "create_session"))
			r.Get("/", MetricsMiddleware(s.sessionsHandler.HandleListSessions, "list_sessions"))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", MetricsMiddleware(s.sessionsHandler.HandleGetSession, "get_session"))
				r.Delete("/", MetricsMiddleware(s.sessionsHandler.HandleDeleteSession, "delete_session"))
				r.Get("/followups", MetricsMiddleware(s.sessionsHandler.HandleListFollowups, "list_followups"))
				r.Post("/results", MetricsMiddleware(s.resultsHandler.HandleRecordResult, "record_result"))
				r.Get("/results", MetricsMiddleware(s.resultsHandler.HandleListResults, "list_results"))
				r.Get("/summary", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "summary"))
				r.Get("/report", MetricsMiddleware(s.reportHandler.HandleGetReport, "report"))
			})
		})
		r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	})

	s.router = r
}

// createSessionRequest mirrors the OpenAPI schema for POST /api/sessions.
type createSessionRequest struct {
	Name            string  `json:"name"`
	AgeYears        int     `json:"ageYears"`
	HeightCM        float64 `json:"heightCm"`
	WeightKG        float64 `json:"weightKg"`
	Gender          string  `json:"gender"`
	Notes           string  `json:"notes"`
	SessionType     string  `json:"sessionType"`
	ParentSessionID string  `json:"parentSessionId"`
}

func (c createSessionRequest) validate() error {
	switch {
	case c.AgeYears < 0 || c.AgeYears > maxChildAge:
		return errors.New("ageYears out of range")
	case c.HeightCM < 0 || c.HeightCM > maxChildHeightCM:
		return errors.New("heightCm out of range")
	case c.WeightKG < 0 || c.WeightKG > maxChildWeightKG:
		return errors.New("weightKg out of range")
	}
	return nil
}

// resultRequest mirrors the OpenAPI schema for POST /api/sessions/{id}/results.
type resultRequest struct {
	Task            string             `json:"task"`
	Metrics         map[string]float64 `json:"metrics"`
	DurationSeconds float64            `json:"durationSeconds"`
	Notes           []string           `json:"notes"`
}

func (r resultRequest) validate() error {
	switch {
	case r.Task == "":
		return errors.New("missing task")
	case r.DurationSeconds < 0:
		return errors.New("durationSeconds must not be negative")
	}
	return nil
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDependencyError translates service and store sentinels onto HTTP
// status codes.
func writeDependencyError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, service.ErrSessionComplete):
		writeError(w, http.StatusConflict, "session_complete", Wrap(op, err))
	case errors.Is(err, model.ErrInvalidSessionType), errors.Is(err, task.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
