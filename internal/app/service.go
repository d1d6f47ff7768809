// Package service provides the core screening service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/virtualmirror/kinescreen/internal/adapters/export"
	"github.com/virtualmirror/kinescreen/internal/adapters/repository"
	"github.com/virtualmirror/kinescreen/internal/domain/assessment"
	"github.com/virtualmirror/kinescreen/internal/domain/grading"
	"github.com/virtualmirror/kinescreen/internal/domain/model"
	"github.com/virtualmirror/kinescreen/internal/domain/norms"
	"github.com/virtualmirror/kinescreen/internal/domain/scoring"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
	"github.com/virtualmirror/kinescreen/pkg/logger"
	"github.com/virtualmirror/kinescreen/pkg/metrics"
)

// Display ids are the short codes families use to look a session up: four
// digits, drawn at random, unique among stored sessions. The store's
// uniqueness constraint is the arbiter; collisions just redraw.
const (
	displayIDMin      = 1000
	displayIDSpan     = 9000
	maxDisplayIDTries = 50
)

// Service defaults.
const (
	defaultDBPath      = "kinescreen.db"
	defaultRetention   = 24 * time.Hour
	defaultMaintenance = time.Hour
)

// Service implements the API dependencies for the screening system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store repository.Store

	// Configuration
	dbPath           string
	retention        time.Duration
	maintenanceEvery time.Duration

	// State
	started  bool
	stopCh   chan struct{}
	loopDone chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a pre-built session store. When set, Start skips
// opening the SQLite file; Stop still closes the store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDBPath sets the SQLite session store location.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithRetention sets how long incomplete sessions are kept before the
// maintenance loop prunes them. Zero disables pruning.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.retention = d
		}
	}
}

// WithMaintenanceInterval sets the cadence of the maintenance loop.
func WithMaintenanceInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maintenanceEvery = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:           defaultDBPath,
		retention:        defaultRetention,
		maintenanceEvery: defaultMaintenance,
		stopCh:           make(chan struct{}),
		logger:           nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the session store and spawns the maintenance loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting screening service...")

	if s.store == nil {
		store, err := repository.NewSQLiteStore(s.dbPath)
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		s.store = store
	}

	s.loopDone = make(chan struct{})
	go s.maintenanceLoop(ctx)

	s.started = true
	s.logger.Info(ctx, "screening service started",
		logger.String("db", s.dbPath),
		logger.Duration("retention", s.retention),
		logger.Duration("maintenanceInterval", s.maintenanceEvery),
	)

	return nil
}

// Stop gracefully shuts down the service. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping screening service...")

	// Signal the maintenance loop to stop and wait for it
	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}
	if s.loopDone != nil {
		<-s.loopDone
	}

	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "screening service stopped")
}

// Started reports whether the service is running.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// CreateSession registers a new screening run. A follow-up must name an
// existing parent session.
func (s *Service) CreateSession(ctx context.Context, child model.Child, typ model.SessionType, parentID string) (model.Session, error) {
	if typ == model.SessionFollowup && parentID == "" {
		return model.Session{}, fmt.Errorf("follow-up needs a parent session: %w", model.ErrInvalidSessionType)
	}
	if parentID != "" {
		if _, err := s.store.Session(ctx, parentID); err != nil {
			return model.Session{}, fmt.Errorf("parent session: %w", err)
		}
	}

	sess := model.Session{
		ID:              uuid.New().String(),
		Child:           child,
		Type:            typ,
		ParentSessionID: parentID,
		StartedAt:       time.Now().UTC(),
	}

	for try := 0; ; try++ {
		sess.DisplayID = displayIDMin + rand.Intn(displayIDSpan) //nolint:gosec // display ids are lookup codes, not secrets
		err := s.store.CreateSession(ctx, sess)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDisplayIDTaken) || try >= maxDisplayIDTries-1 {
			return model.Session{}, fmt.Errorf("create session: %w", err)
		}
	}

	metrics.RecordSessionCreated()
	s.logger.Info(ctx, "session created",
		logger.String("id", sess.ID),
		logger.Int("displayId", sess.DisplayID),
		logger.String("type", string(sess.Type)),
	)
	return sess, nil
}

// Session returns one stored session.
func (s *Service) Session(ctx context.Context, id string) (model.Session, error) {
	sess, err := s.store.Session(ctx, id)
	if err != nil {
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// Sessions lists stored sessions, newest first. limit <= 0 returns all.
func (s *Service) Sessions(ctx context.Context, limit int) ([]model.Session, error) {
	sessions, err := s.store.Sessions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Followups lists the follow-up sessions recorded for a parent session,
// oldest first. An unknown parent simply has none.
func (s *Service) Followups(ctx context.Context, parentID string) ([]model.Session, error) {
	followups, err := s.store.Followups(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list followups: %w", err)
	}
	return followups, nil
}

// DeleteSession removes a session and its recorded results. Follow-ups that
// referenced it survive as standalone sessions.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.Info(ctx, "session deleted", logger.String("id", id))
	return nil
}

// ResultInput carries one client-reported task attempt. Score, level and
// notes are derived here, not trusted from the wire.
type ResultInput struct {
	Kind      task.Kind
	Metrics   map[string]float64
	DurationS float64
	Notes     []string
}

// RecordResult scores and grades a task attempt and stores it. Re-recording
// a kind within a session replaces the earlier result; a summarized session
// no longer accepts results.
func (s *Service) RecordResult(ctx context.Context, sessionID string, in ResultInput) (model.TaskResult, error) {
	sess, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return model.TaskResult{}, fmt.Errorf("record result: %w", err)
	}
	if sess.Completed() {
		return model.TaskResult{}, fmt.Errorf("record result: %w", ErrSessionComplete)
	}

	score := scoring.Extract(in.Kind, in.Metrics)
	findings := grading.Evaluate(in.Kind, in.Metrics, sess.Child.AgeYears)

	notes := make([]string, 0, len(in.Notes)+len(findings))
	notes = append(notes, in.Notes...)
	for _, f := range findings {
		if f.Grade.Note != "" {
			notes = append(notes, f.Grade.Note)
		}
	}
	if len(notes) == 0 {
		notes = nil
	}

	res := model.TaskResult{
		SessionID:  sessionID,
		Kind:       in.Kind,
		Score:      score,
		Level:      string(worstLevel(findings)),
		Notes:      notes,
		DurationS:  in.DurationS,
		Metrics:    in.Metrics,
		RecordedAt: time.Now().UTC(),
	}
	if err := s.store.SaveResult(ctx, res); err != nil {
		return model.TaskResult{}, fmt.Errorf("record result: %w", err)
	}

	metrics.RecordResultRecorded(in.Kind.String())
	s.logger.Info(ctx, "task result recorded",
		logger.String("session", sessionID),
		logger.String("task", in.Kind.String()),
		logger.Int("score", score),
	)
	return res, nil
}

// Results lists the recorded task results for a session.
func (s *Service) Results(ctx context.Context, sessionID string) ([]model.TaskResult, error) {
	results, err := s.store.Results(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// Outcome is the aggregated reading the summary endpoint returns.
type Outcome struct {
	Session model.Session      `json:"session"`
	Summary assessment.Summary `json:"summary"`
	Norms   *norms.Analysis    `json:"norms,omitempty"`
}

// Summarize aggregates the recorded results into the session's risk reading
// and persists it, marking the session complete. Summarizing again
// recomputes and overwrites the stored outcome.
func (s *Service) Summarize(ctx context.Context, sessionID string) (Outcome, error) {
	sess, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("summarize: %w", err)
	}
	results, err := s.store.Results(ctx, sessionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("summarize: %w", err)
	}

	summary, analysis := assess(sess, results)

	now := time.Now().UTC()
	if err := s.store.SetOutcome(ctx, sessionID, string(summary.Risk), summary.Percentage, now); err != nil {
		return Outcome{}, fmt.Errorf("summarize: %w", err)
	}
	metrics.RecordSummary(string(summary.Risk))

	sess.RiskLevel = string(summary.Risk)
	sess.OverallPct = summary.Percentage
	sess.CompletedAt = &now

	s.logger.Info(ctx, "session summarized",
		logger.String("id", sessionID),
		logger.String("risk", string(summary.Risk)),
		logger.Float64("percentage", summary.Percentage),
	)
	return Outcome{Session: sess, Summary: summary, Norms: analysis}, nil
}

// Report assembles the exportable report for a session. Reporting never
// mutates stored state; the aggregate is recomputed from the recorded
// results, so a report can be drawn before the session is summarized.
func (s *Service) Report(ctx context.Context, sessionID string) (export.Report, error) {
	sess, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return export.Report{}, fmt.Errorf("report: %w", err)
	}
	results, err := s.store.Results(ctx, sessionID)
	if err != nil {
		return export.Report{}, fmt.Errorf("report: %w", err)
	}

	summary, analysis := assess(sess, results)
	return export.Report{
		GeneratedAt: time.Now().UTC(),
		Session:     sess,
		Results:     results,
		Summary:     summary,
		Norms:       analysis,
	}, nil
}

// Stats returns store-wide session statistics and refreshes the gauges.
func (s *Service) Stats(ctx context.Context) (model.SessionStats, error) {
	stats, err := s.store.Stats(ctx, time.Now().UTC())
	if err != nil {
		return model.SessionStats{}, fmt.Errorf("stats: %w", err)
	}
	metrics.UpdateSessionsTotal(stats.TotalSessions)
	metrics.UpdateAverageScore(stats.AvgOverallPct)
	return stats, nil
}

// assess recomputes the aggregate and the normative read from recorded
// results. The normative analysis attaches only when at least one domain
// had measurable input.
func assess(sess model.Session, results []model.TaskResult) (assessment.Summary, *norms.Analysis) {
	scores := make(map[task.Kind]int, len(results))
	measured := make(map[task.Kind]map[string]float64, len(results))
	for _, r := range results {
		scores[r.Kind] = r.Score
		if len(r.Metrics) > 0 {
			measured[r.Kind] = r.Metrics
		}
	}

	summary := assessment.Aggregate(scores)
	analysis := norms.Analyze(norms.FromTaskMetrics(measured), sess.Child.AgeYears)
	if len(analysis.Domains) == 0 {
		return summary, nil
	}
	return summary, &analysis
}

// worstLevel folds graded findings into the single reported level.
func worstLevel(findings []grading.Finding) grading.Level {
	level := grading.Normal
	for _, f := range findings {
		switch f.Grade.Level {
		case grading.Abnormal:
			return grading.Abnormal
		case grading.Borderline:
			level = grading.Borderline
		}
	}
	return level
}

// maintenanceLoop prunes stale incomplete sessions and refreshes the
// store-level gauges until the service stops.
func (s *Service) maintenanceLoop(ctx context.Context) {
	defer close(s.loopDone)

	ticker := time.NewTicker(s.maintenanceEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runMaintenance(ctx)
		}
	}
}

func (s *Service) runMaintenance(ctx context.Context) {
	if s.retention > 0 {
		cutoff := time.Now().UTC().Add(-s.retention)
		pruned, err := s.store.PruneIncomplete(ctx, cutoff)
		switch {
		case err != nil:
			s.logger.Error(ctx, "pruning incomplete sessions failed", logger.Error(err))
		case pruned > 0:
			s.logger.Info(ctx, "pruned stale incomplete sessions", logger.Int("count", pruned))
		}
	}

	stats, err := s.store.Stats(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error(ctx, "stats refresh failed", logger.Error(err))
		return
	}
	metrics.UpdateSessionsTotal(stats.TotalSessions)
	metrics.UpdateAverageScore(stats.AvgOverallPct)
}
