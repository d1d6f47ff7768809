// Package repository defines the screening session store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/model"
)

// Store provides read/write access to screening sessions and their results.
type Store interface {
	// CreateSession persists a new session.
	// Returns ErrDisplayIDTaken when the display ID is already in use.
	CreateSession(ctx context.Context, s model.Session) error

	// Session returns the session with the given ID.
	// Returns ErrNotFound if the session is unknown.
	Session(ctx context.Context, id string) (model.Session, error)

	// Sessions returns up to limit sessions, newest first.
	// A non-positive limit returns all sessions.
	Sessions(ctx context.Context, limit int) ([]model.Session, error)

	// Followups returns the follow-up sessions linked to a parent session,
	// oldest first.
	Followups(ctx context.Context, parentID string) ([]model.Session, error)

	// DeleteSession removes a session and its results. Follow-up sessions
	// survive with their parent link cleared. Returns ErrNotFound for an
	// unknown session.
	DeleteSession(ctx context.Context, id string) error

	// SaveResult records a task result for a session, replacing any earlier
	// result for the same task. Returns ErrNotFound for an unknown session.
	SaveResult(ctx context.Context, r model.TaskResult) error

	// Results returns the recorded task results for a session.
	// Returns ErrNotFound for an unknown session.
	Results(ctx context.Context, sessionID string) ([]model.TaskResult, error)

	// SetOutcome marks a session completed with its summarized risk level and
	// overall percentage. Returns ErrNotFound for an unknown session.
	SetOutcome(ctx context.Context, id string, risk string, overallPct float64, at time.Time) error

	// Stats aggregates store-wide session counts relative to now.
	Stats(ctx context.Context, now time.Time) (model.SessionStats, error)

	// PruneIncomplete removes sessions started before cutoff that were never
	// completed, returning how many were removed.
	PruneIncomplete(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases the store's resources.
	Close() error
}
