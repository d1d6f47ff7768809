package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/virtualmirror/kinescreen/internal/domain/model"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
	"github.com/virtualmirror/kinescreen/pkg/metrics"
)

// defaultBusyTimeout bounds how long a statement waits on a locked database
// before giving up.
const defaultBusyTimeout = 5 * time.Second

// schema is applied on open. Metric rows hang off their task result and both
// cascade away with their session.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                TEXT PRIMARY KEY,
	display_id        INTEGER NOT NULL UNIQUE,
	child_name        TEXT NOT NULL,
	child_age         INTEGER NOT NULL DEFAULT 0,
	child_height_cm   REAL NOT NULL DEFAULT 0,
	child_weight_kg   REAL NOT NULL DEFAULT 0,
	child_gender      TEXT NOT NULL DEFAULT '',
	child_notes       TEXT NOT NULL DEFAULT '',
	session_type      TEXT NOT NULL,
	parent_session_id TEXT,
	started_at        INTEGER NOT NULL,
	completed_at      INTEGER,
	risk_level        TEXT NOT NULL DEFAULT '',
	overall_pct       REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_sessions_parent ON sessions(parent_session_id);

CREATE TABLE IF NOT EXISTS task_results (
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	task        TEXT NOT NULL,
	score       INTEGER NOT NULL,
	level       TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT '[]',
	duration_s  REAL NOT NULL DEFAULT 0,
	recorded_at INTEGER NOT NULL,
	PRIMARY KEY (session_id, task)
);

CREATE TABLE IF NOT EXISTS task_metrics (
	session_id TEXT NOT NULL,
	task       TEXT NOT NULL,
	name       TEXT NOT NULL,
	value      REAL NOT NULL,
	PRIMARY KEY (session_id, task, name),
	FOREIGN KEY (session_id, task) REFERENCES task_results(session_id, task) ON DELETE CASCADE
);
`

const sessionColumns = `id, display_id, child_name, child_age, child_height_cm,
	child_weight_kg, child_gender, child_notes, session_type, parent_session_id,
	started_at, completed_at, risk_level, overall_pct`

// SQLiteStore is a Store backed by an embedded SQLite database. Timestamps
// are stored as integer nanoseconds so range scans and ordering stay cheap.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
}

// NewSQLiteStore opens the database at path, creating it and its schema when
// missing. The pool is capped at one connection so statements serialize
// instead of tripping over SQLITE_BUSY.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{busyTimeout: defaultBusyTimeout}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", s.busyTimeout.Milliseconds()),
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s.db = db
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession implements Store.CreateSession.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess model.Session) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.DisplayID, sess.Child.Name, sess.Child.AgeYears,
		sess.Child.HeightCM, sess.Child.WeightKG, sess.Child.Gender,
		sess.Child.Notes, string(sess.Type), nullString(sess.ParentSessionID),
		sess.StartedAt.UnixNano(), nullTime(sess.CompletedAt),
		sess.RiskLevel, sess.OverallPct,
	)
	if err != nil {
		if strings.Contains(err.Error(), "sessions.display_id") {
			return ErrDisplayIDTaken
		}
		metrics.RecordStoreError()
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Session implements Store.Session.
func (s *SQLiteStore) Session(ctx context.Context, id string) (model.Session, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError()
		return model.Session{}, fmt.Errorf("query session: %w", err)
	}
	return sess, nil
}

// Sessions implements Store.Sessions. SQLite reads a negative limit as no
// limit.
func (s *SQLiteStore) Sessions(ctx context.Context, limit int) ([]model.Session, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	if limit <= 0 {
		limit = -1
	}
	return s.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		ORDER BY started_at DESC, id LIMIT ?`, limit)
}

// Followups implements Store.Followups.
func (s *SQLiteStore) Followups(ctx context.Context, parentID string) ([]model.Session, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	return s.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE parent_session_id = ? ORDER BY started_at, id`, parentID)
}

// DeleteSession implements Store.DeleteSession. Results and metrics cascade
// away with the session; follow-ups survive with their parent link cleared.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("begin delete session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions SET parent_session_id = NULL WHERE parent_session_id = ?`, id,
	); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("unlink followups: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// SaveResult implements Store.SaveResult. The result row and its metric rows
// are replaced together in one transaction.
func (s *SQLiteStore) SaveResult(ctx context.Context, r model.TaskResult) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	notes, err := json.Marshal(r.Notes)
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("begin save result: %w", err)
	}
	defer tx.Rollback()

	var one int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, r.SessionID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		metrics.RecordStoreError()
		return fmt.Errorf("check session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM task_metrics WHERE session_id = ? AND task = ?`,
		r.SessionID, string(r.Kind),
	); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("clear metrics: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO task_results
			(session_id, task, score, level, notes, duration_s, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, string(r.Kind), r.Score, r.Level, string(notes),
		r.DurationS, r.RecordedAt.UnixNano(),
	); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("upsert result: %w", err)
	}

	for name, value := range r.Metrics {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO task_metrics (session_id, task, name, value)
			VALUES (?, ?, ?, ?)`,
			r.SessionID, string(r.Kind), name, value,
		); err != nil {
			metrics.RecordStoreError()
			return fmt.Errorf("insert metric %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("commit result: %w", err)
	}
	return nil
}

// Results implements Store.Results, attaching each result's metric rows.
func (s *SQLiteStore) Results(ctx context.Context, sessionID string) ([]model.TaskResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		metrics.RecordStoreError()
		return nil, fmt.Errorf("check session: %w", err)
	}

	results, err := s.queryResults(ctx, sessionID)
	if err != nil {
		metrics.RecordStoreError()
		return nil, err
	}

	byTask, err := s.queryMetrics(ctx, sessionID)
	if err != nil {
		metrics.RecordStoreError()
		return nil, err
	}
	for i := range results {
		results[i].Metrics = byTask[results[i].Kind]
	}
	return results, nil
}

// SetOutcome implements Store.SetOutcome.
func (s *SQLiteStore) SetOutcome(ctx context.Context, id string, risk string, overallPct float64, at time.Time) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET completed_at = ?, risk_level = ?, overall_pct = ?
		WHERE id = ?`,
		at.UnixNano(), risk, overallPct, id,
	)
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("set outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("set outcome: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats implements Store.Stats.
func (s *SQLiteStore) Stats(ctx context.Context, now time.Time) (model.SessionStats, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	var st model.SessionStats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&st.TotalSessions); err != nil {
		metrics.RecordStoreError()
		return model.SessionStats{}, fmt.Errorf("count sessions: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(overall_pct), 0)
		FROM sessions WHERE completed_at IS NOT NULL`).Scan(&st.Completed, &st.AvgOverallPct); err != nil {
		metrics.RecordStoreError()
		return model.SessionStats{}, fmt.Errorf("count completed: %w", err)
	}
	st.AvgOverallPct = math.Round(st.AvgOverallPct*10) / 10

	weekAgo := now.Add(-7 * 24 * time.Hour).UnixNano()
	monthAgo := now.Add(-30 * 24 * time.Hour).UnixNano()
	if err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN started_at >= ? THEN 1 END),
			COUNT(CASE WHEN started_at >= ? THEN 1 END)
		FROM sessions`, weekAgo, monthAgo).Scan(&st.ThisWeek, &st.ThisMonth); err != nil {
		metrics.RecordStoreError()
		return model.SessionStats{}, fmt.Errorf("count recent: %w", err)
	}

	counts, err := s.queryRiskCounts(ctx)
	if err != nil {
		metrics.RecordStoreError()
		return model.SessionStats{}, err
	}
	if len(counts) > 0 {
		st.RiskCounts = counts
	}
	return st, nil
}

// PruneIncomplete implements Store.PruneIncomplete. Results and metrics
// cascade away with their session.
func (s *SQLiteStore) PruneIncomplete(ctx context.Context, cutoff time.Time) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE completed_at IS NULL AND started_at < ?`,
		cutoff.UnixNano(),
	)
	if err != nil {
		metrics.RecordStoreError()
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		metrics.RecordStoreError()
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) querySessions(ctx context.Context, query string, args ...any) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			metrics.RecordStoreError()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) queryResults(ctx context.Context, sessionID string) ([]model.TaskResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task, score, level, notes, duration_s, recorded_at
		FROM task_results WHERE session_id = ?
		ORDER BY recorded_at, task`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []model.TaskResult
	for rows.Next() {
		var (
			r        model.TaskResult
			kind     string
			notes    string
			recorded int64
		)
		if err := rows.Scan(&kind, &r.Score, &r.Level, &notes, &r.DurationS, &recorded); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.SessionID = sessionID
		r.Kind = task.Kind(kind)
		r.RecordedAt = time.Unix(0, recorded).UTC()
		if notes != "" {
			if err := json.Unmarshal([]byte(notes), &r.Notes); err != nil {
				return nil, fmt.Errorf("decode notes: %w", err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) queryMetrics(ctx context.Context, sessionID string) (map[task.Kind]map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task, name, value FROM task_metrics WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	byTask := make(map[task.Kind]map[string]float64)
	for rows.Next() {
		var (
			kind  string
			name  string
			value float64
		)
		if err := rows.Scan(&kind, &name, &value); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		m := byTask[task.Kind(kind)]
		if m == nil {
			m = make(map[string]float64)
			byTask[task.Kind(kind)] = m
		}
		m[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	return byTask, nil
}

func (s *SQLiteStore) queryRiskCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT risk_level, COUNT(*) FROM sessions
		WHERE completed_at IS NOT NULL AND risk_level != ''
		GROUP BY risk_level`)
	if err != nil {
		return nil, fmt.Errorf("query risk counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			risk string
			n    int
		)
		if err := rows.Scan(&risk, &n); err != nil {
			return nil, fmt.Errorf("scan risk count: %w", err)
		}
		counts[risk] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (model.Session, error) {
	var (
		sess      model.Session
		sType     string
		parent    sql.NullString
		startedAt int64
		completed sql.NullInt64
	)
	err := row.Scan(&sess.ID, &sess.DisplayID, &sess.Child.Name,
		&sess.Child.AgeYears, &sess.Child.HeightCM, &sess.Child.WeightKG,
		&sess.Child.Gender, &sess.Child.Notes, &sType, &parent,
		&startedAt, &completed, &sess.RiskLevel, &sess.OverallPct)
	if err != nil {
		return model.Session{}, err
	}
	sess.Type = model.SessionType(sType)
	sess.ParentSessionID = parent.String
	sess.StartedAt = time.Unix(0, startedAt).UTC()
	if completed.Valid {
		t := time.Unix(0, completed.Int64).UTC()
		sess.CompletedAt = &t
	}
	return sess, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
