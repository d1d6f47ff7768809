package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/model"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
	"github.com/virtualmirror/kinescreen/pkg/metrics"
)

// MemoryStore is an in-memory Store. It backs tests and throwaway runs where
// nothing should outlive the process; semantics match the SQLite store.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]model.Session
	displayIDs map[int]string
	results    map[string]map[task.Kind]model.TaskResult
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]model.Session),
		displayIDs: make(map[int]string),
		results:    make(map[string]map[task.Kind]model.TaskResult),
	}
}

// Close implements Store.Close.
func (m *MemoryStore) Close() error {
	return nil
}

// CreateSession implements Store.CreateSession.
func (m *MemoryStore) CreateSession(ctx context.Context, s model.Session) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.displayIDs[s.DisplayID]; ok {
		return ErrDisplayIDTaken
	}
	m.sessions[s.ID] = copySession(s)
	m.displayIDs[s.DisplayID] = s.ID
	return nil
}

// Session implements Store.Session.
func (m *MemoryStore) Session(ctx context.Context, id string) (model.Session, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return copySession(s), nil
}

// Sessions implements Store.Sessions.
func (m *MemoryStore) Sessions(ctx context.Context, limit int) ([]model.Session, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	m.mu.RLock()
	out := make([]model.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, copySession(s))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Followups implements Store.Followups.
func (m *MemoryStore) Followups(ctx context.Context, parentID string) ([]model.Session, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	m.mu.RLock()
	var out []model.Session
	for _, s := range m.sessions {
		if s.ParentSessionID == parentID {
			out = append(out, copySession(s))
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteSession implements Store.DeleteSession. Follow-ups survive with
// their parent link cleared, matching the SQLite store.
func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	delete(m.displayIDs, s.DisplayID)
	delete(m.results, id)
	for cid, c := range m.sessions {
		if c.ParentSessionID == id {
			c.ParentSessionID = ""
			m.sessions[cid] = c
		}
	}
	return nil
}

// SaveResult implements Store.SaveResult.
func (m *MemoryStore) SaveResult(ctx context.Context, r model.TaskResult) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[r.SessionID]; !ok {
		return ErrNotFound
	}
	byKind := m.results[r.SessionID]
	if byKind == nil {
		byKind = make(map[task.Kind]model.TaskResult)
		m.results[r.SessionID] = byKind
	}
	byKind[r.Kind] = copyResult(r)
	return nil
}

// Results implements Store.Results.
func (m *MemoryStore) Results(ctx context.Context, sessionID string) ([]model.TaskResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	m.mu.RLock()
	_, ok := m.sessions[sessionID]
	if !ok {
		m.mu.RUnlock()
		return nil, ErrNotFound
	}
	var out []model.TaskResult
	for _, r := range m.results[sessionID] {
		out = append(out, copyResult(r))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return out[i].Kind < out[j].Kind
	})
	return out, nil
}

// SetOutcome implements Store.SetOutcome.
func (m *MemoryStore) SetOutcome(ctx context.Context, id string, risk string, overallPct float64, at time.Time) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	completed := at
	s.CompletedAt = &completed
	s.RiskLevel = risk
	s.OverallPct = overallPct
	m.sessions[id] = s
	return nil
}

// Stats implements Store.Stats.
func (m *MemoryStore) Stats(ctx context.Context, now time.Time) (model.SessionStats, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		st  model.SessionStats
		sum float64
	)
	risk := make(map[string]int)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)
	for _, s := range m.sessions {
		st.TotalSessions++
		if !s.StartedAt.Before(weekAgo) {
			st.ThisWeek++
		}
		if !s.StartedAt.Before(monthAgo) {
			st.ThisMonth++
		}
		if s.Completed() {
			st.Completed++
			sum += s.OverallPct
			if s.RiskLevel != "" {
				risk[s.RiskLevel]++
			}
		}
	}
	if st.Completed > 0 {
		st.AvgOverallPct = math.Round(sum/float64(st.Completed)*10) / 10
	}
	if len(risk) > 0 {
		st.RiskCounts = risk
	}
	return st, nil
}

// PruneIncomplete implements Store.PruneIncomplete.
func (m *MemoryStore) PruneIncomplete(ctx context.Context, cutoff time.Time) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.CompletedAt == nil && s.StartedAt.Before(cutoff) {
			delete(m.sessions, id)
			delete(m.displayIDs, s.DisplayID)
			delete(m.results, id)
			n++
		}
	}
	return n, nil
}

// copySession isolates stored state from caller mutation. Child carries only
// scalars, so the pointer field is the one needing a fresh allocation.
func copySession(s model.Session) model.Session {
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		s.CompletedAt = &t
	}
	return s
}

func copyResult(r model.TaskResult) model.TaskResult {
	if r.Notes != nil {
		r.Notes = append([]string(nil), r.Notes...)
	}
	if r.Metrics != nil {
		mm := make(map[string]float64, len(r.Metrics))
		for k, v := range r.Metrics {
			mm[k] = v
		}
		r.Metrics = mm
	}
	return r
}
