// Package model contains the persistent records passed between layers.
package model

import (
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/task"
)

// SessionType distinguishes a first screening from a follow-up linked to it.
type SessionType string

// Session types.
const (
	SessionInitial  SessionType = "initial"
	SessionFollowup SessionType = "followup"
)

// ParseSessionType maps a wire value onto a SessionType. Empty input selects
// the initial type.
func ParseSessionType(s string) (SessionType, error) {
	switch SessionType(s) {
	case "":
		return SessionInitial, nil
	case SessionInitial:
		return SessionInitial, nil
	case SessionFollowup:
		return SessionFollowup, nil
	default:
		return "", ErrInvalidSessionType
	}
}

// Child is the demographic snapshot captured when a session starts. Age and
// height are optional; zero means unknown and the engine falls back to its
// adult-like thresholds and unit-less jump normalization.
type Child struct {
	Name     string  `json:"name"`
	AgeYears int     `json:"ageYears,omitempty"`
	HeightCM float64 `json:"heightCm,omitempty"`
	WeightKG float64 `json:"weightKg,omitempty"`
	Gender   string  `json:"gender,omitempty"`
	Notes    string  `json:"notes,omitempty"`
}

// Session is one screening run for one child. DisplayID is the short code
// families use to retrieve results; it is unique among stored sessions.
// RiskLevel and OverallPct are filled when the session is summarized.
type Session struct {
	ID              string      `json:"id"`
	DisplayID       int         `json:"displayId"`
	Child           Child       `json:"child"`
	Type            SessionType `json:"sessionType"`
	ParentSessionID string      `json:"parentSessionId,omitempty"`
	StartedAt       time.Time   `json:"startedAt"`
	CompletedAt     *time.Time  `json:"completedAt,omitempty"`
	RiskLevel       string      `json:"riskLevel,omitempty"`
	OverallPct      float64     `json:"overallPercentage,omitempty"`
}

// Completed reports whether the session has been summarized.
func (s Session) Completed() bool {
	return s.CompletedAt != nil
}

// TaskResult is the recorded outcome of one task attempt. Score, level and
// notes are computed server-side from the metrics; within a session the
// latest recording of a kind replaces any earlier one.
type TaskResult struct {
	SessionID  string             `json:"sessionId"`
	Kind       task.Kind          `json:"task"`
	Score      int                `json:"score"`
	Level      string             `json:"level,omitempty"`
	Notes      []string           `json:"notes,omitempty"`
	DurationS  float64            `json:"durationSeconds,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	RecordedAt time.Time          `json:"recordedAt"`
}

// SessionStats aggregates store-wide counts for the dashboard.
type SessionStats struct {
	TotalSessions int            `json:"totalSessions"`
	Completed     int            `json:"completedSessions"`
	RiskCounts    map[string]int `json:"riskCounts,omitempty"`
	ThisWeek      int            `json:"sessionsThisWeek"`
	ThisMonth     int            `json:"sessionsThisMonth"`
	AvgOverallPct float64        `json:"averageOverallPercentage"`
}
