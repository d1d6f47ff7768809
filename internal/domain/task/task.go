// Package task implements the six gross-motor screening tasks as evaluator
// state machines. Each evaluator consumes one pose sample per camera frame,
// in timestamp order, and emits child-facing guidance, a progress fraction
// and raw metrics. Evaluators are pure in-memory machines: no I/O, no wall
// clock, no goroutines. All timing derives from the frame timestamps.
package task

import (
	"fmt"
	"math"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/pose"
)

// Kind identifies one of the six screening tasks. The set is closed: scoring
// and grading dispatch over it with per-kind threshold tables and any other
// name is rejected at the boundary with ErrUnknownKind.
type Kind string

// The screening task set, in canonical screening order.
const (
	ArmRaise Kind = "arm_raise"
	OneLeg   Kind = "one_leg"
	Walk     Kind = "walk"
	Jump     Kind = "jump"
	TipToe   Kind = "tiptoe"
	Squat    Kind = "squat"
)

// kindOrder is the canonical screening order.
var kindOrder = []Kind{ArmRaise, OneLeg, Walk, Jump, TipToe, Squat}

// Kinds returns the task kinds in canonical screening order.
func Kinds() []Kind {
	out := make([]Kind, len(kindOrder))
	copy(out, kindOrder)
	return out
}

// ParseKind maps a wire name onto a Kind.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	for _, known := range kindOrder {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	return string(k)
}

// Title returns the short human name used in summaries and reports.
func (k Kind) Title() string {
	switch k {
	case ArmRaise:
		return "Arm raise"
	case OneLeg:
		return "One-leg balance"
	case Walk:
		return "Walking"
	case Jump:
		return "Two-foot jump"
	case TipToe:
		return "Tip-toe stand"
	case Squat:
		return "Squat"
	default:
		return string(k)
	}
}

// ScoreKey returns the metrics key under which this kind reports its
// explicit 0-2 score, e.g. "armRaiseScore".
func (k Kind) ScoreKey() string {
	switch k {
	case ArmRaise:
		return "armRaiseScore"
	case OneLeg:
		return "oneLegScore"
	case Walk:
		return "walkScore"
	case Jump:
		return "jumpScore"
	case TipToe:
		return "tiptoeScore"
	case Squat:
		return "squatScore"
	default:
		return "score"
	}
}

// Level classifies an update message for presentation.
type Level string

// Update levels.
const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelSuccess Level = "success"
)

// Update is the outcome of feeding one sample to an evaluator. Metrics are
// present on every update so consumers can chart and export them; the final
// update of a completed attempt carries the definitive set.
type Update struct {
	Message  string             `json:"message"`
	Level    Level              `json:"level"`
	Progress float64            `json:"progress"`
	Done     bool               `json:"done"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`

	// VoiceText is non-empty only when new spoken guidance should play,
	// localized per the evaluator's language parameter.
	VoiceText string `json:"voiceText,omitempty"`
}

// Evaluator is a single-task state machine. Implementations are not
// goroutine-safe: feed samples from one goroutine, in non-decreasing
// timestamp order.
type Evaluator interface {
	Kind() Kind

	// Start resets all attempt state. Calling Start on a running or
	// finished evaluator begins a fresh attempt.
	Start()

	// Update consumes one sample and returns guidance for it. Once an
	// attempt is done the evaluator stays done and re-emits its completion
	// snapshot for any further samples.
	Update(s pose.Sample) Update

	// Stop ends the attempt, freezing the current state. Safe to call at
	// any time, idempotent.
	Stop()
}

// Params carries the per-child tuning shared by the evaluators. Zero values
// select the defaults: school-age targets, no height-based conversions,
// English voice guidance.
type Params struct {
	AgeYears int
	HeightCM float64
	Language string
}

// phase is the lifecycle of a single attempt. It only moves forward: a
// running attempt either completes or is halted by Stop, and both end states
// hold until the next Start. Evaluators never reassign state outside Start
// except to advance the phase and accumulate attempt measurements.
type phase int

const (
	phaseRunning phase = iota
	phaseDone
	phaseHalted
)

// maxFrameDelta caps the per-frame time credited to hold and elapsed
// accumulators. Feed stalls and dropped frames then cost at most one frame
// of credit instead of awarding the whole gap.
const maxFrameDelta = 250 * time.Millisecond

// boundedDelta returns the frame-time advance from last to at, clamped to
// [0, maxFrameDelta]. A zero last yields 0.
func boundedDelta(last, at time.Time) time.Duration {
	if last.IsZero() {
		return 0
	}
	d := at.Sub(last)
	if d < 0 {
		return 0
	}
	if d > maxFrameDelta {
		return maxFrameDelta
	}
	return d
}

// holdTimer accumulates how long a posture has been held, from frame
// timestamps with bounded per-frame deltas. best keeps the longest hold of
// the attempt across posture breaks.
type holdTimer struct {
	last time.Time
	held time.Duration
	best time.Duration
}

// advance credits the bounded delta since the previous frame when holding,
// resets the running hold when not, and returns the running hold.
func (h *holdTimer) advance(at time.Time, holding bool) time.Duration {
	d := boundedDelta(h.last, at)
	h.last = at

	if holding {
		h.held += d
		if h.held > h.best {
			h.best = h.held
		}
	} else {
		h.held = 0
	}
	return h.held
}

// reset clears the timer for a fresh attempt.
func (h *holdTimer) reset() {
	h.last = time.Time{}
	h.held = 0
	h.best = 0
}

// stopwatch accumulates total attempt time with the same bounded deltas.
type stopwatch struct {
	last    time.Time
	elapsed time.Duration
}

// advance credits the bounded delta since the previous frame and returns
// the total elapsed time.
func (w *stopwatch) advance(at time.Time) time.Duration {
	w.elapsed += boundedDelta(w.last, at)
	w.last = at
	return w.elapsed
}

// reset clears the stopwatch for a fresh attempt.
func (w *stopwatch) reset() {
	w.last = time.Time{}
	w.elapsed = 0
}

// clamp01 clamps v into [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// progressToward blends posture attainment and hold completion into one
// fraction that never regresses when computed from best-attempt values:
// reaching the posture carries the first 80%, holding it the rest.
func progressToward(postureFrac, holdFrac float64) float64 {
	if holdFrac > 0 {
		return clamp01(0.8 + 0.2*holdFrac)
	}
	return 0.8 * clamp01(postureFrac)
}

// ratio returns part/total, or 0 for an empty total.
func ratio(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}

// round1 rounds to one decimal for stable metric reporting.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// round2 rounds to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// boolMetric encodes a stance boolean as a 0/1 metric value.
func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// youngAgeMax is the inclusive age ceiling for the reduced toddler targets
// used by the balance and walk tasks.
const youngAgeMax = 3

// outOfView is the shared guidance for frames where the child is not fully
// visible. It carries zero progress and mutates nothing but the speaker.
func outOfView(sp *speaker, metrics map[string]float64) Update {
	return Update{
		Message:   "Please step back so I can see all of you",
		Level:     LevelWarning,
		Metrics:   metrics,
		VoiceText: sp.say("common.step_into_view"),
	}
}
