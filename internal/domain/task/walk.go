package task

import (
	"fmt"
	"math"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/debounce"
	"github.com/virtualmirror/kinescreen/internal/domain/pose"
)

// Gait walk thresholds.
const (
	walkTargetYoung        = 5
	walkTargetDefault      = 10
	walkMinSteps           = 3
	walkStepDebounce       = 300 * time.Millisecond
	walkLossDebounce       = time.Second
	walkLiftGapNorm        = 0.03
	walkUnstableLeanDeg    = 15.0
	walkLossLeanDeg        = 25.0
	walkCleanUnstableRatio = 0.2
	walkCleanMaxLosses     = 3
)

// walk counts debounced step plants up to an age-banded target while
// watching trunk stability. A foot is in swing while its ankle sits clearly
// above the other; the plant that ends the swing is the step event.
type walk struct {
	target   int
	speak    speaker
	stepGate debounce.Gate
	lossGate debounce.Gate
	clock    stopwatch

	phase    phase
	snapshot Update

	leftLifted     bool
	rightLifted    bool
	leftSteps      int
	rightSteps     int
	leftAmp        pose.Series
	rightAmp       pose.Series
	frames         int
	unstableFrames int
	losses         int
	maxLeanDeg     float64
}

// NewWalk creates the gait walk evaluator. Toddlers get the reduced step
// target; an unknown age gets the full one.
func NewWalk(p Params) Evaluator {
	target := walkTargetDefault
	if p.AgeYears > 0 && p.AgeYears <= youngAgeMax {
		target = walkTargetYoung
	}
	e := &walk{
		target:   target,
		speak:    newSpeaker(p.Language),
		stepGate: debounce.NewGate(debounce.WithMinInterval(walkStepDebounce)),
		lossGate: debounce.NewGate(debounce.WithMinInterval(walkLossDebounce)),
	}
	e.Start()
	return e
}

func (e *walk) Kind() Kind { return Walk }

func (e *walk) Start() {
	e.speak.reset()
	e.stepGate.Reset()
	e.lossGate.Reset()
	e.clock.reset()
	e.phase = phaseRunning
	e.leftLifted = false
	e.rightLifted = false
	e.leftSteps = 0
	e.rightSteps = 0
	e.leftAmp.Reset()
	e.rightAmp.Reset()
	e.frames = 0
	e.unstableFrames = 0
	e.losses = 0
	e.maxLeanDeg = 0
	e.snapshot = Update{
		Message: "Walk towards me one step at a time",
		Level:   LevelInfo,
		Metrics: e.metrics(),
	}
}

func (e *walk) Stop() {
	if e.phase != phaseRunning {
		return
	}
	e.phase = phaseHalted
	e.snapshot = Update{
		Message:  "All done!",
		Level:    LevelInfo,
		Progress: e.progress(),
		Metrics:  e.metrics(),
	}
}

func (e *walk) Update(s pose.Sample) Update {
	if e.phase != phaseRunning {
		return e.emitSnapshot()
	}

	m := s.Measurements
	if !m.Visible {
		// Re-detect swing state when the child comes back into view.
		e.leftLifted = false
		e.rightLifted = false
		return outOfView(&e.speak, e.metrics())
	}

	e.frames++
	e.clock.advance(s.At)
	e.maxLeanDeg = math.Max(e.maxLeanDeg, m.TrunkLeanDeg)
	if m.TrunkLeanDeg > walkUnstableLeanDeg {
		e.unstableFrames++
	}
	if m.TrunkLeanDeg > walkLossLeanDeg && e.lossGate.Allow("balance", s.At) {
		e.losses++
	}

	leftUp := m.LeftAnkleY < m.RightAnkleY-walkLiftGapNorm
	rightUp := m.RightAnkleY < m.LeftAnkleY-walkLiftGapNorm

	stepped := false
	if e.leftLifted && !leftUp && e.stepGate.Allow("left", s.At) {
		e.leftSteps++
		e.leftAmp.Append(math.Abs(m.LeftAnkleX - m.RightAnkleX))
		stepped = true
	}
	if e.rightLifted && !rightUp && e.stepGate.Allow("right", s.At) {
		e.rightSteps++
		e.rightAmp.Append(math.Abs(m.LeftAnkleX - m.RightAnkleX))
		stepped = true
	}
	e.leftLifted = leftUp
	e.rightLifted = rightUp

	if e.total() >= e.target {
		return e.finish()
	}

	u := Update{
		Level:    LevelInfo,
		Progress: e.progress(),
		Metrics:  e.metrics(),
	}

	switch {
	case m.TrunkLeanDeg > walkLossLeanDeg:
		u.Message = "Walk slowly and stay steady"
		u.Level = LevelWarning
		u.VoiceText = e.speak.say("walk.steady")
	case stepped || e.total() > 0:
		u.Message = fmt.Sprintf("%d steps, keep going!", e.total())
		u.VoiceText = e.speak.say("walk.keep")
	default:
		u.Message = "Walk towards me one step at a time"
		u.VoiceText = e.speak.say("walk.prompt")
	}

	return u
}

func (e *walk) emitSnapshot() Update {
	u := e.snapshot
	e.snapshot.VoiceText = ""
	return u
}

func (e *walk) finish() Update {
	e.phase = phaseDone
	e.snapshot = Update{
		Message:   "Wonderful walking!",
		Level:     LevelSuccess,
		Progress:  1,
		Done:      true,
		Metrics:   e.metrics(),
		VoiceText: phrase(e.speak.lang, "walk.success"),
	}
	return e.emitSnapshot()
}

func (e *walk) total() int {
	return e.leftSteps + e.rightSteps
}

// score applies the walk rubric: the full target with a steady trunk scores
// 2, three or more steps score 1.
func (e *walk) score() int {
	switch {
	case e.total() >= e.target &&
		ratio(e.unstableFrames, e.frames) < walkCleanUnstableRatio &&
		e.losses < walkCleanMaxLosses:
		return 2
	case e.total() >= walkMinSteps:
		return 1
	default:
		return 0
	}
}

func (e *walk) progress() float64 {
	return clamp01(float64(e.total()) / float64(e.target))
}

// cadence in steps per minute, from accumulated frame time.
func (e *walk) cadence() float64 {
	sec := e.clock.elapsed.Seconds()
	if sec <= 0 {
		return 0
	}
	return float64(e.total()) / sec * 60
}

func (e *walk) metrics() map[string]float64 {
	return map[string]float64{
		"stepCount":          float64(e.total()),
		"leftSteps":          float64(e.leftSteps),
		"rightSteps":         float64(e.rightSteps),
		"targetSteps":        float64(e.target),
		"cadenceSpm":         round1(e.cadence()),
		"stepAmplitudeLeft":  round2(e.leftAmp.Mean()),
		"stepAmplitudeRight": round2(e.rightAmp.Mean()),
		"gaitSymmetryPct":    round1(pose.SymmetryPercent(e.leftAmp.Mean(), e.rightAmp.Mean())),
		"unstableRatio":      round2(ratio(e.unstableFrames, e.frames)),
		"balanceLossCount":   float64(e.losses),
		"maxTrunkLeanDeg":    round1(e.maxLeanDeg),
		"walkScore":          float64(e.score()),
	}
}
