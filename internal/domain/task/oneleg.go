package task

import (
	"fmt"
	"math"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/pose"
)

// One-leg balance thresholds.
const (
	onelegHoldYoung      = 3 * time.Second
	onelegHoldDefault    = 5 * time.Second
	onelegMinHold        = time.Second
	onelegLiftGapNorm    = 0.04
	onelegCleanLeanDeg   = 20.0
	onelegFairLeanDeg    = 30.0
	onelegSwayStepNorm   = 0.012
	onelegCleanSwayRatio = 0.1
)

// oneLeg checks a single-leg stance held steady for an age-banded target.
// Either leg counts; a dropped foot resets the running hold but the best
// hold of the attempt is kept.
type oneLeg struct {
	target time.Duration
	speak  speaker
	hold   holdTimer

	phase    phase
	snapshot Update

	everLifted   bool
	liftedFrames int
	swayFrames   int
	maxLeanDeg   float64
	prevHipX     float64
	hasPrevHip   bool
}

// NewOneLeg creates the one-leg balance evaluator. Toddlers get the reduced
// hold target; an unknown age gets the full one.
func NewOneLeg(p Params) Evaluator {
	target := onelegHoldDefault
	if p.AgeYears > 0 && p.AgeYears <= youngAgeMax {
		target = onelegHoldYoung
	}
	e := &oneLeg{target: target, speak: newSpeaker(p.Language)}
	e.Start()
	return e
}

func (e *oneLeg) Kind() Kind { return OneLeg }

func (e *oneLeg) Start() {
	e.speak.reset()
	e.hold.reset()
	e.phase = phaseRunning
	e.everLifted = false
	e.liftedFrames = 0
	e.swayFrames = 0
	e.maxLeanDeg = 0
	e.prevHipX = 0
	e.hasPrevHip = false
	e.snapshot = Update{
		Message: "Stand on one leg like a flamingo",
		Level:   LevelInfo,
		Metrics: e.metrics(),
	}
}

func (e *oneLeg) Stop() {
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

func (e *oneLeg) Update(s pose.Sample) Update {
	if e.phase != phaseRunning {
		return e.emitSnapshot()
	}

	m := s.Measurements
	if !m.Visible {
		e.hasPrevHip = false
		return outOfView(&e.speak, e.metrics())
	}

	lifted := m.AnkleGapY() >= onelegLiftGapNorm
	if lifted {
		e.everLifted = true
		e.liftedFrames++
		e.maxLeanDeg = math.Max(e.maxLeanDeg, m.TrunkLeanDeg)
		if e.hasPrevHip && math.Abs(m.HipMidX-e.prevHipX) > onelegSwayStepNorm {
			e.swayFrames++
		}
	}
	e.prevHipX = m.HipMidX
	e.hasPrevHip = true

	held := e.hold.advance(s.At, lifted)
	if held >= e.target {
		return e.finish()
	}

	u := Update{
		Level:    LevelInfo,
		Progress: e.progress(),
		Metrics:  e.metrics(),
	}

	switch {
	case lifted && m.TrunkLeanDeg > onelegFairLeanDeg:
		u.Message = "Try to stay nice and steady"
		u.Level = LevelWarning
		u.VoiceText = e.speak.say("one_leg.steady")
	case lifted:
		remaining := math.Ceil((e.target - held).Seconds())
		u.Message = fmt.Sprintf("Keep holding! %.0f seconds to go", remaining)
		u.VoiceText = e.speak.say("one_leg.hold")
	case e.everLifted:
		u.Message = "Oops! Lift your foot up again"
		u.Level = LevelWarning
		u.VoiceText = e.speak.say("one_leg.again")
	default:
		u.Message = "Stand on one leg like a flamingo"
		u.VoiceText = e.speak.say("one_leg.prompt")
	}

	return u
}

func (e *oneLeg) emitSnapshot() Update {
	u := e.snapshot
	e.snapshot.VoiceText = ""
	return u
}

func (e *oneLeg) finish() Update {
	e.phase = phaseDone
	e.snapshot = Update{
		Message:   "Amazing balance!",
		Level:     LevelSuccess,
		Progress:  1,
		Done:      true,
		Metrics:   e.metrics(),
		VoiceText: phrase(e.speak.lang, "one_leg.success"),
	}
	return e.emitSnapshot()
}

// score applies the one-leg rubric: a clean full hold scores 2, a second or
// more with either half the target or a mostly upright trunk scores 1.
func (e *oneLeg) score() int {
	best := e.hold.best
	sway := ratio(e.swayFrames, e.liftedFrames)
	switch {
	case best >= e.target && e.maxLeanDeg < onelegCleanLeanDeg && sway < onelegCleanSwayRatio:
		return 2
	case best >= onelegMinHold && (2*best >= e.target || e.maxLeanDeg < onelegFairLeanDeg):
		return 1
	default:
		return 0
	}
}

func (e *oneLeg) progress() float64 {
	return clamp01(float64(e.hold.best) / float64(e.target))
}

func (e *oneLeg) metrics() map[string]float64 {
	return map[string]float64{
		"holdSeconds":     round2(e.hold.best.Seconds()),
		"targetSeconds":   e.target.Seconds(),
		"maxTrunkLeanDeg": round1(e.maxLeanDeg),
		"swayRatio":       round2(ratio(e.swayFrames, e.liftedFrames)),
		"oneLegScore":     float64(e.score()),
	}
}
