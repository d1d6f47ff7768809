package task

import (
	"math"

	"github.com/virtualmirror/kinescreen/internal/domain/pose"
)

// Two-footed jump thresholds.
const (
	jumpCrouchKneeDeg     = 130.0
	jumpAirGapNorm        = 0.025
	jumpMinAirFrames      = 3
	jumpSymGapNorm        = 0.04
	jumpStableLeanDeg     = 20.0
	jumpBaselineMinFrames = 3
)

// jump watches for a two-footed jump: a grounded ankle baseline, then both
// ankles clearly above it for at least three consecutive frames, then a
// landing. Takeoff and landing symmetry decide the quality score. Short
// hops return the machine to standing so the child can try again within the
// same attempt.
type jump struct {
	heightCM float64
	speak    speaker

	phase    phase
	snapshot Update

	baseline pose.Series // lower-ankle Y while grounded
	bodyNorm pose.Series // body height span while grounded

	airborne     bool
	everCrouched bool
	streak       int
	bestStreak   int
	bestRiseNorm float64
	takeoffSym   bool
	landSym      bool
	landLeanDeg  float64
}

// NewJump creates the two-footed jump evaluator. A known child height turns
// the normalized jump height into centimeters.
func NewJump(p Params) Evaluator {
	e := &jump{heightCM: p.HeightCM, speak: newSpeaker(p.Language)}
	e.Start()
	return e
}

func (e *jump) Kind() Kind { return Jump }

func (e *jump) Start() {
	e.speak.reset()
	e.phase = phaseRunning
	e.baseline.Reset()
	e.bodyNorm.Reset()
	e.airborne = false
	e.everCrouched = false
	e.streak = 0
	e.bestStreak = 0
	e.bestRiseNorm = 0
	e.takeoffSym = false
	e.landSym = false
	e.landLeanDeg = 0
	e.snapshot = Update{
		Message: "Bend your knees and jump as high as you can",
		Level:   LevelInfo,
		Metrics: e.metrics(),
	}
}

func (e *jump) Stop() {
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

func (e *jump) Update(s pose.Sample) Update {
	if e.phase != phaseRunning {
		return e.emitSnapshot()
	}

	m := s.Measurements
	if !m.Visible {
		return outOfView(&e.speak, e.metrics())
	}

	lowerAnkleY := math.Max(m.LeftAnkleY, m.RightAnkleY)
	off := e.baseline.Count() >= jumpBaselineMinFrames &&
		lowerAnkleY < e.baseline.Mean()-jumpAirGapNorm

	if off {
		if !e.airborne {
			e.airborne = true
			e.streak = 0
			e.takeoffSym = m.AnkleGapY() < jumpSymGapNorm
		}
		e.streak++
		if e.streak > e.bestStreak {
			e.bestStreak = e.streak
		}
		if rise := e.baseline.Mean() - lowerAnkleY; rise > e.bestRiseNorm {
			e.bestRiseNorm = rise
		}
		return Update{
			Message:  "You're flying!",
			Level:    LevelInfo,
			Progress: e.progress(),
			Metrics:  e.metrics(),
		}
	}

	// Grounded frame.
	e.baseline.Append(lowerAnkleY)
	if m.BodyHeightNorm > 0 {
		e.bodyNorm.Append(m.BodyHeightNorm)
	}

	if e.airborne {
		e.airborne = false
		if e.streak >= jumpMinAirFrames {
			e.landSym = m.AnkleGapY() < jumpSymGapNorm
			e.landLeanDeg = m.TrunkLeanDeg
			return e.finish()
		}
		e.streak = 0
		return Update{
			Message:   "Almost! Jump a little higher",
			Level:     LevelWarning,
			Progress:  e.progress(),
			Metrics:   e.metrics(),
			VoiceText: e.speak.say("jump.higher"),
		}
	}

	crouched := m.AvgKneeAngleDeg() <= jumpCrouchKneeDeg
	if crouched {
		e.everCrouched = true
	}

	u := Update{
		Level:    LevelInfo,
		Progress: e.progress(),
		Metrics:  e.metrics(),
	}
	if crouched {
		u.Message = "Now jump!"
		u.VoiceText = e.speak.say("jump.now")
	} else {
		u.Message = "Bend your knees and jump as high as you can"
		u.VoiceText = e.speak.say("jump.prompt")
	}
	return u
}

func (e *jump) emitSnapshot() Update {
	u := e.snapshot
	e.snapshot.VoiceText = ""
	return u
}

func (e *jump) finish() Update {
	e.phase = phaseDone
	e.snapshot = Update{
		Message:   "Wow, what a big jump!",
		Level:     LevelSuccess,
		Progress:  1,
		Done:      true,
		Metrics:   e.metrics(),
		VoiceText: phrase(e.speak.lang, "jump.success"),
	}
	return e.emitSnapshot()
}

// score applies the jump rubric: a symmetric takeoff and a stable symmetric
// landing score 2, any real flight scores 1.
func (e *jump) score() int {
	switch {
	case e.phase == phaseDone && e.takeoffSym && e.landSym && e.landLeanDeg < jumpStableLeanDeg:
		return 2
	case e.phase == phaseDone || e.bestStreak >= jumpMinAirFrames:
		return 1
	default:
		return 0
	}
}

func (e *jump) progress() float64 {
	p := float64(e.bestStreak) / float64(jumpMinAirFrames)
	if p == 0 && e.everCrouched {
		p = 0.2
	}
	return clamp01(p)
}

// heightPct is the best flight rise as a percentage of standing body height.
func (e *jump) heightPct() float64 {
	if e.bodyNorm.Mean() <= 0 {
		return 0
	}
	return e.bestRiseNorm / e.bodyNorm.Mean() * 100
}

func (e *jump) metrics() map[string]float64 {
	ms := map[string]float64{
		"airborneFrames":   float64(e.bestStreak),
		"jumpHeightPct":    round1(e.heightPct()),
		"takeoffTwoFooted": boolMetric(e.takeoffSym),
		"landingTwoFooted": boolMetric(e.landSym),
		"landingLeanDeg":   round1(e.landLeanDeg),
		"jumpScore":        float64(e.score()),
	}
	if e.heightCM > 0 {
		ms["jumpHeightCm"] = round1(e.heightPct() / 100 * e.heightCM)
	}
	return ms
}
