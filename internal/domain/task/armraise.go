package task

import (
	"math"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/pose"
)

// Arms-overhead raise thresholds.
const (
	armFullRaiseDeg     = 150.0
	armPartialRaiseDeg  = 90.0
	armElbowExtendedDeg = 170.0
	armHoldTarget       = time.Second
	armCompLeanDeg      = 20.0
	armMaxCompRatio     = 0.3
)

// armRaise checks whether both arms reach overhead with extended elbows,
// held for a second, without the trunk compensating for a stiff shoulder.
type armRaise struct {
	speak speaker
	hold  holdTimer

	phase    phase
	snapshot Update

	maxLeftDeg   float64
	maxRightDeg  float64
	bestElbowDeg float64
	raisedFrames int
	compFrames   int
}

// NewArmRaise creates the arms-overhead raise evaluator.
func NewArmRaise(p Params) Evaluator {
	e := &armRaise{speak: newSpeaker(p.Language)}
	e.Start()
	return e
}

func (e *armRaise) Kind() Kind { return ArmRaise }

func (e *armRaise) Start() {
	e.speak.reset()
	e.hold.reset()
	e.phase = phaseRunning
	e.maxLeftDeg = 0
	e.maxRightDeg = 0
	e.bestElbowDeg = 0
	e.raisedFrames = 0
	e.compFrames = 0
	e.snapshot = Update{
		Message: "Raise both arms up high over your head",
		Level:   LevelInfo,
		Metrics: e.metrics(),
	}
}

func (e *armRaise) Stop() {
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

func (e *armRaise) Update(s pose.Sample) Update {
	if e.phase != phaseRunning {
		return e.emitSnapshot()
	}

	m := s.Measurements
	if !m.Visible {
		return outOfView(&e.speak, e.metrics())
	}

	e.maxLeftDeg = math.Max(e.maxLeftDeg, m.LeftShoulderFlexionDeg)
	e.maxRightDeg = math.Max(e.maxRightDeg, m.RightShoulderFlexionDeg)

	raised := m.LeftShoulderFlexionDeg >= armPartialRaiseDeg ||
		m.RightShoulderFlexionDeg >= armPartialRaiseDeg
	if raised {
		e.raisedFrames++
		if ext := math.Min(m.LeftElbowAngleDeg, m.RightElbowAngleDeg); ext > e.bestElbowDeg {
			e.bestElbowDeg = ext
		}
		if m.TrunkLeanDeg > armCompLeanDeg {
			e.compFrames++
		}
	}

	atFull := m.LeftShoulderFlexionDeg >= armFullRaiseDeg &&
		m.RightShoulderFlexionDeg >= armFullRaiseDeg
	if e.hold.advance(s.At, atFull) >= armHoldTarget {
		return e.finish()
	}

	u := Update{
		Level:    LevelInfo,
		Progress: e.progress(),
		Metrics:  e.metrics(),
	}

	switch {
	case raised && m.TrunkLeanDeg > armCompLeanDeg:
		u.Message = "Keep your back nice and straight"
		u.Level = LevelWarning
		u.VoiceText = e.speak.say("arm_raise.back")
	case atFull:
		u.Message = "Hold your arms up high"
		u.VoiceText = e.speak.say("arm_raise.hold")
	case raised:
		u.Message = "Lift both arms together"
		u.VoiceText = e.speak.say("arm_raise.both")
	default:
		u.Message = "Raise both arms up high over your head"
		u.VoiceText = e.speak.say("arm_raise.prompt")
	}

	return u
}

// emitSnapshot returns the frozen final update, speaking its voice line at
// most once.
func (e *armRaise) emitSnapshot() Update {
	u := e.snapshot
	e.snapshot.VoiceText = ""
	return u
}

func (e *armRaise) finish() Update {
	e.phase = phaseDone
	e.snapshot = Update{
		Message:   "Great job, your arms went so high!",
		Level:     LevelSuccess,
		Progress:  1,
		Done:      true,
		Metrics:   e.metrics(),
		VoiceText: phrase(e.speak.lang, "arm_raise.success"),
	}
	return e.emitSnapshot()
}

// score applies the arms-overhead rubric to the best-attempt state so far.
// Heavy trunk compensation spoils the clean score, but an arm that still
// reached partial range keeps its point; zero is reserved for attempts where
// neither arm got there.
func (e *armRaise) score() int {
	switch {
	case e.hold.best >= armHoldTarget && e.bestElbowDeg >= armElbowExtendedDeg &&
		ratio(e.compFrames, e.raisedFrames) <= armMaxCompRatio:
		return 2
	case e.maxLeftDeg >= armPartialRaiseDeg || e.maxRightDeg >= armPartialRaiseDeg:
		return 1
	default:
		return 0
	}
}

func (e *armRaise) progress() float64 {
	posture := math.Min(e.maxLeftDeg, e.maxRightDeg) / armFullRaiseDeg
	return progressToward(posture, float64(e.hold.best)/float64(armHoldTarget))
}

func (e *armRaise) metrics() map[string]float64 {
	return map[string]float64{
		"leftShoulderMaxDeg":  round1(e.maxLeftDeg),
		"rightShoulderMaxDeg": round1(e.maxRightDeg),
		"elbowExtensionDeg":   round1(e.bestElbowDeg),
		"compensationRatio":   round2(ratio(e.compFrames, e.raisedFrames)),
		"holdSeconds":         round2(e.hold.best.Seconds()),
		"armRaiseScore":       float64(e.score()),
	}
}
