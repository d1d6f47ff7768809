package task

import (
	"fmt"
	"math"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/pose"
)

// Tip-toe stand thresholds.
const (
	tiptoeHoldTarget     = 3 * time.Second
	tiptoeCleanLeanDeg   = 20.0
	tiptoeMoveStepNorm   = 0.008
	tiptoeCleanMoveRatio = 0.05
	tiptoeCleanDropRatio = 0.05
)

// tipToe checks a heels-up, arms-overhead stand held for three seconds.
// Once the posture has been reached, dropped heels and foot drift are
// counted against the attempt.
type tipToe struct {
	speak speaker
	hold  holdTimer

	phase    phase
	snapshot Update

	everPosture   bool
	attemptFrames int
	moveFrames    int
	dropFrames    int
	maxLeanDeg    float64
	prevLX        float64
	prevLY        float64
	prevRX        float64
	prevRY        float64
	hasPrev       bool
}

// NewTipToe creates the tip-toe stand evaluator.
func NewTipToe(p Params) Evaluator {
	e := &tipToe{speak: newSpeaker(p.Language)}
	e.Start()
	return e
}

func (e *tipToe) Kind() Kind { return TipToe }

func (e *tipToe) Start() {
	e.speak.reset()
	e.hold.reset()
	e.phase = phaseRunning
	e.everPosture = false
	e.attemptFrames = 0
	e.moveFrames = 0
	e.dropFrames = 0
	e.maxLeanDeg = 0
	e.hasPrev = false
	e.snapshot = Update{
		Message: "Stand on your tip-toes and reach for the sky",
		Level:   LevelInfo,
		Metrics: e.metrics(),
	}
}

func (e *tipToe) Stop() {
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

func (e *tipToe) Update(s pose.Sample) Update {
	if e.phase != phaseRunning {
		return e.emitSnapshot()
	}

	m := s.Measurements
	if !m.Visible {
		e.hasPrev = false
		return outOfView(&e.speak, e.metrics())
	}

	posture := m.BothHeelsLifted() && m.ArmsOverhead
	if posture {
		e.everPosture = true
	}

	if e.everPosture {
		e.attemptFrames++
		if !m.BothHeelsLifted() {
			e.dropFrames++
		}
		if posture {
			e.maxLeanDeg = math.Max(e.maxLeanDeg, m.TrunkLeanDeg)
			if e.hasPrev {
				drift := (math.Hypot(m.LeftAnkleX-e.prevLX, m.LeftAnkleY-e.prevLY) +
					math.Hypot(m.RightAnkleX-e.prevRX, m.RightAnkleY-e.prevRY)) / 2
				if drift > tiptoeMoveStepNorm {
					e.moveFrames++
				}
			}
		}
	}
	e.prevLX, e.prevLY = m.LeftAnkleX, m.LeftAnkleY
	e.prevRX, e.prevRY = m.RightAnkleX, m.RightAnkleY
	e.hasPrev = true

	held := e.hold.advance(s.At, posture)
	if held >= tiptoeHoldTarget {
		return e.finish()
	}

	u := Update{
		Level:    LevelInfo,
		Progress: e.progress(),
		Metrics:  e.metrics(),
	}

	switch {
	case posture:
		remaining := math.Ceil((tiptoeHoldTarget - held).Seconds())
		u.Message = fmt.Sprintf("Keep holding! %.0f seconds to go", remaining)
		u.VoiceText = e.speak.say("tiptoe.hold")
	case e.everPosture && !m.BothHeelsLifted():
		u.Message = "Keep those heels up"
		u.Level = LevelWarning
		u.VoiceText = e.speak.say("tiptoe.drop")
	case m.BothHeelsLifted():
		u.Message = "Now stretch your arms up high"
		u.VoiceText = e.speak.say("tiptoe.arms")
	case m.ArmsOverhead:
		u.Message = "Lift your heels off the ground"
		u.VoiceText = e.speak.say("tiptoe.heels")
	default:
		u.Message = "Stand on your tip-toes and reach for the sky"
		u.VoiceText = e.speak.say("tiptoe.prompt")
	}

	return u
}

func (e *tipToe) emitSnapshot() Update {
	u := e.snapshot
	e.snapshot.VoiceText = ""
	return u
}

func (e *tipToe) finish() Update {
	e.phase = phaseDone
	e.snapshot = Update{
		Message:   "Fantastic, you reached the sky!",
		Level:     LevelSuccess,
		Progress:  1,
		Done:      true,
		Metrics:   e.metrics(),
		VoiceText: phrase(e.speak.lang, "tiptoe.success"),
	}
	return e.emitSnapshot()
}

// score applies the tip-toe rubric: the full clean hold scores 2, at least
// half of it scores 1.
func (e *tipToe) score() int {
	switch {
	case e.phase == phaseDone &&
		e.maxLeanDeg < tiptoeCleanLeanDeg &&
		ratio(e.moveFrames, e.attemptFrames) < tiptoeCleanMoveRatio &&
		ratio(e.dropFrames, e.attemptFrames) < tiptoeCleanDropRatio:
		return 2
	case 2*e.hold.best >= tiptoeHoldTarget:
		return 1
	default:
		return 0
	}
}

func (e *tipToe) progress() float64 {
	return clamp01(float64(e.hold.best) / float64(tiptoeHoldTarget))
}

func (e *tipToe) metrics() map[string]float64 {
	return map[string]float64{
		"holdSeconds":     round2(e.hold.best.Seconds()),
		"targetSeconds":   tiptoeHoldTarget.Seconds(),
		"maxTrunkLeanDeg": round1(e.maxLeanDeg),
		"movementRatio":   round2(ratio(e.moveFrames, e.attemptFrames)),
		"heelDropRatio":   round2(ratio(e.dropFrames, e.attemptFrames)),
		"tiptoeScore":     float64(e.score()),
	}
}
