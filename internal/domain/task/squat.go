package task

import (
	"math"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/pose"
)

// Squat thresholds. Knee angles shrink as the squat deepens: 180 is
// standing, parallel sits around 100.
const (
	squatParallelKneeDeg  = 100.0
	squatPartialKneeDeg   = 140.0
	squatHoldTarget       = time.Second
	squatCleanValgusRatio = 0.2
	squatCleanHeelRatio   = 0.2
)

// squat checks a held parallel squat with the knees tracking over the toes
// and the heels down.
type squat struct {
	speak speaker
	hold  holdTimer

	phase    phase
	snapshot Update

	minKneeDeg   float64
	squatFrames  int
	valgusFrames int
	heelFrames   int
	maxLeanDeg   float64
}

// NewSquat creates the squat evaluator.
func NewSquat(p Params) Evaluator {
	e := &squat{speak: newSpeaker(p.Language)}
	e.Start()
	return e
}

func (e *squat) Kind() Kind { return Squat }

func (e *squat) Start() {
	e.speak.reset()
	e.hold.reset()
	e.phase = phaseRunning
	e.minKneeDeg = 180
	e.squatFrames = 0
	e.valgusFrames = 0
	e.heelFrames = 0
	e.maxLeanDeg = 0
	e.snapshot = Update{
		Message: "Bend your knees and squat down like a frog",
		Level:   LevelInfo,
		Metrics: e.metrics(),
	}
}

func (e *squat) Stop() {
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

func (e *squat) Update(s pose.Sample) Update {
	if e.phase != phaseRunning {
		return e.emitSnapshot()
	}

	m := s.Measurements
	if !m.Visible {
		return outOfView(&e.speak, e.metrics())
	}

	avgKnee := m.AvgKneeAngleDeg()
	if avgKnee < e.minKneeDeg {
		e.minKneeDeg = avgKnee
	}

	inSquat := avgKnee <= squatPartialKneeDeg
	if inSquat {
		e.squatFrames++
		if m.KneeValgus {
			e.valgusFrames++
		}
		if m.LeftHeelLifted || m.RightHeelLifted {
			e.heelFrames++
		}
		e.maxLeanDeg = math.Max(e.maxLeanDeg, m.TrunkLeanDeg)
	}

	atDepth := avgKnee <= squatParallelKneeDeg
	if e.hold.advance(s.At, atDepth) >= squatHoldTarget {
		return e.finish()
	}

	u := Update{
		Level:    LevelInfo,
		Progress: e.progress(),
		Metrics:  e.metrics(),
	}

	switch {
	case inSquat && m.KneeValgus:
		u.Message = "Keep your knees over your toes"
		u.Level = LevelWarning
		u.VoiceText = e.speak.say("squat.knees")
	case inSquat && (m.LeftHeelLifted || m.RightHeelLifted):
		u.Message = "Keep your heels on the floor"
		u.Level = LevelWarning
		u.VoiceText = e.speak.say("squat.heels")
	case atDepth:
		u.Message = "Hold it right there!"
		u.VoiceText = e.speak.say("squat.hold")
	case inSquat:
		u.Message = "Go down a little lower"
		u.VoiceText = e.speak.say("squat.lower")
	default:
		u.Message = "Bend your knees and squat down like a frog"
		u.VoiceText = e.speak.say("squat.prompt")
	}

	return u
}

func (e *squat) emitSnapshot() Update {
	u := e.snapshot
	e.snapshot.VoiceText = ""
	return u
}

func (e *squat) finish() Update {
	e.phase = phaseDone
	e.snapshot = Update{
		Message:   "Super squat, well done!",
		Level:     LevelSuccess,
		Progress:  1,
		Done:      true,
		Metrics:   e.metrics(),
		VoiceText: phrase(e.speak.lang, "squat.success"),
	}
	return e.emitSnapshot()
}

// cleanForm reports whether valgus and heel lift stayed under the ratio
// ceilings across the frames spent below partial depth.
func (e *squat) cleanForm() bool {
	return ratio(e.valgusFrames, e.squatFrames) < squatCleanValgusRatio &&
		ratio(e.heelFrames, e.squatFrames) < squatCleanHeelRatio
}

// score applies the squat rubric: a clean held parallel squat scores 2, a
// held squat with form faults or a clean partial one scores 1.
func (e *squat) score() int {
	switch {
	case e.phase == phaseDone && e.cleanForm():
		return 2
	case e.phase == phaseDone:
		return 1
	case e.minKneeDeg <= squatPartialKneeDeg && e.cleanForm():
		return 1
	default:
		return 0
	}
}

func (e *squat) progress() float64 {
	depth := (180 - e.minKneeDeg) / (180 - squatParallelKneeDeg)
	return progressToward(depth, float64(e.hold.best)/float64(squatHoldTarget))
}

func (e *squat) metrics() map[string]float64 {
	return map[string]float64{
		"minKneeAngleDeg": round1(e.minKneeDeg),
		"holdSeconds":     round2(e.hold.best.Seconds()),
		"valgusRatio":     round2(ratio(e.valgusFrames, e.squatFrames)),
		"heelLiftRatio":   round2(ratio(e.heelFrames, e.squatFrames)),
		"maxTrunkLeanDeg": round1(e.maxLeanDeg),
		"squatScore":      float64(e.score()),
	}
}
