// Package scoring turns the metrics a recorded task result carries into the
// 0-2 screening score used for risk aggregation.
//
// Evaluators embed their own score in the metric map under the task's score
// key, so extraction is normally a lookup. Results recorded by older feeds
// or hand-entered by an examiner may carry raw metrics only; for those the
// score is inferred from the same rubric the evaluators apply.
package scoring

import (
	"math"

	"github.com/virtualmirror/kinescreen/internal/domain/task"
)

// Score bounds of the screening rubric.
const (
	MinScore = 0
	MaxScore = 2
)

// Targets assumed by inference when a result omits its own.
const (
	defaultBalanceTargetSec = 5
	defaultTiptoeTargetSec  = 3
	defaultStepTarget       = 10
)

// Extract returns the screening score for a recorded task result. It prefers
// the explicit score key for the kind, then the generic "score" key, and
// falls back to inference from raw metrics. An empty metric map reads as a
// skipped attempt and scores 0; for a kind the engine does not know it
// scores 1 instead, so a novel task never flags a zero on its own.
func Extract(kind task.Kind, metrics map[string]float64) int {
	if len(metrics) == 0 {
		if _, err := task.ParseKind(kind.String()); err != nil {
			return 1
		}
		return MinScore
	}

	for _, key := range []string{kind.ScoreKey(), "score"} {
		if v, ok := metrics[key]; ok {
			return clamp(int(math.Round(v)))
		}
	}

	return Infer(kind, metrics)
}

// Infer derives the score from raw metrics alone, mirroring the evaluator
// rubrics. Unknown kinds score a neutral 1.
func Infer(kind task.Kind, metrics map[string]float64) int {
	switch kind {
	case task.ArmRaise:
		return inferArmRaise(metrics)
	case task.OneLeg:
		return inferOneLeg(metrics)
	case task.Walk:
		return inferWalk(metrics)
	case task.Jump:
		return inferJump(metrics)
	case task.TipToe:
		return inferTipToe(metrics)
	case task.Squat:
		return inferSquat(metrics)
	default:
		return 1
	}
}

func inferArmRaise(m map[string]float64) int {
	switch {
	case m["holdSeconds"] >= 1 && m["elbowExtensionDeg"] >= 170 &&
		m["compensationRatio"] <= 0.3:
		return 2
	case math.Max(m["leftShoulderMaxDeg"], m["rightShoulderMaxDeg"]) >= 90:
		return 1
	default:
		return 0
	}
}

func inferOneLeg(m map[string]float64) int {
	target := m["targetSeconds"]
	if target <= 0 {
		target = defaultBalanceTargetSec
	}
	hold := m["holdSeconds"]
	switch {
	case hold >= target && m["maxTrunkLeanDeg"] < 20 && m["swayRatio"] < 0.1:
		return 2
	case hold >= 1 && (2*hold >= target || m["maxTrunkLeanDeg"] < 30):
		return 1
	default:
		return 0
	}
}

func inferWalk(m map[string]float64) int {
	target := m["targetSteps"]
	if target <= 0 {
		target = defaultStepTarget
	}
	steps := m["stepCount"]
	switch {
	case steps >= target && m["unstableRatio"] < 0.2 && m["balanceLossCount"] < 3:
		return 2
	case steps >= 3:
		return 1
	default:
		return 0
	}
}

func inferJump(m map[string]float64) int {
	switch {
	case m["airborneFrames"] >= 3 &&
		m["takeoffTwoFooted"] == 1 &&
		m["landingTwoFooted"] == 1 &&
		m["landingLeanDeg"] < 20:
		return 2
	case m["airborneFrames"] >= 3:
		return 1
	default:
		return 0
	}
}

func inferTipToe(m map[string]float64) int {
	target := m["targetSeconds"]
	if target <= 0 {
		target = defaultTiptoeTargetSec
	}
	hold := m["holdSeconds"]
	switch {
	case hold >= target &&
		m["maxTrunkLeanDeg"] < 20 &&
		m["movementRatio"] < 0.05 &&
		m["heelDropRatio"] < 0.05:
		return 2
	case 2*hold >= target:
		return 1
	default:
		return 0
	}
}

func inferSquat(m map[string]float64) int {
	// A missing knee angle reads as no squat at all, not a perfect one.
	knee := m["minKneeAngleDeg"]
	clean := m["valgusRatio"] < 0.2 && m["heelLiftRatio"] < 0.2
	switch {
	case knee > 0 && knee <= 100 && m["holdSeconds"] >= 1 && clean:
		return 2
	case knee > 0 && knee <= 100 && m["holdSeconds"] >= 1:
		return 1
	case knee > 0 && knee <= 140 && clean:
		return 1
	default:
		return 0
	}
}

func clamp(s int) int {
	if s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}
