// Package grading classifies individual task metrics against age-banded
// reference thresholds. Each metric gets one of three levels from a
// two-breakpoint rule; thresholds that genuinely vary with development
// (balance holds, step counts, jump height) carry per-band values, the rest
// are fixed.
package grading

import (
	"github.com/virtualmirror/kinescreen/internal/domain/task"
)

// Level is the clinical read of a single metric.
type Level string

// Grading levels.
const (
	Normal     Level = "normal"
	Borderline Level = "borderline"
	Abnormal   Level = "abnormal"
)

// Grade pairs a level with a short note for reports. Normal grades carry no
// note.
type Grade struct {
	Level Level  `json:"level"`
	Note  string `json:"note,omitempty"`
}

// Finding is one graded metric.
type Finding struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Grade  Grade   `json:"grade"`
}

// Age bands: toddlers up to 3, preschool 4 to 6, school age 7 and up. An
// unknown age (0) reads as school age so thresholds never get easier by
// omitting the birth date.
const (
	bandToddler = iota
	bandPreschool
	bandSchool
)

func band(age int) int {
	switch {
	case age <= 0:
		return bandSchool
	case age <= 3:
		return bandToddler
	case age <= 6:
		return bandPreschool
	default:
		return bandSchool
	}
}

// breakpoints are the two thresholds of a rule for one age band.
type breakpoints struct {
	normalAt     float64
	borderlineAt float64
}

// fixed repeats the same breakpoints across all bands.
func fixed(normalAt, borderlineAt float64) [3]breakpoints {
	bp := breakpoints{normalAt: normalAt, borderlineAt: borderlineAt}
	return [3]breakpoints{bp, bp, bp}
}

// rule grades one metric. Higher-better metrics read normal at or above
// normalAt and borderline at or above borderlineAt; lower-better metrics
// read normal at or below normalAt and borderline at or below borderlineAt.
type rule struct {
	metric      string
	label       string
	lowerBetter bool
	bands       [3]breakpoints
}

func (r rule) grade(value float64, age int) Grade {
	bp := r.bands[band(age)]

	var level Level
	if r.lowerBetter {
		switch {
		case value <= bp.normalAt:
			level = Normal
		case value <= bp.borderlineAt:
			level = Borderline
		default:
			level = Abnormal
		}
	} else {
		switch {
		case value >= bp.normalAt:
			level = Normal
		case value >= bp.borderlineAt:
			level = Borderline
		default:
			level = Abnormal
		}
	}

	return Grade{Level: level, Note: r.note(level)}
}

func (r rule) note(level Level) string {
	switch level {
	case Borderline:
		return r.label + " slightly outside the expected range"
	case Abnormal:
		return r.label + " well outside the expected range"
	default:
		return ""
	}
}

// rules lists the graded metrics per task kind, in report order.
var rules = map[task.Kind][]rule{
	task.ArmRaise: {
		{metric: "leftShoulderMaxDeg", label: "left shoulder reach", bands: fixed(150, 90)},
		{metric: "rightShoulderMaxDeg", label: "right shoulder reach", bands: fixed(150, 90)},
		{metric: "elbowExtensionDeg", label: "elbow extension", bands: fixed(170, 150)},
		{metric: "holdSeconds", label: "overhead hold", bands: fixed(1, 0.5)},
		{metric: "compensationRatio", label: "trunk compensation", lowerBetter: true, bands: fixed(0.3, 0.5)},
	},
	task.OneLeg: {
		{metric: "holdSeconds", label: "balance hold", bands: [3]breakpoints{
			{normalAt: 3, borderlineAt: 1},
			{normalAt: 5, borderlineAt: 2.5},
			{normalAt: 7, borderlineAt: 3},
		}},
		{metric: "swayRatio", label: "balance sway", lowerBetter: true, bands: fixed(0.1, 0.3)},
		{metric: "maxTrunkLeanDeg", label: "trunk lean", lowerBetter: true, bands: fixed(20, 30)},
	},
	task.Walk: {
		{metric: "stepCount", label: "step count", bands: [3]breakpoints{
			{normalAt: 5, borderlineAt: 3},
			{normalAt: 10, borderlineAt: 5},
			{normalAt: 10, borderlineAt: 5},
		}},
		{metric: "unstableRatio", label: "walking stability", lowerBetter: true, bands: fixed(0.2, 0.4)},
		{metric: "balanceLossCount", label: "balance control", lowerBetter: true, bands: fixed(2, 4)},
		{metric: "gaitSymmetryPct", label: "stride symmetry", lowerBetter: true, bands: fixed(10, 25)},
	},
	task.Jump: {
		{metric: "airborneFrames", label: "flight time", bands: fixed(3, 1)},
		{metric: "jumpHeightPct", label: "jump height", bands: [3]breakpoints{
			{normalAt: 5, borderlineAt: 2},
			{normalAt: 8, borderlineAt: 4},
			{normalAt: 10, borderlineAt: 5},
		}},
		{metric: "landingLeanDeg", label: "landing control", lowerBetter: true, bands: fixed(20, 30)},
	},
	task.TipToe: {
		{metric: "holdSeconds", label: "tip-toe hold", bands: [3]breakpoints{
			{normalAt: 2, borderlineAt: 1},
			{normalAt: 3, borderlineAt: 1.5},
			{normalAt: 3, borderlineAt: 1.5},
		}},
		{metric: "movementRatio", label: "foot stillness", lowerBetter: true, bands: fixed(0.05, 0.15)},
		{metric: "heelDropRatio", label: "heel control", lowerBetter: true, bands: fixed(0.05, 0.15)},
		{metric: "maxTrunkLeanDeg", label: "trunk lean", lowerBetter: true, bands: fixed(20, 30)},
	},
	task.Squat: {
		{metric: "minKneeAngleDeg", label: "squat depth", lowerBetter: true, bands: fixed(100, 140)},
		{metric: "holdSeconds", label: "squat hold", bands: fixed(1, 0.5)},
		{metric: "valgusRatio", label: "knee alignment", lowerBetter: true, bands: fixed(0.2, 0.4)},
		{metric: "heelLiftRatio", label: "heel contact", lowerBetter: true, bands: fixed(0.2, 0.4)},
		{metric: "maxTrunkLeanDeg", label: "trunk lean", lowerBetter: true, bands: fixed(30, 45)},
	},
}

// Metric grades a single named metric for a task. Metrics without a rule,
// and unknown kinds, grade normal so novel keys never fail a screening.
func Metric(kind task.Kind, name string, value float64, age int) Grade {
	for _, r := range rules[kind] {
		if r.metric == name {
			return r.grade(value, age)
		}
	}
	return Grade{Level: Normal}
}

// Evaluate grades every rule-covered metric present in metrics, in the
// fixed report order for the kind.
func Evaluate(kind task.Kind, metrics map[string]float64, age int) []Finding {
	var out []Finding
	for _, r := range rules[kind] {
		v, ok := metrics[r.metric]
		if !ok {
			continue
		}
		out = append(out, Finding{Metric: r.metric, Value: v, Grade: r.grade(v, age)})
	}
	return out
}
