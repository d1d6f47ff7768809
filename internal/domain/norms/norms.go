// Package norms compares measured movement metrics against age-banded
// normative reference data drawn from pediatric biomechanics literature.
// Each metric classifies by z-score against its band; domains aggregate by
// confidence-weighted vote. This complements the 0-2 rubric: scores say how
// the child did on the tasks, norms say how the raw measurements sit against
// peers of the same age.
package norms

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/virtualmirror/kinescreen/internal/domain/pose"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
)

// Classification categories for normative comparison.
type Classification string

// Classifications, from reassuring to referral-worthy.
const (
	Normal            Classification = "Normal"
	Borderline        Classification = "Borderline"
	WeaknessSuspected Classification = "Weakness suspected"
	InsufficientData  Classification = "Insufficient data"
)

// Aggregation shares: a domain or analysis reads weakness once weakness
// votes pass 30% of the weight, borderline once borderline votes pass 40%.
const (
	weaknessShare   = 0.30
	borderlineShare = 0.40
)

// Range is one normative reference: the population mean and spread plus the
// band treated as normal.
type Range struct {
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stdDev"`
	MinNormal float64 `json:"minNormal"`
	MaxNormal float64 `json:"maxNormal"`
}

// Contains reports whether the value falls inside the normal band.
func (r Range) Contains(v float64) bool {
	return v >= r.MinNormal && v <= r.MaxNormal
}

// ZScore is the value's distance from the mean in standard deviations. A
// degenerate range with zero spread scores 0.
func (r Range) ZScore(v float64) float64 {
	if r.StdDev == 0 {
		return 0
	}
	return stat.StdScore(v, r.Mean, r.StdDev)
}

// Verdict is the read of one metric against its normative range.
type Verdict struct {
	Metric     string         `json:"metric"`
	Value      float64        `json:"value"`
	Class      Classification `json:"classification"`
	Confidence float64        `json:"confidence"`
	ZScore     float64        `json:"zScore"`
	Range      Range          `json:"normalRange"`
}

// DomainResult is one analysis domain's aggregated read.
type DomainResult struct {
	Domain     string         `json:"domain"`
	Class      Classification `json:"classification"`
	Confidence float64        `json:"confidence"`
	Verdicts   []Verdict      `json:"verdicts,omitempty"`
	Flags      []string       `json:"flags,omitempty"`
}

// Analysis is the comprehensive read across all domains.
type Analysis struct {
	Class      Classification `json:"classification"`
	Confidence float64        `json:"confidence"`
	AgeGroup   string         `json:"ageGroup"`
	Domains    []DomainResult `json:"domains,omitempty"`
	Flags      []string       `json:"flags,omitempty"`
}

// Inputs groups measured metrics by analysis domain, keyed by normative
// metric name.
type Inputs struct {
	ROM      map[string]float64
	Balance  map[string]float64
	Symmetry map[string]float64
	Gait     map[string]float64
}

// Joint range of motion in degrees, by age band.
var romNorms = map[string]map[string]Range{
	"5-7": {
		"shoulder_flexion":   {Mean: 165, StdDev: 10, MinNormal: 145, MaxNormal: 180},
		"shoulder_abduction": {Mean: 165, StdDev: 10, MinNormal: 145, MaxNormal: 180},
		"elbow_flexion":      {Mean: 145, StdDev: 8, MinNormal: 130, MaxNormal: 160},
		"hip_flexion":        {Mean: 120, StdDev: 10, MinNormal: 100, MaxNormal: 140},
		"knee_flexion":       {Mean: 135, StdDev: 8, MinNormal: 120, MaxNormal: 150},
		"knee_extension":     {Mean: 0, StdDev: 3, MinNormal: -5, MaxNormal: 5},
	},
	"8-10": {
		"shoulder_flexion":   {Mean: 168, StdDev: 9, MinNormal: 150, MaxNormal: 180},
		"shoulder_abduction": {Mean: 168, StdDev: 9, MinNormal: 150, MaxNormal: 180},
		"elbow_flexion":      {Mean: 147, StdDev: 7, MinNormal: 133, MaxNormal: 160},
		"hip_flexion":        {Mean: 122, StdDev: 9, MinNormal: 105, MaxNormal: 140},
		"knee_flexion":       {Mean: 137, StdDev: 7, MinNormal: 123, MaxNormal: 150},
		"knee_extension":     {Mean: 0, StdDev: 3, MinNormal: -5, MaxNormal: 5},
	},
	"11-13": {
		"shoulder_flexion":   {Mean: 170, StdDev: 8, MinNormal: 154, MaxNormal: 180},
		"shoulder_abduction": {Mean: 170, StdDev: 8, MinNormal: 154, MaxNormal: 180},
		"elbow_flexion":      {Mean: 148, StdDev: 6, MinNormal: 136, MaxNormal: 160},
		"hip_flexion":        {Mean: 124, StdDev: 8, MinNormal: 108, MaxNormal: 140},
		"knee_flexion":       {Mean: 138, StdDev: 6, MinNormal: 126, MaxNormal: 150},
		"knee_extension":     {Mean: 0, StdDev: 2, MinNormal: -3, MaxNormal: 3},
	},
}

// Balance and stability, by age band. Stance times in seconds, sway in
// normalized image units.
var balanceNorms = map[string]map[string]Range{
	"5-7": {
		"single_leg_stance_time": {Mean: 8.5, StdDev: 3, MinNormal: 3, MaxNormal: 15},
		"stability_score":        {Mean: 65, StdDev: 15, MinNormal: 40, MaxNormal: 90},
		"sway_magnitude":         {Mean: 0.015, StdDev: 0.008, MinNormal: 0.005, MaxNormal: 0.03},
	},
	"8-10": {
		"single_leg_stance_time": {Mean: 12, StdDev: 4, MinNormal: 5, MaxNormal: 20},
		"stability_score":        {Mean: 72, StdDev: 12, MinNormal: 50, MaxNormal: 95},
		"sway_magnitude":         {Mean: 0.012, StdDev: 0.006, MinNormal: 0.004, MaxNormal: 0.025},
	},
	"11-13": {
		"single_leg_stance_time": {Mean: 15, StdDev: 5, MinNormal: 7, MaxNormal: 25},
		"stability_score":        {Mean: 78, StdDev: 10, MinNormal: 60, MaxNormal: 98},
		"sway_magnitude":         {Mean: 0.01, StdDev: 0.005, MinNormal: 0.003, MaxNormal: 0.02},
	},
}

// Bilateral symmetry as percentage difference between sides, all ages.
var symmetryNorms = map[string]Range{
	"shoulder_symmetry": {Mean: 3, StdDev: 2.5, MinNormal: 0, MaxNormal: 8},
	"elbow_symmetry":    {Mean: 2.5, StdDev: 2, MinNormal: 0, MaxNormal: 7},
	"hip_symmetry":      {Mean: 3.5, StdDev: 2.5, MinNormal: 0, MaxNormal: 9},
	"knee_symmetry":     {Mean: 3, StdDev: 2, MinNormal: 0, MaxNormal: 8},
	"gait_symmetry":     {Mean: 5, StdDev: 3, MinNormal: 0, MaxNormal: 12},
}

// Gait parameters by age band: cadence in steps per minute, step length in
// meters, stride time in seconds.
var gaitNorms = map[string]map[string]Range{
	"5-7": {
		"cadence":     {Mean: 165, StdDev: 15, MinNormal: 140, MaxNormal: 190},
		"step_length": {Mean: 0.45, StdDev: 0.08, MinNormal: 0.3, MaxNormal: 0.6},
		"stride_time": {Mean: 0.73, StdDev: 0.08, MinNormal: 0.6, MaxNormal: 0.9},
	},
	"8-10": {
		"cadence":     {Mean: 155, StdDev: 12, MinNormal: 135, MaxNormal: 180},
		"step_length": {Mean: 0.52, StdDev: 0.1, MinNormal: 0.35, MaxNormal: 0.7},
		"stride_time": {Mean: 0.77, StdDev: 0.07, MinNormal: 0.65, MaxNormal: 0.92},
	},
	"11-13": {
		"cadence":     {Mean: 145, StdDev: 10, MinNormal: 130, MaxNormal: 165},
		"step_length": {Mean: 0.6, StdDev: 0.12, MinNormal: 0.4, MaxNormal: 0.8},
		"stride_time": {Mean: 0.83, StdDev: 0.06, MinNormal: 0.7, MaxNormal: 0.98},
	},
}

// AgeGroup returns the normative band label for an age. Unknown ages read
// as the middle band.
func AgeGroup(age int) string {
	switch {
	case age <= 0:
		return "8-10"
	case age <= 7:
		return "5-7"
	case age <= 10:
		return "8-10"
	default:
		return "11-13"
	}
}

// Classify reads one value against a normative range and returns the
// classification with its confidence. Inside the normal band a z-score
// within one standard deviation reads normal at high confidence, further
// out still normal at reduced confidence. Outside the band, two standard
// deviations separate borderline from suspected weakness.
func Classify(value float64, r Range) (Classification, float64) {
	z := math.Abs(r.ZScore(value))
	if r.Contains(value) {
		if z <= 1 {
			return Normal, 95
		}
		return Normal, 80
	}
	if z <= 2 {
		return Borderline, 70
	}
	return WeaknessSuspected, 85
}

// Analyze runs every populated domain against the age band and folds the
// domain reads into one classification.
func Analyze(in Inputs, age int) Analysis {
	group := AgeGroup(age)
	a := Analysis{AgeGroup: group}

	var votes []vote
	add := func(name string, data map[string]float64, table map[string]Range) {
		if len(data) == 0 {
			return
		}
		dr := analyzeDomain(name, data, table)
		a.Domains = append(a.Domains, dr)
		a.Flags = append(a.Flags, dr.Flags...)
		if dr.Class != InsufficientData {
			votes = append(votes, vote{class: dr.Class, confidence: dr.Confidence})
		}
	}

	add("rom", in.ROM, romNorms[group])
	add("balance", in.Balance, balanceNorms[group])
	add("symmetry", in.Symmetry, symmetryNorms)
	add("gait", in.Gait, gaitNorms[group])

	a.Class, a.Confidence = tally(votes)
	return a
}

// FromTaskMetrics assembles analysis inputs from recorded task metrics,
// mapping only measurements that genuinely correspond to a normative key:
// shoulder flexion and its symmetry from the arm raise, stance time from
// the one-leg balance, cadence and gait symmetry from the walk.
func FromTaskMetrics(results map[task.Kind]map[string]float64) Inputs {
	var in Inputs

	if m, ok := results[task.ArmRaise]; ok {
		l, r := m["leftShoulderMaxDeg"], m["rightShoulderMaxDeg"]
		if l > 0 || r > 0 {
			in.ROM = map[string]float64{
				"shoulder_flexion_left":  l,
				"shoulder_flexion_right": r,
			}
			in.Symmetry = map[string]float64{
				"shoulder_symmetry": pose.SymmetryPercent(l, r),
			}
		}
	}

	if m, ok := results[task.OneLeg]; ok {
		if hold, ok := m["holdSeconds"]; ok {
			in.Balance = map[string]float64{"single_leg_stance_time": hold}
		}
	}

	if m, ok := results[task.Walk]; ok {
		if cadence := m["cadenceSpm"]; cadence > 0 {
			in.Gait = map[string]float64{"cadence": cadence}
		}
		// Symmetry needs at least a step per side to mean anything.
		if m["stepCount"] >= 2 {
			if in.Symmetry == nil {
				in.Symmetry = map[string]float64{}
			}
			in.Symmetry["gait_symmetry"] = m["gaitSymmetryPct"]
		}
	}

	return in
}

type vote struct {
	class      Classification
	confidence float64
}

// tally aggregates votes by confidence weight.
func tally(votes []vote) (Classification, float64) {
	weights := make(map[Classification]float64, 3)
	var total float64
	for _, v := range votes {
		switch v.class {
		case Normal, Borderline, WeaknessSuspected:
			w := v.confidence / 100
			weights[v.class] += w
			total += w
		}
	}
	if total == 0 {
		return InsufficientData, 0
	}
	for k := range weights {
		weights[k] /= total
	}

	switch {
	case weights[WeaknessSuspected] > weaknessShare:
		return WeaknessSuspected, round1(weights[WeaknessSuspected] * 100)
	case weights[Borderline] > borderlineShare:
		return Borderline, round1(weights[Borderline] * 100)
	default:
		return Normal, round1(weights[Normal] * 100)
	}
}

func analyzeDomain(name string, data map[string]float64, table map[string]Range) DomainResult {
	dr := DomainResult{Domain: name}

	var votes []vote
	for _, metric := range sortedKeys(data) {
		r, ok := lookup(table, metric)
		if !ok {
			continue
		}
		value := data[metric]
		class, confidence := Classify(value, r)
		dr.Verdicts = append(dr.Verdicts, Verdict{
			Metric:     metric,
			Value:      value,
			Class:      class,
			Confidence: confidence,
			ZScore:     round2(r.ZScore(value)),
			Range:      r,
		})
		votes = append(votes, vote{class: class, confidence: confidence})

		switch class {
		case WeaknessSuspected:
			dr.Flags = append(dr.Flags, fmt.Sprintf("%s outside the normal range: %.1f (normal %g to %g)",
				metric, value, r.MinNormal, r.MaxNormal))
		case Borderline:
			dr.Flags = append(dr.Flags, fmt.Sprintf("%s near the edge of normal: %.1f", metric, value))
		}
	}

	dr.Class, dr.Confidence = tally(votes)
	return dr
}

// lookup finds the normative range for a metric: exact key first, then the
// longest table key the metric name starts with, so sided measurements like
// shoulder_flexion_left share the shoulder_flexion range.
func lookup(table map[string]Range, metric string) (Range, bool) {
	if r, ok := table[metric]; ok {
		return r, true
	}

	var (
		best    string
		bestLen = -1
	)
	for key := range table {
		if strings.HasPrefix(metric, key) && len(key) > bestLen {
			best, bestLen = key, len(key)
		}
	}
	if bestLen < 0 {
		return Range{}, false
	}
	return table[best], true
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
