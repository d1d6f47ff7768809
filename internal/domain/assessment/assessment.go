// Package assessment aggregates per-task screening scores into the overall
// risk reading a caregiver sees. Aggregation is pure arithmetic over the
// score set: the same scores always produce the same summary, regardless of
// the order tasks were performed in.
package assessment

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/virtualmirror/kinescreen/internal/domain/scoring"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
)

// Risk is the overall screening outcome.
type Risk string

// Risk levels, from reassuring to referral-worthy.
const (
	RiskNormal     Risk = "normal"
	RiskBorderline Risk = "borderline"
	RiskHigh       Risk = "high"
)

// Aggregation thresholds. Percentages are of the maximum attainable score.
const (
	highRiskMaxPct   = 43
	normalMinPct     = 71
	maxOrdinaryZeros = 1
)

// critical marks the tasks where a complete failure alone elevates risk:
// balance, gait and jumping are the strongest developmental signals.
var critical = map[task.Kind]bool{
	task.OneLeg: true,
	task.Walk:   true,
	task.Jump:   true,
}

// IsCritical reports whether a zero on this task alone elevates risk.
func IsCritical(k task.Kind) bool {
	return critical[k]
}

// Disclaimer accompanies every summary and report.
const Disclaimer = "This screening is not a medical diagnosis. It highlights " +
	"movement patterns worth a professional look. Consult a qualified " +
	"clinician for any concern about your child's development."

// TaskScore is one task's contribution to the summary.
type TaskScore struct {
	Kind  task.Kind `json:"task"`
	Label string    `json:"label"`
	Score int       `json:"score"`
}

// Summary is the aggregated screening outcome.
type Summary struct {
	Tasks           []TaskScore `json:"tasks"`
	TotalScore      int         `json:"totalScore"`
	MaxScore        int         `json:"maxScore"`
	Percentage      float64     `json:"percentage"`
	Risk            Risk        `json:"riskLevel"`
	Overall         string      `json:"overall"`
	Strengths       []string    `json:"strengths,omitempty"`
	Improvements    []string    `json:"improvements,omitempty"`
	Recommendations []string    `json:"recommendations"`
	Disclaimer      string      `json:"disclaimer"`
}

// ClassifyRisk applies the risk rubric. Precedence matters: any critical-task
// zero flags high before the percentage is even consulted, and a single
// ordinary zero blocks the normal reading no matter how high the total.
func ClassifyRisk(percentage float64, numZeros, criticalZeros int) Risk {
	switch {
	case criticalZeros > 0:
		return RiskHigh
	case numZeros > maxOrdinaryZeros:
		return RiskHigh
	case percentage <= highRiskMaxPct:
		return RiskHigh
	case numZeros == 0 && percentage > normalMinPct:
		return RiskNormal
	default:
		return RiskBorderline
	}
}

// Aggregate folds a score set into a Summary. Known kinds are reported in
// canonical screening order, any others after them by name.
func Aggregate(scores map[task.Kind]int) Summary {
	s := Summary{Disclaimer: Disclaimer}

	for _, k := range orderedKinds(scores) {
		sc := clampScore(scores[k])
		s.Tasks = append(s.Tasks, TaskScore{Kind: k, Label: k.Title(), Score: sc})
		s.TotalScore += sc
		s.MaxScore += scoring.MaxScore
	}

	if len(s.Tasks) == 0 {
		s.Risk = RiskHigh
		s.Overall = "No tasks were completed, so no reading is available."
		s.Recommendations = recommend(s.Risk, nil)
		return s
	}

	s.Percentage = math.Round(float64(s.TotalScore)/float64(s.MaxScore)*1000) / 10

	var zeros, criticalZeros int
	for _, t := range s.Tasks {
		switch t.Score {
		case 0:
			zeros++
			if IsCritical(t.Kind) {
				criticalZeros++
			}
			s.Improvements = append(s.Improvements, t.Label+" needs focus")
		case 1:
			s.Improvements = append(s.Improvements, t.Label+" is still developing")
		default:
			s.Strengths = append(s.Strengths, t.Label+" looks age-appropriate")
		}
	}

	s.Risk = ClassifyRisk(s.Percentage, zeros, criticalZeros)
	s.Overall = overall(s)
	s.Recommendations = recommend(s.Risk, s.Tasks)
	return s
}

func orderedKinds(scores map[task.Kind]int) []task.Kind {
	var kinds []task.Kind
	seen := make(map[task.Kind]bool, len(scores))
	for _, k := range task.Kinds() {
		if _, ok := scores[k]; ok {
			kinds = append(kinds, k)
			seen[k] = true
		}
	}

	var extra []task.Kind
	for k := range scores {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(kinds, extra...)
}

func overall(s Summary) string {
	base := fmt.Sprintf("%d of %d points (%.1f%%)", s.TotalScore, s.MaxScore, s.Percentage)
	switch s.Risk {
	case RiskNormal:
		return "Gross motor skills look on track: " + base + "."
	case RiskBorderline:
		return "Some gross motor skills may need support: " + base + "."
	default:
		return "Several gross motor skills need attention: " + base + "."
	}
}

func recommend(risk Risk, tasks []TaskScore) []string {
	var recs []string
	switch risk {
	case RiskNormal:
		recs = []string{
			"Keep up regular active play.",
			"Screen again at the next age milestone.",
		}
	case RiskBorderline:
		recs = []string{
			"Encourage daily active play that uses the flagged movements.",
			"Repeat the screening in four to six weeks.",
		}
	default:
		recs = []string{
			"Share these results with a pediatrician or pediatric physiotherapist.",
			"Repeat the screening in four to six weeks to track change.",
		}
	}

	for _, t := range tasks {
		if t.Score <= 1 {
			recs = append(recs, tip(t.Kind, t.Label))
		}
	}
	return recs
}

// tip names a playful exercise for a task that scored below full marks.
func tip(k task.Kind, label string) string {
	switch k {
	case task.ArmRaise:
		return "Play reach-up games, like popping bubbles overhead, to build shoulder range."
	case task.OneLeg:
		return "Play flamingo and freeze games to build single-leg balance."
	case task.Walk:
		return "Walk along a taped line on the floor to steady walking balance."
	case task.Jump:
		return "Jump over small lines or cushions with both feet together."
	case task.TipToe:
		return "Tip-toe walks to reach high shelves build calf strength and balance."
	case task.Squat:
		return "Play pick-up games from a deep squat to build leg strength."
	default:
		return fmt.Sprintf("Practice %s in short, playful sessions.", strings.ToLower(label))
	}
}

func clampScore(sc int) int {
	if sc < scoring.MinScore {
		return scoring.MinScore
	}
	if sc > scoring.MaxScore {
		return scoring.MaxScore
	}
	return sc
}
