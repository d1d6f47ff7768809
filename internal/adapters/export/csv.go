package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/assessment"
	"github.com/virtualmirror/kinescreen/internal/domain/model"
	"github.com/virtualmirror/kinescreen/internal/domain/norms"
)

// renderCSV writes a long-format table: one record,field,value row per fact,
// session first, then the summary, then each task result with its metrics.
// The shape stays rectangular no matter which tasks were attempted, which
// keeps spreadsheet imports trivial.
func renderCSV(w io.Writer, r Report) error {
	rows := [][]string{{"record", "field", "value"}}
	rows = append(rows, sessionRows(r.Session)...)
	rows = append(rows, summaryRows(r.Summary)...)
	for _, res := range r.Results {
		rows = append(rows, resultRows(res)...)
	}
	if r.Norms != nil {
		rows = append(rows, normsRows(*r.Norms)...)
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv report: %w", err)
	}
	return nil
}

func sessionRows(s model.Session) [][]string {
	rows := [][]string{
		{"session", "id", s.ID},
		{"session", "display_id", strconv.Itoa(s.DisplayID)},
		{"session", "type", string(s.Type)},
		{"session", "started_at", s.StartedAt.Format(time.RFC3339)},
		{"session", "child_name", s.Child.Name},
	}
	if s.Child.AgeYears > 0 {
		rows = append(rows, []string{"session", "child_age_years", strconv.Itoa(s.Child.AgeYears)})
	}
	if s.Child.HeightCM > 0 {
		rows = append(rows, []string{"session", "child_height_cm", formatFloat(s.Child.HeightCM)})
	}
	if s.Child.WeightKG > 0 {
		rows = append(rows, []string{"session", "child_weight_kg", formatFloat(s.Child.WeightKG)})
	}
	if s.Child.Gender != "" {
		rows = append(rows, []string{"session", "child_gender", s.Child.Gender})
	}
	if s.ParentSessionID != "" {
		rows = append(rows, []string{"session", "parent_session_id", s.ParentSessionID})
	}
	if s.CompletedAt != nil {
		rows = append(rows, []string{"session", "completed_at", s.CompletedAt.Format(time.RFC3339)})
	}
	return rows
}

func summaryRows(s assessment.Summary) [][]string {
	return [][]string{
		{"summary", "total_score", strconv.Itoa(s.TotalScore)},
		{"summary", "max_score", strconv.Itoa(s.MaxScore)},
		{"summary", "percentage", formatFloat(s.Percentage)},
		{"summary", "risk_level", string(s.Risk)},
	}
}

func resultRows(r model.TaskResult) [][]string {
	rec := "result:" + r.Kind.String()
	rows := [][]string{{rec, "score", strconv.Itoa(r.Score)}}
	if r.Level != "" {
		rows = append(rows, []string{rec, "level", r.Level})
	}
	if r.DurationS > 0 {
		rows = append(rows, []string{rec, "duration_seconds", formatFloat(r.DurationS)})
	}
	for _, n := range r.Notes {
		rows = append(rows, []string{rec, "note", n})
	}
	for _, k := range sortedKeys(r.Metrics) {
		rows = append(rows, []string{rec, "metric:" + k, formatFloat(r.Metrics[k])})
	}
	return rows
}

func normsRows(a norms.Analysis) [][]string {
	rows := [][]string{
		{"norms", "classification", string(a.Class)},
		{"norms", "confidence", formatFloat(a.Confidence)},
		{"norms", "age_group", a.AgeGroup},
	}
	for _, d := range a.Domains {
		rec := "norms:" + d.Domain
		rows = append(rows,
			[]string{rec, "classification", string(d.Class)},
			[]string{rec, "confidence", formatFloat(d.Confidence)},
		)
		for _, v := range d.Verdicts {
			rows = append(rows, []string{rec, "metric:" + v.Metric, formatFloat(v.Value)})
		}
	}
	for _, f := range a.Flags {
		rows = append(rows, []string{"norms", "flag", f})
	}
	return rows
}

// formatFloat renders without a fixed precision so integral values stay
// short and measured values keep their digits.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
