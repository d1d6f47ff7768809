package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/virtualmirror/kinescreen/internal/domain/assessment"
	"github.com/virtualmirror/kinescreen/internal/domain/model"
	"github.com/virtualmirror/kinescreen/internal/domain/norms"
)

// renderText writes the printable report: header, child details, the
// clinical read, per-task performance, the normative analysis when present,
// then advice and the disclaimer.
func renderText(w io.Writer, r Report) error {
	var b strings.Builder

	b.WriteString("MOVEMENT SCREENING REPORT\n")
	fmt.Fprintf(&b, "Generated on %s\n\n", r.GeneratedAt.Format("January 2, 2006 at 15:04"))

	writeChildSection(&b, r.Session)
	writeAssessmentSection(&b, r.Summary)
	writeResultsSection(&b, r.Results)
	if r.Norms != nil {
		writeNormsSection(&b, *r.Norms)
	}
	writeAdviceSection(&b, r.Summary)

	b.WriteString("DISCLAIMER\n")
	fmt.Fprintf(&b, "  %s\n", r.Summary.Disclaimer)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}
	return nil
}

func writeChildSection(b *strings.Builder, s model.Session) {
	b.WriteString("CHILD\n")
	name := s.Child.Name
	if name == "" {
		name = "Anonymous"
	}
	fmt.Fprintf(b, "  Name:    %s\n", name)
	if s.Child.AgeYears > 0 {
		fmt.Fprintf(b, "  Age:     %d years\n", s.Child.AgeYears)
	}
	if s.Child.HeightCM > 0 {
		fmt.Fprintf(b, "  Height:  %.0f cm\n", s.Child.HeightCM)
	}
	if s.Child.WeightKG > 0 {
		fmt.Fprintf(b, "  Weight:  %.1f kg\n", s.Child.WeightKG)
	}
	if s.Child.Gender != "" {
		fmt.Fprintf(b, "  Gender:  %s\n", s.Child.Gender)
	}
	fmt.Fprintf(b, "  Session: #%d (%s), started %s\n\n",
		s.DisplayID, s.Type, s.StartedAt.Format("2006-01-02 15:04"))
}

func writeAssessmentSection(b *strings.Builder, s assessment.Summary) {
	b.WriteString("ASSESSMENT\n")
	fmt.Fprintf(b, "  Risk level: %s\n", strings.ToUpper(string(s.Risk)))
	fmt.Fprintf(b, "  Score:      %d of %d (%.1f%%)\n", s.TotalScore, s.MaxScore, s.Percentage)
	fmt.Fprintf(b, "  %s\n\n", s.Overall)
}

func writeResultsSection(b *strings.Builder, results []model.TaskResult) {
	if len(results) == 0 {
		return
	}
	b.WriteString("TASK PERFORMANCE\n")
	for _, res := range results {
		fmt.Fprintf(b, "  %s: %d/2", res.Kind.Title(), res.Score)
		if res.Level != "" {
			fmt.Fprintf(b, " (%s)", res.Level)
		}
		if res.DurationS > 0 {
			fmt.Fprintf(b, ", %.1fs", res.DurationS)
		}
		b.WriteString("\n")
		for _, n := range res.Notes {
			fmt.Fprintf(b, "    - %s\n", n)
		}
		for _, k := range sortedKeys(res.Metrics) {
			fmt.Fprintf(b, "    %s: %s\n", k, formatFloat(res.Metrics[k]))
		}
	}
	b.WriteString("\n")
}

func writeNormsSection(b *strings.Builder, a norms.Analysis) {
	b.WriteString("NORMATIVE ANALYSIS\n")
	fmt.Fprintf(b, "  %s (confidence %.0f%%, age group %s)\n", a.Class, a.Confidence, a.AgeGroup)
	for _, d := range a.Domains {
		fmt.Fprintf(b, "  %s: %s (confidence %.0f%%)\n", d.Domain, d.Class, d.Confidence)
		for _, v := range d.Verdicts {
			fmt.Fprintf(b, "    %s: %s, z=%.2f\n", v.Metric, v.Class, v.ZScore)
		}
	}
	for _, f := range a.Flags {
		fmt.Fprintf(b, "  ! %s\n", f)
	}
	b.WriteString("\n")
}

func writeAdviceSection(b *strings.Builder, s assessment.Summary) {
	if len(s.Strengths) > 0 {
		b.WriteString("STRENGTHS\n")
		for _, x := range s.Strengths {
			fmt.Fprintf(b, "  - %s\n", x)
		}
		b.WriteString("\n")
	}
	if len(s.Improvements) > 0 {
		b.WriteString("AREAS TO WATCH\n")
		for _, x := range s.Improvements {
			fmt.Fprintf(b, "  - %s\n", x)
		}
		b.WriteString("\n")
	}
	if len(s.Recommendations) > 0 {
		b.WriteString("RECOMMENDATIONS\n")
		for i, x := range s.Recommendations {
			fmt.Fprintf(b, "  %d. %s\n", i+1, x)
		}
		b.WriteString("\n")
	}
}
