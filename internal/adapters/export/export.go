// Package export renders completed screening sessions as JSON, CSV or
// plain-text reports for download and sharing.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/assessment"
	"github.com/virtualmirror/kinescreen/internal/domain/model"
	"github.com/virtualmirror/kinescreen/internal/domain/norms"
)

// Format selects a report rendering.
type Format string

// Supported report formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// ParseFormat maps a query value onto a Format. Empty input selects JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatText:
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type served with this format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

// Filename returns the suggested download name for a session's report.
func (f Format) Filename(displayID int) string {
	ext := "json"
	switch f {
	case FormatCSV:
		ext = "csv"
	case FormatText:
		ext = "txt"
	}
	return fmt.Sprintf("screening_%d.%s", displayID, ext)
}

// Report bundles everything a rendering draws on. Results arrive in
// recording order; metric maps are sorted at render time so two renderings
// of the same report are byte-identical.
type Report struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Session     model.Session      `json:"session"`
	Results     []model.TaskResult `json:"results"`
	Summary     assessment.Summary `json:"summary"`
	Norms       *norms.Analysis    `json:"norms,omitempty"`
}

// Render writes the report in the requested format.
func Render(w io.Writer, f Format, r Report) error {
	switch f {
	case FormatCSV:
		return renderCSV(w, r)
	case FormatText:
		return renderText(w, r)
	case FormatJSON:
		return renderJSON(w, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func renderJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
