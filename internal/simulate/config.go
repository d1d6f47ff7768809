package simulate

import (
	"strings"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/task"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // base URL of a running service; empty keeps the run engine-only
	Profile    Profile       // attempt choreography quality
	Tasks      []task.Kind   // tasks to run, in order
	FPS        float64       // synthetic camera frame rate
	AgeYears   int           // child age driving the banded targets
	HeightCM   float64       // child height for the jump conversion
	Language   string        // voice guidance language (en, ar)
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // attempt metrics output path
	LogFile    string        // log file path
	Verbose    bool          // debug logging
}

// normalize fills defaults and clamps the frame rate into its supported band.
func (c *Config) normalize() {
	if c.Profile == "" {
		c.Profile = ProfileClean
	}
	if len(c.Tasks) == 0 {
		c.Tasks = task.Kinds()
	}
	if c.FPS < minFPS {
		c.FPS = minFPS
	}
	if c.FPS > maxFPS {
		c.FPS = maxFPS
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultHTTPTimeout
	}
}

// ParseTasks parses a comma-separated task list; empty selects all six
// tasks in screening order.
func ParseTasks(list string) ([]task.Kind, error) {
	if strings.TrimSpace(list) == "" {
		return task.Kinds(), nil
	}

	var kinds []task.Kind
	for _, name := range strings.Split(list, ",") {
		k, err := task.ParseKind(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Attempt is the outcome of one simulated task.
type Attempt struct {
	Task            task.Kind          `json:"task"`
	Profile         Profile            `json:"profile"`
	Score           int                `json:"score"`
	Completed       bool               `json:"completed"`
	DurationSeconds float64            `json:"durationSeconds"`
	Frames          int                `json:"framesFed"`
	Metrics         map[string]float64 `json:"metrics"`
}

// Stats holds simulation statistics.
type Stats struct {
	TasksRun       int
	TasksCompleted int
	FramesFed      int
	ResultsPosted  int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
