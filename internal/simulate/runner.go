// Package simulate drives the screening engine with synthetic landmark
// choreography. Scripted attempt profiles for each task are played through
// the stream adapter at a configurable frame rate, scored and aggregated
// locally, verified against what the choreography should earn, and
// optionally replayed against a running service over HTTP.
package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/virtualmirror/kinescreen/pkg/logger"
)

// Run executes the configured simulation end to end.
func Run(ctx context.Context, cfg *Config) error {
	cfg.normalize()

	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting screening simulation",
		logger.String("profile", string(cfg.Profile)),
		logger.Int("tasks", len(cfg.Tasks)),
		logger.Float64("fps", cfg.FPS),
		logger.Int("ageYears", cfg.AgeYears),
		logger.String("baseURL", cfg.BaseURL),
		logger.Bool("verbose", cfg.Verbose),
	)

	attempts, err := runAttempts(ctx, cfg, stats)
	if err != nil {
		return fmt.Errorf("engine run failed: %w", err)
	}

	if err := verifyExpected(ctx, cfg, attempts); err != nil {
		return fmt.Errorf("score verification failed: %w", err)
	}

	local := aggregateLocal(attempts)
	displaySummary(ctx, local)

	if cfg.BaseURL != "" {
		if err := exerciseService(ctx, cfg, attempts, local, stats); err != nil {
			return fmt.Errorf("service exercise failed: %w", err)
		}
	}

	if err := saveAttempts(ctx, cfg, attempts); err != nil {
		logger.Get().Warn(ctx, "failed to save attempts", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// saveAttempts writes the attempt records to a JSON file.
func saveAttempts(ctx context.Context, cfg *Config, attempts []Attempt) error {
	if len(attempts) == 0 {
		return fmt.Errorf("no attempts to save")
	}

	filename := cfg.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "simulated_attempts_" + timestamp + ".json"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(attempts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal attempts: %w", err)
	}
	if err := os.WriteFile(filename, data, outputPermission); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	logger.Get().Info(ctx, "attempts saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	logger.Get().Info(ctx, "final statistics",
		logger.Int("tasksRun", stats.TasksRun),
		logger.Int("tasksCompleted", stats.TasksCompleted),
		logger.Int("framesFed", stats.FramesFed),
		logger.Int("resultsPosted", stats.ResultsPosted),
		logger.String("duration", stats.Duration.String()),
	)
}
