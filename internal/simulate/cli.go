package simulate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/virtualmirror/kinescreen/pkg/logger"
)

// SetupLogging configures logging to both console and file. If logFile is
// empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "simulate_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		logger.SetLevel(slog.LevelDebug)
	}

	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	fmt.Print(`Kinescreen Simulator
====================

Drives the screening engine with synthetic landmark choreography and can
exercise a running service end to end.

Usage:
  go run cmd/simulate/main.go [options]

Options:
  -url string
        Base URL of a running service to exercise (default: engine only)
  -profile string
        Attempt profile: clean, wobbly, partial or absent (default "clean")
  -tasks string
        Comma-separated tasks to run (default: all six)
  -age int
        Child age in years (default 6)
  -height float
        Child height in centimeters (default 115)
  -lang string
        Voice guidance language: en or ar (default: en)
  -fps float
        Synthetic camera frame rate, 10-120 (default 30)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for attempt metrics (default: simulated_attempts_TIMESTAMP.json)
  -log string
        Log file (default: simulate_TIMESTAMP.log)
  -verbose
        Enable debug logging
  -help
        Show this help message

Profiles:
  clean    textbook attempts, every task scores 2
  wobbly   every task completes with a form fault, scores 1
  partial  each task gets partway there, mostly scores 1
  absent   the child stands still, every task scores 0

Examples:
  # Run the engine with perfect attempts
  go run cmd/simulate/main.go

  # A wobbly run replayed against a local service
  go run cmd/simulate/main.go -profile wobbly -url http://localhost:8000

  # Only the balance tasks, at a lower frame rate, with Arabic voice cues
  go run cmd/simulate/main.go -tasks one_leg,tiptoe -fps 15 -lang ar -verbose
`)
}
