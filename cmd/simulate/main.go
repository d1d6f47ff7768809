package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/virtualmirror/kinescreen/internal/simulate"
)

// Default configuration constants.
const (
	defaultAgeYears   = 6
	defaultHeightCM   = 115
	defaultFPS        = 30
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "", "Base URL of a running service to exercise (default: engine only)")
		profile = flag.String("profile", "clean", "Attempt profile: clean, wobbly, partial or absent")
		tasks   = flag.String("tasks", "", "Comma-separated tasks to run (default: all six)")
		age     = flag.Int("age", defaultAgeYears, "Child age in years")
		height  = flag.Float64("height", defaultHeightCM, "Child height in centimeters")
		lang    = flag.String("lang", "", "Voice guidance language: en or ar (default: en)")
		fps     = flag.Float64("fps", defaultFPS, "Synthetic camera frame rate")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		output  = flag.String("output", "", "Output file for attempt metrics (default: simulated_attempts_TIMESTAMP.json)")
		logFile = flag.String("log", "", "Log file (default: simulate_TIMESTAMP.log)")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	prof, err := simulate.ParseProfile(*profile)
	if err != nil {
		os.Stderr.WriteString("Invalid profile: " + err.Error() + "\n")
		return
	}
	kinds, err := simulate.ParseTasks(*tasks)
	if err != nil {
		os.Stderr.WriteString("Invalid task list: " + err.Error() + "\n")
		return
	}

	if err := simulate.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:    *baseURL,
		Profile:    prof,
		Tasks:      kinds,
		FPS:        *fps,
		AgeYears:   *age,
		HeightCM:   *height,
		Language:   *lang,
		Timeout:    *timeout,
		OutputFile: *output,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
