package simulate

import "time"

// HTTP status code constants.
const (
	statusOK      = 200
	statusCreated = 201
)

// Frame-rate band the scripts stay deterministic in. Below the floor the
// jump flight collapses to too few frames; above the ceiling the sway and
// drift synthesis stops registering per-frame movement.
const (
	minFPS = 10
	maxFPS = 120
)

// defaultHTTPTimeout bounds each exerciser request.
const defaultHTTPTimeout = 30 * time.Second

// fullBandAgeMin is the lowest age that uses the full balance and walk
// targets; the expected-score table assumes it.
const fullBandAgeMin = 4

// File permission constants.
const (
	logFilePermission   = 0600
	outputPermission    = 0600
	directoryPermission = 0750
)
