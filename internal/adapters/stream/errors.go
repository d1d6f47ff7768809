package stream

import "errors"

// Sentinel kinds for runner errors.
var (
	ErrStopped = errors.New("runner stopped")
)
