// Package task implements the screening task evaluators.
package task

import "errors"

// Task domain errors.
var (
	// ErrUnknownKind indicates a task name outside the closed screening set.
	ErrUnknownKind = errors.New("unknown task kind")
)
