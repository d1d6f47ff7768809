package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("session not found")
	ErrDisplayIDTaken = errors.New("display id already in use")
)
