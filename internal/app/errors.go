package service

import "errors"

// ErrSessionComplete rejects writes to a session that has already been
// summarized.
var ErrSessionComplete = errors.New("session already complete")
