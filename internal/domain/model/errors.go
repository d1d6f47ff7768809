package model

import "errors"

// ErrInvalidSessionType rejects session types other than initial or followup.
var ErrInvalidSessionType = errors.New("invalid session type")
