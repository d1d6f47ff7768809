package export

import "errors"

// Sentinel kinds for export errors.
var ErrUnknownFormat = errors.New("unknown report format")
