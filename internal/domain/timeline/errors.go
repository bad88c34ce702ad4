package timeline

import "errors"

// Sentinel kinds for event log errors.
var (
	ErrInvalidOffset = errors.New("event offset must be non-negative")
	ErrInvalidType   = errors.New("unknown event type")
	ErrLogFull       = errors.New("event log capacity exceeded")
)
