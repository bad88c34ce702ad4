package annotation

import "errors"

// Sentinel kinds for annotation surface errors.
var (
	ErrDrawingDisabled = errors.New("drawing is disabled")
	ErrNoActiveStroke  = errors.New("no stroke in progress")
)
