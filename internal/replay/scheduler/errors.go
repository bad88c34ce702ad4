package scheduler

import "errors"

// Sentinel kinds for replay scheduler errors.
var (
	ErrNotArmed       = errors.New("replay not armed")
	ErrAlreadyPlaying = errors.New("replay already playing")
	ErrCompleted      = errors.New("replay already completed")
	ErrLoadFailed     = errors.New("replay asset loading failed")
)
