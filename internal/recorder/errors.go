package recorder

import "errors"

// Sentinel kinds for recorder errors.
var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrUnsupportedFormat = errors.New("no supported recording format")
	ErrAlreadyRecording  = errors.New("recording already active")
	ErrNotRecording      = errors.New("no active recording")
)
