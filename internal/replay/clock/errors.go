package clock

import "errors"

// Sentinel kinds for audio playback errors. AudioPlayer implementations
// return these so callers can distinguish policy blocks from hard failures.
var (
	ErrPlaybackBlocked = errors.New("audio playback blocked by interaction policy")
	ErrPlaybackFailure = errors.New("audio playback failed")
)
