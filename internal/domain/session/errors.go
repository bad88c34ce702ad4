package session

import "errors"

// Sentinel kinds for serialization errors.
var (
	ErrSerialization  = errors.New("session serialization failed")
	ErrMalformedAudio = errors.New("malformed audio payload")
	ErrEmptySession   = errors.New("empty session payload")
)
