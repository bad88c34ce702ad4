package service

import "errors"

// Sentinel kinds for service-level ownership rules.
var (
	// ErrSessionBusy signals the session is held by the other half of the
	// engine: replaying a session that is still recording, or stopping a
	// recording through the wrong session id.
	ErrSessionBusy = errors.New("session busy")

	// ErrNoReplay signals no replay is active for the session.
	ErrNoReplay = errors.New("no active replay")

	// ErrInvalidEvent signals a structurally invalid event submission.
	ErrInvalidEvent = errors.New("invalid event")
)
