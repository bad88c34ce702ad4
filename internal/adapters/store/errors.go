package store

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("store closed")
)
