// Package clock abstracts the current timeline position during replay.
//
// Two implementations exist: one driven by audio playback, one by a
// fixed-interval simulated ticker. The replay scheduler must not
// distinguish between them beyond reading Position and subscribing to
// ticks.
package clock

import "context"

// Source is the live authority for the current replay position. Position
// only moves forward under normal operation; consumers that must survive a
// backward glitch handle that themselves.
type Source interface {
	// Position returns the current timeline position in milliseconds.
	Position() int64

	// Subscribe registers a callback invoked on every clock advance with
	// the new position. Subscriptions must be registered before Start.
	Subscribe(fn func(positionMS int64))

	// Start begins advancing the clock. It returns an error when the
	// underlying medium cannot start.
	Start(ctx context.Context) error

	// Stop pauses the clock. Safe to call multiple times.
	Stop()

	// Done is closed when the medium reaches its natural end.
	Done() <-chan struct{}
}
