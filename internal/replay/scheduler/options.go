package scheduler

import (
	"time"

	"github.com/telestra/telestra/internal/replay/clock"
	"github.com/telestra/telestra/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFrameScheduler sets the frame pacing used for category events.
func WithFrameScheduler(f FrameScheduler) Option {
	return func(s *Scheduler) {
		if f != nil {
			s.frames = f
		}
	}
}

// WithGracePeriod sets how far past the last event the simulated clock runs
// before reporting completion.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.gracePeriod = d
		}
	}
}

// WithTickInterval sets the simulated clock tick period.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithRetryDelay sets the pause before audio playback retries.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.retryDelay = d
		}
	}
}

// WithAudioPlayerFactory sets the factory used to build an audio player for
// the session's track. Without one the replay uses the simulated clock.
func WithAudioPlayerFactory(f AudioPlayerFactory) Option {
	return func(s *Scheduler) {
		s.playerFactory = f
	}
}

// WithAssetResolver sets the Loading-phase remote URL resolver.
func WithAssetResolver(r AssetResolver) Option {
	return func(s *Scheduler) {
		s.resolver = r
	}
}

// WithMarkerHook sets the callback invoked for marker events.
func WithMarkerHook(h MarkerHook) Option {
	return func(s *Scheduler) {
		s.markerHook = h
	}
}

// WithCompletionCallback sets the collaborator notified when the replay
// reaches the Completed state.
func WithCompletionCallback(fn func(sessionID string)) Option {
	return func(s *Scheduler) {
		s.onComplete = fn
	}
}

// WithClockSource overrides clock construction entirely. Intended for
// tests and callers that drive replay from an external clock.
func WithClockSource(src clock.Source) Option {
	return func(s *Scheduler) {
		s.clockOverride = src
	}
}
