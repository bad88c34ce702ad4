package clock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/telestra/telestra/pkg/logger"
	"github.com/telestra/telestra/pkg/metrics"
)

// Default audio clock configuration constants.
const (
	defaultRetryDelay = 500 * time.Millisecond
)

// AudioPlayer abstracts the audio playback element driving the clock.
// Implementations push playback position updates, an end-of-media signal,
// and asynchronous playback errors.
type AudioPlayer interface {
	// Play starts or resumes playback. Returns ErrPlaybackBlocked when an
	// interaction policy prevents playback, or another error on failure.
	Play(ctx context.Context) error

	// Pause halts playback without rewinding.
	Pause()

	// Rewind resets playback to the beginning, used before a retry.
	Rewind() error

	// TimeUpdates emits the playback position in milliseconds, typically
	// every 100-250ms of real time.
	TimeUpdates() <-chan int64

	// Ended is closed when playback reaches the end of the media.
	Ended() <-chan struct{}

	// Errors emits mid-playback failures.
	Errors() <-chan error
}

// AudioClock derives the timeline position from audio playback. A
// mid-playback error triggers one automatic rewind-and-retry after a fixed
// delay; if the retry also fails the clock reports end-of-media so the
// scheduler completes instead of hanging.
type AudioClock struct {
	player     AudioPlayer
	retryDelay time.Duration
	logger     logger.Logger

	position    atomic.Int64
	subscribers []func(int64)

	mu       sync.Mutex
	started  bool
	retried  bool
	stopOnce sync.Once
	doneOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// AudioOption applies a configuration option to the AudioClock.
type AudioOption func(*AudioClock)

// WithRetryDelay sets the pause before the single playback retry.
func WithRetryDelay(d time.Duration) AudioOption {
	return func(c *AudioClock) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// WithAudioLogger sets a custom logger for the clock.
func WithAudioLogger(l logger.Logger) AudioOption {
	return func(c *AudioClock) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewAudioClock creates an audio-driven clock with configuration options.
func NewAudioClock(player AudioPlayer, opts ...AudioOption) *AudioClock {
	c := &AudioClock{
		player:     player,
		retryDelay: defaultRetryDelay,
		logger:     logger.Get().Named("audio-clock"),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Position returns the current timeline position in milliseconds.
func (c *AudioClock) Position() int64 {
	return c.position.Load()
}

// Subscribe registers a tick callback. Must be called before Start.
func (c *AudioClock) Subscribe(fn func(int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Start begins playback and the update loop. A failed initial Play is
// retried once after the retry delay; a second failure is returned to the
// caller, which falls back to the simulated clock.
func (c *AudioClock) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	if err := c.player.Play(ctx); err != nil {
		c.logger.Warn(ctx, "audio start failed; retrying once", logger.Error(err))
		metrics.RecordAudioPlaybackRetry()

		select {
		case <-ctx.Done():
			return fmt.Errorf("audio start cancelled: %w", ctx.Err())
		case <-time.After(c.retryDelay):
		}

		if err := c.player.Rewind(); err != nil {
			return fmt.Errorf("audio rewind before retry: %w", err)
		}
		if err := c.player.Play(ctx); err != nil {
			return fmt.Errorf("audio start retry: %w", err)
		}
	}

	go c.run(ctx)
	return nil
}

func (c *AudioClock) run(ctx context.Context) {
	// A closed error channel must go nil, not stay selectable, or the loop
	// spins on it.
	errs := c.player.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-c.player.Ended():
			c.doneOnce.Do(func() { close(c.done) })
			return
		case pos, ok := <-c.player.TimeUpdates():
			if !ok {
				c.doneOnce.Do(func() { close(c.done) })
				return
			}
			c.position.Store(pos)
			for _, fn := range c.subscribers {
				fn(pos)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if !c.recover(ctx, err) {
				c.doneOnce.Do(func() { close(c.done) })
				return
			}
		}
	}
}

// recover performs the single mid-playback retry. Returns false when the
// retry budget is spent or the retry itself fails.
func (c *AudioClock) recover(ctx context.Context, cause error) bool {
	c.mu.Lock()
	already := c.retried
	c.retried = true
	c.mu.Unlock()

	if already {
		c.logger.Error(ctx, "audio failed after retry; forcing completion", logger.Error(cause))
		return false
	}

	c.logger.Warn(ctx, "audio playback error; retrying once", logger.Error(cause))
	metrics.RecordAudioPlaybackRetry()

	c.player.Pause()
	select {
	case <-ctx.Done():
		return false
	case <-c.stopCh:
		return false
	case <-time.After(c.retryDelay):
	}

	if err := c.player.Rewind(); err != nil {
		c.logger.Error(ctx, "audio rewind failed", logger.Error(err))
		return false
	}
	if err := c.player.Play(ctx); err != nil {
		c.logger.Error(ctx, "audio retry failed", logger.Error(err))
		return false
	}
	return true
}

// Stop pauses playback and halts the update loop.
func (c *AudioClock) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.player.Pause()
	})
}

// Done is closed when playback ends or fails past the retry budget.
func (c *AudioClock) Done() <-chan struct{} {
	return c.done
}
