package clock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Default simulated clock configuration constants.
const (
	defaultTickInterval = 100 * time.Millisecond
)

// SimClock advances the timeline position with a fixed-period ticker. Used
// when no audio track exists or audio fails to initialize.
type SimClock struct {
	interval time.Duration
	limit    int64 // ms; 0 means unbounded

	position    atomic.Int64
	subscribers []func(int64)

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	doneOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// SimOption applies a configuration option to the SimClock.
type SimOption func(*SimClock)

// WithInterval sets the tick period.
func WithInterval(d time.Duration) SimOption {
	return func(c *SimClock) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLimit sets the position at which the clock reports end-of-media.
func WithLimit(ms int64) SimOption {
	return func(c *SimClock) {
		if ms > 0 {
			c.limit = ms
		}
	}
}

// NewSimClock creates a simulated clock with configuration options.
func NewSimClock(opts ...SimOption) *SimClock {
	c := &SimClock{
		interval: defaultTickInterval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Position returns the current timeline position in milliseconds.
func (c *SimClock) Position() int64 {
	return c.position.Load()
}

// Subscribe registers a tick callback. Must be called before Start.
func (c *SimClock) Subscribe(fn func(int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Start begins the ticker loop.
func (c *SimClock) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}
	c.started = true

	go c.run(ctx)
	return nil
}

func (c *SimClock) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			// Advance by the real elapsed interval, not the nominal period,
			// so a delayed tick does not lose time.
			elapsed := now.Sub(last).Milliseconds()
			last = now
			pos := c.position.Add(elapsed)

			for _, fn := range c.subscribers {
				fn(pos)
			}

			if c.limit > 0 && pos >= c.limit {
				c.doneOnce.Do(func() { close(c.done) })
				return
			}
		}
	}
}

// Stop pauses the clock.
func (c *SimClock) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Done is closed when the clock reaches its configured limit.
func (c *SimClock) Done() <-chan struct{} {
	return c.done
}
