package scheduler

import (
	"sync"
	"time"
)

// VideoTransport is the video element collaborator. The scheduler calls it
// in response to replayed video events.
type VideoTransport interface {
	Seek(ms int64)
	Play()
	Pause()
	SetPlaybackRate(rate float64)
}

// RatingSink receives category rating changes during replay.
type RatingSink interface {
	ApplyRating(categoryID string, rating int)
}

// MarkerHook is the extension point invoked for marker events. Markers have
// no default side effect.
type MarkerHook func(label string, offsetMS int64)

// FrameScheduler sequences callbacks one rendered frame apart. Category
// events run through it so rapid successive rating changes each get their
// own frame instead of collapsing into one batched update.
type FrameScheduler interface {
	Schedule(fn func())
}

// Default frame pacing. One frame at 60Hz.
const defaultFrameInterval = 16 * time.Millisecond

// pacedFrames runs scheduled callbacks in order, one frame interval apart,
// on a single goroutine.
type pacedFrames struct {
	interval time.Duration

	mu      sync.Mutex
	queue   []func()
	running bool
}

// NewPacedFrames creates the default frame scheduler.
func NewPacedFrames(interval time.Duration) FrameScheduler {
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	return &pacedFrames{interval: interval}
}

func (p *pacedFrames) Schedule(fn func()) {
	p.mu.Lock()
	p.queue = append(p.queue, fn)
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	go p.drain()
}

// Drop discards callbacks that have not run yet. Called on replay stop so
// queued rating changes cannot land after visual state resets.
func (p *pacedFrames) Drop() {
	p.mu.Lock()
	p.queue = nil
	p.mu.Unlock()
}

func (p *pacedFrames) drain() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.running = false
			p.mu.Unlock()
			return
		}
		fn := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		fn()
		time.Sleep(p.interval)
	}
}

// ImmediateFrames runs callbacks synchronously. Useful for target
// environments that do not batch updates, and for tests.
type ImmediateFrames struct{}

func (ImmediateFrames) Schedule(fn func()) { fn() }
