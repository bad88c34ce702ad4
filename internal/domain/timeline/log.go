// Package timeline provides the append-only, time-ordered event log that a
// recording session produces and a replay consumes.
//
// The log is owned by exactly one writer at a time: the recorder while
// recording, the replay scheduler while replaying. All mutation is
// mutex-guarded so ownership handoff needs no further coordination.
package timeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/telestra/telestra/internal/domain/model"
)

// Default log configuration constants.
const (
	defaultCapacity = 100000
)

// Log is an append-only collection of timeline events. Events keep their
// insertion order; SortedSnapshot applies the authoritative replay ordering.
type Log struct {
	mu       sync.RWMutex
	events   []model.TimelineEvent
	nextSeq  uint64
	capacity int
}

// Option applies a configuration option to the Log.
type Option func(*Log)

// WithCapacity bounds the number of events the log will accept.
func WithCapacity(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// NewLog creates an empty event log with configuration options.
func NewLog(opts ...Option) *Log {
	l := &Log{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Append validates and appends a single event, assigning its insertion
// sequence and, when missing, a fresh id. The stored event is returned.
func (l *Log) Append(e model.TimelineEvent) (model.TimelineEvent, error) {
	if e.TimeOffset < 0 {
		return model.TimelineEvent{}, fmt.Errorf("offset %d: %w", e.TimeOffset, ErrInvalidOffset)
	}
	if !e.Type.Valid() {
		return model.TimelineEvent{}, fmt.Errorf("type %q: %w", e.Type, ErrInvalidType)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.events) >= l.capacity {
		return model.TimelineEvent{}, ErrLogFull
	}

	if e.ID == "" {
		e.ID = model.NewEventID()
	}
	e.Seq = l.nextSeq
	l.nextSeq++
	l.events = append(l.events, e)
	return e, nil
}

// Replace swaps the entire log content, used when arming a replay from a
// loaded session. Sequence numbers are reassigned in the given order so the
// original insertion order keeps breaking ties.
func (l *Log) Replace(events []model.TimelineEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = make([]model.TimelineEvent, len(events))
	l.nextSeq = 0
	for i, e := range events {
		e.Seq = l.nextSeq
		l.nextSeq++
		l.events[i] = e
	}
}

// Snapshot returns a copy of the events in insertion order.
func (l *Log) Snapshot() []model.TimelineEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.TimelineEvent, len(l.events))
	copy(out, l.events)
	return out
}

// SortedSnapshot returns a copy of the events in replay order:
// (TimeOffset asc, priority asc, insertion order asc).
func (l *Log) SortedSnapshot() []model.TimelineEvent {
	out := l.Snapshot()
	Sort(out)
	return out
}

// Len returns the current number of events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// MaxOffset returns the largest event offset, or 0 for an empty log.
func (l *Log) MaxOffset() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var maxOffset int64
	for _, e := range l.events {
		if e.TimeOffset > maxOffset {
			maxOffset = e.TimeOffset
		}
	}
	return maxOffset
}

// Clear drops all events and resets the sequence counter.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
	l.nextSeq = 0
}

// Sort orders events in place by the authoritative replay ordering. The
// stable sort preserves insertion order for events whose three-part key is
// somehow equal, keeping replay deterministic across runs.
func Sort(events []model.TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Less(events[j])
	})
}
