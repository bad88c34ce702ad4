// Package model contains domain models passed between layers.
package model

import "github.com/google/uuid"

// EventType classifies a timeline event.
type EventType string

// Timeline event types.
const (
	EventVideo      EventType = "video"
	EventAnnotation EventType = "annotation"
	EventMarker     EventType = "marker"
	EventCategory   EventType = "category"
)

// Default execution priorities by event type. Lower executes first when
// offsets are equal: transport changes must land before dependent visual
// state.
const (
	PriorityVideo      = 1
	PriorityAnnotation = 2
	PriorityMarker     = 3
	PriorityCategory   = 4
)

// DefaultPriority returns the execution priority for an event type.
func (t EventType) DefaultPriority() int {
	switch t {
	case EventVideo:
		return PriorityVideo
	case EventAnnotation:
		return PriorityAnnotation
	case EventMarker:
		return PriorityMarker
	case EventCategory:
		return PriorityCategory
	default:
		return PriorityCategory
	}
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventVideo, EventAnnotation, EventMarker, EventCategory:
		return true
	}
	return false
}

// Video transport actions carried by video events.
const (
	ActionPlay     = "play"
	ActionPause    = "pause"
	ActionSeek     = "seek"
	ActionRate     = "playback-rate-change"
	ActionShortcut = "keyboard-shortcut"
)

// Annotation actions carried by annotation events.
const (
	ActionDraw  = "draw"
	ActionClear = "clear"
)

// EventPayload holds the type-specific data of a timeline event. Only the
// fields relevant to the event type are set.
type EventPayload struct {
	Action     string       `json:"action,omitempty"`
	SeekTo     int64        `json:"seekTo,omitempty"`
	Rate       float64      `json:"rate,omitempty"`
	Key        string       `json:"key,omitempty"`
	Stroke     *DrawingPath `json:"stroke,omitempty"`
	CategoryID string       `json:"categoryId,omitempty"`
	Rating     int          `json:"rating,omitempty"`
	Label      string       `json:"label,omitempty"`

	// Prerecorded marks category events captured before recording started.
	Prerecorded bool `json:"prerecorded,omitempty"`
}

// TimelineEvent is a single recorded interaction on the session timeline.
type TimelineEvent struct {
	ID         string       `json:"id"`
	Type       EventType    `json:"type"`
	TimeOffset int64        `json:"timeOffset"` // ms from the recording epoch
	Duration   int64        `json:"duration,omitempty"`
	Payload    EventPayload `json:"payload"`
	Priority   int          `json:"priority,omitempty"`

	// Seq is the insertion order assigned by the event log. It breaks ties
	// beyond (TimeOffset, Priority) so replay is deterministic. Not persisted.
	Seq uint64 `json:"-"`
}

// NewEventID returns a fresh unique event id.
func NewEventID() string {
	return uuid.NewString()
}

// EffectivePriority returns the explicit priority when set, otherwise the
// default priority for the event type.
func (e TimelineEvent) EffectivePriority() int {
	if e.Priority > 0 {
		return e.Priority
	}
	return e.Type.DefaultPriority()
}

// Less orders events by (TimeOffset asc, EffectivePriority asc, Seq asc).
// This is the single authoritative ordering rule for replay.
func (e TimelineEvent) Less(other TimelineEvent) bool {
	if e.TimeOffset != other.TimeOffset {
		return e.TimeOffset < other.TimeOffset
	}
	if p, q := e.EffectivePriority(), other.EffectivePriority(); p != q {
		return p < q
	}
	return e.Seq < other.Seq
}
