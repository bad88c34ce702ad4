package model

// Tool identifies the drawing tool that produced a stroke.
type Tool string

// Drawing tools.
const (
	ToolFreehand Tool = "freehand"
	ToolLine     Tool = "line"
)

// Point is a single sample of a stroke in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DrawingPath is a single annotation stroke drawn over the video frame.
//
// Three timestamps may describe when the stroke was created; consumers
// prefer TimelineOffset, then VideoTime, then the wall-clock Timestamp.
type DrawingPath struct {
	Points    []Point `json:"points"`
	Color     string  `json:"color"`
	Width     float64 `json:"width"`
	Tool      Tool    `json:"tool"`
	Timestamp int64   `json:"timestamp"` // wall-clock ms

	VideoTime      *int64 `json:"videoTime,omitempty"`      // ms offset into the video
	TimelineOffset *int64 `json:"timelineOffset,omitempty"` // ms since the recording epoch
	HiddenAt       *int64 `json:"hiddenAt,omitempty"`       // timeline position of the hiding clear
}

// EffectiveOffset resolves the stroke's timeline position, preferring the
// global timeline offset, then the video-relative offset, then the
// wall-clock timestamp.
func (p DrawingPath) EffectiveOffset() int64 {
	if p.TimelineOffset != nil {
		return *p.TimelineOffset
	}
	if p.VideoTime != nil {
		return *p.VideoTime
	}
	return p.Timestamp
}

// Renderable reports whether the stroke has enough points to draw.
func (p DrawingPath) Renderable() bool {
	return len(p.Points) >= 2
}

// Clone returns a deep copy of the stroke.
func (p DrawingPath) Clone() DrawingPath {
	out := p
	out.Points = append([]Point(nil), p.Points...)
	if p.VideoTime != nil {
		v := *p.VideoTime
		out.VideoTime = &v
	}
	if p.TimelineOffset != nil {
		v := *p.TimelineOffset
		out.TimelineOffset = &v
	}
	if p.HiddenAt != nil {
		v := *p.HiddenAt
		out.HiddenAt = &v
	}
	return out
}
