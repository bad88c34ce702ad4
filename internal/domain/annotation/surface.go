// Package annotation maintains the list of drawing strokes, supporting live
// drawing during recording and filtered rendering during replay.
package annotation

import (
	"sync"

	"github.com/telestra/telestra/internal/domain/model"
	"github.com/telestra/telestra/pkg/metrics"
)

// Surface tracks strokes, their creation time, and visibility windows
// bounded by clear operations. A stroke is visible at position p when its
// effective offset is strictly greater than the last clear time and at most
// p.
type Surface struct {
	mu            sync.RWMutex
	strokes       []model.DrawingPath
	inProgress    *model.DrawingPath
	lastClearTime int64

	// enabled is a compatibility flag; drawing is always enabled during
	// recording and always disabled during replay regardless of it.
	enabled   bool
	replaying bool
}

// NewSurface creates an empty annotation surface.
func NewSurface() *Surface {
	return &Surface{enabled: true}
}

// Reset drops all strokes, abandons any in-progress stroke, and zeroes the
// last clear time. Called at the start of every recording or replay session.
func (s *Surface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strokes = nil
	s.inProgress = nil
	s.lastClearTime = 0
	metrics.UpdateStrokesVisible(0)
}

// SetReplaying toggles replay mode. Drawing is disabled entirely while
// replay is active.
func (s *Surface) SetReplaying(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaying = active
	if active {
		s.inProgress = nil
	}
}

// SetEnabled preserves the legacy enable toggle.
func (s *Surface) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// BeginStroke starts a new stroke at the given point. The wall-clock
// timestamp is recorded immediately; the timeline offset is stamped on
// commit.
func (s *Surface) BeginStroke(tool model.Tool, color string, width float64, at model.Point, wallClockMS int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replaying || !s.enabled {
		return ErrDrawingDisabled
	}

	s.inProgress = &model.DrawingPath{
		Points:    []model.Point{at},
		Color:     color,
		Width:     width,
		Tool:      tool,
		Timestamp: wallClockMS,
	}
	return nil
}

// ExtendStroke adds a pointer-move sample to the in-progress stroke.
// Freehand accumulates every sample; the line tool keeps only the start and
// the current end point.
func (s *Surface) ExtendStroke(pt model.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inProgress == nil {
		return ErrNoActiveStroke
	}

	switch s.inProgress.Tool {
	case model.ToolLine:
		if len(s.inProgress.Points) < 2 {
			s.inProgress.Points = append(s.inProgress.Points, pt)
		} else {
			s.inProgress.Points[1] = pt
		}
	default:
		s.inProgress.Points = append(s.inProgress.Points, pt)
	}
	return nil
}

// EndStroke commits the in-progress stroke, stamping its timeline offset.
// Strokes with fewer than two points are discarded without error: a stray
// click is not a drawing.
func (s *Surface) EndStroke(timelineOffset int64, videoTime int64) (model.DrawingPath, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stroke := s.inProgress
	s.inProgress = nil
	if stroke == nil || !stroke.Renderable() {
		return model.DrawingPath{}, false
	}

	stroke.TimelineOffset = &timelineOffset
	stroke.VideoTime = &videoTime
	s.strokes = append(s.strokes, *stroke)
	metrics.UpdateStrokesVisible(s.visibleCountLocked(timelineOffset))
	return *stroke, true
}

// AddStroke inserts a committed stroke directly. The replay scheduler uses
// this after re-stamping a replayed stroke's offset to its event offset.
func (s *Surface) AddStroke(stroke model.DrawingPath) {
	if !stroke.Renderable() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strokes = append(s.strokes, stroke)
}

// Clear hides every stroke visible at the given position, advances the last
// clear time to it, and returns the number of strokes hidden.
func (s *Surface) Clear(position int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	hidden := 0
	for i := range s.strokes {
		stroke := &s.strokes[i]
		if stroke.HiddenAt != nil {
			continue
		}
		offset := stroke.EffectiveOffset()
		if offset > s.lastClearTime && offset <= position {
			at := position
			stroke.HiddenAt = &at
			hidden++
		}
	}
	if position > s.lastClearTime {
		s.lastClearTime = position
	}

	metrics.RecordCanvasClear()
	metrics.UpdateStrokesVisible(0)
	return hidden
}

// Visible returns the strokes renderable at the given timeline position:
// effective offset strictly greater than the last clear time and at most
// the position.
func (s *Surface) Visible(position int64) []model.DrawingPath {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.DrawingPath
	for _, stroke := range s.strokes {
		if s.visibleAtLocked(stroke, position) {
			out = append(out, stroke.Clone())
		}
	}
	return out
}

// RenderList returns everything a full surface redraw needs: the committed
// strokes visible at position plus the in-progress stroke, if any. The live
// preview redraws from this list rather than patching incrementally, so the
// preview never diverges from committed state.
func (s *Surface) RenderList(position int64) []model.DrawingPath {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.DrawingPath
	for _, stroke := range s.strokes {
		if s.visibleAtLocked(stroke, position) {
			out = append(out, stroke.Clone())
		}
	}
	if s.inProgress != nil && len(s.inProgress.Points) >= 2 {
		out = append(out, s.inProgress.Clone())
	}
	return out
}

// LastClearTime returns the position of the most recent clear.
func (s *Surface) LastClearTime() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastClearTime
}

// StrokeCount returns the total number of committed strokes, hidden or not.
func (s *Surface) StrokeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.strokes)
}

func (s *Surface) visibleAtLocked(stroke model.DrawingPath, position int64) bool {
	if !stroke.Renderable() {
		return false
	}
	offset := stroke.EffectiveOffset()
	if offset <= s.lastClearTime || offset > position {
		return false
	}
	if stroke.HiddenAt != nil && *stroke.HiddenAt <= position {
		return false
	}
	return true
}

func (s *Surface) visibleCountLocked(position int64) int {
	n := 0
	for _, stroke := range s.strokes {
		if s.visibleAtLocked(stroke, position) {
			n++
		}
	}
	return n
}
