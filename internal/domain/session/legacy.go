package session

import (
	"encoding/json"
	"fmt"

	"github.com/telestra/telestra/internal/domain/model"
)

// legacySession is the pre-timeline persisted shape: a flat action list
// instead of typed timeline events. It is translatable to and from the
// current shape without loss for the fields both shapes support; priority
// is not representable and is dropped on the way back.
type legacySession struct {
	ID         string            `json:"id"`
	VideoID    string            `json:"videoId"`
	StartTime  int64             `json:"startTime"`
	EndTime    int64             `json:"endTime,omitempty"`
	AudioTrack *model.AudioTrack `json:"audioTrack,omitempty"`
	Actions    []legacyAction    `json:"actions"`
	Categories map[string]int    `json:"categories,omitempty"`
}

type legacyAction struct {
	Type       string             `json:"type"`
	Time       int64              `json:"time"`
	To         int64              `json:"to,omitempty"`
	Rate       float64            `json:"rate,omitempty"`
	Key        string             `json:"key,omitempty"`
	Stroke     *model.DrawingPath `json:"stroke,omitempty"`
	CategoryID string             `json:"categoryId,omitempty"`
	Rating     int                `json:"rating,omitempty"`
	Label      string             `json:"label,omitempty"`
}

// Legacy action type names.
const (
	legacyPlay     = "play"
	legacyPause    = "pause"
	legacySeek     = "seek"
	legacyRate     = "rateChange"
	legacyShortcut = "shortcut"
	legacyDraw     = "draw"
	legacyClear    = "clear"
	legacyMarker   = "marker"
	legacyCategory = "category"
)

// restoreLegacy parses a legacy payload and translates it to the current
// session shape.
func restoreLegacy(data []byte) (*model.FeedbackSession, error) {
	var ls legacySession
	if err := json.Unmarshal(data, &ls); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return FromLegacy(&ls), nil
}

// FromLegacy translates a legacy session into the typed timeline shape.
// Actions keep their order; event ids are freshly assigned because the
// legacy shape never carried them.
func FromLegacy(ls *legacySession) *model.FeedbackSession {
	s := &model.FeedbackSession{
		ID:         ls.ID,
		VideoID:    ls.VideoID,
		StartTime:  ls.StartTime,
		EndTime:    ls.EndTime,
		AudioTrack: ls.AudioTrack,
		Events:     make([]model.TimelineEvent, 0, len(ls.Actions)),
		Categories: model.Categories(ls.Categories).Clone(),
	}

	for _, a := range ls.Actions {
		e := model.TimelineEvent{
			ID:         model.NewEventID(),
			TimeOffset: a.Time,
		}
		switch a.Type {
		case legacyPlay:
			e.Type = model.EventVideo
			e.Payload = model.EventPayload{Action: model.ActionPlay}
		case legacyPause:
			e.Type = model.EventVideo
			e.Payload = model.EventPayload{Action: model.ActionPause}
		case legacySeek:
			e.Type = model.EventVideo
			e.Payload = model.EventPayload{Action: model.ActionSeek, SeekTo: a.To}
		case legacyRate:
			e.Type = model.EventVideo
			e.Payload = model.EventPayload{Action: model.ActionRate, Rate: a.Rate}
		case legacyShortcut:
			e.Type = model.EventVideo
			e.Payload = model.EventPayload{Action: model.ActionShortcut, Key: a.Key}
		case legacyDraw:
			e.Type = model.EventAnnotation
			e.Payload = model.EventPayload{Action: model.ActionDraw, Stroke: a.Stroke}
		case legacyClear:
			e.Type = model.EventAnnotation
			e.Payload = model.EventPayload{Action: model.ActionClear}
		case legacyMarker:
			e.Type = model.EventMarker
			e.Payload = model.EventPayload{Label: a.Label}
		case legacyCategory:
			e.Type = model.EventCategory
			e.Payload = model.EventPayload{CategoryID: a.CategoryID, Rating: a.Rating}
		default:
			// Unknown legacy action; preserved as a marker so nothing is lost.
			e.Type = model.EventMarker
			e.Payload = model.EventPayload{Label: a.Type}
		}
		s.Events = append(s.Events, e)
	}

	return s
}

// ToLegacy translates a session back to the legacy flat-action shape.
// Priority and event ids are not representable and are dropped; category
// events captured before recording are dropped too, since the legacy shape
// only knew in-recording actions.
func ToLegacy(s *model.FeedbackSession) *legacySession {
	ls := &legacySession{
		ID:         s.ID,
		VideoID:    s.VideoID,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		AudioTrack: s.AudioTrack,
		Actions:    make([]legacyAction, 0, len(s.Events)),
		Categories: s.Categories.Normalize(),
	}

	for _, e := range s.Events {
		a := legacyAction{Time: e.TimeOffset}
		switch e.Type {
		case model.EventVideo:
			switch e.Payload.Action {
			case model.ActionPlay:
				a.Type = legacyPlay
			case model.ActionPause:
				a.Type = legacyPause
			case model.ActionSeek:
				a.Type = legacySeek
				a.To = e.Payload.SeekTo
			case model.ActionRate:
				a.Type = legacyRate
				a.Rate = e.Payload.Rate
			case model.ActionShortcut:
				a.Type = legacyShortcut
				a.Key = e.Payload.Key
			default:
				continue
			}
		case model.EventAnnotation:
			if e.Payload.Action == model.ActionClear {
				a.Type = legacyClear
			} else {
				a.Type = legacyDraw
				a.Stroke = e.Payload.Stroke
			}
		case model.EventMarker:
			a.Type = legacyMarker
			a.Label = e.Payload.Label
		case model.EventCategory:
			if e.Payload.Prerecorded {
				continue
			}
			a.Type = legacyCategory
			a.CategoryID = e.Payload.CategoryID
			a.Rating = e.Payload.Rating
		default:
			continue
		}
		ls.Actions = append(ls.Actions, a)
	}

	return ls
}

// MarshalLegacy serializes a session in the legacy shape, for callers that
// still feed the old consumer.
func MarshalLegacy(s *model.FeedbackSession) ([]byte, error) {
	data, err := json.Marshal(ToLegacy(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}
