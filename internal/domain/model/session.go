package model

// AudioChunk is one captured span of audio. Exactly one of Data, DataURL,
// or RemoteURL is the authoritative source at any time; conversions between
// them are lossless and preserve MimeType.
type AudioChunk struct {
	Data      []byte `json:"-"`              // raw bytes, in-memory form
	DataURL   string `json:"blob,omitempty"` // base64 data URL, persisted form
	RemoteURL string `json:"url,omitempty"`  // reference returned by an upload collaborator
	StartTime int64  `json:"startTime"`      // wall-clock ms at capture start
	Duration  int64  `json:"duration"`       // ms
	VideoTime int64  `json:"videoTime"`      // ms offset into the video
	MimeType  string `json:"mimeType"`
}

// Authoritative returns which representation currently backs the chunk.
func (c AudioChunk) Authoritative() string {
	switch {
	case len(c.Data) > 0:
		return "raw"
	case c.DataURL != "":
		return "dataurl"
	case c.RemoteURL != "":
		return "remote"
	default:
		return "empty"
	}
}

// AudioTrack is the recorded audio for a session. A mature track holds
// exactly one chunk spanning the whole recording; multi-chunk tracks are
// legacy and still replayable.
type AudioTrack struct {
	Chunks        []AudioChunk `json:"chunks"`
	TotalDuration int64        `json:"totalDuration"` // ms
}

// Empty reports whether the track carries no audio.
func (t *AudioTrack) Empty() bool {
	return t == nil || len(t.Chunks) == 0
}

// Categories maps category ids to ratings. Zero and absent both mean
// unrated; 1..3 are rated tiers.
type Categories map[string]int

// Merge applies edits last-write-wins per key and returns a new map.
// The receiver is not mutated.
func (c Categories) Merge(edits Categories) Categories {
	out := c.Clone()
	for id, rating := range edits {
		out[id] = rating
	}
	return out
}

// Normalize strips zero-valued entries so "unrated" persists as absent.
func (c Categories) Normalize() Categories {
	out := make(Categories, len(c))
	for id, rating := range c {
		if rating != 0 {
			out[id] = rating
		}
	}
	return out
}

// Clone returns a copy of the map.
func (c Categories) Clone() Categories {
	out := make(Categories, len(c))
	for id, rating := range c {
		out[id] = rating
	}
	return out
}

// FeedbackSession is the complete persisted record of one recording:
// audio track, timeline events, and category ratings.
type FeedbackSession struct {
	ID         string          `json:"id"`
	VideoID    string          `json:"videoId"`
	StartTime  int64           `json:"startTime"` // wall-clock ms at recording start
	EndTime    int64           `json:"endTime,omitempty"`
	AudioTrack *AudioTrack     `json:"audioTrack,omitempty"`
	Events     []TimelineEvent `json:"events"`
	Categories Categories      `json:"categories,omitempty"`
}

// NewSessionID returns a fresh unique session id.
func NewSessionID() string {
	return NewEventID()
}

// MaxEventOffset returns the largest event offset, or 0 for an empty log.
// The simulated clock uses it to bound replay duration.
func (s *FeedbackSession) MaxEventOffset() int64 {
	var maxOffset int64
	for _, e := range s.Events {
		if e.TimeOffset > maxOffset {
			maxOffset = e.TimeOffset
		}
	}
	return maxOffset
}

// Clone returns a deep copy of the session.
func (s *FeedbackSession) Clone() *FeedbackSession {
	out := *s
	out.Events = make([]TimelineEvent, len(s.Events))
	for i, e := range s.Events {
		if e.Payload.Stroke != nil {
			stroke := e.Payload.Stroke.Clone()
			e.Payload.Stroke = &stroke
		}
		out.Events[i] = e
	}
	out.Categories = s.Categories.Clone()
	if s.AudioTrack != nil {
		track := AudioTrack{
			Chunks:        make([]AudioChunk, len(s.AudioTrack.Chunks)),
			TotalDuration: s.AudioTrack.TotalDuration,
		}
		for i, c := range s.AudioTrack.Chunks {
			c.Data = append([]byte(nil), c.Data...)
			track.Chunks[i] = c
		}
		out.AudioTrack = &track
	}
	return &out
}
