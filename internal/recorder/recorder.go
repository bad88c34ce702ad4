// Package recorder captures a feedback session: microphone audio, discrete
// interaction events stamped relative to the recording epoch, and category
// ratings.
package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/telestra/telestra/internal/domain/annotation"
	"github.com/telestra/telestra/internal/domain/model"
	"github.com/telestra/telestra/internal/domain/timeline"
	"github.com/telestra/telestra/pkg/logger"
	"github.com/telestra/telestra/pkg/metrics"
)

// Status mirrors the recorder lifecycle for external observers.
type Status string

// Recorder statuses.
const (
	StatusStandby   Status = "standby"
	StatusRecording Status = "recording"
)

// Recorder owns the event log and the timeline position while a recording
// is active. Category edits are the one interaction accepted while idle, to
// support pre-recording rating edits.
type Recorder struct {
	device  CaptureDevice
	surface *annotation.Surface
	codecs  []string
	now     func() time.Time
	logger  logger.Logger

	mu        sync.Mutex
	log       *timeline.Log
	session   *model.FeedbackSession
	stream    CaptureStream
	epoch     time.Time
	active    bool
	audioless bool
	mimeType  string

	segments  [][]byte
	segmentMS int64
	collectWG sync.WaitGroup

	// categories persists across recordings so pre-recording edits land in
	// the next session; prerecorded keeps the matching audit events.
	categories  model.Categories
	prerecorded []model.TimelineEvent
}

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithDevice sets the microphone device. Without one, every recording is
// audio-less.
func WithDevice(device CaptureDevice) Option {
	return func(r *Recorder) {
		r.device = device
	}
}

// WithCodecPreferences overrides the codec negotiation order.
func WithCodecPreferences(codecs []string) Option {
	return func(r *Recorder) {
		if len(codecs) > 0 {
			r.codecs = codecs
		}
	}
}

// WithLogger sets a custom logger for the recorder.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock sets the wall-clock function, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a recorder drawing on the given annotation surface.
func New(surface *annotation.Surface, opts ...Option) *Recorder {
	r := &Recorder{
		surface:    surface,
		codecs:     defaultCodecPreferences,
		now:        time.Now,
		logger:     logger.Get().Named("recorder"),
		log:        timeline.NewLog(),
		categories: model.Categories{},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Status returns the current recorder status.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return StatusRecording
	}
	return StatusStandby
}

// Session returns the in-progress session, or nil when idle.
func (r *Recorder) Session() *model.FeedbackSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Start begins a new recording for the given video. The recording epoch is
// the moment of this call. Microphone acquisition failure is reported via
// the returned error but recording continues in audio-less mode; only
// ErrAlreadyRecording aborts the start.
func (r *Recorder) Start(ctx context.Context, videoID string) (*model.FeedbackSession, error) {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return nil, ErrAlreadyRecording
	}

	now := r.now()
	r.epoch = now
	r.active = true
	r.audioless = false
	r.segments = nil
	r.segmentMS = 0
	r.log.Clear()

	r.session = &model.FeedbackSession{
		ID:         model.NewSessionID(),
		VideoID:    videoID,
		StartTime:  now.UnixMilli(),
		Categories: r.categories.Clone(),
	}

	// Pre-recording category edits carry over as audit events at offset 0.
	for _, e := range r.prerecorded {
		if _, err := r.log.Append(e); err != nil {
			r.logger.Warn(ctx, "dropping prerecorded category event", logger.Error(err))
		}
	}
	r.prerecorded = nil
	r.mu.Unlock()

	r.surface.Reset()
	r.surface.SetReplaying(false)
	metrics.UpdateRecordingsActive(1)

	warn := r.acquireAudio(ctx)
	return r.Session(), warn
}

// acquireAudio negotiates a codec and opens the microphone. Failures
// degrade to audio-less recording.
func (r *Recorder) acquireAudio(ctx context.Context) error {
	if r.device == nil {
		r.setAudioless()
		return nil
	}

	mimeType := negotiateCodec(r.device, r.codecs)
	if mimeType == "" {
		// Codec negotiation failure falls back to the platform default.
		r.logger.Warn(ctx, "no preferred codec supported; using platform default")
	}

	stream, err := r.device.Open(ctx, mimeType)
	if err != nil {
		r.setAudioless()
		metrics.RecordMicrophoneFailure()
		if errors.Is(err, ErrPermissionDenied) {
			r.logger.Warn(ctx, "microphone permission denied; recording without audio")
			return fmt.Errorf("recording continues without audio: %w", err)
		}
		r.logger.Warn(ctx, "microphone unavailable; recording without audio", logger.Error(err))
		return fmt.Errorf("recording continues without audio: %w", err)
	}

	r.mu.Lock()
	r.stream = stream
	r.mimeType = stream.MimeType()
	r.mu.Unlock()

	r.collectWG.Add(1)
	go r.collect(stream)
	return nil
}

func (r *Recorder) setAudioless() {
	r.mu.Lock()
	r.audioless = true
	r.mu.Unlock()
}

// collect accumulates captured audio segments until the stream closes.
func (r *Recorder) collect(stream CaptureStream) {
	defer r.collectWG.Done()
	for seg := range stream.Segments() {
		if len(seg.Data) == 0 {
			continue
		}
		r.mu.Lock()
		r.segments = append(r.segments, seg.Data)
		r.segmentMS += seg.Duration.Milliseconds()
		r.mu.Unlock()
		metrics.RecordAudioBytesCaptured(len(seg.Data))
	}
}

// Elapsed returns the current offset from the recording epoch, 0 when idle.
func (r *Recorder) Elapsed() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return 0
	}
	return r.now().Sub(r.epoch).Milliseconds()
}

// record stamps and appends an event. Only category events are accepted
// while idle.
func (r *Recorder) record(eventType model.EventType, payload model.EventPayload) (model.TimelineEvent, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return model.TimelineEvent{}, ErrNotRecording
	}
	offset := r.now().Sub(r.epoch).Milliseconds()
	r.mu.Unlock()

	e := model.TimelineEvent{
		ID:         model.NewEventID(),
		Type:       eventType,
		TimeOffset: offset,
		Payload:    payload,
	}
	stored, err := r.log.Append(e)
	if err != nil {
		return model.TimelineEvent{}, err
	}
	metrics.RecordEventRecorded(string(eventType))
	return stored, nil
}

// RecordPlay records a video play action.
func (r *Recorder) RecordPlay() (model.TimelineEvent, error) {
	return r.record(model.EventVideo, model.EventPayload{Action: model.ActionPlay})
}

// RecordPause records a video pause action.
func (r *Recorder) RecordPause() (model.TimelineEvent, error) {
	return r.record(model.EventVideo, model.EventPayload{Action: model.ActionPause})
}

// RecordSeek records a video seek to the given position.
func (r *Recorder) RecordSeek(toMS int64) (model.TimelineEvent, error) {
	return r.record(model.EventVideo, model.EventPayload{Action: model.ActionSeek, SeekTo: toMS})
}

// RecordRateChange records a playback-rate change.
func (r *Recorder) RecordRateChange(rate float64) (model.TimelineEvent, error) {
	return r.record(model.EventVideo, model.EventPayload{Action: model.ActionRate, Rate: rate})
}

// RecordShortcut records a keyboard shortcut.
func (r *Recorder) RecordShortcut(key string) (model.TimelineEvent, error) {
	return r.record(model.EventVideo, model.EventPayload{Action: model.ActionShortcut, Key: key})
}

// RecordMarker records a marker with a label.
func (r *Recorder) RecordMarker(label string) (model.TimelineEvent, error) {
	return r.record(model.EventMarker, model.EventPayload{Label: label})
}

// RecordStrokeEnd commits the in-progress stroke on the surface, stamped at
// the current timeline offset, and records the matching draw event.
func (r *Recorder) RecordStrokeEnd(videoTimeMS int64) (model.TimelineEvent, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return model.TimelineEvent{}, ErrNotRecording
	}
	offset := r.now().Sub(r.epoch).Milliseconds()
	r.mu.Unlock()

	stroke, ok := r.surface.EndStroke(offset, videoTimeMS)
	if !ok {
		return model.TimelineEvent{}, annotation.ErrNoActiveStroke
	}

	e := model.TimelineEvent{
		ID:         model.NewEventID(),
		Type:       model.EventAnnotation,
		TimeOffset: offset,
		Payload:    model.EventPayload{Action: model.ActionDraw, Stroke: &stroke},
	}
	stored, err := r.log.Append(e)
	if err != nil {
		return model.TimelineEvent{}, err
	}
	metrics.RecordEventRecorded(string(model.EventAnnotation))
	return stored, nil
}

// RecordClear clears the surface at the current timeline offset and records
// the clear event.
func (r *Recorder) RecordClear() (model.TimelineEvent, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return model.TimelineEvent{}, ErrNotRecording
	}
	offset := r.now().Sub(r.epoch).Milliseconds()
	r.mu.Unlock()

	r.surface.Clear(offset)

	e := model.TimelineEvent{
		ID:         model.NewEventID(),
		Type:       model.EventAnnotation,
		TimeOffset: offset,
		Payload:    model.EventPayload{Action: model.ActionClear},
	}
	stored, err := r.log.Append(e)
	if err != nil {
		return model.TimelineEvent{}, err
	}
	metrics.RecordEventRecorded(string(model.EventAnnotation))
	return stored, nil
}

// RecordCategory records a rating change. Accepted even while idle: the
// edit merges into the category map last-write-wins and carries into the
// next session's log as an audit event.
func (r *Recorder) RecordCategory(categoryID string, rating int) (model.TimelineEvent, error) {
	r.mu.Lock()
	active := r.active
	var offset int64
	if active {
		offset = r.now().Sub(r.epoch).Milliseconds()
	}
	r.categories[categoryID] = rating
	if r.session != nil {
		r.session.Categories = r.session.Categories.Merge(model.Categories{categoryID: rating})
	}
	r.mu.Unlock()

	payload := model.EventPayload{CategoryID: categoryID, Rating: rating, Prerecorded: !active}
	e := model.TimelineEvent{
		ID:         model.NewEventID(),
		Type:       model.EventCategory,
		TimeOffset: offset,
		Payload:    payload,
	}

	if !active {
		r.mu.Lock()
		r.prerecorded = append(r.prerecorded, e)
		r.mu.Unlock()
		return e, nil
	}

	stored, err := r.log.Append(e)
	if err != nil {
		return model.TimelineEvent{}, err
	}
	metrics.RecordEventRecorded(string(model.EventCategory))
	return stored, nil
}

// Stop finalizes the recording: the audio blob is assembled from the
// accumulated segments, the session snapshot gets its events and category
// ratings, and the microphone stream is released unconditionally, even if
// finalization fails.
func (r *Recorder) Stop(ctx context.Context) (*model.FeedbackSession, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	r.active = false
	stream := r.stream
	r.stream = nil
	epoch := r.epoch
	s := r.session
	r.session = nil
	r.mu.Unlock()

	// Release the microphone first so a finalization failure can never
	// leave it held.
	if stream != nil {
		if err := stream.Close(); err != nil {
			r.logger.Warn(ctx, "closing capture stream", logger.Error(err))
		}
		r.collectWG.Wait()
	}

	now := r.now()
	elapsedMS := now.Sub(epoch).Milliseconds()

	r.mu.Lock()
	blob := bytes.Join(r.segments, nil)
	segmentMS := r.segmentMS
	mimeType := r.mimeType
	r.segments = nil
	r.segmentMS = 0
	r.mu.Unlock()

	s.EndTime = now.UnixMilli()
	s.Events = r.log.Snapshot()
	s.Categories = s.Categories.Merge(nil)

	// Zero captured bytes silently skips chunk creation.
	if len(blob) > 0 {
		duration := elapsedMS
		if segmentMS > duration {
			duration = segmentMS
		}
		s.AudioTrack = &model.AudioTrack{
			Chunks: []model.AudioChunk{{
				Data:      blob,
				StartTime: epoch.UnixMilli(),
				Duration:  duration,
				VideoTime: 0,
				MimeType:  mimeType,
			}},
			TotalDuration: duration,
		}
		metrics.RecordAudioChunkFinalized()
	}

	metrics.UpdateRecordingsActive(0)
	r.logger.Info(ctx, "recording finalized",
		logger.String("sessionID", s.ID),
		logger.Int("events", len(s.Events)),
		logger.Int64("durationMS", elapsedMS),
		logger.Bool("audio", s.AudioTrack != nil),
	)
	return s, nil
}
