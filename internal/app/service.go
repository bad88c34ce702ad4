// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/telestra/telestra/internal/adapters/store"
	"github.com/telestra/telestra/internal/domain/annotation"
	"github.com/telestra/telestra/internal/domain/model"
	"github.com/telestra/telestra/internal/domain/session"
	"github.com/telestra/telestra/internal/recorder"
	"github.com/telestra/telestra/internal/replay/scheduler"
	"github.com/telestra/telestra/pkg/logger"
	"github.com/telestra/telestra/pkg/metrics"
)

// Service owns the recorder, the session store, and the active replayers.
// It enforces exclusive session ownership: a session being recorded cannot
// be replayed and vice versa.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     store.Store
	surface   *annotation.Surface
	recorder  *recorder.Recorder
	codec     *session.Codec
	replayers map[string]*replayEntry

	// Configuration
	storePath     string
	tickInterval  time.Duration
	gracePeriod   time.Duration
	retryDelay    time.Duration
	logCapacity   int
	codecPrefs    []string
	device        recorder.CaptureDevice
	playerFactory scheduler.AudioPlayerFactory
	uploader      session.Uploader

	// State
	recordingID string
	started     bool

	// Logging
	logger logger.Logger
}

// replayEntry pairs a scheduler with the session-scoped collaborators it
// drives.
type replayEntry struct {
	sched   *scheduler.Scheduler
	surface *annotation.Surface
	ratings *ratingCollector
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStorePath selects the sqlite database file. Empty keeps sessions in
// memory only.
func WithStorePath(path string) Option {
	return func(s *Service) {
		s.storePath = path
	}
}

// WithTickInterval sets the simulated clock tick interval.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithGracePeriod sets how far the simulated clock runs past the last event.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.gracePeriod = d
		}
	}
}

// WithRetryDelay sets the wait before retrying blocked audio playback.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retryDelay = d
		}
	}
}

// WithLogCapacity bounds the recording event log.
func WithLogCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.logCapacity = n
		}
	}
}

// WithCodecPreferences orders audio capture formats by preference.
func WithCodecPreferences(codecs []string) Option {
	return func(s *Service) {
		if len(codecs) > 0 {
			s.codecPrefs = codecs
		}
	}
}

// WithCaptureDevice sets the microphone collaborator. Absent a device,
// recordings are audio-less.
func WithCaptureDevice(device recorder.CaptureDevice) Option {
	return func(s *Service) {
		s.device = device
	}
}

// WithAudioPlayerFactory sets the audio playback collaborator for replays.
// Absent a factory, replays run on the simulated clock.
func WithAudioPlayerFactory(f scheduler.AudioPlayerFactory) Option {
	return func(s *Service) {
		s.playerFactory = f
	}
}

// WithUploader sets the remote storage collaborator for finalized audio.
func WithUploader(u session.Uploader) Option {
	return func(s *Service) {
		s.uploader = u
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		tickInterval: 100 * time.Millisecond,
		gracePeriod:  5 * time.Second,
		retryDelay:   500 * time.Millisecond,
		logCapacity:  100_000,
		replayers:    make(map[string]*replayEntry),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.storePath != "" {
		st, err := store.NewSQLiteStore(ctx, s.storePath)
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		s.store = st
		s.logger.Info(ctx, "using sqlite session store", logger.String("path", s.storePath))
	} else {
		s.store = store.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory session store")
	}

	s.surface = annotation.NewSurface()

	recorderOpts := []recorder.Option{
		recorder.WithCodecPreferences(s.codecPrefs),
		recorder.WithLogger(s.logger.Named("recorder")),
	}
	if s.device != nil {
		recorderOpts = append(recorderOpts, recorder.WithDevice(s.device))
	}
	s.recorder = recorder.New(s.surface, recorderOpts...)

	codecOpts := []session.Option{
		session.WithLogger(s.logger.Named("codec")),
	}
	if s.uploader != nil {
		codecOpts = append(codecOpts, session.WithUploader(s.uploader))
	}
	s.codec = session.NewCodec(codecOpts...)

	s.started = true
	s.logger.Info(ctx, "replay service started",
		logger.Int64("tickIntervalMs", s.tickInterval.Milliseconds()),
		logger.Int64("gracePeriodMs", s.gracePeriod.Milliseconds()),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping replay service...")

	if s.recordingID != "" {
		if _, err := s.recorder.Stop(ctx); err != nil {
			s.logger.Warn(ctx, "stopping active recording", logger.Error(err))
		}
		s.recordingID = ""
	}

	for id, entry := range s.replayers {
		entry.sched.Stop()
		delete(s.replayers, id)
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "closing session store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "replay service stopped")
}

// StartRecording begins a new recording session for the given video. The
// initial categories carry into the session as pre-recording edits.
func (s *Service) StartRecording(ctx context.Context, videoID string, categories model.Categories) (*model.FeedbackSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Refuse before seeding: a rejected start must not leak its seed
	// ratings into the session already being recorded.
	if s.recordingID != "" {
		return nil, fmt.Errorf("session %s: %w", s.recordingID, recorder.ErrAlreadyRecording)
	}

	for id, rating := range categories {
		if _, err := s.recorder.RecordCategory(id, rating); err != nil {
			return nil, fmt.Errorf("seed category %s: %w", id, err)
		}
	}

	sess, warn := s.recorder.Start(ctx, videoID)
	if sess == nil {
		return nil, warn
	}
	if warn != nil {
		// Microphone failure degrades to audio-less; the recording stands.
		s.logger.Warn(ctx, "recording started without audio", logger.Error(warn))
	}

	s.recordingID = sess.ID
	s.logger.Info(ctx, "recording started",
		logger.String("sessionID", sess.ID),
		logger.String("videoID", videoID),
	)
	return sess, nil
}

// RecordEvent appends an interaction to the active recording. The offset is
// stamped by the recorder from its epoch.
func (s *Service) RecordEvent(ctx context.Context, sessionID string, eventType model.EventType, payload model.EventPayload) (model.TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRecordingLocked(sessionID); err != nil {
		return model.TimelineEvent{}, err
	}

	switch eventType {
	case model.EventVideo:
		switch payload.Action {
		case model.ActionPlay:
			return s.recorder.RecordPlay()
		case model.ActionPause:
			return s.recorder.RecordPause()
		case model.ActionSeek:
			return s.recorder.RecordSeek(payload.SeekTo)
		case model.ActionRate:
			return s.recorder.RecordRateChange(payload.Rate)
		case model.ActionShortcut:
			return s.recorder.RecordShortcut(payload.Key)
		}
	case model.EventAnnotation:
		switch payload.Action {
		case model.ActionDraw:
			return s.recordStrokeLocked(payload.Stroke)
		case model.ActionClear:
			return s.recorder.RecordClear()
		}
	case model.EventMarker:
		return s.recorder.RecordMarker(payload.Label)
	}
	return model.TimelineEvent{}, fmt.Errorf("%w: %s/%s", ErrInvalidEvent, eventType, payload.Action)
}

// recordStrokeLocked replays a client-submitted stroke through the surface
// so it passes the same commit path as locally drawn strokes.
func (s *Service) recordStrokeLocked(stroke *model.DrawingPath) (model.TimelineEvent, error) {
	if stroke == nil || len(stroke.Points) < 2 {
		return model.TimelineEvent{}, fmt.Errorf("%w: stroke needs at least two points", ErrInvalidEvent)
	}
	if err := s.surface.BeginStroke(stroke.Tool, stroke.Color, stroke.Width, stroke.Points[0], stroke.Timestamp); err != nil {
		return model.TimelineEvent{}, err
	}
	for _, pt := range stroke.Points[1:] {
		if err := s.surface.ExtendStroke(pt); err != nil {
			return model.TimelineEvent{}, err
		}
	}
	var videoTime int64
	if stroke.VideoTime != nil {
		videoTime = *stroke.VideoTime
	}
	return s.recorder.RecordStrokeEnd(videoTime)
}

// StopRecording finalizes the active recording and persists the session.
func (s *Service) StopRecording(ctx context.Context, sessionID string) (*model.FeedbackSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRecordingLocked(sessionID); err != nil {
		return nil, err
	}

	sess, err := s.recorder.Stop(ctx)
	if err != nil {
		return nil, err
	}
	s.recordingID = ""

	if err := s.persistLocked(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "recording stopped",
		logger.String("sessionID", sess.ID),
		logger.Int("events", len(sess.Events)),
		logger.Bool("hasAudio", sess.AudioTrack != nil),
	)
	return sess, nil
}

// SetCategory sets a rating on the active recording, or edits a persisted
// session when the id refers to a stored one. A zero rating removes the
// category.
func (s *Service) SetCategory(ctx context.Context, sessionID, categoryID string, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recordingID == sessionID && s.recordingID != "" {
		_, err := s.recorder.RecordCategory(categoryID, rating)
		return err
	}

	payload, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	sess, err := s.codec.Restore(ctx, payload)
	if err != nil {
		return err
	}
	sess.Categories = sess.Categories.Merge(model.Categories{categoryID: rating})
	// Post-hoc edits stay auditable: the map change lands in the event log
	// too, tagged like pre-recording edits since no clock is running.
	sess.Events = append(sess.Events, model.TimelineEvent{
		ID:      model.NewEventID(),
		Type:    model.EventCategory,
		Payload: model.EventPayload{CategoryID: categoryID, Rating: rating, Prerecorded: true},
	})
	return s.persistLocked(ctx, sess)
}

// persistLocked serializes a session and saves it to the store.
func (s *Service) persistLocked(ctx context.Context, sess *model.FeedbackSession) error {
	payload, err := s.codec.Persist(ctx, sess)
	if err != nil {
		return err
	}
	info := store.Info{
		ID:        sess.ID,
		VideoID:   sess.VideoID,
		StartTime: sess.StartTime,
		EndTime:   sess.EndTime,
		Events:    len(sess.Events),
		HasAudio:  sess.AudioTrack != nil && !sess.AudioTrack.Empty(),
	}
	if err := s.store.Save(ctx, info, payload); err != nil {
		metrics.RecordSessionSaveError()
		return fmt.Errorf("persist session %s: %w", sess.ID, err)
	}
	metrics.RecordSessionSaved()
	return nil
}

// StartReplay loads a persisted session and begins playback.
func (s *Service) StartReplay(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recordingID == sessionID && s.recordingID != "" {
		return fmt.Errorf("%w: session %s is recording", ErrSessionBusy, sessionID)
	}
	if entry, ok := s.replayers[sessionID]; ok {
		if entry.sched.State() == scheduler.StatePlaying {
			return scheduler.ErrAlreadyPlaying
		}
		entry.sched.Stop()
		delete(s.replayers, sessionID)
	}

	payload, err := s.store.Load(ctx, sessionID)
	if err != nil {
		metrics.RecordSessionLoadError()
		return err
	}
	sess, err := s.codec.Restore(ctx, payload)
	if err != nil {
		metrics.RecordSessionLoadError()
		return err
	}
	metrics.RecordSessionLoaded()

	surface := annotation.NewSurface()
	ratings := newRatingCollector()
	log := s.logger.Named("replay")
	opts := []scheduler.Option{
		scheduler.WithLogger(log),
		scheduler.WithTickInterval(s.tickInterval),
		scheduler.WithGracePeriod(s.gracePeriod),
		scheduler.WithRetryDelay(s.retryDelay),
		scheduler.WithMarkerHook(func(label string, offsetMS int64) {
			log.Info(context.Background(), "marker reached",
				logger.String("sessionID", sessionID),
				logger.String("label", label),
				logger.Int64("offsetMs", offsetMS),
			)
		}),
		scheduler.WithCompletionCallback(func(id string) {
			log.Info(context.Background(), "replay completed", logger.String("sessionID", id))
		}),
	}
	if s.playerFactory != nil {
		opts = append(opts, scheduler.WithAudioPlayerFactory(s.playerFactory))
	}

	sched := scheduler.New(sess, surface, newLoggingTransport(log, sessionID), ratings, opts...)
	if err := sched.Load(ctx); err != nil {
		return err
	}
	if err := sched.Play(ctx); err != nil {
		return err
	}

	s.replayers[sessionID] = &replayEntry{sched: sched, surface: surface, ratings: ratings}
	s.logger.Info(ctx, "replay started",
		logger.String("sessionID", sessionID),
		logger.Int("events", len(sess.Events)),
	)
	return nil
}

// StopReplay interrupts an active replay and discards its state.
func (s *Service) StopReplay(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.replayers[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoReplay, sessionID)
	}
	entry.sched.Stop()
	delete(s.replayers, sessionID)
	s.logger.Info(ctx, "replay stopped", logger.String("sessionID", sessionID))
	return nil
}

// ReplayStatus reports the state of a replay for the session.
func (s *Service) ReplayStatus(ctx context.Context, sessionID string) (scheduler.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.replayers[sessionID]
	if !ok {
		return scheduler.Status{}, fmt.Errorf("%w: %s", ErrNoReplay, sessionID)
	}
	return entry.sched.Status(), nil
}

// ListSessions returns metadata for all persisted sessions.
func (s *Service) ListSessions(ctx context.Context) ([]store.Info, error) {
	return s.store.List(ctx)
}

// GetSession returns the persisted JSON payload for a session.
func (s *Service) GetSession(ctx context.Context, id string) ([]byte, error) {
	return s.store.Load(ctx, id)
}

// DeleteSession removes a persisted session, stopping its replay if one is
// active.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.replayers[id]; ok {
		entry.sched.Stop()
		delete(s.replayers, id)
	}
	return s.store.Delete(ctx, id)
}

// requireRecordingLocked verifies the id names the active recording.
func (s *Service) requireRecordingLocked(sessionID string) error {
	if s.recordingID == "" {
		return recorder.ErrNotRecording
	}
	if s.recordingID != sessionID {
		return fmt.Errorf("%w: recording %s, got %s", ErrSessionBusy, s.recordingID, sessionID)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"recording":     s.recordingID != "",
		"activeReplays": len(s.replayers),
	}
	if s.recordingID != "" {
		stats["recordingSessionID"] = s.recordingID
		stats["recordingElapsedMs"] = s.recorder.Elapsed()
	}

	replays := make(map[string]interface{}, len(s.replayers))
	for id, entry := range s.replayers {
		st := entry.sched.Status()
		replays[id] = map[string]interface{}{
			"state":      string(st.State),
			"positionMs": st.Position,
			"pending":    st.Pending,
			"executed":   st.Executed,
		}
	}
	if len(replays) > 0 {
		stats["replays"] = replays
	}

	metrics.UpdateReplaysActive(len(s.replayers))
	return stats
}
