// Package scheduler drives the replay of a recorded feedback session: given
// a sorted event log and a live clock source, it determines which events
// are due on every tick, executes them in a deterministic order, and
// applies their side effects through injected collaborators.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/telestra/telestra/internal/domain/annotation"
	"github.com/telestra/telestra/internal/domain/model"
	"github.com/telestra/telestra/internal/domain/timeline"
	"github.com/telestra/telestra/internal/replay/clock"
	"github.com/telestra/telestra/pkg/logger"
	"github.com/telestra/telestra/pkg/metrics"
)

// State names the replay lifecycle phases.
type State string

// Replay states. Completed is terminal for a given session replay; Reset
// returns to Idle.
const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateArmed     State = "armed"
	StatePlaying   State = "playing"
	StateCompleted State = "completed"
)

// Default scheduler configuration constants.
const (
	// defaultGracePeriod extends the simulated clock past the last event so
	// trailing effects stay visible before completion.
	defaultGracePeriod = 5000 * time.Millisecond
)

// AudioPlayerFactory builds a player for a session's audio track. Returning
// an error degrades the replay to the simulated clock.
type AudioPlayerFactory func(ctx context.Context, track *model.AudioTrack) (clock.AudioPlayer, error)

// AssetResolver converts a remote storage URL into a locally playable one
// during the Loading phase.
type AssetResolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// Scheduler replays one session. It owns the pending event queue and the
// timeline position for the duration of the replay.
type Scheduler struct {
	session *model.FeedbackSession
	surface *annotation.Surface
	video   VideoTransport
	ratings RatingSink

	markerHook    MarkerHook
	frames        FrameScheduler
	playerFactory AudioPlayerFactory
	resolver      AssetResolver
	onComplete    func(sessionID string)
	gracePeriod   time.Duration
	tickInterval  time.Duration
	retryDelay    time.Duration
	logger        logger.Logger

	clockOverride clock.Source

	mu       sync.Mutex
	state    State
	pending  []model.TimelineEvent
	executed int
	src      clock.Source
	cancel   context.CancelFunc
}

// New creates a scheduler for a session in the Idle state. The surface,
// video transport, and rating sink are the capability objects the replayed
// events act on.
func New(session *model.FeedbackSession, surface *annotation.Surface, video VideoTransport, ratings RatingSink, opts ...Option) *Scheduler {
	s := &Scheduler{
		session:      session,
		surface:      surface,
		video:        video,
		ratings:      ratings,
		frames:       NewPacedFrames(defaultFrameInterval),
		gracePeriod:  defaultGracePeriod,
		tickInterval: 0, // sim clock default
		logger:       logger.Get().Named("scheduler"),
		state:        StateIdle,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Position returns the current timeline position, 0 before the clock exists.
func (s *Scheduler) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src == nil {
		return 0
	}
	return s.src.Position()
}

// Status reports replay progress for external observers.
type Status struct {
	State    State `json:"state"`
	Position int64 `json:"position"`
	Pending  int   `json:"pending"`
	Executed int   `json:"executed"`
}

// Status returns a snapshot of replay progress.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{State: s.state, Pending: len(s.pending), Executed: s.executed}
	if s.src != nil {
		st.Position = s.src.Position()
	}
	return st
}

// Load resolves remote assets and arms the replay: the event log is copied
// into a pending queue sorted by (offset, priority, insertion order), the
// clock source is constructed but not yet ticking, and the annotation
// surface is reset.
func (s *Scheduler) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
	case StateCompleted:
		return ErrCompleted
	default:
		return fmt.Errorf("state %s: %w", s.state, ErrAlreadyPlaying)
	}
	s.state = StateLoading

	if err := s.resolveAssets(ctx); err != nil {
		s.state = StateIdle
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	s.pending = make([]model.TimelineEvent, len(s.session.Events))
	copy(s.pending, s.session.Events)
	for i := range s.pending {
		s.pending[i].Seq = uint64(i)
	}
	timeline.Sort(s.pending)
	s.executed = 0

	s.surface.Reset()
	s.surface.SetReplaying(true)

	s.src = s.buildClock(ctx)
	s.state = StateArmed
	metrics.UpdatePendingEvents(len(s.pending))
	return nil
}

// resolveAssets rewrites remote chunk URLs through the resolver. Holding
// the lock here is fine: nothing else can touch a Loading scheduler.
func (s *Scheduler) resolveAssets(ctx context.Context) error {
	if s.resolver == nil || s.session.AudioTrack.Empty() {
		return nil
	}
	for i := range s.session.AudioTrack.Chunks {
		chunk := &s.session.AudioTrack.Chunks[i]
		if chunk.RemoteURL == "" {
			continue
		}
		resolved, err := s.resolver.Resolve(ctx, chunk.RemoteURL)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", chunk.RemoteURL, err)
		}
		chunk.RemoteURL = resolved
	}
	return nil
}

// buildClock picks the audio clock when a track and player factory exist,
// otherwise the simulated clock bounded by the last event plus the grace
// period.
func (s *Scheduler) buildClock(ctx context.Context) clock.Source {
	if s.clockOverride != nil {
		return s.clockOverride
	}
	if s.playerFactory != nil && !s.session.AudioTrack.Empty() {
		player, err := s.playerFactory(ctx, s.session.AudioTrack)
		if err == nil {
			ac := clock.NewAudioClock(player, s.audioClockOpts()...)
			return ac
		}
		s.logger.Warn(ctx, "audio player unavailable; using simulated clock", logger.Error(err))
		metrics.RecordClockFallback()
	}
	return s.simClock()
}

func (s *Scheduler) audioClockOpts() []clock.AudioOption {
	opts := []clock.AudioOption{clock.WithAudioLogger(s.logger.Named("audio"))}
	if s.retryDelay > 0 {
		opts = append(opts, clock.WithRetryDelay(s.retryDelay))
	}
	return opts
}

func (s *Scheduler) simClock() clock.Source {
	limit := s.session.MaxEventOffset() + s.gracePeriod.Milliseconds()
	opts := []clock.SimOption{clock.WithLimit(limit)}
	if s.tickInterval > 0 {
		opts = append(opts, clock.WithInterval(s.tickInterval))
	}
	return clock.NewSimClock(opts...)
}

// Play starts the clock and enters the Playing state. If the audio clock
// fails to start even after its retry, the replay falls back transparently
// to the simulated clock.
func (s *Scheduler) Play(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateArmed {
		s.mu.Unlock()
		return fmt.Errorf("state %s: %w", s.state, ErrNotArmed)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	src := s.src
	s.mu.Unlock()

	src.Subscribe(s.tick)
	if err := src.Start(runCtx); err != nil {
		s.logger.Warn(ctx, "clock start failed; falling back to simulated clock", logger.Error(err))
		metrics.RecordClockFallback()

		s.mu.Lock()
		src = s.simClock()
		s.src = src
		s.mu.Unlock()

		src.Subscribe(s.tick)
		if err := src.Start(runCtx); err != nil {
			cancel()
			return fmt.Errorf("simulated clock start: %w", err)
		}
	}

	s.mu.Lock()
	s.state = StatePlaying
	s.mu.Unlock()
	metrics.UpdateReplaysActive(1)

	go s.awaitCompletion(runCtx, src)
	return nil
}

// awaitCompletion waits for the clock's end-of-media signal.
func (s *Scheduler) awaitCompletion(ctx context.Context, src clock.Source) {
	select {
	case <-ctx.Done():
	case <-src.Done():
		s.complete()
	}
}

// tick is the per-advance algorithm. Phase 1 reads the clock-derived
// position; phase 2 partitions the pending queue, executes the due batch in
// the authoritative order, and defers category events one frame apart.
// Errors never escape the tick boundary.
func (s *Scheduler) tick(position int64) {
	start := time.Now()
	defer func() {
		metrics.RecordReplayTickLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return
	}

	// Phase 2: partition pending into due and not-due. Dequeued events are
	// never requeued, so a later backward clock glitch cannot re-execute
	// them.
	var due, notDue []model.TimelineEvent
	for _, e := range s.pending {
		if e.TimeOffset <= position {
			due = append(due, e)
		} else {
			notDue = append(notDue, e)
		}
	}
	s.pending = notDue
	s.executed += len(due)
	s.mu.Unlock()

	if len(due) == 0 {
		return
	}
	metrics.UpdatePendingEvents(len(notDue))

	// The pending queue is globally sorted, but sort the batch anyway: the
	// ordering rule, not queue history, is authoritative.
	timeline.Sort(due)

	for _, e := range due {
		s.execute(e)
	}
}

// execute applies a single event's side effects. Each execution is
// isolated: one bad event does not halt the rest of the batch.
func (s *Scheduler) execute(e model.TimelineEvent) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordEventExecutionError()
			s.logger.Error(context.Background(), "event execution panicked",
				logger.String("eventID", e.ID),
				logger.String("type", string(e.Type)),
				logger.Any("panic", r),
			)
		}
	}()

	switch e.Type {
	case model.EventVideo:
		s.executeVideo(e)
	case model.EventAnnotation:
		s.executeAnnotation(e)
	case model.EventMarker:
		if s.markerHook != nil {
			s.markerHook(e.Payload.Label, e.TimeOffset)
		}
	case model.EventCategory:
		// One frame per rating change so a UI that batches state updates
		// still renders each change.
		categoryID, rating := e.Payload.CategoryID, e.Payload.Rating
		s.frames.Schedule(func() {
			s.ratings.ApplyRating(categoryID, rating)
		})
	}
	metrics.RecordEventReplayed(string(e.Type))
}

func (s *Scheduler) executeVideo(e model.TimelineEvent) {
	switch e.Payload.Action {
	case model.ActionPlay:
		s.video.Play()
	case model.ActionPause:
		s.video.Pause()
	case model.ActionSeek:
		s.video.Seek(e.Payload.SeekTo)
	case model.ActionRate:
		s.video.SetPlaybackRate(e.Payload.Rate)
	case model.ActionShortcut:
		// Shortcuts were already translated to transport actions when
		// recorded; a bare shortcut event has no replay effect.
	}
}

func (s *Scheduler) executeAnnotation(e model.TimelineEvent) {
	switch e.Payload.Action {
	case model.ActionClear:
		s.surface.Clear(e.TimeOffset)
	case model.ActionDraw:
		if e.Payload.Stroke == nil {
			return
		}
		// Re-stamp the stroke to the event's timeline offset, not its
		// original recording videoTime, so visibility tracks the replay
		// clock.
		stroke := e.Payload.Stroke.Clone()
		offset := e.TimeOffset
		stroke.TimelineOffset = &offset
		stroke.HiddenAt = nil
		s.surface.AddStroke(stroke)
	}
}

// complete transitions to Completed: the clock stops, the video rewinds,
// the annotation surface and last-clear-time reset, and the completion
// callback fires once.
func (s *Scheduler) complete() {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return
	}
	s.state = StateCompleted
	src := s.src
	cancel := s.cancel
	s.pending = nil
	s.mu.Unlock()

	if src != nil {
		src.Stop()
	}
	if cancel != nil {
		cancel()
	}

	s.video.Pause()
	s.video.Seek(0)
	s.surface.SetReplaying(false)
	s.surface.Reset()

	metrics.UpdateReplaysActive(0)
	metrics.UpdatePendingEvents(0)
	metrics.RecordReplayCompleted()

	if s.onComplete != nil {
		s.onComplete(s.session.ID)
	}
}

// Stop cancels the replay mid-session: the clock pauses, the remaining
// pending queue is discarded, and all visual state resets. An in-flight
// tick may finish its current batch, but no further events fire.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != StatePlaying && s.state != StateArmed {
		s.mu.Unlock()
		return
	}
	s.state = StateIdle
	src := s.src
	cancel := s.cancel
	s.src = nil
	s.cancel = nil
	s.pending = nil
	s.executed = 0
	s.mu.Unlock()

	if src != nil {
		src.Stop()
	}
	if cancel != nil {
		cancel()
	}
	if dropper, ok := s.frames.(interface{ Drop() }); ok {
		dropper.Drop()
	}

	s.surface.SetReplaying(false)
	s.surface.Reset()
	metrics.UpdateReplaysActive(0)
	metrics.UpdatePendingEvents(0)
}

// Reset returns a Completed scheduler to Idle so the session can be
// replayed again: the clock rewinds, the last clear time zeroes, and the
// annotation surface clears.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	if s.state != StateCompleted && s.state != StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateIdle
	s.src = nil
	s.pending = nil
	s.executed = 0
	s.mu.Unlock()

	s.surface.SetReplaying(false)
	s.surface.Reset()
}

// Tick exposes the per-tick algorithm for callers that drive the scheduler
// with an external clock, such as tests and the simulator.
func (s *Scheduler) Tick(position int64) {
	s.tick(position)
}
