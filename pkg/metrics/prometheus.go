// Package metrics provides Prometheus metrics for the telestra replay service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the replay service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Recording metrics
	eventsRecorded       *prometheus.CounterVec
	recordingsActive     prometheus.Gauge
	audioChunksFinalized prometheus.Counter
	audioBytesCaptured   prometheus.Counter
	microphoneFailures   prometheus.Counter

	// Replay metrics
	eventsReplayed       *prometheus.CounterVec
	eventExecutionErrors prometheus.Counter
	replaysActive        prometheus.Gauge
	replaysCompleted     prometheus.Counter
	replayTickLatency    prometheus.Histogram
	pendingEvents        prometheus.Gauge
	audioPlaybackRetries prometheus.Counter
	clockFallbacks       prometheus.Counter

	// Annotation metrics
	strokesVisible prometheus.Gauge
	canvasClears   prometheus.Counter

	// Session persistence metrics
	sessionsSaved      prometheus.Counter
	sessionsLoaded     prometheus.Counter
	sessionSaveErrors  prometheus.Counter
	sessionLoadErrors  prometheus.Counter
	legacyTranslations prometheus.Counter
	storeLatency       *prometheus.HistogramVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "telestra",
		subsystem:        "replay",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	// Recording metrics
	m.eventsRecorded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_recorded_total",
		Help:      "Total number of timeline events recorded, by event type",
	}, []string{"type"})

	m.recordingsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recordings_active",
		Help:      "Number of recording sessions currently active",
	})

	m.audioChunksFinalized = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audio_chunks_finalized_total",
		Help:      "Total number of audio chunks finalized on recording stop",
	})

	m.audioBytesCaptured = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audio_bytes_captured_total",
		Help:      "Total number of audio bytes captured from the microphone",
	})

	m.microphoneFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "microphone_failures_total",
		Help:      "Total number of microphone acquisition failures",
	})

	// Replay metrics
	m.eventsReplayed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_replayed_total",
		Help:      "Total number of timeline events executed during replay, by event type",
	}, []string{"type"})

	m.eventExecutionErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "event_execution_errors_total",
		Help:      "Total number of event executions that failed during replay",
	})

	m.replaysActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replays_active",
		Help:      "Number of replay sessions currently active",
	})

	m.replaysCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replays_completed_total",
		Help:      "Total number of replays that reached the completed state",
	})

	m.replayTickLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replay_tick_latency_milliseconds",
		Help:      "Histogram of scheduler tick processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.pendingEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pending_events",
		Help:      "Number of events remaining in the active replay pending queue",
	})

	m.audioPlaybackRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audio_playback_retries_total",
		Help:      "Total number of mid-replay audio playback retries",
	})

	m.clockFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "clock_fallbacks_total",
		Help:      "Total number of falls back from the audio clock to the simulated clock",
	})

	// Annotation metrics
	m.strokesVisible = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "strokes_visible",
		Help:      "Number of annotation strokes currently visible",
	})

	m.canvasClears = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "canvas_clears_total",
		Help:      "Total number of canvas clear operations executed",
	})

	// Session persistence metrics
	m.sessionsSaved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_saved_total",
		Help:      "Total number of sessions persisted",
	})

	m.sessionsLoaded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_loaded_total",
		Help:      "Total number of sessions loaded from the store",
	})

	m.sessionSaveErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_save_errors_total",
		Help:      "Total number of session save failures",
	})

	m.sessionLoadErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_load_errors_total",
		Help:      "Total number of session load failures",
	})

	m.legacyTranslations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "legacy_translations_total",
		Help:      "Total number of legacy session shapes translated on load",
	})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_latency_milliseconds",
		Help:      "Histogram of persistence store operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"operation"})

	// HTTP metrics
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// Recording metrics functions.

// RecordEventRecorded increments the recorded events counter for an event type.
func RecordEventRecorded(eventType string) {
	globalManager.eventsRecorded.WithLabelValues(eventType).Inc()
}

// UpdateRecordingsActive sets the number of active recordings.
func UpdateRecordingsActive(count int) {
	globalManager.recordingsActive.Set(float64(count))
}

// RecordAudioChunkFinalized increments the finalized audio chunk counter.
func RecordAudioChunkFinalized() {
	globalManager.audioChunksFinalized.Inc()
}

// RecordAudioBytesCaptured adds to the captured audio bytes counter.
func RecordAudioBytesCaptured(n int) {
	globalManager.audioBytesCaptured.Add(float64(n))
}

// RecordMicrophoneFailure increments the microphone failure counter.
func RecordMicrophoneFailure() {
	globalManager.microphoneFailures.Inc()
}

// Replay metrics functions.

// RecordEventReplayed increments the replayed events counter for an event type.
func RecordEventReplayed(eventType string) {
	globalManager.eventsReplayed.WithLabelValues(eventType).Inc()
}

// RecordEventExecutionError increments the event execution error counter.
func RecordEventExecutionError() {
	globalManager.eventExecutionErrors.Inc()
}

// UpdateReplaysActive sets the number of active replays.
func UpdateReplaysActive(count int) {
	globalManager.replaysActive.Set(float64(count))
}

// RecordReplayCompleted increments the completed replays counter.
func RecordReplayCompleted() {
	globalManager.replaysCompleted.Inc()
}

// RecordReplayTickLatency records scheduler tick latency in milliseconds.
func RecordReplayTickLatency(latencyMs float64) {
	globalManager.replayTickLatency.Observe(latencyMs)
}

// UpdatePendingEvents sets the pending event queue size.
func UpdatePendingEvents(count int) {
	globalManager.pendingEvents.Set(float64(count))
}

// RecordAudioPlaybackRetry increments the audio retry counter.
func RecordAudioPlaybackRetry() {
	globalManager.audioPlaybackRetries.Inc()
}

// RecordClockFallback increments the audio-to-simulated clock fallback counter.
func RecordClockFallback() {
	globalManager.clockFallbacks.Inc()
}

// Annotation metrics functions.

// UpdateStrokesVisible sets the number of visible strokes.
func UpdateStrokesVisible(count int) {
	globalManager.strokesVisible.Set(float64(count))
}

// RecordCanvasClear increments the canvas clear counter.
func RecordCanvasClear() {
	globalManager.canvasClears.Inc()
}

// Session persistence metrics functions.

// RecordSessionSaved increments the sessions saved counter.
func RecordSessionSaved() {
	globalManager.sessionsSaved.Inc()
}

// RecordSessionLoaded increments the sessions loaded counter.
func RecordSessionLoaded() {
	globalManager.sessionsLoaded.Inc()
}

// RecordSessionSaveError increments the session save error counter.
func RecordSessionSaveError() {
	globalManager.sessionSaveErrors.Inc()
}

// RecordSessionLoadError increments the session load error counter.
func RecordSessionLoadError() {
	globalManager.sessionLoadErrors.Inc()
}

// RecordLegacyTranslation increments the legacy shape translation counter.
func RecordLegacyTranslation() {
	globalManager.legacyTranslations.Inc()
}

// RecordStoreLatency records a persistence store operation latency.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// HTTP metrics functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
