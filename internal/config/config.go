// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// TickIntervalMS sets the simulated clock tick interval.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// CompletionGraceMS extends the simulated clock past the last event
	// so trailing audio commentary is not cut off.
	CompletionGraceMS int `koanf:"completion_grace_ms"`

	// AudioRetryDelayMS is the wait before retrying blocked audio playback.
	AudioRetryDelayMS int `koanf:"audio_retry_delay_ms"`

	// MaxPendingEvents bounds the recording event log.
	MaxPendingEvents int `koanf:"max_pending_events"`

	// StorePath selects the sqlite database file. Empty keeps sessions
	// in memory only.
	StorePath string `koanf:"store_path"`

	// CodecPreferences orders audio capture formats by preference.
	CodecPreferences []string `koanf:"codec_preferences"`

	// MaxUploadBytes caps the accepted audio payload size.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9090",
		TickIntervalMS:    100,
		CompletionGraceMS: 5_000,
		AudioRetryDelayMS: 500,
		MaxPendingEvents:  100_000,
		StorePath:         "",
		CodecPreferences: []string{
			"audio/webm;codecs=opus",
			"audio/webm",
			"audio/ogg;codecs=opus",
			"audio/mp4",
		},
		MaxUploadBytes: 64 << 20,
	}
}
