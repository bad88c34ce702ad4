package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumSessions int           // Number of sessions to record and replay
	NumEvents   int           // Events per recorded session
	SpacingMS   int           // Wall-clock spacing between recorded events
	Workers     int           // Concurrent replay watchers
	Timeout     time.Duration // HTTP request timeout
	Verbose     bool          // Enable verbose logging
}

// Stats holds simulation statistics.
type Stats struct {
	SessionsRecorded  int
	EventsSubmitted   int
	EventsFailed      int
	ReplaysStarted    int
	ReplaysCompleted  int
	ReplaysFailed     int
	CategoriesApplied int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
