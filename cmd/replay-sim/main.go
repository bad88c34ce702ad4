package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/telestra/telestra/internal/simulate"
	"github.com/telestra/telestra/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumSessions = 3
	defaultNumEvents   = 40
	defaultSpacingMS   = 50
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9090", "Base URL of the service")
		numSessions = flag.Int("sessions", defaultNumSessions, "Number of sessions to record and replay")
		numEvents   = flag.Int("events", defaultNumEvents, "Events per recorded session")
		spacingMS   = flag.Int("spacing", defaultSpacingMS, "Milliseconds between recorded events")
		workers     = flag.Int("workers", runtime.NumCPU(), "Concurrent replay watchers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:     *baseURL,
		NumSessions: *numSessions,
		NumEvents:   *numEvents,
		SpacingMS:   *spacingMS,
		Workers:     *workers,
		Timeout:     *timeout,
		Verbose:     *verbose,
	}

	if err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
