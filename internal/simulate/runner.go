package simulate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/telestra/telestra/internal/replay/scheduler"
	"github.com/telestra/telestra/pkg/logger"
)

const replayPollInterval = 250 * time.Millisecond

// Run records NumSessions synthetic review sessions against the service,
// then replays them concurrently and waits for each replay to complete.
// Recording is sequential because the service holds a single recorder.
func Run(ctx context.Context, config *Config) error {
	log := logger.Get().Named("simulate")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.NumSessions),
		logger.Int("eventsPerSession", config.NumEvents),
	)

	c := newClient(config.BaseURL, config.Timeout)

	sessionIDs := make([]string, 0, config.NumSessions)
	for i := 0; i < config.NumSessions; i++ {
		id, err := recordSession(ctx, c, config, stats, log)
		if err != nil {
			return fmt.Errorf("record session %d: %w", i, err)
		}
		sessionIDs = append(sessionIDs, id)
	}

	if err := replaySessions(ctx, c, config, stats, log, sessionIDs); err != nil {
		return err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	report(ctx, log, stats)

	if stats.ReplaysFailed > 0 || stats.EventsFailed > 0 {
		return fmt.Errorf("simulation finished with %d failed events, %d failed replays",
			stats.EventsFailed, stats.ReplaysFailed)
	}
	return nil
}

// recordSession drives one scripted recording and returns its session id.
func recordSession(ctx context.Context, c *client, config *Config, stats *Stats, log logger.Logger) (string, error) {
	sc := generateScript(config.NumEvents)

	sessionID, err := c.StartSession(ctx, sc.VideoID)
	if err != nil {
		return "", err
	}
	stats.SessionsRecorded++

	spacing := time.Duration(config.SpacingMS) * time.Millisecond
	for _, e := range sc.Events {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(spacing):
		}
		if err := c.SubmitEvent(ctx, sessionID, e); err != nil {
			stats.EventsFailed++
			log.Warn(ctx, "event submission failed",
				logger.String("sessionID", sessionID),
				logger.Error(err),
			)
			continue
		}
		stats.EventsSubmitted++
	}

	for categoryID, rating := range sc.Categories {
		if err := c.SetCategory(ctx, sessionID, categoryID, rating); err != nil {
			log.Warn(ctx, "category edit failed",
				logger.String("sessionID", sessionID),
				logger.String("categoryID", categoryID),
				logger.Error(err),
			)
			continue
		}
		stats.CategoriesApplied++
	}

	if err := c.StopSession(ctx, sessionID); err != nil {
		return "", err
	}
	if config.Verbose {
		log.Info(ctx, "session recorded",
			logger.String("sessionID", sessionID),
			logger.Int("events", len(sc.Events)),
		)
	}
	return sessionID, nil
}

// replaySessions starts all replays and watches them to completion with a
// bounded worker pool.
func replaySessions(ctx context.Context, c *client, config *Config, stats *Stats, log logger.Logger, sessionIDs []string) error {
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for _, sessionID := range sessionIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			err := watchReplay(ctx, c, config, log, id)
			mu.Lock()
			defer mu.Unlock()
			stats.ReplaysStarted++
			if err != nil {
				stats.ReplaysFailed++
				log.Warn(ctx, "replay failed", logger.String("sessionID", id), logger.Error(err))
				return
			}
			stats.ReplaysCompleted++
		}(sessionID)
	}

	wg.Wait()
	return nil
}

// watchReplay starts a replay and polls until the scheduler completes.
func watchReplay(ctx context.Context, c *client, config *Config, log logger.Logger, sessionID string) error {
	if _, err := c.StartReplay(ctx, sessionID); err != nil {
		return err
	}

	ticker := time.NewTicker(replayPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		status, err := c.ReplayStatus(ctx, sessionID)
		if err != nil {
			return err
		}
		if config.Verbose {
			log.Debug(ctx, "replay progress",
				logger.String("sessionID", sessionID),
				logger.String("state", string(status.State)),
				logger.Int64("positionMs", status.Position),
				logger.Int("pending", status.Pending),
			)
		}
		if status.State == scheduler.StateCompleted {
			if status.Pending != 0 {
				return fmt.Errorf("replay completed with %d pending events", status.Pending)
			}
			return nil
		}
	}
}

func report(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "simulation finished",
		logger.Int("sessionsRecorded", stats.SessionsRecorded),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("categoriesApplied", stats.CategoriesApplied),
		logger.Int("replaysCompleted", stats.ReplaysCompleted),
		logger.Int("replaysFailed", stats.ReplaysFailed),
		logger.Int64("durationMs", stats.Duration.Milliseconds()),
	)
}
