package service

import (
	"context"
	"sync"

	"github.com/telestra/telestra/internal/domain/model"
	"github.com/telestra/telestra/pkg/logger"
)

// loggingTransport is the headless video collaborator: replayed video
// actions are surfaced as structured log lines instead of driving a player
// element.
type loggingTransport struct {
	log       logger.Logger
	sessionID string
}

func newLoggingTransport(log logger.Logger, sessionID string) *loggingTransport {
	return &loggingTransport{log: log, sessionID: sessionID}
}

func (t *loggingTransport) Seek(ms int64) {
	t.log.Debug(context.Background(), "video seek",
		logger.String("sessionID", t.sessionID),
		logger.Int64("toMs", ms),
	)
}

func (t *loggingTransport) Play() {
	t.log.Debug(context.Background(), "video play", logger.String("sessionID", t.sessionID))
}

func (t *loggingTransport) Pause() {
	t.log.Debug(context.Background(), "video pause", logger.String("sessionID", t.sessionID))
}

func (t *loggingTransport) SetPlaybackRate(rate float64) {
	t.log.Debug(context.Background(), "video rate change",
		logger.String("sessionID", t.sessionID),
		logger.Float64("rate", rate),
	)
}

// ratingCollector accumulates category ratings as replay applies them,
// exposing the reconstructed rating state at any point of playback.
type ratingCollector struct {
	mu      sync.Mutex
	ratings model.Categories
}

func newRatingCollector() *ratingCollector {
	return &ratingCollector{ratings: model.Categories{}}
}

func (c *ratingCollector) ApplyRating(categoryID string, rating int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rating == 0 {
		delete(c.ratings, categoryID)
		return
	}
	c.ratings[categoryID] = rating
}

// Snapshot returns a copy of the currently applied ratings.
func (c *ratingCollector) Snapshot() model.Categories {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ratings.Clone()
}
